package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/services/reindex"
	"github.com/meghashyamc/blobreindex/validation"
)

const formFieldFile = "file"

type UploadRequest struct {
	Name string `form:"name" json:"name" validate:"valid_blob_name"`
}

type UploadResponse struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type DeleteBlobsResponse struct {
	Container string `json:"container"`
	Deleted   int    `json:"deleted"`
}

func SetupBlobs(router *gin.Engine, logger logger.Logger, service *reindex.Service, validator *validation.Validator) {
	router.POST("/blobs", handleUploadBlob(service, logger, validator))
	router.DELETE("/blobs", handleDeleteAllBlobs(service, logger))
}

func handleUploadBlob(service *reindex.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile(formFieldFile)
		if err != nil {
			logger.Warn("could not extract file from upload request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract file from request"})
			return
		}

		request := UploadRequest{Name: c.PostForm("name")}
		if request.Name == "" {
			request.Name = fileHeader.Filename
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate upload request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			logger.Error("could not open uploaded file", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}
		defer file.Close()

		if err := service.UploadBlob(c.Request.Context(), request.Name, file); err != nil {
			logger.Warn("could not upload blob", "blob", request.Name, "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusBadGateway, []string{err.Error()})
			return
		}

		writeResponse(c, UploadResponse{Name: request.Name, Size: fileHeader.Size}, http.StatusCreated, nil)
	}
}

func handleDeleteAllBlobs(service *reindex.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := service.DeleteAllBlobs(c.Request.Context())
		if err != nil {
			logger.Warn("could not delete all blobs", "container", service.ContainerName(), "deleted", deleted, "err", err.Error())
			c.Abort()
			writeResponse(c, DeleteBlobsResponse{Container: service.ContainerName(), Deleted: deleted}, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, DeleteBlobsResponse{Container: service.ContainerName(), Deleted: deleted}, http.StatusOK, nil)
	}
}
