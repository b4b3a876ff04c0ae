package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/blobreindex/db/kvdb"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/services/reindex"
	"github.com/meghashyamc/blobreindex/validation"
)

const defaultOperationsLimit = 20

type ListOperationsRequest struct {
	Limit int `form:"limit" json:"limit" validate:"min=0,max=1000"`
}

type GetOperationRequest struct {
	ID string `uri:"id" json:"id" validate:"required,uuid"`
}

func SetupOperations(router *gin.Engine, logger logger.Logger, service *reindex.Service, validator *validation.Validator) {
	router.GET("/operations", handleListOperations(service, logger, validator))
	router.GET("/operations/:id", handleGetOperation(service, logger, validator))
}

func handleListOperations(service *reindex.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := ListOperationsRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from list operations request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract query parameters"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate list operations request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}
		if request.Limit == 0 {
			request.Limit = defaultOperationsLimit
		}

		operations, err := service.ListOperations(request.Limit)
		if err != nil {
			logger.Error("could not list operations", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, operations, http.StatusOK, nil)
	}
}

func handleGetOperation(service *reindex.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := GetOperationRequest{}
		if err := c.ShouldBindUri(&request); err != nil {
			logger.Warn("could not extract operation id", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusUnprocessableEntity, []string{"failed to extract operation id"})
			return
		}

		if err := validator.Validate(request); err != nil {
			logger.Warn("could not validate get operation request", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusNotAcceptable, []string{err.Error()})
			return
		}

		operation, err := service.GetOperation(request.ID)
		if err != nil {
			statusCode := http.StatusInternalServerError
			if errors.Is(err, kvdb.ErrNotFound) {
				statusCode = http.StatusNotFound
			}
			logger.Warn("could not get operation", "operation_id", request.ID, "err", err.Error())
			c.Abort()
			writeResponse(c, nil, statusCode, []string{err.Error()})
			return
		}

		writeResponse(c, operation, http.StatusOK, nil)
	}
}
