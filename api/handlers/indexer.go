package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/services/reindex"
)

func SetupIndexer(router *gin.Engine, logger logger.Logger, service *reindex.Service) {
	router.POST("/indexer/run", handleRunIndexer(service, logger))
	router.GET("/indexer/status", handleIndexerStatus(service, logger))
}

// handleRunIndexer answers 202 when the run was accepted and 502 with the
// failed result otherwise.
func handleRunIndexer(service *reindex.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := service.RunIndexer(c.Request.Context())
		if result.Status != reindex.ResultStatusOK {
			logger.Warn("indexer run was not accepted", "details", result.Details)
			writeResponse(c, result, http.StatusBadGateway, []string{result.Details})
			return
		}

		writeResponse(c, result, http.StatusAccepted, nil)
	}
}

func handleIndexerStatus(service *reindex.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := service.GetIndexerStatus(c.Request.Context())
		if err != nil {
			logger.Warn("could not get indexer status", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusBadGateway, []string{err.Error()})
			return
		}

		writeResponse(c, status, http.StatusOK, nil)
	}
}
