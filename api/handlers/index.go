package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/services/reindex"
)

func SetupIndex(router *gin.Engine, logger logger.Logger, service *reindex.Service) {
	router.POST("/index/recreate", handleRecreateIndex(service, logger))
	router.POST("/index/empty", handleEmptyIndex(service, logger))
}

func handleRecreateIndex(service *reindex.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.RecreateIndex(c.Request.Context()); err != nil {
			logger.Warn("could not recreate index", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}

func handleEmptyIndex(service *reindex.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.EmptyIndex(c.Request.Context()); err != nil {
			logger.Warn("could not empty index", "err", err.Error())
			c.Abort()
			writeResponse(c, nil, http.StatusInternalServerError, []string{err.Error()})
			return
		}

		writeResponse(c, nil, http.StatusNoContent, nil)
	}
}
