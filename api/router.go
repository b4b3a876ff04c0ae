package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/blobreindex/api/handlers"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/metrics"
	"github.com/meghashyamc/blobreindex/services/reindex"
	"github.com/meghashyamc/blobreindex/validation"
)

func setupRoutes(router *gin.Engine, logger logger.Logger, service *reindex.Service, validator *validation.Validator) {
	router.GET("/health", health())
	router.GET("/metrics", metrics.Handler())

	handlers.SetupIndexer(router, logger, service)
	handlers.SetupIndex(router, logger, service)
	handlers.SetupBlobs(router, logger, service, validator)
	handlers.SetupOperations(router, logger, service, validator)
}

func health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	}
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.Use(_CORSMiddleware())
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())

	return router
}
