package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/blobreindex/azure/blobstore"
	"github.com/meghashyamc/blobreindex/azure/searchindex"
	"github.com/meghashyamc/blobreindex/config"
	"github.com/meghashyamc/blobreindex/db/kvdb"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/services/reindex"
	"github.com/meghashyamc/blobreindex/validation"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	cfg        *config.Config
	router     *gin.Engine
	httpServer *http.Server
	kvdb       kvdb.DB
	service    *reindex.Service
	validator  *validation.Validator
	logger     logger.Logger
}

// Run serves the HTTP API until ctx is cancelled or the process is interrupted.
func Run(ctx context.Context, cfg *config.Config, logger logger.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s := &server{
		cfg:    cfg,
		logger: logger,
	}
	if err := s.setupDependencies(); err != nil {
		return err
	}
	defer s.kvdb.Close()

	s.setupRouter()
	s.setupHTTPServer()

	return s.serve(ctx)
}

func (s *server) setupDependencies() error {
	var err error
	if err = s.cfg.Validate(); err != nil {
		s.logger.Error("invalid configuration", "err", err.Error())
		return err
	}

	blobs, err := blobstore.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating blob container client", "err", err.Error())
		return err
	}
	s.kvdb, err = kvdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		s.kvdb.Close()
		return err
	}

	s.service = reindex.New(s.logger, s.cfg, searchindex.New(s.logger, s.cfg), blobs, s.kvdb)

	pruned, err := s.service.PruneExpiredOperations()
	if err != nil {
		s.logger.Warn("could not prune operation journal", "err", err.Error())
	} else if pruned > 0 {
		s.logger.Info("pruned expired operations", "pruned", pruned, "retention", s.cfg.GetJournalRetention().String())
	}

	return nil
}

func (s *server) setupRouter() {
	router := newRouter()

	router.Use(loggingMiddleware(s.logger))

	setupRoutes(router, s.logger, s.service, s.validator)

	s.router = router
}

func (s *server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *server) serve(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			s.logger.Error("http server stopped", "err", err.Error())
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err)
		return err
	}
	s.logger.Info("shut down http server successfully")

	return nil
}
