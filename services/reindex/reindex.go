package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/meghashyamc/blobreindex/azure/searchindex"
	"github.com/meghashyamc/blobreindex/config"
	"github.com/meghashyamc/blobreindex/logger"
	"github.com/meghashyamc/blobreindex/metrics"
)

// SearchService represents the search service operations needed for reindexing
type SearchService interface {
	RunIndexer(ctx context.Context, indexerName string) error
	GetIndexerStatus(ctx context.Context, indexerName string) (*searchindex.IndexerStatus, error)
	ListIndexNames(ctx context.Context) ([]string, error)
	DeleteIndex(ctx context.Context, indexName string) error
	CreateIndex(ctx context.Context, index searchindex.Index) error
}

// BlobContainer represents the blob container the indexer reads from
type BlobContainer interface {
	ListBlobNames(ctx context.Context) ([]string, error)
	DeleteBlob(ctx context.Context, blobName string) error
	Upload(ctx context.Context, blobName string, body io.Reader) error
	Name() string
}

const (
	ResultStatusOK    = "ok"
	ResultStatusError = "error"
)

var ErrJournalDisabled = errors.New("operation journal is not configured")

// Result reports the outcome of an indexer run. A failed run is a Result, not an error.
type Result struct {
	OperationID string `json:"operation_id,omitempty"`
	Status      string `json:"status"`
	Details     string `json:"details,omitempty"`
}

type Service struct {
	logger           logger.Logger
	search           SearchService
	blobs            BlobContainer
	journal          Journal
	journalRetention time.Duration
	indexName        string
	indexerName      string
}

func New(logger logger.Logger, cfg *config.Config, search SearchService, blobs BlobContainer, journal Journal) *Service {
	return &Service{
		logger:           logger,
		search:           search,
		blobs:            blobs,
		journal:          journal,
		journalRetention: cfg.GetJournalRetention(),
		indexName:        cfg.GetSearchIndexName(),
		indexerName:      cfg.GetIndexerName(),
	}
}

// ContainerName is the blob container the service reads from and writes to.
func (s *Service) ContainerName() string {
	return s.blobs.Name()
}

// RunIndexer triggers a run of the configured indexer so that it picks up the
// blobs currently in the container. Failures are logged and reported in the
// Result.
func (s *Service) RunIndexer(ctx context.Context) Result {
	operation, started := s.startOperation(KindRunIndexer), time.Now()

	err := s.search.RunIndexer(ctx, s.indexerName)
	s.track(operation, started, err)
	if err != nil {
		s.logger.Error("failed to run the indexer", "indexer", s.indexerName, "err", err.Error())
		return Result{OperationID: operation.ID, Status: ResultStatusError, Details: resultDetails(err)}
	}
	s.logger.Debug("indexer triggered successfully", "indexer", s.indexerName)

	return Result{OperationID: operation.ID, Status: ResultStatusOK}
}

func (s *Service) GetIndexerStatus(ctx context.Context) (*searchindex.IndexerStatus, error) {
	status, err := s.search.GetIndexerStatus(ctx, s.indexerName)
	if err != nil {
		s.logger.Error("failed to get indexer status", "indexer", s.indexerName, "err", err.Error())
		return nil, err
	}

	return status, nil
}

// DeleteAllBlobs deletes every blob in the container and returns how many were
// deleted. The first failure stops the deletion; blobs already deleted stay deleted.
func (s *Service) DeleteAllBlobs(ctx context.Context) (int, error) {
	operation, started := s.startOperation(KindDeleteAllBlobs), time.Now()

	deleted, err := s.deleteAllBlobs(ctx)
	s.track(operation, started, err)
	if err != nil {
		s.logger.Error("error while deleting blobs", "container", s.blobs.Name(), "deleted", deleted, "err", err.Error())
		return deleted, err
	}

	return deleted, nil
}

// RecreateIndex drops the configured index if it exists and creates it again
// with the default schema. A failure after the delete leaves no index behind.
func (s *Service) RecreateIndex(ctx context.Context) error {
	operation, started := s.startOperation(KindRecreateIndex), time.Now()

	err := s.recreateIndex(ctx)
	s.track(operation, started, err)
	if err != nil {
		s.logger.Error("error while recreating the index", "index", s.indexName, "err", err.Error())
		return err
	}

	return nil
}

// UploadBlob writes body to the named blob, replacing any existing blob of that name.
func (s *Service) UploadBlob(ctx context.Context, blobName string, body io.Reader) error {
	operation, started := s.startOperation(KindUploadBlob), time.Now()

	s.logger.Debug("uploading blob", "container", s.blobs.Name(), "blob", blobName)
	err := s.blobs.Upload(ctx, blobName, body)
	s.track(operation, started, err)
	if err != nil {
		s.logger.Error("error while uploading blob", "blob", blobName, "err", err.Error())
		return err
	}
	s.logger.Debug("blob uploaded successfully", "blob", blobName)

	return nil
}

// UploadFile uploads a local file. An empty blobName means the file's base name.
func (s *Service) UploadFile(ctx context.Context, path string, blobName string) error {
	file, err := os.Open(path)
	if err != nil {
		s.logger.Error("could not open file for upload", "path", path, "err", err.Error())
		return fmt.Errorf("could not open %s: %w", path, err)
	}
	defer file.Close()

	if blobName == "" {
		blobName = filepath.Base(path)
	}

	return s.UploadBlob(ctx, blobName, file)
}

// EmptyIndex clears the container and then recreates the index, stopping at
// the first step that fails.
func (s *Service) EmptyIndex(ctx context.Context) error {
	operation, started := s.startOperation(KindEmptyIndex), time.Now()
	s.logger.Info("starting index removal")

	err := s.emptyIndex(ctx)
	s.track(operation, started, err)
	if err != nil {
		s.logger.Error("error in empty index", "err", err.Error())
		return err
	}
	s.logger.Info("index emptied successfully")

	return nil
}

func (s *Service) emptyIndex(ctx context.Context) error {
	if _, err := s.deleteAllBlobs(ctx); err != nil {
		return fmt.Errorf("failed to delete blobs: %w", err)
	}

	if err := s.recreateIndex(ctx); err != nil {
		return fmt.Errorf("failed to recreate index: %w", err)
	}

	return nil
}

func (s *Service) deleteAllBlobs(ctx context.Context) (int, error) {
	s.logger.Debug("deleting blobs from container", "container", s.blobs.Name())

	blobNames, err := s.blobs.ListBlobNames(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, blobName := range blobNames {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		s.logger.Debug("deleting blob", "blob", blobName)
		if err := s.blobs.DeleteBlob(ctx, blobName); err != nil {
			return deleted, err
		}
		deleted++
		metrics.BlobsDeletedTotal.Inc()
	}
	s.logger.Debug("all blobs have been successfully deleted", "container", s.blobs.Name(), "deleted", deleted)

	return deleted, nil
}

func (s *Service) recreateIndex(ctx context.Context) error {
	indexNames, err := s.search.ListIndexNames(ctx)
	if err != nil {
		return err
	}

	if slices.Contains(indexNames, s.indexName) {
		s.logger.Debug("deleting index", "index", s.indexName)
		if err := s.search.DeleteIndex(ctx, s.indexName); err != nil {
			return err
		}
	}

	s.logger.Debug("creating index", "index", s.indexName)
	if err := s.search.CreateIndex(ctx, searchindex.DefaultIndex(s.indexName)); err != nil {
		return err
	}
	s.logger.Debug("index successfully created", "index", s.indexName)

	return nil
}

func (s *Service) track(operation *Operation, started time.Time, err error) {
	s.finishOperation(operation, err)
	metrics.ObserveOperation(string(operation.Kind), operation.Status, started)
}

func resultDetails(err error) string {
	var statusErr *searchindex.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("%d: %s", statusErr.StatusCode, statusErr.Body)
	}

	return err.Error()
}
