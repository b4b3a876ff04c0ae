package reindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/blobreindex/db/kvdb"
)

type Kind string

const (
	KindRunIndexer     Kind = "run_indexer"
	KindDeleteAllBlobs Kind = "delete_all_blobs"
	KindRecreateIndex  Kind = "recreate_index"
	KindUploadBlob     Kind = "upload_blob"
	KindEmptyIndex     Kind = "empty_index"
)

const (
	OperationStatusRunning   = "running"
	OperationStatusSucceeded = "succeeded"
	OperationStatusFailed    = "failed"
)

// Operation is the journal entry written for each call made through the service.
type Operation struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	Status     string     `json:"status"`
	Details    string     `json:"details,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Journal is the part of the key-value store the service needs.
type Journal interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	GetAllKeys(bucket string) ([]string, error)
	Last(bucket string, limit int) ([]string, error)
}

// newOperationID returns a time-ordered id so that journal keys sort by start time.
func newOperationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func (s *Service) startOperation(kind Kind) *Operation {
	operation := &Operation{
		ID:        newOperationID(),
		Kind:      kind,
		Status:    OperationStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.saveOperation(operation)

	return operation
}

func (s *Service) finishOperation(operation *Operation, err error) {
	finishedAt := time.Now().UTC()
	operation.FinishedAt = &finishedAt
	operation.Status = OperationStatusSucceeded
	if err != nil {
		operation.Status = OperationStatusFailed
		operation.Details = err.Error()
	}
	s.saveOperation(operation)
}

// saveOperation never fails the operation it records.
func (s *Service) saveOperation(operation *Operation) {
	if s.journal == nil {
		return
	}

	data, err := json.Marshal(operation)
	if err != nil {
		s.logger.Error("failed to marshal operation", "operation_id", operation.ID, "err", err.Error())
		return
	}

	if err := s.journal.Set(kvdb.OperationsBucket, operation.ID, string(data)); err != nil {
		s.logger.Error("failed to record operation", "operation_id", operation.ID, "err", err.Error())
	}
}

func (s *Service) GetOperation(id string) (*Operation, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}

	value, err := s.journal.Get(kvdb.OperationsBucket, id)
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			return nil, fmt.Errorf("operation not found: %w", err)
		}
		s.logger.Error("failed to get operation", "operation_id", id, "err", err.Error())
		return nil, fmt.Errorf("failed to get operation %q: %w", id, err)
	}

	var operation Operation
	if err := json.Unmarshal([]byte(value), &operation); err != nil {
		s.logger.Error("failed to unmarshal operation", "operation_id", id, "err", err.Error())
		return nil, fmt.Errorf("failed to unmarshal operation %s: %w", id, err)
	}

	return &operation, nil
}

// ListOperations returns up to limit operations, most recent first.
func (s *Service) ListOperations(limit int) ([]Operation, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}

	values, err := s.journal.Last(kvdb.OperationsBucket, limit)
	if err != nil {
		s.logger.Error("failed to list operations", "err", err.Error())
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	operations := make([]Operation, 0, len(values))
	for _, value := range values {
		var operation Operation
		if err := json.Unmarshal([]byte(value), &operation); err != nil {
			s.logger.Warn("skipping unreadable operation record", "err", err.Error())
			continue
		}
		operations = append(operations, operation)
	}

	return operations, nil
}

// PruneOperations deletes the operations that started before cutoff and returns
// how many were deleted. Unreadable records are kept.
func (s *Service) PruneOperations(cutoff time.Time) (int, error) {
	if s.journal == nil {
		return 0, ErrJournalDisabled
	}

	keys, err := s.journal.GetAllKeys(kvdb.OperationsBucket)
	if err != nil {
		s.logger.Error("failed to list operation ids", "err", err.Error())
		return 0, fmt.Errorf("failed to list operation ids: %w", err)
	}

	pruned := 0
	for _, key := range keys {
		value, err := s.journal.Get(kvdb.OperationsBucket, key)
		if err != nil {
			return pruned, fmt.Errorf("failed to get operation %q: %w", key, err)
		}

		var operation Operation
		if err := json.Unmarshal([]byte(value), &operation); err != nil {
			s.logger.Warn("skipping unreadable operation record", "operation_id", key, "err", err.Error())
			continue
		}
		if !operation.StartedAt.Before(cutoff) {
			continue
		}

		if err := s.journal.Delete(kvdb.OperationsBucket, key); err != nil {
			s.logger.Error("failed to delete operation", "operation_id", key, "err", err.Error())
			return pruned, fmt.Errorf("failed to delete operation %q: %w", key, err)
		}
		pruned++
	}
	s.logger.Debug("pruned operation journal", "pruned", pruned, "cutoff", cutoff)

	return pruned, nil
}

// PruneExpiredOperations applies the configured journal retention. A
// non-positive retention keeps every record.
func (s *Service) PruneExpiredOperations() (int, error) {
	if s.journal == nil || s.journalRetention <= 0 {
		return 0, nil
	}

	return s.PruneOperations(time.Now().UTC().Add(-s.journalRetention))
}
