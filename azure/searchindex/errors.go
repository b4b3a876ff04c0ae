package searchindex

import (
	"errors"
	"fmt"
)

var ErrUnexpectedStatus = errors.New("unexpected status from search service")

// StatusError is returned when the search service answers with a status code
// other than the one the operation expects.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
