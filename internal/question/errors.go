package question

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks provider output that does not match the question grammar.
	ErrParse = errors.New("malformed question text")
	// ErrDuplicate marks a candidate whose content already exists in its partition.
	ErrDuplicate = errors.New("duplicate question")
	// ErrInvalidTopic is returned before any provider call for empty topic names.
	ErrInvalidTopic = errors.New("invalid topic")
	// ErrExhausted is returned when the retry budget runs out without a stored question.
	ErrExhausted = errors.New("question acquisition exhausted")
	// ErrProducerRunning is returned by a second Producer.Run.
	ErrProducerRunning = errors.New("producer already running")
)

// StorageError wraps a persistence fault. It is never retried with the same candidate.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageFailure reports whether err carries a storage fault.
func IsStorageFailure(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func parseErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}
