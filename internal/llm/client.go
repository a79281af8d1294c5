// Package llm abstracts the text-generation backend behind small interfaces
// so the simulation, the operators and the judge never touch HTTP directly.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request carries one generation call. ModelID empty means the backend's
// default model; Temperature 0 is a valid setting, not "unset", so callers
// always fill it. Timeout overrides the wrapper's per-attempt timeout for
// call kinds with tighter budgets; zero keeps the wrapper default.
type Request struct {
	System      string
	User        string
	ModelID     string
	Temperature float64
	Timeout     time.Duration
}

// Client generates text. Implementations must honor ctx cancellation.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder maps a text to a dense vector for diversity scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ErrBackend marks failures that should abort the run rather than degrade it,
// bad credentials or a permanently unreachable endpoint.
var ErrBackend = errors.New("backend failure")

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// Transient wraps err so retry layers know another attempt may succeed.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Fatal wraps err as a non-retryable backend failure.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrBackend, err)
}
