// Package search provides the retrieval collaborators the recommendation
// engine pulls raw part records from: a Weaviate client, an embedded sample
// catalog, and a wrapper that collapses identical concurrent queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Record is one retrieved catalog entry in its raw "Key: Value" form.
type Record struct {
	RawText string `json:"rawText"`
}

// Searcher retrieves up to k raw records for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Record, error)
}

// Pinger is implemented by searchers that can report backend readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Error codes for collaborator failures.
const (
	ErrCodeTimeout     = "timeout"
	ErrCodeUnreachable = "unreachable"
	ErrCodeUpstream    = "upstream_error"
	ErrCodeInvalid     = "invalid_request"
)

// Error is a normalized collaborator failure.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("search %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("search %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs an Error.
func NewError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// graphQLError carries the first message of a GraphQL error response.
type graphQLError struct {
	Message string
}

func (e *graphQLError) Error() string { return "graphql: " + e.Message }

// mapError translates backend and network errors into *Error values.
func mapError(backend string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewError(ErrCodeTimeout, "request timed out or cancelled", err)
	}

	var ge *graphQLError
	if errors.As(err, &ge) {
		return NewError(ErrCodeUpstream, ge.Message, err)
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") {
		return NewError(ErrCodeUnreachable, backend+" unreachable", err)
	}

	return NewError(ErrCodeUpstream, backend+" error", err)
}
