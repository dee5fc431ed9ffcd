package catalog

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// ErrSuperseded is returned when a newer request for the same build and
// category finished the older one's work.
var ErrSuperseded = errors.New("request superseded by a newer one")

// InputError reports a query the engine refuses to run.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NoMatchError means the pipeline ran but nothing survived it.
type NoMatchError struct {
	Category   parts.Category
	Reason     string
	Criteria   Criteria
	Rejections map[string]int
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no %s matches: %s", e.Category, e.Reason)
}

// SearchError wraps a search collaborator failure. It is never retried.
type SearchError struct {
	Err error
}

func (e *SearchError) Error() string { return "search failed: " + e.Err.Error() }

func (e *SearchError) Unwrap() error { return e.Err }

// HTTPStatus maps engine errors to response codes.
func HTTPStatus(err error) int {
	var (
		in *InputError
		nm *NoMatchError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &in):
		return http.StatusBadRequest
	case errors.As(err, &nm):
		return http.StatusNotFound
	case errors.Is(err, ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
