// Package gateway holds what the upstream gateways share: the Result type
// returned at every gateway boundary and the JSON-over-HTTP helper.
package gateway

import (
	"errors"
	"fmt"

	"github.com/gearconnect/statuspage/internal/domain"
)

// ErrNotConfigured means the gateway has no credentials or endpoint to call.
var ErrNotConfigured = errors.New("gateway not configured")

// Result is the outcome of one gateway call. Value is always usable: either
// live data or the gateway's substitute. Err records why a substitute was used.
type Result[T any] struct {
	Value  T
	Source domain.Provenance
	Err    error
}

// Live wraps data obtained from the upstream.
func Live[T any](value T) Result[T] {
	return Result[T]{Value: value, Source: domain.ProvenanceLive}
}

// Substitute wraps replacement data along with the failure that caused it.
func Substitute[T any](value T, source domain.Provenance, err error) Result[T] {
	return Result[T]{Value: value, Source: source, Err: err}
}

// Failed reports whether the upstream call did not produce the value.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream responded with status %d", e.Code)
	}
	return fmt.Sprintf("upstream responded with status %d: %s", e.Code, e.Body)
}
