package search

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultFlightTimeout bounds a shared backend call.
const DefaultFlightTimeout = 10 * time.Second

// Deduplicated collapses identical concurrent queries into one backend
// call. Every caller receives its own copy of the records.
type Deduplicated struct {
	next    Searcher
	timeout time.Duration
	group   singleflight.Group
}

// Dedupe wraps next. A non-positive timeout uses DefaultFlightTimeout.
func Dedupe(next Searcher, timeout time.Duration) *Deduplicated {
	if timeout <= 0 {
		timeout = DefaultFlightTimeout
	}
	return &Deduplicated{next: next, timeout: timeout}
}

// Search forwards to the wrapped searcher, sharing in-flight results.
//
// The shared call is detached from any single caller's cancellation and
// bounded by the flight timeout instead. A caller whose context ends first
// stops waiting and gets its context error.
func (d *Deduplicated) Search(ctx context.Context, query string, k int) ([]Record, error) {
	key := strconv.Itoa(k) + "\x00" + query
	ch := d.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		return d.next.Search(callCtx, query, k)
	})

	select {
	case <-ctx.Done():
		return nil, mapError("search", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared, _ := res.Val.([]Record)
		out := make([]Record, len(shared))
		copy(out, shared)
		return out, nil
	}
}

// Ping forwards to the wrapped searcher when it supports readiness checks.
func (d *Deduplicated) Ping(ctx context.Context) error {
	if p, ok := d.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
