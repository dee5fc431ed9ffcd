package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oxbowmantella/frameforge/pkg/parts"
)

// State is where a (build, category) view is in its request lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateEmpty   State = "empty"
	StateError   State = "error"
)

// TrackerKey identifies one wizard view.
type TrackerKey struct {
	Build    string
	Category parts.Category
}

// Status is the observable state of a view.
type Status struct {
	State      State     `json:"state"`
	Generation uint64    `json:"generation"`
	TotalCount int       `json:"totalCount"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Ticket is handed out by Begin and redeemed by Finish.
type Ticket struct {
	key    TrackerKey
	gen    uint64
	cancel context.CancelFunc
}

type tracked struct {
	status Status
	cancel context.CancelFunc
}

// Tracker enforces last-request-wins per view. Begin cancels the previous
// in-flight request for the same key; Finish rejects stale results.
type Tracker struct {
	mu    sync.Mutex
	views map[TrackerKey]*tracked
	now   func() time.Time
}

// NewTracker creates a tracker. A nil now uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{views: make(map[TrackerKey]*tracked), now: now}
}

// Begin moves key to loading and returns a context that is cancelled when
// a newer request for key begins.
func (t *Tracker) Begin(parent context.Context, key TrackerKey) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.views[key]
	if v == nil {
		v = &tracked{}
		t.views[key] = v
	}
	if v.cancel != nil {
		v.cancel()
	}
	v.status = Status{
		State:      StateLoading,
		Generation: v.status.Generation + 1,
		UpdatedAt:  t.now(),
	}
	v.cancel = cancel
	return ctx, Ticket{key: key, gen: v.status.Generation, cancel: cancel}
}

// Finish records the outcome of the request behind tk. It returns
// ErrSuperseded when a newer request has begun since.
func (t *Tracker) Finish(tk Ticket, total int, err error) error {
	if tk.cancel != nil {
		defer tk.cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	v := t.views[tk.key]
	if v == nil || v.status.Generation != tk.gen {
		return ErrSuperseded
	}

	v.cancel = nil
	v.status.UpdatedAt = t.now()
	v.status.TotalCount = total
	v.status.Error = ""

	var nm *NoMatchError
	switch {
	case err == nil && total > 0:
		v.status.State = StateSuccess
	case err == nil, errors.As(err, &nm):
		v.status.State = StateEmpty
		v.status.TotalCount = 0
	default:
		v.status.State = StateError
		v.status.Error = err.Error()
	}
	return nil
}

// Status reports the state of key; unknown keys are idle.
func (t *Tracker) Status(key TrackerKey) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v := t.views[key]; v != nil {
		return v.status
	}
	return Status{State: StateIdle}
}

// Forget drops every view for build, cancelling anything in flight.
func (t *Tracker) Forget(build string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range t.views {
		if k.Build != build {
			continue
		}
		if v.cancel != nil {
			v.cancel()
		}
		delete(t.views, k)
	}
}
