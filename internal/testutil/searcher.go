package testutil

import (
	"context"
	"sync"

	"github.com/oxbowmantella/frameforge/internal/search"
)

var _ search.Searcher = (*FakeSearcher)(nil)

// FakeSearcher returns canned records and records every query it receives.
type FakeSearcher struct {
	mu      sync.Mutex
	records []search.Record
	err     error
	queries []string
	limits  []int
}

// NewFakeSearcher returns a searcher that answers with one record per text.
func NewFakeSearcher(texts ...string) *FakeSearcher {
	f := &FakeSearcher{}
	for _, t := range texts {
		f.records = append(f.records, search.Record{RawText: t})
	}
	return f
}

// Fail makes every later call return err.
func (f *FakeSearcher) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Search implements search.Searcher. At most k records are returned.
func (f *FakeSearcher) Search(ctx context.Context, query string, k int) ([]search.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, k)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	n := len(f.records)
	if k > 0 && k < n {
		n = k
	}
	out := make([]search.Record, n)
	copy(out, f.records[:n])
	return out, nil
}

// Calls returns how many searches were made.
func (f *FakeSearcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// Queries returns a copy of every query text received.
func (f *FakeSearcher) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Limits returns a copy of every k received.
func (f *FakeSearcher) Limits() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.limits...)
}
