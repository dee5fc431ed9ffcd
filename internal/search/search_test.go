package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/weaviate/weaviate/entities/models"

	"github.com/oxbowmantella/frameforge/pkg/catalog"
	"github.com/oxbowmantella/frameforge/pkg/parts"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"cancelled", fmt.Errorf("wrapped: %w", context.Canceled), ErrCodeTimeout},
		{"refused", errors.New("dial tcp 127.0.0.1:8080: connect: connection refused"), ErrCodeUnreachable},
		{"dns", errors.New("lookup weaviate: no such host"), ErrCodeUnreachable},
		{"graphql", &graphQLError{Message: "class PcPart not found"}, ErrCodeUpstream},
		{"other", errors.New("status 500"), ErrCodeUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError("weaviate", tt.err)
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("mapError() = %T, want *Error", err)
			}
			if se.Code != tt.want {
				t.Errorf("Code = %q, want %q", se.Code, tt.want)
			}
		})
	}

	if mapError("x", nil) != nil {
		t.Error("mapError(nil) should be nil")
	}

	orig := NewError(ErrCodeInvalid, "bad", nil)
	if got := mapError("x", orig); got != orig {
		t.Errorf("mapError(*Error) = %v, want passthrough", got)
	}
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		query string
		want  parts.Category
		ok    bool
	}{
		{"AM5 cpu cooler 240mm", parts.CategoryCooler, true},
		{"850W power supply gold", parts.CategoryPSU, true},
		{"NVIDIA graphics card", parts.CategoryGPU, true},
		{"AMD processor AM5", parts.CategoryCPU, true},
		{"DDR5 desktop memory", parts.CategoryMemory, true},
		{"motherboard friendly processor", parts.CategoryCPU, true},
		{"something else", "", false},
	}
	for _, tt := range tests {
		got, ok := DetectCategory(tt.query)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DetectCategory(%q) = %q, %v; want %q, %v", tt.query, got, ok, tt.want, tt.ok)
		}
	}

	for _, c := range parts.Categories() {
		got, ok := DetectCategory("best " + CategoryPhrase(c) + " under 300")
		if !ok || got != c {
			t.Errorf("DetectCategory(CategoryPhrase(%s)) = %q, %v", c, got, ok)
		}
	}
}

func TestLocalSearcherRestrictsCategory(t *testing.T) {
	s := NewLocalSearcher(catalog.NewCatalog(), nil)

	recs, err := s.Search(context.Background(), "850W power supply", 100)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("Search() returned no records")
	}

	psus, _ := catalog.NewCatalog().ByCategory(parts.CategoryPSU)
	if len(recs) != len(psus) {
		t.Errorf("len(records) = %d, want %d psu entries", len(recs), len(psus))
	}
	for _, r := range recs {
		if _, ok := parts.ParseRecord(r.RawText).Number(parts.KeyWattage); !ok {
			t.Errorf("non-psu record returned: %q", r.RawText)
		}
	}
}

func TestLocalSearcherLimit(t *testing.T) {
	s := NewLocalSearcher(catalog.NewCatalog(), nil)

	recs, err := s.Search(context.Background(), "processor", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("len(records) = %d, want 2", len(recs))
	}

	if _, err := s.Search(context.Background(), "processor", 0); err == nil {
		t.Error("Search() with k=0 should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Search(ctx, "processor", 5)
	var se *Error
	if !errors.As(err, &se) || se.Code != ErrCodeTimeout {
		t.Errorf("Search() on cancelled ctx = %v, want timeout code", err)
	}
}

type blockingSearcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingSearcher) Search(ctx context.Context, query string, k int) ([]Record, error) {
	b.calls.Add(1)
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []Record{{RawText: "Name: " + query}}, nil
}

func TestDedupeCollapsesConcurrentCalls(t *testing.T) {
	backend := &blockingSearcher{release: make(chan struct{})}
	d := Dedupe(backend, time.Second)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]Record, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Search(context.Background(), "pc case", 10)
		}(i)
	}

	// Let every goroutine join the flight before releasing it.
	deadline := time.Now().Add(time.Second)
	for backend.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(backend.release)
	wg.Wait()

	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if len(results[i]) != 1 || results[i][0].RawText != "Name: pc case" {
			t.Errorf("caller %d records = %v", i, results[i])
		}
	}

	results[0][0].RawText = "mutated"
	if results[1][0].RawText == "mutated" {
		t.Error("callers share the same record slice")
	}
}

func TestDedupeCallerCancellation(t *testing.T) {
	backend := &blockingSearcher{release: make(chan struct{})}
	d := Dedupe(backend, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := d.Search(ctx, "pc case", 10)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		var se *Error
		if !errors.As(err, &se) || se.Code != ErrCodeTimeout {
			t.Errorf("Search() error = %v, want timeout code", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}
	close(backend.release)
}

func TestParseGraphQL(t *testing.T) {
	resp := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{
				"PcPart": []interface{}{
					map[string]interface{}{"text": "Name: A\nPrice: 10"},
					map[string]interface{}{"text": "   "},
					map[string]interface{}{"other": "x"},
					"not an object",
					map[string]interface{}{"text": "Name: B\nPrice: 20"},
				},
			},
		},
	}

	got := parseGraphQL(resp, "PcPart", "text")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !strings.HasPrefix(got[0].RawText, "Name: A") || !strings.HasPrefix(got[1].RawText, "Name: B") {
		t.Errorf("records = %v", got)
	}

	if parseGraphQL(nil, "PcPart", "text") != nil {
		t.Error("parseGraphQL(nil) should be nil")
	}
	if got := parseGraphQL(resp, "Other", "text"); len(got) != 0 {
		t.Errorf("unknown class returned %v", got)
	}
}

func TestNewWeaviateSearcherConfig(t *testing.T) {
	if _, err := NewWeaviateSearcher(WeaviateConfig{}, nil); err == nil {
		t.Error("empty url should fail")
	}
	if _, err := NewWeaviateSearcher(WeaviateConfig{URL: "localhost:8080", Mode: "fuzzy"}, nil); err == nil {
		t.Error("unknown mode should fail")
	}

	s, err := NewWeaviateSearcher(WeaviateConfig{URL: "https://weaviate.example.com"}, nil)
	if err != nil {
		t.Fatalf("NewWeaviateSearcher() error = %v", err)
	}
	if s.cfg.Class != "PcPart" || s.cfg.TextProperty != "text" || s.cfg.Mode != ModeNearText {
		t.Errorf("defaults not applied: %+v", s.cfg)
	}
}
