package testutil

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/oxbowmantella/frameforge/pkg/parts"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

func TestLogger_NotNil(t *testing.T) {
	if Logger(t) == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewStore_AppliesSchemas(t *testing.T) {
	steps := []plugin.Migration{
		{Version: 1, Description: "create parts", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE parts (id TEXT PRIMARY KEY)`)
			return err
		}},
		{Version: 2, Description: "add price", Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE parts ADD COLUMN price REAL`)
			return err
		}},
	}
	db := NewStore(t, Schema{Module: "parts", Migrations: steps})

	got, err := db.AppliedVersions(context.Background(), "parts")
	if err != nil {
		t.Fatalf("AppliedVersions: %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("versions = %v, want [1 2]", got)
	}
	if _, err := db.DB().Exec(`INSERT INTO parts (id, price) VALUES ('cpu-1', 199.99)`); err != nil {
		t.Errorf("insert into migrated table: %v", err)
	}
}

func TestBus_RecordsAndDelivers(t *testing.T) {
	bus := NewBus(t)
	var delivered []string
	bus.Attach([]plugin.Subscription{{
		Topic:   "build.reset",
		Handler: func(_ context.Context, e plugin.Event) { delivered = append(delivered, e.Topic) },
	}})

	if err := bus.Publish(context.Background(), plugin.Event{Topic: "build.reset", Source: "builds"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	bus.PublishAsync(context.Background(), plugin.Event{Topic: "build.updated", Source: "builds"})

	topics := bus.Topics()
	if len(topics) != 2 || topics[0] != "build.reset" {
		t.Fatalf("topics = %v, want [build.reset build.updated]", topics)
	}
	if len(delivered) != 1 {
		t.Errorf("delivered = %v, want one build.reset", delivered)
	}

	bus.Reset()
	if len(bus.Events()) != 0 {
		t.Error("expected empty events after Reset")
	}
}

func TestClock_AdvanceAndSet(t *testing.T) {
	c := NewClock()
	if !c.Now().Equal(Epoch) || !c.Now().Equal(Epoch) {
		t.Fatal("stopped clock moved")
	}
	c.Advance(5 * time.Minute)
	if got := c.Now().Sub(Epoch); got != 5*time.Minute {
		t.Errorf("Advance: elapsed = %v, want 5m", got)
	}
	target := time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)
	c.Set(target)
	if !c.Now().Equal(target) {
		t.Errorf("Set: got %v, want %v", c.Now(), target)
	}
}

func TestClock_Ticking(t *testing.T) {
	c := NewTickingClock(time.Second)
	first, second := c.Now(), c.Now()
	if !first.Equal(Epoch) || second.Sub(first) != time.Second {
		t.Errorf("readings = %v, %v, want one second apart from %v", first, second, Epoch)
	}
}

func TestNewComponent_Defaults(t *testing.T) {
	c := NewComponent(parts.CategoryGPU)
	if c.ID == "" {
		t.Error("expected non-empty ID")
	}
	if c.Type != parts.CategoryGPU {
		t.Errorf("Type = %q, want gpu", c.Type)
	}
	if c.Price != 100 {
		t.Errorf("Price = %v, want 100", c.Price)
	}
}

func TestNewBuild_WithComponents(t *testing.T) {
	b := NewBuild(1000,
		NewComponent(parts.CategoryCPU, WithPrice(250), WithSpec("socket", "AM5")),
		NewComponent(parts.CategoryGPU, WithName("RTX 4070"), WithPrice(550)),
	)
	if got := b.TotalSpent(); got != 800 {
		t.Errorf("TotalSpent = %v, want 800", got)
	}
	cpu, ok := b.Component(parts.CategoryCPU)
	if !ok {
		t.Fatal("expected a CPU selection")
	}
	if v, _ := cpu.Spec("socket"); v != "AM5" {
		t.Errorf("socket = %q, want AM5", v)
	}
}

func TestRecordText_NameFirst(t *testing.T) {
	got := RecordText(map[string]string{
		parts.KeySocket: "AM5",
		parts.KeyPrice:  "$199.99",
		parts.KeyName:   "Ryzen 5 7600",
	})
	want := "Name: Ryzen 5 7600\nPrice: $199.99\nSocket: AM5\n"
	if got != want {
		t.Errorf("RecordText = %q, want %q", got, want)
	}
}

func TestFakeSearcher_LimitAndFailure(t *testing.T) {
	f := NewFakeSearcher("a", "b", "c")
	recs, err := f.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("len = %d, want 2", len(recs))
	}

	f.Fail(errors.New("down"))
	if _, err := f.Search(context.Background(), "q2", 2); err == nil {
		t.Error("expected error after Fail")
	}
	if f.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", f.Calls())
	}
	if q := f.Queries(); q[1] != "q2" {
		t.Errorf("Queries[1] = %q, want q2", q[1])
	}
}
