package storage

import (
	"context"
	"testing"

	"github.com/cparmet/finite-news/internal/models"
)

// newTestStore creates a Store backed by an in-memory database with all
// migrations applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("OpenDatabase() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error: %v", err)
	}

	return NewStore(db)
}

func TestSnapshot_LoadMissingRecipientIsEmpty(t *testing.T) {
	store := newTestStore(t)

	snap, err := store.LoadSnapshot(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("got %v, want empty snapshot", snap)
	}
}

func TestSnapshot_CommitAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap := models.Snapshot{
		"wire":    {"fp-a", "fp-b"},
		"outages": {"fp-c"},
	}
	if err := store.CommitSnapshot(ctx, "chris", snap); err != nil {
		t.Fatalf("CommitSnapshot() error: %v", err)
	}

	got, err := store.LoadSnapshot(ctx, "chris")
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sources, want 2", len(got))
	}
	wire := got["wire"]
	if len(wire) != 2 || wire[0] != "fp-a" || wire[1] != "fp-b" {
		t.Errorf("wire = %v, want order preserved", wire)
	}
	if len(got["outages"]) != 1 || got["outages"][0] != "fp-c" {
		t.Errorf("outages = %v", got["outages"])
	}
}

func TestSnapshot_CommitReplacesWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CommitSnapshot(ctx, "chris", models.Snapshot{"wire": {"old-1", "old-2"}}); err != nil {
		t.Fatalf("CommitSnapshot() error: %v", err)
	}
	if err := store.CommitSnapshot(ctx, "chris", models.Snapshot{"biz": {"new-1"}}); err != nil {
		t.Fatalf("CommitSnapshot() error: %v", err)
	}

	got, err := store.LoadSnapshot(ctx, "chris")
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if _, ok := got["wire"]; ok {
		t.Errorf("stale wire slice survived replacement: %v", got)
	}
	if len(got["biz"]) != 1 || got["biz"][0] != "new-1" {
		t.Errorf("biz = %v", got["biz"])
	}
}

func TestSnapshot_FailedCommitLeavesPriorSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CommitSnapshot(ctx, "chris", models.Snapshot{"wire": {"fp-old"}}); err != nil {
		t.Fatalf("CommitSnapshot() error: %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.CommitSnapshot(canceled, "chris", models.Snapshot{"wire": {"fp-new"}}); err == nil {
		t.Fatal("expected commit error, got nil")
	}

	got, err := store.LoadSnapshot(ctx, "chris")
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(got["wire"]) != 1 || got["wire"][0] != "fp-old" {
		t.Errorf("wire = %v, want prior snapshot intact", got["wire"])
	}
}

func TestSnapshot_LoadUnreadableStoreIsEmpty(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.db.Exec("DROP TABLE snapshot_fingerprints"); err != nil {
		t.Fatalf("dropping table: %v", err)
	}

	snap, err := store.LoadSnapshot(context.Background(), "chris")
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("got %v, want empty snapshot", snap)
	}
}

func TestSnapshot_RecipientsIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CommitSnapshot(ctx, "chris", models.Snapshot{"wire": {"fp-chris"}}); err != nil {
		t.Fatalf("CommitSnapshot() error: %v", err)
	}
	if err := store.CommitSnapshot(ctx, "dana", models.Snapshot{"wire": {"fp-dana"}}); err != nil {
		t.Fatalf("CommitSnapshot() error: %v", err)
	}

	got, err := store.LoadSnapshot(ctx, "chris")
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(got["wire"]) != 1 || got["wire"][0] != "fp-chris" {
		t.Errorf("chris snapshot = %v", got)
	}
}

func TestSnapshot_CommitEmptyClears(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CommitSnapshot(ctx, "chris", models.Snapshot{"wire": {"fp-a"}}); err != nil {
		t.Fatalf("CommitSnapshot() error: %v", err)
	}
	if err := store.CommitSnapshot(ctx, "chris", models.Snapshot{}); err != nil {
		t.Fatalf("CommitSnapshot() error: %v", err)
	}

	got, err := store.LoadSnapshot(ctx, "chris")
	if err != nil {
		t.Fatalf("LoadSnapshot() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want cleared snapshot", got)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db, err := OpenDatabase(":memory:")
	if err != nil {
		t.Fatalf("OpenDatabase() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("first RunMigrations() error: %v", err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second RunMigrations() error: %v", err)
	}
}
