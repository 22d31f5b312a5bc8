package datasource

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/chipview/pkg/model"
	"github.com/vanderheijden86/chipview/pkg/testutil"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := OpenSnapshotStore(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("OpenSnapshotStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := openTestStore(t)

	fetched := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	set := NewAggregateSet(testutil.Aggregates(25), model.ByContractor, fetched)
	if err := store.SaveAggregates(set); err != nil {
		t.Fatalf("SaveAggregates: %v", err)
	}

	got, err := store.LoadAggregates(model.ByContractor)
	if err != nil {
		t.Fatalf("LoadAggregates: %v", err)
	}
	if got == nil {
		t.Fatal("snapshot missing after save")
	}
	if got.Len() != 25 {
		t.Errorf("Len = %d", got.Len())
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, fetched)
	}

	// Rank order is preserved exactly.
	want := set.Rows()
	for i, r := range got.Rows() {
		if r != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, r, want[i])
		}
	}
}

func TestSnapshotMissingDimension(t *testing.T) {
	store := openTestStore(t)
	got, err := store.LoadAggregates(model.ByArea)
	if err != nil {
		t.Fatalf("LoadAggregates: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for absent dimension", got)
	}
}

func TestSnapshotReplacesPerDimension(t *testing.T) {
	store := openTestStore(t)

	old := NewAggregateSet(testutil.Aggregates(10), model.ByContractor, time.Now())
	if err := store.SaveAggregates(old); err != nil {
		t.Fatal(err)
	}
	other := NewAggregateSet(testutil.Aggregates(7), model.ByArea, time.Now())
	if err := store.SaveAggregates(other); err != nil {
		t.Fatal(err)
	}

	// Re-saving a dimension replaces it without touching the others.
	updated := NewAggregateSet(testutil.Aggregates(3), model.ByContractor, time.Now())
	if err := store.SaveAggregates(updated); err != nil {
		t.Fatal(err)
	}

	got, _ := store.LoadAggregates(model.ByContractor)
	if got.Len() != 3 {
		t.Errorf("contractor rows = %d, want 3", got.Len())
	}
	area, _ := store.LoadAggregates(model.ByArea)
	if area.Len() != 7 {
		t.Errorf("area rows = %d, want 7", area.Len())
	}
}
