package job

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "jobs.db"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CreateAndFinish(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, Request{File: "a.js", Preset: "nova"})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty job id")
	}

	if err := s.Finish(ctx, id, StatusCompleted, "a_123.js", ""); err != nil {
		t.Fatal(err)
	}

	records, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	rec := records[0]
	if rec.ID != id || rec.Status != StatusCompleted || rec.Artifact != "a_123.js" {
		t.Errorf("record %+v", rec)
	}
	if rec.FinishedAt == nil {
		t.Error("finished_at not set")
	}
}

func TestStore_RecentOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Create(ctx, Request{File: "f.js"}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("records = %d, want 3", len(records))
	}
}

func TestStore_FailedRecordKeepsError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, Request{File: "x.js"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Finish(ctx, id, StatusFailed, "", "engine exploded"); err != nil {
		t.Fatal(err)
	}

	records, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Status != StatusFailed || records[0].Error != "engine exploded" {
		t.Errorf("record %+v", records[0])
	}
}
