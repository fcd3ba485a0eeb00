package actionlog

import (
	"path/filepath"
	"testing"
	"time"
)

func TestMemStoreAppendAndForItem(t *testing.T) {
	s := NewMemStore()
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	if err := s.Append(NewEntry("t3_abc", "action: remove\n", "remove", now)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(NewEntry("t3_abc", "action: report\n", "report", now)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows, err := s.ForItem("t3_abc")
	if err != nil {
		t.Fatalf("ForItem: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	if !HasAction(rows, "action: remove\n", "remove") {
		t.Errorf("expected HasAction true for recorded remove")
	}
	if HasAction(rows, "action: remove\n", "approve") {
		t.Errorf("expected HasAction false for un-recorded action")
	}
}

func TestJSONLStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "action_log.jsonl")

	s1, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("NewJSONLStore: %v", err)
	}
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	if err := s1.Append(NewEntry("t1_xyz", "action: spam\n", "spam", now)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close()

	rows, err := s2.ForItem("t1_xyz")
	if err != nil {
		t.Fatalf("ForItem: %v", err)
	}
	if len(rows) != 1 || rows[0].Action != "spam" {
		t.Fatalf("rows after reopen = %+v, want one spam row", rows)
	}
}
