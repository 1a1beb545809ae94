package ux

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormStore_LoadMissingYieldsEmpty(t *testing.T) {
	s := NewFormStore(t.TempDir())
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.Get(); got != (FormState{}) {
		t.Errorf("expected empty state, got %+v", got)
	}
}

func TestFormStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := NewFormStore(dir)
	want := FormState{
		Units:     "101, 102;\n103",
		StartDate: "2025-01-01",
		EndDate:   "2025-01-07",
	}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh := NewFormStore(dir)
	if err := fresh.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := fresh.Get(); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFormStore_Clear(t *testing.T) {
	dir := t.TempDir()

	s := NewFormStore(dir)
	if err := s.Save(FormState{Units: "101"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := s.Get(); got != (FormState{}) {
		t.Errorf("expected empty state after clear, got %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "formstate.json")); !os.IsNotExist(err) {
		t.Error("form state file still present after Clear")
	}

	// Clearing twice is fine.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}
