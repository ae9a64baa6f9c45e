package logbook

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".deploy", "history.log")
	lb, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fixed := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	lb.WithClock(func() time.Time { return fixed })

	if err := lb.Append(Entry{Network: "testnet", RemoteID: "C1", Artifact: "/w/a.wasm"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := lb.Append(Entry{Network: "futurenet", RemoteID: "C2"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := lb.Append(Entry{Network: "testnet", RemoteID: "C3", Artifact: "/w/a b.wasm"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries, err := lb.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if !entries[0].Time.Equal(fixed) || entries[0].RemoteID != "C1" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Artifact != "-" {
		t.Fatalf("empty artifact should be stored as '-', got %q", entries[1].Artifact)
	}
	if entries[2].Artifact != "/w/a_b.wasm" {
		t.Fatalf("whitespace should be folded, got %q", entries[2].Artifact)
	}
	n, err := lb.Count("testnet")
	if err != nil || n != 2 {
		t.Fatalf("Count(testnet) = %d, %v", n, err)
	}
}

func TestEntriesMissingFileIsEmpty(t *testing.T) {
	lb, err := New(filepath.Join(t.TempDir(), "history.log"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries, err := lb.Entries()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty history, got %v, %v", entries, err)
	}
}

func TestEntriesSkipsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.log")
	body := "not a line\n2026-10-14T09:30:00Z testnet C1 a.wasm\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	lb, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entries, err := lb.Entries()
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one entry, got %v, %v", entries, err)
	}
}

func TestNilLogbookIsInert(t *testing.T) {
	var lb *Logbook
	if err := lb.Append(Entry{RemoteID: "C1"}); err != nil {
		t.Fatalf("nil Append: %v", err)
	}
	if n, err := lb.Count("testnet"); err != nil || n != 0 {
		t.Fatalf("nil Count = %d, %v", n, err)
	}
}
