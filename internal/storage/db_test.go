package storage

import (
	"path/filepath"
	"testing"
)

func TestRecordAndRecentEvents(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "data", "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	events := []struct{ session, addr, event string }{
		{"s1", "10.0.0.1:1111", "connected"},
		{"s2", "10.0.0.2:2222", "connected"},
		{"s1", "10.0.0.1:1111", "disconnected"},
	}
	for _, e := range events {
		if err := db.RecordSession(e.session, e.addr, e.event); err != nil {
			t.Fatalf("RecordSession: %v", err)
		}
	}

	got, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Newest first.
	if got[0].SessionID != "s1" || got[0].Event != "disconnected" {
		t.Fatalf("unexpected first event: %+v", got[0])
	}
	if got[2].SessionID != "s1" || got[2].Event != "connected" {
		t.Fatalf("unexpected last event: %+v", got[2])
	}

	limited, err := db.RecentEvents(2)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored, got %d events", len(limited))
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.RecordSession("s1", "10.0.0.1:1111", "connected"); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	db.Close()

	db2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	got, err := db2.RecentEvents(10)
	if err != nil {
		t.Fatalf("RecentEvents: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event after reopen, got %d", len(got))
	}
}
