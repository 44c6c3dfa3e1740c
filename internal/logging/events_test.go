package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/sszproject/ssz-validation/go-engine/internal/results"
)

func tempDB(t *testing.T) *results.Store {
	t.Helper()
	s, err := results.NewStore(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLogAndListEvents(t *testing.T) {
	s := tempDB(t)
	runID, err := s.BeginRun(map[string]int{"digits": 50})
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	entries := []EventEntry{
		{RunID: runID, State: "loaded", Detail: "47 observations"},
		{RunID: runID, State: "evaluated"},
		{RunID: runID, State: "reported", Detail: "p=6.8e-13"},
	}
	for _, e := range entries {
		if err := LogEvent(s.DB(), e); err != nil {
			t.Fatalf("LogEvent(%s): %v", e.State, err)
		}
	}

	got, err := ListEvents(s.DB(), runID)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("listed %d events, want 3", len(got))
	}
	if got[0].State != "loaded" || got[2].State != "reported" {
		t.Errorf("events out of order: %+v", got)
	}
	if got[1].Detail != "" {
		t.Errorf("empty detail round-tripped as %q", got[1].Detail)
	}
	if got[0].CreatedAt.IsZero() || got[0].CreatedAt.After(time.Now().Add(time.Minute)) {
		t.Errorf("implausible timestamp %v", got[0].CreatedAt)
	}
}

func TestListEventsUnknownRun(t *testing.T) {
	s := tempDB(t)
	got, err := ListEvents(s.DB(), "no-such-run")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("unknown run returned %d events", len(got))
	}
}
