package engine

import (
	"fmt"
	"testing"
)

func TestEventLog_NewestFirst(t *testing.T) {
	eng := newTestEngine(t)

	eng.PushEvent(EventSystem, "first")
	eng.PushEvent(EventLand, "second")
	eng.PushEvent(EventOracle, "third")

	events := eng.RecentEvents(0)
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0].Text != "third" || events[2].Text != "first" {
		t.Errorf("Events not newest-first: %v", events)
	}
	for _, ev := range events {
		if ev.ID == "" {
			t.Error("Event missing id")
		}
	}
}

func TestEventLog_Bounded(t *testing.T) {
	eng := newTestEngine(t)

	for i := 0; i < 450; i++ {
		eng.PushEvent(EventSystem, fmt.Sprintf("event %d", i))
	}

	events := eng.RecentEvents(0)
	if len(events) != 200 {
		t.Fatalf("Expected log capped at 200, got %d", len(events))
	}
	// The newest event survives, the oldest are dropped.
	if events[0].Text != "event 449" {
		t.Errorf("Newest event = %q, want %q", events[0].Text, "event 449")
	}
	if events[199].Text != "event 250" {
		t.Errorf("Oldest retained event = %q, want %q", events[199].Text, "event 250")
	}
}

func TestRecentEvents_Limit(t *testing.T) {
	eng := newTestEngine(t)
	for i := 0; i < 10; i++ {
		eng.PushEvent(EventSystem, fmt.Sprintf("event %d", i))
	}

	if got := len(eng.RecentEvents(5)); got != 5 {
		t.Errorf("RecentEvents(5) returned %d events", got)
	}
	if got := len(eng.RecentEvents(50)); got != 10 {
		t.Errorf("RecentEvents(50) returned %d events", got)
	}
	if got := len(eng.RecentEvents(-1)); got != 10 {
		t.Errorf("RecentEvents(-1) returned %d events", got)
	}
}

func TestEventLog_CustomCap(t *testing.T) {
	cfg := createTestConfig()
	cfg.EventCap = 10
	eng, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	eng.SetClock(newFakeClock())

	for i := 0; i < 25; i++ {
		eng.PushEvent(EventSystem, fmt.Sprintf("event %d", i))
	}
	if got := len(eng.RecentEvents(0)); got != 10 {
		t.Errorf("Expected cap 10, got %d events", got)
	}
}
