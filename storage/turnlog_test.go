package storage

import (
	"testing"
	"time"
)

func logEntry(turnID, sessionID, prompt string, startedAt time.Time) TurnLogEntry {
	return TurnLogEntry{
		TurnID:    turnID,
		SessionID: sessionID,
		Handle:    "doc-1",
		Prompt:    prompt,
		FinalText: "response to " + prompt,
		Status:    "completed",
		StartedAt: startedAt,
		EndedAt:   startedAt.Add(time.Second),
	}
}

func TestTurnLogRecordAndLoad(t *testing.T) {
	log, err := NewTurnLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewTurnLog failed: %v", err)
	}
	defer log.Close()

	entry := logEntry("t1", "s1", "hello", time.Now())
	if err := log.Record(entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	loaded, err := log.Load("t1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil for recorded turn")
	}
	if loaded.SessionID != "s1" || loaded.Prompt != "hello" {
		t.Errorf("round-trip mismatch: %+v", loaded)
	}
}

func TestTurnLogLoadMissingReturnsNil(t *testing.T) {
	log, err := NewTurnLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewTurnLog failed: %v", err)
	}
	defer log.Close()

	loaded, err := log.Load("nope")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing turn, got %+v", loaded)
	}
}

func TestTurnLogSessionTurnsOrderedOldestFirst(t *testing.T) {
	log, err := NewTurnLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewTurnLog failed: %v", err)
	}
	defer log.Close()

	base := time.Now()
	for i, id := range []string{"t1", "t2", "t3"} {
		if err := log.Record(logEntry(id, "s1", id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if err := log.Record(logEntry("other", "s2", "other", base)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	turns, err := log.SessionTurns("s1")
	if err != nil {
		t.Fatalf("SessionTurns failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("turn count = %d, want 3", len(turns))
	}
	if turns[0].TurnID != "t1" || turns[2].TurnID != "t3" {
		t.Errorf("turns out of order: %v %v %v", turns[0].TurnID, turns[1].TurnID, turns[2].TurnID)
	}
}

func TestTurnLogRecentTurnsLimit(t *testing.T) {
	log, err := NewTurnLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewTurnLog failed: %v", err)
	}
	defer log.Close()

	base := time.Now()
	for i := 0; i < 5; i++ {
		entry := logEntry("t"+string(rune('1'+i)), "s1", "p", base.Add(time.Duration(i)*time.Minute))
		if err := log.Record(entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	turns, err := log.RecentTurns(2)
	if err != nil {
		t.Fatalf("RecentTurns failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("turn count = %d, want 2", len(turns))
	}
	if turns[0].TurnID != "t5" {
		t.Errorf("most recent turn first, got %q", turns[0].TurnID)
	}
}

func TestTurnLogRecordReplacesSameTurnID(t *testing.T) {
	log, err := NewTurnLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewTurnLog failed: %v", err)
	}
	defer log.Close()

	if err := log.Record(logEntry("t1", "s1", "first", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := log.Record(logEntry("t1", "s1", "second", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	turns, err := log.SessionTurns("s1")
	if err != nil {
		t.Fatalf("SessionTurns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("turn count = %d, want 1", len(turns))
	}
	if turns[0].Prompt != "second" {
		t.Errorf("Prompt = %q, want second", turns[0].Prompt)
	}
}

func TestTurnLogDeleteSession(t *testing.T) {
	log, err := NewTurnLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewTurnLog failed: %v", err)
	}
	defer log.Close()

	if err := log.Record(logEntry("t1", "s1", "p", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := log.Record(logEntry("t2", "s2", "p", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if err := log.DeleteSession("s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	turns, err := log.SessionTurns("s1")
	if err != nil {
		t.Fatalf("SessionTurns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("deleted session still has %d turns", len(turns))
	}

	other, err := log.SessionTurns("s2")
	if err != nil {
		t.Fatalf("SessionTurns failed: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("unrelated session affected, got %d turns", len(other))
	}
}
