package chatlog

import (
	"testing"
	"time"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir, "session-1")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	entries := []Entry{
		{RequestID: "r1", Kind: KindUser, Text: "hello", Time: time.Now()},
		{RequestID: "r1", Kind: KindToolCall, ToolName: "list_dir", Text: `{"path":"."}`, Time: time.Now()},
		{RequestID: "r1", Kind: KindToolResult, ToolName: "list_dir", Text: "a.txt", ToolOK: true, Elapsed: 42 * time.Millisecond, Time: time.Now()},
		{RequestID: "r1", Kind: KindAssistant, Text: "done", Time: time.Now()},
	}
	for _, e := range entries {
		if err := store.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(got), len(entries))
	}
	for i, e := range entries {
		if got[i].Kind != e.Kind || got[i].Text != e.Text || got[i].ToolName != e.ToolName {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], e)
		}
	}
	if got[2].Elapsed != 42*time.Millisecond {
		t.Errorf("elapsed = %v, want 42ms", got[2].Elapsed)
	}
	if !got[2].ToolOK {
		t.Error("tool_ok not persisted")
	}
}

func TestStoreRecentLimit(t *testing.T) {
	store, err := OpenStore(t.TempDir(), "session-1")
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	for i := 0; i < 10; i++ {
		if err := store.Append(Entry{Kind: KindUser, Text: "m", Time: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := store.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("Recent(3) returned %d entries", len(got))
	}
}

func TestStoreRecentPicksLatestSession(t *testing.T) {
	dir := t.TempDir()

	first, err := OpenStore(dir, "session-old")
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Append(Entry{Kind: KindUser, Text: "old", Time: time.Now()}); err != nil {
		t.Fatal(err)
	}
	first.Close()

	time.Sleep(5 * time.Millisecond) // ensure distinct started_at

	second, err := OpenStore(dir, "session-new")
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	if err := second.Append(Entry{Kind: KindUser, Text: "new", Time: time.Now()}); err != nil {
		t.Fatal(err)
	}

	got, err := second.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "new" {
		t.Errorf("Recent picked wrong session: %+v", got)
	}
}

func TestStoreReadOnlyOpenDoesNotStartSession(t *testing.T) {
	dir := t.TempDir()

	w, err := OpenStore(dir, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Append(Entry{Kind: KindUser, Text: "hello", Time: time.Now()}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	r, err := OpenStoreRead(dir)
	if err != nil {
		t.Fatalf("OpenStoreRead: %v", err)
	}
	defer r.Close()

	got, err := r.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("read-only Recent = %+v, want the written session", got)
	}
}

func TestStoreSessionsListsNewestFirst(t *testing.T) {
	dir := t.TempDir()

	first, err := OpenStore(dir, "session-old")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := first.Append(Entry{Kind: KindUser, Text: "m", Time: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	first.Close()

	time.Sleep(5 * time.Millisecond) // ensure distinct started_at

	second, err := OpenStore(dir, "session-new")
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	sessions, err := second.Sessions()
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Sessions returned %d, want 2", len(sessions))
	}
	if sessions[0].ID != "session-new" || sessions[1].ID != "session-old" {
		t.Errorf("session order = %s, %s", sessions[0].ID, sessions[1].ID)
	}
	if sessions[0].Entries != 0 || sessions[1].Entries != 3 {
		t.Errorf("entry counts = %d, %d, want 0, 3", sessions[0].Entries, sessions[1].Entries)
	}
}

func TestStoreEmptyRecent(t *testing.T) {
	store, err := OpenStore(t.TempDir(), "session-1")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	got, err := store.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("empty session returned %d entries", len(got))
	}
}
