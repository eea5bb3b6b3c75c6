package history

import (
	"fmt"
	"sync"
	"testing"
)

func TestAppendTurn_WindowInvariant(t *testing.T) {
	s := NewStore(5)
	for i := 0; i < 20; i++ {
		turns := s.AppendTurn("s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), "")
		if len(turns) > 5 {
			t.Fatalf("window invariant broken after append %d: len=%d", i, len(turns))
		}
	}
	if got := len(s.GetTurns("s1")); got != 5 {
		t.Errorf("expected 5 turns after 20 appends, got %d", got)
	}
}

func TestAppendTurn_FIFOEviction(t *testing.T) {
	s := NewStore(2)
	s.AppendTurn("s", "Q1", "A1", "")
	s.AppendTurn("s", "Q2", "A2", "")
	s.AppendTurn("s", "Q3", "A3", "")

	turns := s.GetTurns("s")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Question != "Q2" || turns[1].Question != "Q3" {
		t.Errorf("expected [Q2 Q3] after eviction, got [%s %s]", turns[0].Question, turns[1].Question)
	}
}

func TestGetTurns_UnknownSession(t *testing.T) {
	s := NewStore(10)
	turns := s.GetTurns("nope")
	if turns == nil || len(turns) != 0 {
		t.Errorf("expected empty non-nil slice for unknown session, got %#v", turns)
	}
	if s.Has("nope") {
		t.Error("GetTurns must not create an entry")
	}
}

func TestAppendTurn_AuthorAndTimestamp(t *testing.T) {
	s := NewStore(10)
	turns := s.AppendTurn("s", "q", "a", "alice")
	if turns[0].AuthorID != "alice" {
		t.Errorf("author_id not recorded: %q", turns[0].AuthorID)
	}
	if turns[0].Timestamp.IsZero() {
		t.Error("timestamp must be server-assigned")
	}
}

func TestClearSession(t *testing.T) {
	s := NewStore(10)

	if s.ClearSession("missing") {
		t.Error("clearing an unknown session must return false")
	}
	if s.Has("missing") {
		t.Error("clearing an unknown session must not create it")
	}

	s.AppendTurn("s", "q", "a", "")
	if !s.ClearSession("s") {
		t.Error("clearing an existing session must return true")
	}
	if got := len(s.GetTurns("s")); got != 0 {
		t.Errorf("expected empty history after clear, got %d turns", got)
	}
	// The key survives a clear so /sessions still lists it.
	if !s.Has("s") {
		t.Error("cleared session should remain listed")
	}
}

func TestClearAll(t *testing.T) {
	s := NewStore(10)
	for _, id := range []string{"a", "b", "c"} {
		s.AppendTurn(id, "q", "a", "")
	}
	if n := s.ClearAll(); n != 3 {
		t.Errorf("expected 3 sessions cleared, got %d", n)
	}
	for _, id := range []string{"a", "b", "c"} {
		if got := len(s.GetTurns(id)); got != 0 {
			t.Errorf("session %s not empty after ClearAll: %d turns", id, got)
		}
	}
	if n := s.ClearAll(); n != 0 {
		t.Errorf("second ClearAll should report 0, got %d", n)
	}
}

func TestListSessionIDs(t *testing.T) {
	s := NewStore(10)
	s.AppendTurn("a", "q", "a", "")
	s.AppendTurn("b", "q", "a", "")

	ids := map[string]bool{}
	for _, id := range s.ListSessionIDs() {
		ids[id] = true
	}
	if !ids["a"] || !ids["b"] || len(ids) != 2 {
		t.Errorf("unexpected session ids: %v", ids)
	}
}

func TestConcurrentAppends_SameSession(t *testing.T) {
	const n = 50
	s := NewStore(n) // window large enough that nothing evicts

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AppendTurn("shared", fmt.Sprintf("q%d", i), "a", "")
		}(i)
	}
	wg.Wait()

	if got := len(s.GetTurns("shared")); got != n {
		t.Errorf("expected exactly %d turns, got %d (lost or duplicated appends)", n, got)
	}
}

func TestConcurrentAppends_Windowed(t *testing.T) {
	const n = 40
	s := NewStore(10)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			turns := s.AppendTurn("shared", fmt.Sprintf("q%d", i), "a", "")
			if len(turns) > 10 {
				t.Errorf("window invariant broken under load: len=%d", len(turns))
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.GetTurns("shared")); got != 10 {
		t.Errorf("expected window of 10 after %d concurrent appends, got %d", n, got)
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := NewStore(10)
	s.AppendTurn("s1", "q1", "a1", "alice")
	s.AppendTurn("s1", "q2", "a2", "alice")
	s.AppendTurn("s2", "q3", "a3", "")

	snap := s.Snapshot()

	restored := NewStore(10)
	restored.Restore(snap)

	for _, id := range []string{"s1", "s2"} {
		want := s.GetTurns(id)
		got := restored.GetTurns(id)
		if len(want) != len(got) {
			t.Fatalf("session %s: want %d turns, got %d", id, len(want), len(got))
		}
		for i := range want {
			if want[i] != got[i] {
				t.Errorf("session %s turn %d differs: %+v vs %+v", id, i, want[i], got[i])
			}
		}
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewStore(10)
	s.AppendTurn("s", "q", "a", "")

	snap := s.Snapshot()
	snap["s"][0].Answer = "mutated"

	if s.GetTurns("s")[0].Answer != "a" {
		t.Error("snapshot must not alias store state")
	}
}
