package conversation

import (
	"testing"
)

func turnEntries(m *Manager) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

func TestBeginTurnReleasesLockEntry(t *testing.T) {
	m := New(nil, 12)

	release := m.BeginTurn("s1")
	if n := turnEntries(m); n != 1 {
		t.Fatalf("expected 1 turn lock entry while held, got %d", n)
	}

	release()
	if n := turnEntries(m); n != 0 {
		t.Fatalf("turn lock entry should be removed on release, got %d", n)
	}
}

func TestBeginTurnCleansUpAfterContention(t *testing.T) {
	m := New(nil, 12)

	release := m.BeginTurn("s1")
	done := make(chan struct{})
	go func() {
		r := m.BeginTurn("s1")
		r()
		close(done)
	}()

	release()
	<-done

	if n := turnEntries(m); n != 0 {
		t.Fatalf("turn lock map should be empty after all turns release, got %d", n)
	}

	// Repeated sessions do not accumulate entries.
	for i := 0; i < 100; i++ {
		m.BeginTurn("s2")()
	}
	if n := turnEntries(m); n != 0 {
		t.Fatalf("turn lock map grew across turns: %d entries", n)
	}
}
