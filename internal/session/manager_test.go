package session

import (
	"fmt"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/coursepilot/coursepilot/internal/testutil"
)

// TestMain enables goroutine leak detection for all tests in this package.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newManager(maxHistory int) *Manager {
	return NewManager(maxHistory, testutil.DiscardLogger())
}

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(0, nil)
	if m.maxHistory != DefaultMaxHistory {
		t.Errorf("maxHistory = %d, want %d", m.maxHistory, DefaultMaxHistory)
	}
}

func TestCreateSession_UniqueIDs(t *testing.T) {
	m := newManager(2)

	a := m.CreateSession()
	b := m.CreateSession()
	if a == "" || b == "" {
		t.Fatal("CreateSession() returned empty ID")
	}
	if a == b {
		t.Errorf("CreateSession() returned duplicate ID %q", a)
	}
	if m.History(a) != "" {
		t.Errorf("new session history = %q, want empty", m.History(a))
	}
}

func TestHistory_Rendering(t *testing.T) {
	m := newManager(5)
	id := m.CreateSession()

	m.AddExchange(id, "what is MCP?", "A protocol.")
	m.AddExchange(id, "who made it?", "Anthropic.")

	want := "User: what is MCP?\n" +
		"Assistant: A protocol.\n" +
		"User: who made it?\n" +
		"Assistant: Anthropic."
	if got := m.History(id); got != want {
		t.Errorf("History() =\n%q\nwant\n%q", got, want)
	}
}

func TestHistory_UnknownSession(t *testing.T) {
	m := newManager(2)
	if got := m.History("no-such-session"); got != "" {
		t.Errorf("History(unknown) = %q, want empty", got)
	}
}

func TestAddExchange_EmptyIDIsNoOp(t *testing.T) {
	m := newManager(2)
	m.AddExchange("", "query", "answer")

	m.mu.Lock()
	n := len(m.sessions)
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("sessions = %d, want 0 after empty-ID exchange", n)
	}
}

func TestAddExchange_LazyCreation(t *testing.T) {
	m := newManager(2)

	m.AddExchange("implicit", "q", "a")
	if got := m.History("implicit"); got != "User: q\nAssistant: a" {
		t.Errorf("History() = %q", got)
	}
}

func TestAddExchange_EvictsOldest(t *testing.T) {
	m := newManager(2)
	id := m.CreateSession()

	m.AddExchange(id, "first", "a1")
	m.AddExchange(id, "second", "a2")
	m.AddExchange(id, "third", "a3")

	got := m.History(id)
	want := "User: second\nAssistant: a2\nUser: third\nAssistant: a3"
	if got != want {
		t.Errorf("History() after eviction =\n%q\nwant\n%q", got, want)
	}
}

func TestClearSession(t *testing.T) {
	m := newManager(2)
	id := m.CreateSession()
	m.AddExchange(id, "q", "a")

	m.ClearSession(id)
	if got := m.History(id); got != "" {
		t.Errorf("History() after clear = %q, want empty", got)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := newManager(3)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := m.CreateSession()
			for j := 0; j < 20; j++ {
				m.AddExchange(id, fmt.Sprintf("q%d-%d", n, j), "a")
				_ = m.History(id)
			}
			m.ClearSession(id)
		}(i)
	}
	wg.Wait()
}
