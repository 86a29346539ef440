// Package session keeps per-session conversation memory in process.
//
// History is a bounded deque of (query, answer) exchanges per session,
// rendered as "User:"/"Assistant:" lines for prompt injection. Sessions are
// created lazily: recording an exchange against an unknown ID creates it.
package session

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxHistory is the number of exchanges kept per session when no
// limit is configured. An exchange is one (query, answer) pair.
const DefaultMaxHistory = 2

// Exchange is one completed query/answer pair.
type Exchange struct {
	Query  string
	Answer string
}

// Manager stores session histories behind a mutex. Safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string][]Exchange
	logger     *slog.Logger
}

// NewManager creates a Manager. maxHistory <= 0 falls back to
// DefaultMaxHistory. A nil logger falls back to slog.Default().
func NewManager(maxHistory int, logger *slog.Logger) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		maxHistory: maxHistory,
		sessions:   make(map[string][]Exchange),
		logger:     logger,
	}
}

// CreateSession registers a new empty session and returns its ID.
func (m *Manager) CreateSession() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = nil
	m.mu.Unlock()
	m.logger.Debug("created session", "session_id", id)
	return id
}

// AddExchange records a completed exchange, creating the session if needed
// and evicting the oldest exchanges beyond the history limit.
func (m *Manager) AddExchange(id, query, answer string) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.sessions[id], Exchange{Query: query, Answer: answer})
	if len(history) > m.maxHistory {
		history = history[len(history)-m.maxHistory:]
	}
	m.sessions[id] = history
}

// History renders a session's exchanges as alternating "User:" and
// "Assistant:" lines. Unknown or empty sessions render as "".
func (m *Manager) History(id string) string {
	m.mu.Lock()
	history := m.sessions[id]
	m.mu.Unlock()

	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history)*2)
	for _, e := range history {
		lines = append(lines, "User: "+e.Query, "Assistant: "+e.Answer)
	}
	return strings.Join(lines, "\n")
}

// ClearSession removes a session and its history.
func (m *Manager) ClearSession(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
