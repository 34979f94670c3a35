// Package conversation owns session lifecycle and history replay policy.
package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peakform/coach/domain"
	"github.com/peakform/coach/store"
)

// Manager is the conversation state manager. It serializes turns within a
// session: a new turn does not start until the previous one has persisted
// its message and updated session state. There is no cross-session locking.
type Manager struct {
	store         store.Store
	historyWindow int

	mu    sync.Mutex
	turns map[string]*turnLock
}

// turnLock is one session's turn mutex plus the number of holders and
// waiters. The entry is removed from the map when the count drops to zero,
// so the map does not grow with session churn.
type turnLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a conversation manager. historyWindow bounds how much prior
// history open-ended conversation replays.
func New(s store.Store, historyWindow int) *Manager {
	if historyWindow <= 0 {
		historyWindow = 12
	}
	return &Manager{
		store:         s,
		historyWindow: historyWindow,
		turns:         make(map[string]*turnLock),
	}
}

// CreateSession starts a new session for the user, superseding any session
// currently open.
func (m *Manager) CreateSession(ctx context.Context, userID, personaID string) (string, error) {
	if _, err := m.store.CloseUserSessions(ctx, userID); err != nil {
		return "", fmt.Errorf("failed to close prior sessions: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		SessionID:    "sess_" + uuid.New().String()[:8],
		UserID:       userID,
		PersonaID:    personaID,
		CreatedAt:    now,
		Active:       true,
		LastActivity: now,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return session.SessionID, nil
}

// EnsureSession returns the user's open session, creating one if absent.
// The second return reports whether a new session was created.
func (m *Manager) EnsureSession(ctx context.Context, userID, personaID string) (string, bool, error) {
	session, err := m.store.GetActiveSession(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("failed to get active session: %w", err)
	}
	if session != nil {
		return session.SessionID, false, nil
	}
	sessionID, err := m.CreateSession(ctx, userID, personaID)
	if err != nil {
		return "", false, err
	}
	return sessionID, true, nil
}

// UpdateSession records turn activity on the session.
func (m *Manager) UpdateSession(ctx context.Context, sessionID string, messageProcessed bool) error {
	return m.store.TouchSession(ctx, sessionID, messageProcessed)
}

// EndSession closes the session.
func (m *Manager) EndSession(ctx context.Context, sessionID string) error {
	return m.store.CloseSession(ctx, sessionID)
}

// OptimalHistoryLimit decides how much prior history to replay for a message
// type. Short, classification-friendly types replay little or nothing;
// open-ended conversation replays the configured window. This bounds both
// latency and token cost without a fixed global constant.
func (m *Manager) OptimalHistoryLimit(messageType domain.MessageType) int {
	switch messageType {
	case domain.MessageTypeLocalCommand:
		return 0
	case domain.MessageTypeNutrition:
		return 2
	case domain.MessageTypeEducational:
		return 4
	}
	return m.historyWindow
}

// BeginTurn acquires the per-session turn lock and returns the release
// function. Callers for different sessions never contend.
func (m *Manager) BeginTurn(sessionID string) func() {
	m.mu.Lock()
	lock, ok := m.turns[sessionID]
	if !ok {
		lock = &turnLock{}
		m.turns[sessionID] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		m.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(m.turns, sessionID)
		}
		m.mu.Unlock()
	}
}
