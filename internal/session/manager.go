// Package session keeps one discourse context per conversation and
// serialises the utterances that update it.
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"crystal/internal/discourse"
	"crystal/internal/drs"
)

// Processor interprets one utterance against a context.
type Processor interface {
	Process(ctx context.Context, input string, current *drs.Box, emit func(discourse.Event)) (*discourse.Outcome, error)
}

// Manager manages multiple discourse sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// Session is one conversation: the accumulated discourse and its history.
type Session struct {
	SessionID string
	Context   *drs.Box
	History   []Message
	CreatedAt time.Time
	LastUsed  time.Time

	mu   sync.RWMutex
	turn sync.Mutex // held while an utterance is processed
}

// Message is one line of the conversation.
type Message struct {
	Role      string // "user" or "system"
	Content   string
	Outcome   discourse.OutcomeKind
	Timestamp time.Time
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// NewSession creates a session with an empty context. An empty id gets a
// fresh UUID.
func NewSession(sessionID string) *Session {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	now := time.Now()
	return &Session{
		SessionID: sessionID,
		Context:   drs.New(),
		History:   make([]Message, 0),
		CreatedAt: now,
		LastUsed:  now,
	}
}

// GetOrCreate gets an existing session or creates a new one
func (m *Manager) GetOrCreate(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		if session, exists := m.sessions[sessionID]; exists {
			session.touch()
			return session
		}
	}

	session := NewSession(sessionID)
	m.sessions[session.SessionID] = session
	return session
}

// Get retrieves an existing session
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	session.touch()
	return session, nil
}

// Delete removes a session
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; !exists {
		return fmt.Errorf("session not found: %s", sessionID)
	}

	delete(m.sessions, sessionID)
	return nil
}

// List returns all session IDs in sorted order
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupExpired removes sessions unused for longer than maxAge
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0

	for id, session := range m.sessions {
		if now.Sub(session.lastUsed()) > maxAge {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// Say processes input against the session's context. Utterances of one
// session run one at a time; the context is replaced only when processing
// succeeds.
func (s *Session) Say(ctx context.Context, p Processor, input string, emit func(discourse.Event)) (*discourse.Outcome, error) {
	s.turn.Lock()
	defer s.turn.Unlock()

	out, err := p.Process(ctx, input, s.GetContext(), emit)
	if err != nil {
		s.AddMessage("user", input, "")
		return nil, err
	}

	s.mu.Lock()
	s.Context = out.Context
	s.mu.Unlock()

	s.AddMessage("user", input, out.Kind)
	s.AddMessage("system", out.Text, out.Kind)
	return out, nil
}

// GetContext returns a copy of the current discourse
func (s *Session) GetContext() *drs.Box {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Context.Copy()
}

// AddMessage adds a message to the session history
func (s *Session) AddMessage(role, content string, outcome discourse.OutcomeKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.History = append(s.History, Message{
		Role:      role,
		Content:   content,
		Outcome:   outcome,
		Timestamp: time.Now(),
	})
	s.LastUsed = time.Now()
}

// GetHistory returns the message history (read-only)
func (s *Session) GetHistory() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	historyCopy := make([]Message, len(s.History))
	copy(historyCopy, s.History)
	return historyCopy
}

// Reset clears the discourse and the history
func (s *Session) Reset() {
	s.turn.Lock()
	defer s.turn.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Context = drs.New()
	s.History = make([]Message, 0)
	s.LastUsed = time.Now()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.LastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUsed
}
