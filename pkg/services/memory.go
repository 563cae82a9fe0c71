package services

import (
	"sync"

	"metrics-chat-api/pkg/models"
)

// ConversationMemory is a deterministic, intent-aware slot store used to
// resolve omitted fields of a new query plan from the previous turn.
// One instance per conversation; sharing across sessions leaks slots.
type ConversationMemory struct {
	lastMetric    string
	lastPeriod    string
	lastCompareTo string
	lastIntent    models.Intent
}

// NewConversationMemory returns an empty memory.
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{}
}

// Resolve fills missing plan fields from remembered slots under
// intent-specific eligibility. A remembered aggregate period like "last_week"
// must never leak into a point-in-time VALUE query.
func (m *ConversationMemory) Resolve(intent models.Intent, plan models.QueryPlan) models.QueryPlan {
	resolved := plan

	if resolved.Metric == "" && m.lastMetric != "" {
		resolved.Metric = m.lastMetric
	}

	if resolved.Period == "" && m.lastPeriod != "" {
		switch {
		case intent == models.IntentValue && isPointInTime(m.lastPeriod):
			resolved.Period = m.lastPeriod
		case intent == models.IntentSummary || intent == models.IntentTrend:
			resolved.Period = m.lastPeriod
		}
	}

	if resolved.CompareTo == "" && m.lastCompareTo != "" &&
		(intent == models.IntentComparison || intent == models.IntentRootCause) {
		resolved.CompareTo = m.lastCompareTo
	}

	return resolved
}

// Update records the slots of a successfully answered plan. It must only be
// called after a turn succeeds, so a malformed plan never poisons memory.
func (m *ConversationMemory) Update(intent models.Intent, plan models.QueryPlan) {
	if plan.Metric != "" {
		m.lastMetric = plan.Metric
	}
	if plan.Period != "" {
		m.lastPeriod = plan.Period
	}
	if plan.CompareTo != "" {
		m.lastCompareTo = plan.CompareTo
	}
	m.lastIntent = intent
}

// LastIntent returns the intent of the last successful turn.
func (m *ConversationMemory) LastIntent() models.Intent {
	return m.lastIntent
}

func isPointInTime(period string) bool {
	return period == "today" || period == "yesterday" || period == "latest"
}

// SessionStore hands out one ConversationMemory per session key, so
// concurrent chat sessions never observe each other's slots.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*ConversationMemory
}

// NewSessionStore returns an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*ConversationMemory)}
}

// Get returns the memory for a session, creating it on first use.
func (s *SessionStore) Get(sessionID string) *ConversationMemory {
	s.mu.Lock()
	defer s.mu.Unlock()
	mem, ok := s.sessions[sessionID]
	if !ok {
		mem = NewConversationMemory()
		s.sessions[sessionID] = mem
	}
	return mem
}

// Reset drops all session memories. Used when the dataset reloads so stale
// slots cannot reference data that no longer exists.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*ConversationMemory)
}
