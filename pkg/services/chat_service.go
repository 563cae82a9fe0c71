package services

import (
	"context"
	"log"

	"metrics-chat-api/pkg/models"
)

// ChatService runs the full chat turn pipeline:
// classify -> plan -> resolve from memory -> execute -> update memory.
// Each turn is processed synchronously end-to-end; memory is only updated
// after the turn succeeds, so a malformed plan never poisons the next turn.
type ChatService struct {
	intents  *IntentService
	planner  *QueryPlanner
	engine   *ResponseEngine
	store    *MetricsStore
	sessions *SessionStore
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	Reply     string
	Followups []string
	Intent    models.Intent
	Plan      models.QueryPlan
}

// NewChatService wires the pipeline components.
func NewChatService(intents *IntentService, planner *QueryPlanner, engine *ResponseEngine, store *MetricsStore, sessions *SessionStore) *ChatService {
	return &ChatService{
		intents:  intents,
		planner:  planner,
		engine:   engine,
		store:    store,
		sessions: sessions,
	}
}

// Handle processes one user message within a session.
func (s *ChatService) Handle(ctx context.Context, sessionID, message string) TurnResult {
	intent := s.intents.Classify(ctx, message)

	plan := s.planner.Plan(message, intent, s.store.Metrics())
	memory := s.sessions.Get(sessionID)
	resolved := memory.Resolve(intent, plan)

	reply, err := s.engine.Execute(ctx, resolved)
	if err != nil {
		return TurnResult{
			Reply:     UserMessage(err),
			Followups: nil,
			Intent:    intent,
			Plan:      resolved,
		}
	}

	// rejected turns (forecast guard) answer successfully but never touch memory
	if resolved.Unsupported == "" {
		memory.Update(intent, resolved)
	}

	return TurnResult{
		Reply:     reply,
		Followups: SuggestFollowups(intent, resolved),
		Intent:    intent,
		Plan:      resolved,
	}
}

// Reload re-reads the dataset and rebuilds every derived cache, then drops
// session memories so stale slots cannot reference vanished data.
func (s *ChatService) Reload() error {
	if err := s.store.Reload(); err != nil {
		return err
	}
	s.engine.RefreshSummary()
	s.sessions.Reset()
	log.Printf("dataset reloaded, latest date is %s", s.store.LatestDate().Format("2006-01-02"))
	return nil
}
