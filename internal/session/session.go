package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"lecture-rag/internal/models"
)

type State int

const (
	Idle State = iota
	AwaitingInput
	Retrieving
	Generating
	Rendered
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingInput:
		return "awaiting_input"
	case Retrieving:
		return "retrieving"
	case Generating:
		return "generating"
	case Rendered:
		return "rendered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settings are the per-session display preferences.
type Settings struct {
	ShowSources   bool `json:"show_sources"`
	IncludeImages bool `json:"include_images"`
}

func DefaultSettings() Settings {
	return Settings{ShowSources: false, IncludeImages: true}
}

// Pipeline is the retrieval and generation work behind one turn.
type Pipeline interface {
	Retrieve(ctx context.Context, query string) models.Evidence
	Generate(ctx context.Context, query string, ev models.Evidence, history []models.ConversationTurn) *models.AnswerResult
}

// Session owns one conversation. Only one turn runs at a time; Reset may be
// called from any state and discards whatever turn is in flight.
type Session struct {
	mu       sync.Mutex
	id       string
	pipeline Pipeline
	turns    []models.ConversationTurn
	settings Settings
	state    State
	epoch    uint64
	cancel   context.CancelFunc
	onChange func(State)
}

func New(pipeline Pipeline) *Session {
	return &Session{
		id:       uuid.NewString(),
		pipeline: pipeline,
		turns:    initialTurns(),
		settings: DefaultSettings(),
		state:    Idle,
	}
}

func initialTurns() []models.ConversationTurn {
	return []models.ConversationTurn{{Role: models.RoleSystem, Text: models.GreetingMessage}}
}

// OnChange registers a callback invoked after every state transition.
// The callback runs without the session lock held.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) SetShowSources(v bool) {
	s.mu.Lock()
	s.settings.ShowSources = v
	s.mu.Unlock()
}

func (s *Session) SetIncludeImages(v bool) {
	s.mu.Lock()
	s.settings.IncludeImages = v
	s.mu.Unlock()
}

// Turns returns a copy of the conversation so far.
func (s *Session) Turns() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationTurn(nil), s.turns...)
}

// Focus marks the session as waiting for the user to type.
func (s *Session) Focus() {
	s.transition(func() bool {
		if s.state != Idle {
			return false
		}
		s.state = AwaitingInput
		return true
	})
}

// Submit runs a full turn for text. It returns ErrTurnDiscarded if the
// session was reset while the turn was in flight; the result is then not
// recorded.
func (s *Session) Submit(ctx context.Context, text string) (*models.AnswerResult, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil, models.ErrEmptyQuery
	}

	s.mu.Lock()
	if s.state != Idle && s.state != AwaitingInput {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: turn in %s state", models.ErrSessionBusy, state)
	}
	history := append([]models.ConversationTurn(nil), s.turns...)
	s.turns = append(s.turns, models.ConversationTurn{Role: models.RoleUser, Text: query})
	epoch := s.epoch
	turnCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = Retrieving
	notify := s.onChange
	s.mu.Unlock()
	defer cancel()
	s.fire(notify, Retrieving)

	log.Debug().Str("session", s.id).Str("query", query).Msg("Turn started")
	ev := s.pipeline.Retrieve(turnCtx, query)

	if !s.advance(epoch, Generating) {
		return nil, models.ErrTurnDiscarded
	}

	answer := s.pipeline.Generate(turnCtx, query, ev, history)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		log.Info().Str("session", s.id).Str("query", query).Msg("Discarding result of reset turn")
		return nil, models.ErrTurnDiscarded
	}
	s.turns = append(s.turns, models.ConversationTurn{Role: models.RoleAssistant, Answer: answer})
	s.state = Rendered
	s.cancel = nil
	notify = s.onChange
	s.mu.Unlock()
	s.fire(notify, Rendered)
	return answer, nil
}

// RenderComplete moves a rendered turn back to Idle.
func (s *Session) RenderComplete() {
	s.transition(func() bool {
		if s.state != Rendered {
			return false
		}
		s.state = Idle
		return true
	})
}

// Reset cancels any in-flight turn and truncates the conversation to the greeting.
func (s *Session) Reset() {
	s.transition(func() bool {
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.epoch++
		s.turns = initialTurns()
		s.state = Idle
		return true
	})
	log.Info().Str("session", s.id).Msg("Session reset")
}

func (s *Session) advance(epoch uint64, next State) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	s.state = next
	notify := s.onChange
	s.mu.Unlock()
	s.fire(notify, next)
	return true
}

func (s *Session) transition(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	state := s.state
	notify := s.onChange
	s.mu.Unlock()
	if changed {
		s.fire(notify, state)
	}
}

func (s *Session) fire(fn func(State), st State) {
	if fn != nil {
		fn(st)
	}
}
