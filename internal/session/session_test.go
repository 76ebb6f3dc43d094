package session

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lecture-rag/internal/models"
)

type fakePipeline struct {
	mu        sync.Mutex
	histories [][]models.ConversationTurn
	// block, when set, holds Generate until it is closed or ctx ends
	block     chan struct{}
	entered   chan struct{}
	cancelled bool
}

func (p *fakePipeline) Retrieve(_ context.Context, query string) models.Evidence {
	return models.Evidence{Images: []models.ImageMatch{{ID: "img", Image: []byte{1}, LectureNumber: "3"}}}
}

func (p *fakePipeline) Generate(ctx context.Context, query string, ev models.Evidence, history []models.ConversationTurn) *models.AnswerResult {
	p.mu.Lock()
	p.histories = append(p.histories, history)
	p.mu.Unlock()
	if p.block != nil {
		close(p.entered)
		select {
		case <-p.block:
		case <-ctx.Done():
			p.mu.Lock()
			p.cancelled = true
			p.mu.Unlock()
		}
	}
	return &models.AnswerResult{
		AnswerText:    "answer to " + query,
		ImageResults:  ev.Images,
		HasImages:     len(ev.Images) > 0,
		OriginalQuery: query,
	}
}

func TestNewSession(t *testing.T) {
	s := New(&fakePipeline{})
	turns := s.Turns()
	if len(turns) != 1 || turns[0].Role != models.RoleSystem || turns[0].Text != models.GreetingMessage {
		t.Errorf("initial turns = %+v", turns)
	}
	if got := s.Settings(); got != DefaultSettings() || got.ShowSources || !got.IncludeImages {
		t.Errorf("initial settings = %+v", got)
	}
	if s.State() != Idle || s.ID() == "" {
		t.Errorf("state = %v, id = %q", s.State(), s.ID())
	}
}

func TestSubmitLifecycle(t *testing.T) {
	p := &fakePipeline{}
	s := New(p)
	var states []State
	s.OnChange(func(st State) { states = append(states, st) })

	s.Focus()
	ans, err := s.Submit(context.Background(), "  What is gradient descent?  ")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if ans.AnswerText != "answer to What is gradient descent?" {
		t.Errorf("answer = %q", ans.AnswerText)
	}
	if s.State() != Rendered {
		t.Errorf("state after Submit = %v, want rendered", s.State())
	}
	s.RenderComplete()

	want := []State{AwaitingInput, Retrieving, Generating, Rendered, Idle}
	if len(states) != len(want) {
		t.Fatalf("transitions = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, states[i], want[i])
		}
	}

	turns := s.Turns()
	if len(turns) != 3 || turns[1].Role != models.RoleUser || turns[2].Answer == nil {
		t.Fatalf("turns = %+v", turns)
	}
	// history handed to generation excludes the current user turn
	if len(p.histories[0]) != 1 {
		t.Errorf("history length = %d, want 1", len(p.histories[0]))
	}
}

func TestSubmitEmpty(t *testing.T) {
	s := New(&fakePipeline{})
	if _, err := s.Submit(context.Background(), "   "); !errors.Is(err, models.ErrEmptyQuery) {
		t.Errorf("Submit() error = %v, want ErrEmptyQuery", err)
	}
	if len(s.Turns()) != 1 || s.State() != Idle {
		t.Error("empty submit changed the session")
	}
}

func TestSubmitWhileBusy(t *testing.T) {
	s := New(&fakePipeline{})
	if _, err := s.Submit(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	// still Rendered until the renderer reports completion
	if _, err := s.Submit(context.Background(), "second"); !errors.Is(err, models.ErrSessionBusy) {
		t.Errorf("Submit() error = %v, want ErrSessionBusy", err)
	}
}

func TestResetDuringGeneratingDiscardsResult(t *testing.T) {
	p := &fakePipeline{block: make(chan struct{}), entered: make(chan struct{})}
	s := New(p)

	type outcome struct {
		ans *models.AnswerResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ans, err := s.Submit(context.Background(), "slow question")
		done <- outcome{ans, err}
	}()

	select {
	case <-p.entered:
	case <-time.After(time.Second):
		t.Fatal("generation never started")
	}
	if s.State() != Generating {
		t.Fatalf("state = %v, want generating", s.State())
	}

	s.Reset()

	var got outcome
	select {
	case got = <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit did not return after reset")
	}
	if !errors.Is(got.err, models.ErrTurnDiscarded) || got.ans != nil {
		t.Errorf("Submit() = (%v, %v), want ErrTurnDiscarded", got.ans, got.err)
	}
	turns := s.Turns()
	if len(turns) != 1 || turns[0].Text != models.GreetingMessage {
		t.Errorf("turns after reset = %+v", turns)
	}
	if s.State() != Idle {
		t.Errorf("state after reset = %v", s.State())
	}
	p.mu.Lock()
	cancelled := p.cancelled
	p.mu.Unlock()
	if !cancelled {
		t.Error("in-flight generation was not cancelled")
	}

	// session is usable again
	p.block = nil
	if _, err := s.Submit(context.Background(), "next"); err != nil {
		t.Errorf("Submit() after reset error = %v", err)
	}
}

func TestSettingsAreIndependent(t *testing.T) {
	s := New(&fakePipeline{})
	s.SetShowSources(true)
	if got := s.Settings(); !got.ShowSources || !got.IncludeImages {
		t.Errorf("settings = %+v", got)
	}
	s.SetIncludeImages(false)
	if got := s.Settings(); !got.ShowSources || got.IncludeImages {
		t.Errorf("settings = %+v", got)
	}
}

func TestSaveLoad(t *testing.T) {
	s := New(&fakePipeline{})
	s.SetShowSources(true)
	if _, err := s.Submit(context.Background(), "What is backprop?"); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	restored, err := Load(&buf, &fakePipeline{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if restored.ID() != s.ID() || !restored.Settings().ShowSources || restored.State() != Idle {
		t.Errorf("restored = id %q settings %+v state %v", restored.ID(), restored.Settings(), restored.State())
	}
	turns := restored.Turns()
	if len(turns) != 3 {
		t.Fatalf("restored turns = %d, want 3", len(turns))
	}
	ans := turns[2].Answer
	if ans == nil || ans.OriginalQuery != "What is backprop?" || !ans.HasImages || string(ans.ImageResults[0].Image) != "\x01" {
		t.Errorf("restored answer = %+v", ans)
	}
	if turns[1].Text != "What is backprop?" {
		t.Errorf("restored user turn = %+v", turns[1])
	}
}
