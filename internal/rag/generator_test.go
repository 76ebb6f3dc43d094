package rag

import (
	"context"
	"errors"
	"testing"

	"lecture-rag/internal/models"
)

type fakeStrategy struct {
	name   string
	answer string
	err    error
	calls  int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Generate(context.Context, models.PromptRequest) (string, error) {
	f.calls++
	return f.answer, f.err
}

func TestGeneratorTiers(t *testing.T) {
	boom := errors.New("quota exceeded")
	tests := []struct {
		name       string
		direct     *fakeStrategy
		agent      *fakeStrategy
		wantAnswer string
		wantTier   string
		agentCalls int
	}{
		{
			name:       "direct succeeds",
			direct:     &fakeStrategy{name: TierDirect, answer: "As explained in Lecture 3..."},
			agent:      &fakeStrategy{name: TierAgent, answer: "agent"},
			wantAnswer: "As explained in Lecture 3...",
			wantTier:   TierDirect,
		},
		{
			name:       "agent after direct failure",
			direct:     &fakeStrategy{name: TierDirect, err: boom},
			agent:      &fakeStrategy{name: TierAgent, answer: "From Lecture 2..."},
			wantAnswer: "From Lecture 2...",
			wantTier:   TierAgent,
			agentCalls: 1,
		},
		{
			name:       "empty direct answer falls back",
			direct:     &fakeStrategy{name: TierDirect, answer: "<think>hmm</think>  "},
			agent:      &fakeStrategy{name: TierAgent, answer: "ok"},
			wantAnswer: "ok",
			wantTier:   TierAgent,
			agentCalls: 1,
		},
		{
			name:       "all tiers fail",
			direct:     &fakeStrategy{name: TierDirect, err: boom},
			agent:      &fakeStrategy{name: TierAgent, err: boom},
			wantAnswer: models.ApologyMessage,
			wantTier:   TierApology,
			agentCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(tt.direct, tt.agent)
			text, images := gradientEvidence()
			got := g.Generate(context.Background(), BuildPrompt("q", text, images, 100))

			if got.AnswerText != tt.wantAnswer || got.Tier != tt.wantTier {
				t.Errorf("Generate() = (%q, %q), want (%q, %q)", got.AnswerText, got.Tier, tt.wantAnswer, tt.wantTier)
			}
			if tt.agent.calls != tt.agentCalls {
				t.Errorf("agent calls = %d, want %d", tt.agent.calls, tt.agentCalls)
			}
			if !got.HasImages || len(got.ImageResults) != 1 || got.OriginalQuery != "q" || len(got.TextSources) != 1 {
				t.Errorf("retrieval fields not populated: %+v", got)
			}
		})
	}
}

func TestGeneratorNoEvidence(t *testing.T) {
	direct := &fakeStrategy{name: TierDirect, answer: "best effort"}
	got := NewGenerator(direct).Generate(context.Background(), BuildPrompt("q", nil, nil, 100))
	if direct.calls != 1 {
		t.Errorf("generation skipped with empty evidence")
	}
	if got.HasImages || got.ImageResults == nil || len(got.ImageResults) != 0 {
		t.Errorf("image fields = %+v", got)
	}
}

func TestGeneratorCancelled(t *testing.T) {
	direct := &fakeStrategy{name: TierDirect, answer: "late"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := NewGenerator(direct).Generate(ctx, BuildPrompt("q", nil, nil, 100))
	if direct.calls != 0 || got.AnswerText != models.ApologyMessage {
		t.Errorf("cancelled Generate() = %q after %d calls", got.AnswerText, direct.calls)
	}
}

func TestCleanAnswer(t *testing.T) {
	in := "<think>\nreasoning\n</think>\nGradient descent is..."
	if got := CleanAnswer(in); got != "Gradient descent is..." {
		t.Errorf("CleanAnswer() = %q", got)
	}
}
