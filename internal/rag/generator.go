package rag

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"lecture-rag/internal/models"
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

// Strategy is one generation tier.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, req models.PromptRequest) (string, error)
}

// StrategyResult tags the outcome of one tier.
type StrategyResult struct {
	Tier   string
	Answer string
	Err    error
}

func (r StrategyResult) OK() bool { return r.Err == nil }

// Generator tries its strategies in order and falls back to a fixed apology
// when every tier fails. It never returns an error.
type Generator struct {
	strategies []Strategy
}

func NewGenerator(strategies ...Strategy) *Generator {
	return &Generator{strategies: strategies}
}

func (g *Generator) Generate(ctx context.Context, req models.PromptRequest) *models.AnswerResult {
	result := &models.AnswerResult{
		ImageResults:  req.ImageMatches,
		HasImages:     len(req.ImageMatches) > 0,
		OriginalQuery: req.Query,
		TextSources:   req.TextMatches,
	}
	if result.ImageResults == nil {
		result.ImageResults = []models.ImageMatch{}
	}

	for i, s := range g.strategies {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Str("query", req.Query).Msg("Generation cancelled")
			break
		}
		if i > 0 {
			log.Info().Str("tier", s.Name()).Msg("Falling back to next generation tier")
		}
		res := run(ctx, s, req)
		if res.OK() {
			log.Info().Str("tier", res.Tier).Msg("Generation successful")
			result.AnswerText = res.Answer
			result.Tier = res.Tier
			return result
		}
		log.Error().Err(res.Err).Str("tier", res.Tier).Str("query", req.Query).Msg("Generation tier failed")
	}

	result.AnswerText = models.ApologyMessage
	result.Tier = TierApology
	return result
}

func run(ctx context.Context, s Strategy, req models.PromptRequest) StrategyResult {
	out, err := s.Generate(ctx, req)
	if err != nil {
		return StrategyResult{Tier: s.Name(), Err: err}
	}
	out = CleanAnswer(out)
	if out == "" {
		return StrategyResult{Tier: s.Name(), Err: fmt.Errorf("%w: empty answer", models.ErrGenerationFailure)}
	}
	return StrategyResult{Tier: s.Name(), Answer: out}
}

// CleanAnswer drops reasoning blocks some models emit and trims whitespace.
func CleanAnswer(s string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(s, ""))
}

const (
	TierDirect  = "direct"
	TierAgent   = "agent"
	TierApology = "apology"
)

// Invoker is a single-prompt language model call.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// DirectStrategy sends the fused prompt once.
type DirectStrategy struct {
	llm Invoker
}

func NewDirectStrategy(llm Invoker) *DirectStrategy {
	return &DirectStrategy{llm: llm}
}

func (d *DirectStrategy) Name() string { return TierDirect }

func (d *DirectStrategy) Generate(ctx context.Context, req models.PromptRequest) (string, error) {
	log.Info().Msg("Generating response with lecture citation instructions")
	return d.llm.Invoke(ctx, req.Prompt)
}
