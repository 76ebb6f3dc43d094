package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"lecture-rag/internal/models"
)

// scriptedModel replays one response per call and records the messages it saw.
type scriptedModel struct {
	responses []*llms.ContentResponse
	err       error
	seen      [][]llms.MessageContent
	tools     []llms.Tool
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error) {
	m.seen = append(m.seen, messages)
	m.tools = tools
	if m.err != nil {
		return nil, m.err
	}
	if len(m.seen) > len(m.responses) {
		return m.responses[len(m.responses)-1], nil
	}
	return m.responses[len(m.seen)-1], nil
}

func toolCallResponse(id, name, args string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{ID: id, Type: "function", FunctionCall: &llms.FunctionCall{Name: name, Arguments: args}}},
	}}}
}

func textResponse(s string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: s}}}
}

// stubSearch may serve as both retrievers, which run concurrently.
type stubSearch struct {
	text   []models.TextMatch
	images []models.ImageMatch

	mu      sync.Mutex
	queries []string
}

func (s *stubSearch) record(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
}

func (s *stubSearch) SearchText(_ context.Context, q string, _ int) []models.TextMatch {
	s.record(q)
	return s.text
}

func (s *stubSearch) SearchImages(_ context.Context, q string, _ int) []models.ImageMatch {
	s.record(q)
	return s.images
}

func toolResponses(msgs []llms.MessageContent) []llms.ToolCallResponse {
	var out []llms.ToolCallResponse
	for _, m := range msgs {
		for _, p := range m.Parts {
			if r, ok := p.(llms.ToolCallResponse); ok {
				out = append(out, r)
			}
		}
	}
	return out
}

func TestAgentRunsToolThenAnswers(t *testing.T) {
	text, _ := gradientEvidence()
	search := &stubSearch{text: text}
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("c1", ToolTextSearch, `{"query":"gradient descent"}`),
		textResponse("As explained in Lecture 3, gradient descent..."),
	}}
	agent := NewAgentStrategy(model, 3, 0, TextSearchTool(search, 5), ImageSearchTool(search, 3, 100))

	history := []models.ConversationTurn{
		{Role: models.RoleSystem, Text: models.GreetingMessage},
		{Role: models.RoleUser, Text: "hi"},
		{Role: models.RoleAssistant, Answer: &models.AnswerResult{AnswerText: "hello"}},
	}
	got, err := agent.Generate(context.Background(), models.PromptRequest{Query: "What is gradient descent?", History: history})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "As explained in Lecture 3, gradient descent..." {
		t.Errorf("Generate() = %q", got)
	}
	if len(model.tools) != 2 {
		t.Errorf("tool definitions = %d, want 2", len(model.tools))
	}
	if len(search.queries) != 1 || search.queries[0] != "gradient descent" {
		t.Errorf("tool queries = %v", search.queries)
	}

	first := model.seen[0]
	// system prompt, two history turns, the reformulated instruction
	if len(first) != 4 {
		t.Fatalf("first call messages = %d, want 4", len(first))
	}
	last := first[3].Parts[0].(llms.TextContent).Text
	if !strings.Contains(last, "reference the specific lecture numbers") || !strings.HasSuffix(last, "What is gradient descent?") {
		t.Errorf("agent instruction = %q", last)
	}

	resps := toolResponses(model.seen[1])
	if len(resps) != 1 || resps[0].ToolCallID != "c1" || !strings.HasPrefix(resps[0].Content, "Text Result 1:") {
		t.Errorf("tool responses = %+v", resps)
	}
}

func TestAgentInvalidArgumentsReported(t *testing.T) {
	search := &stubSearch{}
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("c1", ToolImageSearch, `{"q":1}`),
		textResponse("done"),
	}}
	agent := NewAgentStrategy(model, 3, 0, ImageSearchTool(search, 3, 100))

	if _, err := agent.Generate(context.Background(), models.PromptRequest{Query: "x"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(search.queries) != 0 {
		t.Errorf("tool ran with invalid arguments")
	}
	resps := toolResponses(model.seen[1])
	if len(resps) != 1 || !strings.HasPrefix(resps[0].Content, "Invalid arguments") {
		t.Errorf("tool responses = %+v", resps)
	}
}

func TestAgentIterationBound(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("c", ToolTextSearch, `{"query":"loop"}`),
	}}
	search := &stubSearch{}
	agent := NewAgentStrategy(model, 3, 0, TextSearchTool(search, 5))

	_, err := agent.Generate(context.Background(), models.PromptRequest{Query: "x"})
	if !errors.Is(err, models.ErrGenerationFailure) {
		t.Errorf("Generate() error = %v, want ErrGenerationFailure", err)
	}
	if len(model.seen) != 3 {
		t.Errorf("model calls = %d, want 3", len(model.seen))
	}
	// tool calls from the last iteration are never run
	if len(search.queries) != 2 {
		t.Errorf("tool runs = %d, want 2", len(search.queries))
	}
}

func TestAgentEmptyResponse(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{{}}}
	agent := NewAgentStrategy(model, 3, 0)

	_, err := agent.Generate(context.Background(), models.PromptRequest{Query: "x"})
	if !errors.Is(err, models.ErrGenerationFailure) {
		t.Errorf("Generate() error = %v, want ErrGenerationFailure", err)
	}

	gen := NewGenerator(NewDirectStrategy(&failingInvoker{}), agent)
	got := gen.Generate(context.Background(), models.PromptRequest{Query: "x"})
	if got.AnswerText != models.ApologyMessage || got.Tier != TierApology {
		t.Errorf("Generate() = (%q, %q), want the apology", got.AnswerText, got.Tier)
	}
}

func TestAgentUnknownTool(t *testing.T) {
	model := &scriptedModel{responses: []*llms.ContentResponse{
		toolCallResponse("c", "WebSearch", `{"query":"x"}`),
		textResponse("fine"),
	}}
	agent := NewAgentStrategy(model, 3, 0, TextSearchTool(&stubSearch{}, 5))
	if _, err := agent.Generate(context.Background(), models.PromptRequest{Query: "x"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	resps := toolResponses(model.seen[1])
	if len(resps) != 1 || !strings.HasPrefix(resps[0].Content, "Unknown tool") {
		t.Errorf("tool responses = %+v", resps)
	}
}
