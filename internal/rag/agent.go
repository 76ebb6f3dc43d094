package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/xeipuuv/gojsonschema"

	"lecture-rag/internal/models"
)

const (
	ToolTextSearch  = "TextSearch"
	ToolImageSearch = "ImageSearch"
)

// queryParameters is the argument schema shared by both tools.
var queryParameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"query": map[string]any{
			"type":        "string",
			"description": "What to search the lecture material for",
			"minLength":   1,
		},
	},
	"required": []string{"query"},
}

// Tool is a named capability the agent may call with a query string.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, query string) string
}

func (t Tool) definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  queryParameters,
		},
	}
}

type TextSearcher interface {
	SearchText(ctx context.Context, query string, topK int) []models.TextMatch
}

type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, topK int) []models.ImageMatch
}

func TextSearchTool(r TextSearcher, topK int) Tool {
	return Tool{
		Name:        ToolTextSearch,
		Description: "Searches for relevant text from documents. Use this when you need to find specific information from text.",
		Run: func(ctx context.Context, query string) string {
			return FormatTextResults(r.SearchText(ctx, query, topK))
		},
	}
}

func ImageSearchTool(r ImageSearcher, topK, captionChars int) Tool {
	return Tool{
		Name:        ToolImageSearch,
		Description: "Searches for relevant images from documents. Use this when you need to find or show visual information.",
		Run: func(ctx context.Context, query string) string {
			return FormatImageResults(r.SearchImages(ctx, query, topK), captionChars)
		},
	}
}

// ChatModel is the tool-calling model interface used by the agent.
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentResponse, error)
}

// AgentStrategy runs a bounded tool-calling loop. Each Generate call starts
// a fresh conversation seeded with the prior turns of the session.
type AgentStrategy struct {
	model         ChatModel
	tools         []Tool
	maxIterations int
	timeout       time.Duration
}

func NewAgentStrategy(model ChatModel, maxIterations int, timeout time.Duration, tools ...Tool) *AgentStrategy {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	return &AgentStrategy{model: model, tools: tools, maxIterations: maxIterations, timeout: timeout}
}

func (a *AgentStrategy) Name() string { return TierAgent }

func (a *AgentStrategy) Generate(ctx context.Context, req models.PromptRequest) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	defs := make([]llms.Tool, len(a.tools))
	byName := make(map[string]Tool, len(a.tools))
	for i, t := range a.tools {
		defs[i] = t.definition()
		byName[t.Name] = t
	}

	messages := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, models.AgentSystemPrompt)}
	messages = append(messages, historyMessages(req.History)...)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf(models.AgentPromptTemplate, req.Query)))

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.model.GenerateContent(ctx, messages, defs)
		if err != nil {
			return "", err
		}
		if resp == nil || len(resp.Choices) == 0 {
			return "", fmt.Errorf("%w: empty response", models.ErrGenerationFailure)
		}
		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			log.Info().Int("iterations", i+1).Msg("Agent completed successfully")
			return choice.Content, nil
		}
		// no turn left to read tool output
		if i == a.maxIterations-1 {
			break
		}

		calls := make([]llms.ContentPart, len(choice.ToolCalls))
		for j, tc := range choice.ToolCalls {
			calls[j] = tc
		}
		messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: calls})

		for _, tc := range choice.ToolCalls {
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       toolName(tc),
					Content:    a.call(ctx, byName, tc),
				}},
			})
		}
	}
	return "", fmt.Errorf("%w: agent stopped after %d iterations", models.ErrGenerationFailure, a.maxIterations)
}

func (a *AgentStrategy) call(ctx context.Context, byName map[string]Tool, tc llms.ToolCall) string {
	name := toolName(tc)
	tool, ok := byName[name]
	if !ok {
		log.Warn().Str("tool", name).Msg("Agent requested unknown tool")
		return fmt.Sprintf("Unknown tool %q. Available tools: %s", name, strings.Join(toolNames(a.tools), ", "))
	}
	args := ""
	if tc.FunctionCall != nil {
		args = tc.FunctionCall.Arguments
	}
	q, err := parseQueryArgument(args)
	if err != nil {
		log.Warn().Err(err).Str("tool", name).Str("arguments", args).Msg("Invalid tool arguments")
		return fmt.Sprintf("Invalid arguments for %s: %v", name, err)
	}
	log.Debug().Str("tool", name).Str("query", q).Msg("Running agent tool")
	return tool.Run(ctx, q)
}

func parseQueryArgument(args string) (string, error) {
	if strings.TrimSpace(args) == "" {
		return "", fmt.Errorf("missing arguments")
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(queryParameters), gojsonschema.NewStringLoader(args))
	if err != nil {
		return "", fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return "", fmt.Errorf("arguments failed validation: %s", strings.Join(details, "; "))
	}
	var parsed struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", err
	}
	return parsed.Query, nil
}

func toolName(tc llms.ToolCall) string {
	if tc.FunctionCall == nil {
		return ""
	}
	return tc.FunctionCall.Name
}

func toolNames(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// historyMessages converts prior turns to chat memory; system turns are skipped
// and structured answers are reduced to their text.
func historyMessages(history []models.ConversationTurn) []llms.MessageContent {
	var out []llms.MessageContent
	for _, t := range history {
		switch t.Role {
		case models.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, t.Content()))
		case models.RoleAssistant:
			out = append(out, llms.TextParts(llms.ChatMessageTypeAI, t.Content()))
		}
	}
	return out
}
