package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqModel talks to Groq (or any OpenAI-compatible server) through langchaingo.
type GroqModel struct {
	llm   *openai.LLM
	model string
}

// NewGroqModel creates a client. apiKey is required.
func NewGroqModel(baseURL, apiKey, model string) (*GroqModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm api key is required (set GROQ_API_KEY)")
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return &GroqModel{llm: client, model: model}, nil
}

// Model returns the configured model name.
func (g *GroqModel) Model() string {
	return g.model
}

// Complete calls the chat completions endpoint with tool choice "auto".
func (g *GroqModel) Complete(ctx context.Context, messages []Message, tools []Tool) (*Completion, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	var opts []llms.CallOption
	if len(tools) > 0 {
		defs := make([]llms.Tool, len(tools))
		for i, t := range tools {
			defs[i] = llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			}
		}
		opts = append(opts, llms.WithTools(defs), llms.WithToolChoice("auto"))
	}

	resp, err := g.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	choice := resp.Choices[0]
	out := &Completion{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		})
	}
	return out, nil
}

func messageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
