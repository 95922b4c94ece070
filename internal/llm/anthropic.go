package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/codefionn/workspaced/internal/apperr"
)

const (
	defaultAnthropicModel     = "claude-3-5-sonnet-20241022"
	defaultAnthropicMaxTokens = 4096
)

// AnthropicProvider implements Provider using the official Anthropic SDK.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a provider authenticated with an API key.
func NewAnthropicProvider(apiKey, modelName string) (*AnthropicProvider, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, apperr.New(apperr.KindAuth, "anthropic provider requires an API key")
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(key)),
		model:  resolveModel(modelName),
	}, nil
}

// NewAnthropicProviderWithToken creates a provider authenticated with an
// OAuth bearer token.
func NewAnthropicProviderWithToken(accessToken, modelName string) (*AnthropicProvider, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		return nil, apperr.New(apperr.KindAuth, "anthropic provider requires an access token")
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAuthToken(token)),
		model:  resolveModel(modelName),
	}, nil
}

func resolveModel(modelName string) string {
	model := strings.TrimSpace(modelName)
	if model == "" {
		model = defaultAnthropicModel
	}
	return model
}

// ModelName returns the configured model identifier.
func (p *AnthropicProvider) ModelName() string {
	return p.model
}

// Stream sends the request and forwards text, reasoning and tool-call
// events to fn as they arrive.
func (p *AnthropicProvider) Stream(ctx context.Context, req *Request, fn StreamFunc) error {
	params, err := p.buildMessageParams(req)
	if err != nil {
		return err
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	if stream == nil {
		return apperr.New(apperr.KindExternal, "anthropic stream failed: no stream returned")
	}
	defer stream.Close()

	// Tool-use blocks arrive as a start event carrying the name followed
	// by partial-JSON input deltas, keyed by content block index.
	type toolAccum struct {
		name  string
		input strings.Builder
	}
	tools := make(map[int64]*toolAccum)

	for stream.Next() {
		event := stream.Current()

		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if block, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				tools[ev.Index] = &toolAccum{name: block.Name}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				if err := fn(Event{Type: EventText, Text: delta.Text}); err != nil {
					return err
				}
			case anthropic.ThinkingDelta:
				if delta.Thinking == "" {
					continue
				}
				if err := fn(Event{Type: EventReasoning, Text: delta.Thinking}); err != nil {
					return err
				}
			case anthropic.InputJSONDelta:
				if accum, ok := tools[ev.Index]; ok {
					accum.input.WriteString(delta.PartialJSON)
				}
			}
		case anthropic.ContentBlockStopEvent:
			accum, ok := tools[ev.Index]
			if !ok {
				continue
			}
			delete(tools, ev.Index)
			input := decodeToolInput(accum.input.String())
			if err := fn(Event{Type: EventToolCall, ToolName: accum.name, ToolInput: input}); err != nil {
				return err
			}
		}
	}

	if err := stream.Err(); err != nil {
		return apperr.Wrap(apperr.KindExternal, "anthropic stream failed", err)
	}
	return nil
}

func (p *AnthropicProvider) buildMessageParams(req *Request) (anthropic.MessageNewParams, error) {
	if req == nil {
		return anthropic.MessageNewParams{}, apperr.New(apperr.KindValidation, "completion request cannot be nil")
	}

	systemBlocks, chatMessages := convertMessages(req.SystemPrompt, req.Messages)
	if len(chatMessages) == 0 {
		return anthropic.MessageNewParams{}, apperr.New(apperr.KindValidation, "completion requires at least one user or assistant message")
	}

	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  chatMessages,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	return params, nil
}

func convertMessages(systemPrompt string, messages []*Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	systemBlocks := make([]anthropic.TextBlockParam, 0, 1)
	if sys := strings.TrimSpace(systemPrompt); sys != "" {
		systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: sys})
	}

	chatMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || msg.Content == "" {
			continue
		}

		switch normalizeRole(msg.Role) {
		case "system":
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})
		case "assistant":
			chatMessages = append(chatMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			chatMessages = append(chatMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return systemBlocks, chatMessages
}

func decodeToolInput(raw string) map[string]interface{} {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return map[string]interface{}{"raw": raw}
	}
	return decoded
}

func normalizeRole(role string) string {
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		return "user"
	}
	return role
}

var _ Provider = (*AnthropicProvider)(nil)

// String implements fmt.Stringer for log lines.
func (p *AnthropicProvider) String() string {
	return fmt.Sprintf("anthropic(%s)", p.model)
}
