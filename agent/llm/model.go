// Package llm adapts OpenRouter chat completions to the voice model
// contract used by the dialogue roles.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	contractx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/contract"
	transcriptx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/agent/transcript"
)

// Gateway implements contract.VoiceModel over the OpenAI-compatible chat
// completions API exposed by OpenRouter.
type Gateway struct {
	client *openaisdk.Client
	cfg    Config
}

var _ contractx.VoiceModel = (*Gateway)(nil)

func NewGateway(cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	// OpenRouter attribution headers
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	client := openaisdk.NewClient(opts...)
	return &Gateway{client: &client, cfg: cfg}, nil
}

func (g *Gateway) Decide(ctx context.Context, role contractx.RoleTag, directive string, entries []transcriptx.Entry, tools []contractx.ToolSpec) (contractx.ModelAction, error) {
	settings := g.cfg.SettingsFor(role)

	params := openaisdk.ChatCompletionNewParams{
		Model:               openaisdk.ChatModel(settings.Model),
		Messages:            toMessages(directive, entries),
		Temperature:         openaisdk.Float(float64(settings.Temperature)),
		MaxCompletionTokens: openaisdk.Int(int64(g.cfg.MaxCompletionToken)),
	}
	if len(tools) > 0 {
		params.Tools = toToolParams(tools)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.ModelAction{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.ModelAction{}, fmt.Errorf("%w: completion returned no choices", contractx.ErrModelInvoke)
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		fn := msg.ToolCalls[0].Function
		args := map[string]any{}
		if raw := strings.TrimSpace(fn.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return contractx.ModelAction{}, fmt.Errorf("%w: tool %s arguments: %v", contractx.ErrSchemaViolation, fn.Name, err)
			}
		}
		return contractx.ModelAction{ToolCall: &contractx.ToolCall{Tool: fn.Name, Args: args}}, nil
	}

	return contractx.ModelAction{Utterance: strings.TrimSpace(msg.Content)}, nil
}

func (g *Gateway) GenerateUtterance(ctx context.Context, role contractx.RoleTag, directive string, entries []transcriptx.Entry, instructions string) (string, error) {
	settings := g.cfg.SettingsFor(role)

	messages := toMessages(directive, entries)
	messages = append(messages, openaisdk.SystemMessage(instructions))

	resp, err := g.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:               openaisdk.ChatModel(settings.Model),
		Messages:            messages,
		Temperature:         openaisdk.Float(float64(settings.Temperature)),
		MaxCompletionTokens: openaisdk.Int(int64(g.cfg.MaxCompletionToken)),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", contractx.ErrModelInvoke)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// toMessages flattens a role transcript into chat messages. Tool artifacts
// are folded into bracketed assistant lines since entries do not retain the
// provider call ids required for native tool messages.
func toMessages(directive string, entries []transcriptx.Entry) []openaisdk.ChatCompletionMessageParamUnion {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(entries)+1)
	messages = append(messages, openaisdk.SystemMessage(directive))

	for _, e := range entries {
		switch e.Type {
		case transcriptx.EntryToolCall:
			messages = append(messages, openaisdk.AssistantMessage("[tool call] "+e.Content))
		case transcriptx.EntryToolResult:
			messages = append(messages, openaisdk.AssistantMessage(fmt.Sprintf("[tool result: %s] %s", e.Tool, e.Content)))
		default:
			switch e.Role {
			case transcriptx.RoleSystem:
				messages = append(messages, openaisdk.SystemMessage(e.Content))
			case transcriptx.RoleAssistant:
				messages = append(messages, openaisdk.AssistantMessage(e.Content))
			default:
				messages = append(messages, openaisdk.UserMessage(e.Content))
			}
		}
	}
	return messages
}

func toToolParams(tools []contractx.ToolSpec) []openaisdk.ChatCompletionToolParam {
	params := make([]openaisdk.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		properties := map[string]any{}
		var required []string
		for name, p := range t.Params {
			properties[name] = map[string]any{
				"type":        p.Type,
				"description": p.Desc,
			}
			if p.Required {
				required = append(required, name)
			}
		}

		schema := openaisdk.FunctionParameters{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			sort.Strings(required)
			schema["required"] = required
		}

		params = append(params, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openaisdk.String(t.Desc),
				Parameters:  schema,
			},
		})
	}
	return params
}
