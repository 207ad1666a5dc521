package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// compatHost describes a vendor that serves the OpenAI chat completions
// API.
type compatHost struct {
	baseURL string // empty: the SDK default
	models  map[string]string
}

var compatHosts = map[string]compatHost{
	ProviderSambaNova: {
		baseURL: "https://api.sambanova.ai/v1",
		models: map[string]string{
			"llama-3.1-8b":  "Meta-Llama-3.1-8B-Instruct",
			"llama-3.1-70b": "Meta-Llama-3.1-70B-Instruct",
			"llama-3.3-70b": "Meta-Llama-3.3-70B-Instruct",
		},
	},
	ProviderOpenAI: {
		models: map[string]string{
			"gpt-4o":      "gpt-4o",
			"gpt-4o-mini": "gpt-4o-mini",
		},
	},
	ProviderOpenRouter: {
		baseURL: "https://openrouter.ai/api/v1",
		models: map[string]string{
			"llama-3.1-8b":  "meta-llama/llama-3.1-8b-instruct",
			"llama-3.3-70b": "meta-llama/llama-3.3-70b-instruct",
			"gpt-4o-mini":   "openai/gpt-4o-mini",
		},
	},
}

// OpenAIProvider serves SambaNova, OpenAI and OpenRouter through the
// go-openai client.
type OpenAIProvider struct {
	host   string
	client *openai.Client
	model  string
}

// NewOpenAIProvider connects to the named OpenAI-compatible host.
func NewOpenAIProvider(host string, cfg ProviderConfig) (*OpenAIProvider, error) {
	h, ok := compatHosts[host]
	if !ok {
		return nil, fmt.Errorf("%s does not speak the OpenAI API", host)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", host)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	case h.baseURL != "":
		oc.BaseURL = h.baseURL
	}

	return &OpenAIProvider{
		host:   host,
		client: openai.NewClientWithConfig(oc),
		model:  modelAlias(cfg.Model, h.models),
	}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	chat, err := p.chatRequest(req)
	if err != nil {
		return nil, err
	}

	out, err := p.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return nil, p.wrapError(err)
	}
	if len(out.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: errors.New(p.host + " returned no choices")}
	}

	choice := out.Choices[0]
	stop := StopEnd
	if choice.FinishReason == openai.FinishReasonLength {
		stop = StopMaxTokens
	}
	model := out.Model
	if model == "" {
		model = p.model
	}
	return finish(req, choice.Message.Content, model, stop,
		usage(out.Usage.PromptTokens, out.Usage.CompletionTokens))
}

func (p *OpenAIProvider) ModelID() string { return p.model }

func (p *OpenAIProvider) chatRequest(req Request) (openai.ChatCompletionRequest, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	chat := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    msgs,
		Temperature: float32(req.Temperature),
	}
	// SambaNova and OpenRouter still expect the older max_tokens field.
	if p.host == ProviderOpenAI {
		chat.MaxCompletionTokens = req.MaxTokens
	} else {
		chat.MaxTokens = req.MaxTokens
	}

	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err != nil {
			return chat, fmt.Errorf("encode schema %q: %w", req.Schema.Name, err)
		}
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      json.RawMessage(def),
				Strict:      true,
			},
		}
	}
	return chat, nil
}

func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(p.host, apiErr.HTTPStatusCode, nil, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusError(p.host, reqErr.HTTPStatusCode, nil, err)
	}
	return &ErrProviderUnavailable{Provider: p.host, Err: err}
}

// modelAlias resolves a friendly model name; unknown names pass through as
// vendor model IDs.
func modelAlias(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
