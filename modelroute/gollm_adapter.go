package modelroute

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmAdapter wraps a gollm.LLM instance and implements ProviderAdapter.
// It translates between the routing-layer types and gollm's API.
type GollmAdapter struct {
	provider string
	llm      gollm.LLM
	model    string
}

// GollmAdapterOption configures a GollmAdapter.
type GollmAdapterOption func(*gollmAdapterConfig)

type gollmAdapterConfig struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	extraOpts   []gollm.ConfigOption
}

// WithAPIKey sets the API key for the adapter.
func WithAPIKey(key string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.apiKey = key
	}
}

// WithModel sets the default model for the adapter.
func WithModel(model string) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.model = model
	}
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.maxTokens = n
	}
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.temperature = t
	}
}

// WithGollmOptions adds extra gollm configuration options.
func WithGollmOptions(opts ...gollm.ConfigOption) GollmAdapterOption {
	return func(c *gollmAdapterConfig) {
		c.extraOpts = append(c.extraOpts, opts...)
	}
}

// NewGollmAdapter creates a new GollmAdapter for the given provider.
// If apiKey is empty, gollm will attempt to read it from environment variables.
func NewGollmAdapter(provider string, apiKey string, opts ...GollmAdapterOption) (*GollmAdapter, error) {
	cfg := &gollmAdapterConfig{
		apiKey:      apiKey,
		maxTokens:   4096,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// Determine default model for provider.
	model := cfg.model
	if model == "" {
		if info := GetLatestModel(provider, ""); info != nil {
			model = info.ID
		} else {
			// Fallback defaults.
			switch provider {
			case "openai":
				model = "gpt-4o-mini"
			case "anthropic":
				model = "claude-sonnet-4-5-20250514"
			default:
				model = "gpt-4o-mini"
			}
		}
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cfg.maxTokens),
		gollm.SetTemperature(cfg.temperature),
		gollm.SetMaxRetries(0), // We handle retries ourselves.
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}

	if cfg.apiKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.apiKey))
	}

	gollmOpts = append(gollmOpts, cfg.extraOpts...)

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", provider, err)
	}

	return &GollmAdapter{
		provider: provider,
		llm:      llm,
		model:    model,
	}, nil
}

// NewGollmAdapterFromLLM wraps an existing gollm.LLM instance.
func NewGollmAdapterFromLLM(provider string, llm gollm.LLM) *GollmAdapter {
	return &GollmAdapter{
		provider: provider,
		llm:      llm,
	}
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string {
	return a.provider
}

// Complete sends a blocking request and returns the full response.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)

	// Apply request-level overrides via gollm SetOption.
	a.applyRequestOptions(req)

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	return a.buildResponse(req, text), nil
}

// Stream sends a streaming request and returns a channel of StreamEvent
// objects shaped started, chunk*, finished. The last content-bearing chunk
// carries IsFinal.
func (a *GollmAdapter) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	prompt := a.translateRequest(req)

	a.applyRequestOptions(req)

	model := req.Model
	if model == "" {
		model = a.model
	}

	ch := make(chan StreamEvent, 64)

	if !a.llm.SupportsStreaming() {
		// Fallback: generate the full response and emit it as one chunk.
		go func() {
			defer close(ch)
			ch <- StartedEvent(model, a.provider)

			text, err := a.llm.Generate(ctx, prompt)
			if err != nil {
				ch <- ErrorEvent(a.translateError(err))
				return
			}

			ch <- ChunkEvent(text, true)

			resp := a.buildResponse(req, text)
			fin := FinishedEvent(resp.FinishReason, 1)
			fin.Calls = resp.Calls
			fin.Usage = &resp.Usage
			ch <- fin
		}()
		return ch, nil
	}

	// Use gollm streaming.
	stream, err := a.llm.Stream(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}

	go func() {
		defer close(ch)
		defer stream.Close()

		ch <- StartedEvent(model, a.provider)

		// One token of lookahead so the final chunk can carry IsFinal.
		var pending string
		havePending := false
		chunks := 0
		var fullText strings.Builder

		for {
			token, err := stream.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				ch <- ErrorEvent(a.translateError(err))
				return
			}
			if token == nil {
				continue
			}

			if havePending {
				ch <- ChunkEvent(pending, false)
				chunks++
			}
			pending = token.Text
			havePending = true
			fullText.WriteString(token.Text)
		}

		if havePending {
			ch <- ChunkEvent(pending, true)
			chunks++
		}

		resp := a.buildResponse(req, fullText.String())
		fin := FinishedEvent(resp.FinishReason, chunks)
		fin.Calls = resp.Calls
		fin.Usage = &resp.Usage
		ch <- fin
	}()

	return ch, nil
}

// translateRequest converts a routing-layer Request into a gollm Prompt.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	// Fold the message history into a system prompt plus a flat transcript,
	// which is the shape gollm's prompt API expects.
	var systemPrompt string
	var userParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt += msg.Content + "\n"
		case RoleUser:
			userParts = append(userParts, msg.Content)
		case RoleAssistant:
			// For multi-turn, include assistant context.
			if msg.Content != "" {
				userParts = append(userParts, "[Assistant]: "+msg.Content)
			}
		}
	}

	promptText := strings.Join(userParts, "\n")
	if promptText == "" {
		promptText = "Hello"
	}

	promptOpts := []gollm.PromptOption{}

	if systemPrompt != "" {
		promptOpts = append(promptOpts, gollm.WithSystemPrompt(strings.TrimSpace(systemPrompt), gollm.CacheTypeEphemeral))
	}

	if req.MaxTokens != nil {
		promptOpts = append(promptOpts, gollm.WithMaxLength(*req.MaxTokens))
	}

	return gollm.NewPrompt(promptText, promptOpts...)
}

// applyRequestOptions applies request-level parameters to the gollm LLM.
func (a *GollmAdapter) applyRequestOptions(req Request) {
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
}

// buildResponse constructs a Response from the generated text.
func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}

	// Some providers return structured calls as trailing JSON in the text.
	calls := a.parseStructuredCalls(text)
	content := text
	if len(calls) > 0 {
		content = a.removeCallJSON(text)
	}

	finishReason := FinishReasonStop
	if len(calls) > 0 {
		finishReason = FinishReasonToolCalls
	}

	return &Response{
		ID:           "resp_" + uuid.New().String()[:8],
		Model:        model,
		Provider:     a.provider,
		Content:      content,
		FinishReason: finishReason,
		Calls:        calls,
		Usage: Usage{
			// gollm doesn't expose detailed usage; estimate from text length.
			// Real usage would come from the provider's response headers.
			InputTokens:  estimateTokens(req),
			OutputTokens: len(text) / 4, // rough approximation
			TotalTokens:  estimateTokens(req) + len(text)/4,
		},
	}
}

// parseStructuredCalls extracts native tool calls that some providers embed
// as JSON in the response text.
func (a *GollmAdapter) parseStructuredCalls(text string) []StructuredCall {
	if start := strings.Index(text, `{"calls"`); start != -1 {
		var wrapper struct {
			Calls []StructuredCall `json:"calls"`
		}
		if err := json.Unmarshal([]byte(text[start:]), &wrapper); err == nil {
			return validCalls(wrapper.Calls)
		}
		return nil
	}

	start := strings.Index(text, `[{"skill"`)
	if start == -1 {
		return nil
	}
	var calls []StructuredCall
	if err := json.Unmarshal([]byte(text[start:]), &calls); err == nil {
		return validCalls(calls)
	}
	return nil
}

func validCalls(calls []StructuredCall) []StructuredCall {
	var valid []StructuredCall
	for _, c := range calls {
		if c.Skill != "" && c.Method != "" {
			valid = append(valid, c)
		}
	}
	return valid
}

// removeCallJSON strips the parsed call JSON from the text.
func (a *GollmAdapter) removeCallJSON(text string) string {
	result := text
	for _, pattern := range []string{`{"calls"`, `[{"skill"`} {
		if idx := strings.Index(result, pattern); idx != -1 {
			result = strings.TrimSpace(result[:idx])
		}
	}
	return result
}

// translateError converts a gollm error into the routing error hierarchy.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	// Classify based on error message content.
	msgLower := strings.ToLower(msg)
	switch {
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") || strings.Contains(msgLower, "invalid key") || strings.Contains(msgLower, "invalid api key"):
		return &AuthenticationError{ProviderError: ProviderError{
			RouteError: RouteError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 401,
		}}
	case strings.Contains(msgLower, "403") || strings.Contains(msgLower, "forbidden"):
		return &AccessDeniedError{ProviderError: ProviderError{
			RouteError: RouteError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 403,
		}}
	case strings.Contains(msgLower, "404") || strings.Contains(msgLower, "not found"):
		return &NotFoundError{ProviderError: ProviderError{
			RouteError: RouteError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 404,
		}}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		return &RateLimitError{ProviderError: ProviderError{
			RouteError: RouteError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 429, Retryable: true,
		}}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens"):
		return &ContextLengthError{ProviderError: ProviderError{
			RouteError: RouteError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 413,
		}}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server"):
		return &ServerError{ProviderError: ProviderError{
			RouteError: RouteError{Message: msg, Cause: err}, Provider: a.provider, StatusCode: 500, Retryable: true,
		}}
	case strings.Contains(msgLower, "timeout"):
		return &RequestTimeoutError{RouteError: RouteError{Message: msg, Cause: err}}
	case strings.Contains(msgLower, "content filter") || strings.Contains(msgLower, "safety"):
		return &ContentFilterError{ProviderError: ProviderError{
			RouteError: RouteError{Message: msg, Cause: err}, Provider: a.provider,
		}}
	default:
		// Wrap as a generic provider error (retryable by default).
		return &ProviderError{
			RouteError: RouteError{Message: msg, Cause: err},
			Provider:   a.provider,
			Retryable:  true,
		}
	}
}

// estimateTokens provides a rough token count estimate from request messages.
func estimateTokens(req Request) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	if total == 0 {
		total = 10
	}
	return total
}
