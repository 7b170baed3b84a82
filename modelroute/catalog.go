package modelroute

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	DisplayName   string `json:"display_name"`
	ContextWindow int    `json:"context_window"`
	MaxOutput     *int   `json:"max_output,omitempty"`

	// SupportsStreaming marks models whose adapters deliver incremental
	// chunk events rather than a single buffered response.
	SupportsStreaming bool `json:"supports_streaming"`

	// SupportsStructuredCalls marks models whose adapters report tool
	// invocations natively on the stream.
	SupportsStructuredCalls bool `json:"supports_structured_calls"`

	Aliases []string `json:"aliases,omitempty"`
}

func intPtr(v int) *int { return &v }

// Models is the built-in model catalog (February 2026).
var Models = []ModelInfo{
	// Anthropic
	{
		ID: "claude-opus-4-6", Provider: "anthropic", DisplayName: "Claude Opus 4.6",
		ContextWindow: 200000, MaxOutput: intPtr(32768),
		SupportsStreaming: true, SupportsStructuredCalls: true,
		Aliases: []string{"opus", "claude-opus"},
	},
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, MaxOutput: intPtr(16384),
		SupportsStreaming: true, SupportsStructuredCalls: true,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},

	// OpenAI
	{
		ID: "gpt-5.2", Provider: "openai", DisplayName: "GPT-5.2",
		ContextWindow: 1047576, MaxOutput: intPtr(32768),
		SupportsStreaming: true, SupportsStructuredCalls: true,
		Aliases: []string{"gpt5"},
	},
	{
		ID: "gpt-5.2-mini", Provider: "openai", DisplayName: "GPT-5.2 Mini",
		ContextWindow: 1047576, MaxOutput: intPtr(16384),
		SupportsStreaming: true, SupportsStructuredCalls: true,
		Aliases: []string{"gpt5-mini"},
	},
	{
		ID: "gpt-5.2-codex", Provider: "openai", DisplayName: "GPT-5.2 Codex",
		ContextWindow: 1047576, MaxOutput: intPtr(32768),
		SupportsStreaming: true, SupportsStructuredCalls: true,
		Aliases: []string{"codex"},
	},

	// Gemini
	{
		ID: "gemini-3-pro-preview", Provider: "gemini", DisplayName: "Gemini 3 Pro (Preview)",
		ContextWindow: 1048576, MaxOutput: intPtr(65536),
		SupportsStreaming: true, SupportsStructuredCalls: false,
		Aliases: []string{"gemini-pro", "gemini-3-pro"},
	},
	{
		ID: "gemini-3-flash-preview", Provider: "gemini", DisplayName: "Gemini 3 Flash (Preview)",
		ContextWindow: 1048576, MaxOutput: intPtr(65536),
		SupportsStreaming: true, SupportsStructuredCalls: false,
		Aliases: []string{"gemini-flash", "gemini-3-flash"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// GetLatestModel returns the first (newest/best) model for a provider,
// optionally filtered by capability.
func GetLatestModel(provider string, capability string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider != provider {
			continue
		}
		switch capability {
		case "":
			return &Models[i]
		case "streaming":
			if Models[i].SupportsStreaming {
				return &Models[i]
			}
		case "calls":
			if Models[i].SupportsStructuredCalls {
				return &Models[i]
			}
		}
	}
	return nil
}
