package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/logging"
)

// Role selects which configured model a handle wraps.
type Role string

const (
	// DeepThink is used for judgment-heavy nodes: research manager,
	// trader, risk judge.
	DeepThink Role = "deep"
	// QuickThink is used for analysts and debate speakers.
	QuickThink Role = "quick"
)

// Capabilities describes what a provider's models can do, declared
// per provider instead of inferred from type names at call sites.
type Capabilities struct {
	SupportsBindTools bool
	// RequiresToolCallRepair marks providers whose tool call output
	// needs normalization before execution.
	RequiresToolCallRepair bool
	// PrefersForcedToolCall marks providers that often answer without
	// calling tools, so analysts fall back to the forced path.
	PrefersForcedToolCall bool
}

// Handle wraps a chat model with its capabilities and identity.
type Handle struct {
	model     model.ToolCallingChatModel
	caps      Capabilities
	provider  string
	modelName string
	log       *logging.Logger
}

// NewHandle builds a model handle for the provider in cfg. Unknown
// providers fail here, before any graph work starts.
func NewHandle(ctx context.Context, cfg *config.Config, role Role) (*Handle, error) {
	modelName := cfg.QuickThinkLLM
	if role == DeepThink {
		modelName = cfg.DeepThinkLLM
	}

	var (
		cm  model.ToolCallingChatModel
		err error
	)
	caps := Capabilities{SupportsBindTools: true}

	switch cfg.LLMProvider {
	case "openai":
		maxTokens := 8192
		conf := &openai.ChatModelConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     modelName,
			MaxTokens: &maxTokens,
		}
		if cfg.BackendURL != "" {
			conf.BaseURL = cfg.BackendURL
		}
		cm, err = openai.NewChatModel(ctx, conf)

	case "anthropic":
		conf := &claude.Config{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     modelName,
			MaxTokens: 8192,
		}
		if cfg.AnthropicBaseURL != "" {
			conf.BaseURL = &cfg.AnthropicBaseURL
		}
		cm, err = claude.NewChatModel(ctx, conf)
		caps.RequiresToolCallRepair = true

	default:
		return nil, fmt.Errorf("unsupported llm_provider %q, expected openai or anthropic", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s chat model %s: %w", cfg.LLMProvider, modelName, err)
	}

	return &Handle{
		model:     cm,
		caps:      caps,
		provider:  cfg.LLMProvider,
		modelName: modelName,
		log:       logging.ForComponent("llm").With("provider", cfg.LLMProvider, "model", modelName),
	}, nil
}

// NewHandleFromModel wraps an already constructed chat model. Callers
// that build their own model, including tests, enter here.
func NewHandleFromModel(cm model.ToolCallingChatModel, provider, modelName string, caps Capabilities) *Handle {
	return &Handle{
		model:     cm,
		caps:      caps,
		provider:  provider,
		modelName: modelName,
		log:       logging.ForComponent("llm").With("provider", provider, "model", modelName),
	}
}

func (h *Handle) Capabilities() Capabilities { return h.caps }
func (h *Handle) Provider() string           { return h.provider }
func (h *Handle) ModelName() string          { return h.modelName }

// Invoke generates one completion for the messages.
func (h *Handle) Invoke(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	msg, err := h.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate with %s/%s: %w", h.provider, h.modelName, err)
	}
	if h.caps.RequiresToolCallRepair && len(msg.ToolCalls) > 0 {
		msg.ToolCalls = RepairToolCalls(msg.ToolCalls, nil)
	}
	return msg, nil
}

// WithTools returns a handle whose model has the tools bound. Tool
// call repair on the returned handle validates against these tools.
func (h *Handle) WithTools(infos []*schema.ToolInfo) (*Handle, error) {
	if !h.caps.SupportsBindTools {
		return nil, fmt.Errorf("provider %s does not support tool binding", h.provider)
	}
	bound, err := h.model.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("bind tools on %s/%s: %w", h.provider, h.modelName, err)
	}
	clone := *h
	clone.model = bound
	return &clone, nil
}

// InvokeWithKnownTools generates a completion and repairs tool calls
// against the given catalogue when the provider needs it.
func (h *Handle) InvokeWithKnownTools(ctx context.Context, messages []*schema.Message, known map[string]bool) (*schema.Message, error) {
	msg, err := h.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("generate with %s/%s: %w", h.provider, h.modelName, err)
	}
	if h.caps.RequiresToolCallRepair && len(msg.ToolCalls) > 0 {
		before := len(msg.ToolCalls)
		msg.ToolCalls = RepairToolCalls(msg.ToolCalls, known)
		if dropped := before - len(msg.ToolCalls); dropped > 0 {
			h.log.Warnw("dropped unrepairable tool calls", "count", dropped)
		}
	}
	return msg, nil
}
