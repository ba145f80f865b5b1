package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/agents"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/dataflows"
	"github.com/dyike/TradeMind/internal/llm"
	"github.com/dyike/TradeMind/internal/logging"
	"github.com/dyike/TradeMind/internal/memory"
	"github.com/dyike/TradeMind/internal/models"
	"github.com/dyike/TradeMind/internal/tools"
)

// ReportStore persists completed analyses and answers freshness
// queries for the reattach cache.
type ReportStore interface {
	SaveReport(ctx context.Context, record *models.ReportRecord) error
	GetLatestReport(ctx context.Context, symbol, date string, maxAge time.Duration) (*models.ReportRecord, error)
}

// reattachMaxAge bounds how old a stored report may be before the
// pipeline runs again.
const reattachMaxAge = 24 * time.Hour

type initialStateKey struct{}

// TradingAgentsGraph is the single entry point: it owns the LLM
// handles, the role memories, the compiled graph and the optional
// report store.
type TradingAgentsGraph struct {
	cfg       *config.Config
	agents    *agents.Agents
	runnable  compose.Runnable[string, string]
	reflector *Reflector
	store     ReportStore
	log       *logging.Logger
}

// Option configures optional collaborators of the facade.
type Option func(*options)

type options struct {
	store       ReportStore
	embedder    embedding.Embedder
	analysts    []string
	quick, deep *llm.Handle
}

// WithReportStore attaches a durable report store and enables the
// reattach cache.
func WithReportStore(store ReportStore) Option {
	return func(o *options) { o.store = store }
}

// WithEmbedder overrides the embedder backing role memories. Tests use
// this to avoid network calls.
func WithEmbedder(e embedding.Embedder) Option {
	return func(o *options) { o.embedder = e }
}

// WithAnalysts selects which analysts run, in order. Defaults to all
// four.
func WithAnalysts(keys ...string) Option {
	return func(o *options) { o.analysts = keys }
}

// WithModels supplies pre-built model handles instead of constructing
// them from config.
func WithModels(quick, deep *llm.Handle) Option {
	return func(o *options) {
		o.quick = quick
		o.deep = deep
	}
}

func defaultAnalysts() []string {
	return []string{
		consts.AnalystMarket,
		consts.AnalystSocial,
		consts.AnalystNews,
		consts.AnalystFundamentals,
	}
}

// NewTradingAgentsGraph wires the full pipeline. The graph is compiled
// once here; Propagate reuses it for every analysis.
func NewTradingAgentsGraph(ctx context.Context, cfg *config.Config, opts ...Option) (*TradingAgentsGraph, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.analysts) == 0 {
		o.analysts = defaultAnalysts()
	}

	var err error
	quick, deep := o.quick, o.deep
	if quick == nil {
		quick, err = llm.NewHandle(ctx, cfg, llm.QuickThink)
		if err != nil {
			return nil, fmt.Errorf("quick-think model: %w", err)
		}
	}
	if deep == nil {
		deep, err = llm.NewHandle(ctx, cfg, llm.DeepThink)
		if err != nil {
			return nil, fmt.Errorf("deep-think model: %w", err)
		}
	}

	memories, err := buildMemories(ctx, cfg, o.embedder)
	if err != nil {
		return nil, err
	}

	toolkit := tools.NewToolkit(cfg, dataflows.New(cfg))
	ag := agents.New(cfg, quick, deep, toolkit, memories, o.analysts)

	genFunc := func(ctx context.Context) *models.AgentState {
		if s, ok := ctx.Value(initialStateKey{}).(*models.AgentState); ok {
			return s
		}
		return models.NewAgentState("", "")
	}
	runnable, err := NewOrchestrator(ctx, ag, cfg, genFunc)
	if err != nil {
		return nil, err
	}

	return &TradingAgentsGraph{
		cfg:       cfg,
		agents:    ag,
		runnable:  runnable,
		reflector: NewReflector(deep, memories),
		store:     o.store,
		log:       logging.ForComponent("trading_graph"),
	}, nil
}

func buildMemories(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (map[string]*memory.FinancialSituationMemory, error) {
	if !cfg.MemoryEnabled {
		return nil, nil
	}
	if embedder == nil {
		var err error
		embedder, err = openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			BaseURL: cfg.BackendURL,
		})
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
	}
	names := []string{
		agents.MemoryBull,
		agents.MemoryBear,
		agents.MemoryTrader,
		agents.MemoryInvestJudge,
		agents.MemoryRiskManager,
	}
	memories := make(map[string]*memory.FinancialSituationMemory, len(names))
	for _, name := range names {
		memories[name] = memory.New(name, embedder, cfg)
	}
	return memories, nil
}

// Propagate runs one analysis end to end and returns the final state
// with the structured decision. A fresh stored report for the same
// (ticker, date) short-circuits the pipeline.
func (g *TradingAgentsGraph) Propagate(ctx context.Context, ticker, date string, progress ProgressFunc) (*models.AgentState, models.Decision, error) {
	state, err := CreateInitialState(ticker, date)
	if err != nil {
		return nil, models.Decision{}, err
	}

	if g.store != nil {
		if cached, err := g.store.GetLatestReport(ctx, state.CompanyOfInterest, date, reattachMaxAge); err == nil &&
			cached != nil && cached.Status == "completed" && cached.FormattedResult != "" {
			g.log.Infof("reusing stored report %s for %s/%s", cached.AnalysisID, state.CompanyOfInterest, date)
			cachedState := models.NewAgentState(state.CompanyOfInterest, date)
			cachedState.FinalTradeDecision = cached.FormattedResult
			return cachedState, ProcessSignal(cached.FormattedResult), nil
		}
	}

	runCtx := context.WithValue(ctx, initialStateKey{}, state)
	prompt := fmt.Sprintf("Analyze trading opportunities for %s on %s", state.CompanyOfInterest, date)

	g.log.Infof("starting analysis of %s for %s", state.CompanyOfInterest, date)
	_, err = g.runnable.Invoke(runCtx, prompt,
		compose.WithCallbacks(NewProgressCallback(progress, g.agents.Selected())))
	if err != nil {
		return nil, models.Decision{}, fmt.Errorf("graph execution: %w", err)
	}

	decision := ProcessSignal(state.FinalTradeDecision)

	if path, err := SaveStateLog(g.cfg, state); err != nil {
		g.log.Warnf("state log not saved: %v", err)
	} else {
		g.log.Debugf("state log saved to %s", path)
	}

	if g.store != nil {
		record := &models.ReportRecord{
			AnalysisID:      uuid.NewString(),
			StockSymbol:     state.CompanyOfInterest,
			AnalysisDate:    date,
			Timestamp:       time.Now().UTC(),
			Status:          "completed",
			Analysts:        g.agents.Selected(),
			ResearchDepth:   g.cfg.ResearchDepth,
			Reports:         ReportsOf(state),
			Summary:         state.InvestmentPlan,
			FormattedResult: state.FinalTradeDecision,
		}
		if err := g.store.SaveReport(ctx, record); err != nil {
			g.log.Warnf("report not persisted: %v", err)
		}
	}

	return state, decision, nil
}

// ReflectAndRemember folds a realised return back into the role
// memories.
func (g *TradingAgentsGraph) ReflectAndRemember(ctx context.Context, state *models.AgentState, realizedReturn float64) {
	if !g.cfg.MemoryEnabled {
		return
	}
	g.reflector.Reflect(ctx, state, realizedReturn)
}
