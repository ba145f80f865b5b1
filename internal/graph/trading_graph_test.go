package graph

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/llm"
	"github.com/dyike/TradeMind/internal/models"
)

// scriptedModel answers every Generate call with a fixed body. The
// risk judge therefore ends the run with a parseable verdict.
type scriptedModel struct {
	mu    sync.Mutex
	calls int
	body  string
}

func (m *scriptedModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return schema.AssistantMessage(m.body, nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.DataDir = dir
	cfg.DataCacheDir = dir
	cfg.ResultsDir = dir
	cfg.MemoryEnabled = false
	cfg.OnlineTools = false
	cfg.MaxDebateRounds = 1
	cfg.MaxRiskDiscussRounds = 1
	return cfg
}

func testHandles(body string) (*llm.Handle, *llm.Handle, *scriptedModel) {
	m := &scriptedModel{body: body}
	caps := llm.Capabilities{SupportsBindTools: true}
	quick := llm.NewHandleFromModel(m, "openai", "quick-test", caps)
	deep := llm.NewHandleFromModel(m, "openai", "deep-test", caps)
	return quick, deep, m
}

func TestCreateInitialStateValidation(t *testing.T) {
	if _, err := CreateInitialState("not a ticker!", "2026-01-15"); err == nil {
		t.Fatal("want error for malformed ticker")
	}
	if _, err := CreateInitialState("AAPL", "15/01/2026"); err == nil {
		t.Fatal("want error for malformed date")
	}

	state, err := CreateInitialState("0700", "2026-01-15")
	if err != nil {
		t.Fatalf("CreateInitialState: %v", err)
	}
	if state.CompanyOfInterest != "0700.HK" {
		t.Fatalf("ticker = %q, want normalized 0700.HK", state.CompanyOfInterest)
	}
	if state.InvestDebateState == nil || state.RiskDebateState == nil {
		t.Fatal("debate states must be initialised")
	}
}

func TestReportsOfSkipsEmpty(t *testing.T) {
	state := models.NewAgentState("AAPL", "2026-01-15")
	state.MarketReport = "market"
	state.FinalTradeDecision = "verdict"
	reports := ReportsOf(state)
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2: %v", len(reports), reports)
	}
	if reports["market_report"] != "market" || reports["final_trade_decision"] != "verdict" {
		t.Fatalf("unexpected reports: %v", reports)
	}
}

func TestPropagateEndToEnd(t *testing.T) {
	body := "经过分析建议买入。目标价：$52.5。理由：盈利能力与行业地位持续改善。\nFINAL TRANSACTION PROPOSAL: **BUY**"
	quick, deep, m := testHandles(body)

	cfg := testConfig(t)
	g, err := NewTradingAgentsGraph(context.Background(), cfg,
		WithModels(quick, deep),
		WithAnalysts(consts.AnalystMarket, consts.AnalystNews),
	)
	if err != nil {
		t.Fatalf("NewTradingAgentsGraph: %v", err)
	}

	var mu sync.Mutex
	events := map[string]int{}
	state, decision, err := g.Propagate(context.Background(), "AAPL", "2026-01-15", func(event string) {
		mu.Lock()
		events[event]++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}

	if state.MarketReport == "" || state.NewsReport == "" {
		t.Fatal("selected analyst reports must be filled")
	}
	if state.SentimentReport != "" || state.FundamentalsReport != "" {
		t.Fatal("unselected analyst reports must stay empty")
	}
	if !strings.Contains(state.FinalTradeDecision, "FINAL TRANSACTION PROPOSAL") {
		t.Fatalf("final decision = %q", state.FinalTradeDecision)
	}
	if state.InvestDebateState.Count != 2 {
		t.Fatalf("invest debate count = %d, want 2", state.InvestDebateState.Count)
	}
	if state.RiskDebateState.Count != 3 {
		t.Fatalf("risk debate count = %d, want 3", state.RiskDebateState.Count)
	}

	if decision.Action != models.ActionBuy {
		t.Fatalf("action = %q, want buy", decision.Action)
	}
	if decision.TargetPrice == nil || *decision.TargetPrice != 52.5 {
		t.Fatalf("target price = %v, want 52.5", decision.TargetPrice)
	}

	for _, event := range []string{
		consts.EventMarketDone,
		consts.EventNewsDone,
		consts.EventResearchManagerDone,
		consts.EventTraderDone,
		consts.EventRiskJudgeDone,
	} {
		if events[event] != 1 {
			t.Fatalf("event %s fired %d times, want exactly once", event, events[event])
		}
	}

	if m.callCount() == 0 {
		t.Fatal("model was never invoked")
	}
}

type fakeStore struct {
	saved  []*models.ReportRecord
	latest *models.ReportRecord
}

func (s *fakeStore) SaveReport(ctx context.Context, record *models.ReportRecord) error {
	s.saved = append(s.saved, record)
	return nil
}

func (s *fakeStore) GetLatestReport(ctx context.Context, symbol, date string, maxAge time.Duration) (*models.ReportRecord, error) {
	return s.latest, nil
}

func TestPropagateReattachCache(t *testing.T) {
	quick, deep, m := testHandles("unused")
	store := &fakeStore{latest: &models.ReportRecord{
		AnalysisID:      "prior-run",
		Status:          "completed",
		FormattedResult: "建议持有，等待更多信号。",
	}}

	cfg := testConfig(t)
	g, err := NewTradingAgentsGraph(context.Background(), cfg,
		WithModels(quick, deep),
		WithReportStore(store),
	)
	if err != nil {
		t.Fatalf("NewTradingAgentsGraph: %v", err)
	}

	state, decision, err := g.Propagate(context.Background(), "AAPL", "2026-01-15", nil)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if m.callCount() != 0 {
		t.Fatalf("model invoked %d times, want graph short-circuit", m.callCount())
	}
	if decision.Action != models.ActionHold {
		t.Fatalf("action = %q, want hold", decision.Action)
	}
	if state.FinalTradeDecision == "" {
		t.Fatal("cached result must be surfaced on the state")
	}
	if len(store.saved) != 0 {
		t.Fatal("short-circuited run must not persist a new report")
	}
}

func TestProgressCallbackFiresOnce(t *testing.T) {
	var got []string
	cb := NewProgressCallback(func(event string) { got = append(got, event) }, defaultAnalysts())

	ctx := context.Background()
	cb.OnEnd(ctx, &callbacks.RunInfo{Name: consts.Trader}, nil)
	cb.OnEnd(ctx, &callbacks.RunInfo{Name: consts.Trader}, nil)
	cb.OnStart(ctx, &callbacks.RunInfo{Name: consts.RiskDebate}, nil)
	cb.OnStart(ctx, &callbacks.RunInfo{Name: consts.RiskyAnalyst}, nil)

	if len(got) != 2 {
		t.Fatalf("events = %v, want exactly [trader done, risk debate started]", got)
	}
	if got[0] != consts.EventTraderDone || got[1] != consts.EventRiskDebateStarted {
		t.Fatalf("events = %v", got)
	}
}

func TestProgressCallbackParallelNodeReportsSelectedOnly(t *testing.T) {
	var got []string
	cb := NewProgressCallback(func(event string) { got = append(got, event) },
		[]string{consts.AnalystMarket, consts.AnalystNews})

	cb.OnEnd(context.Background(), &callbacks.RunInfo{Name: ParallelAnalystsNode}, nil)

	if len(got) != 2 {
		t.Fatalf("events = %v, want market and news done only", got)
	}
	fired := map[string]bool{got[0]: true, got[1]: true}
	if !fired[consts.EventMarketDone] || !fired[consts.EventNewsDone] {
		t.Fatalf("events = %v", got)
	}
}

func TestProgressCallbackStreamTransitions(t *testing.T) {
	var got []string
	cb := NewProgressCallback(func(event string) { got = append(got, event) }, defaultAnalysts())

	ctx := context.Background()
	in := schema.StreamReaderFromArray([]callbacks.CallbackInput{"payload"})
	cb.OnStartWithStreamInput(ctx, &callbacks.RunInfo{Name: consts.RiskDebate}, in)
	out := schema.StreamReaderFromArray([]callbacks.CallbackOutput{"payload"})
	cb.OnEndWithStreamOutput(ctx, &callbacks.RunInfo{Name: consts.RiskJudge}, out)

	if len(got) != 2 || got[0] != consts.EventRiskDebateStarted || got[1] != consts.EventRiskJudgeDone {
		t.Fatalf("events = %v", got)
	}
}
