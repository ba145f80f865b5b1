package graph

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/logging"
)

// ProgressFunc receives pipeline events. Implementations must not block.
type ProgressFunc func(event string)

// Events that fire when a node starts rather than when it ends.
var startEvents = map[string]string{
	consts.BullResearcher: consts.EventInvestDebateStarted,
	consts.InvestDebate:   consts.EventInvestDebateStarted,
	consts.RiskyAnalyst:   consts.EventRiskDebateStarted,
	consts.RiskDebate:     consts.EventRiskDebateStarted,
}

var endEvents = map[string][]string{
	consts.MarketAnalyst:       {consts.EventMarketDone},
	consts.SocialMediaAnalyst:  {consts.EventSocialDone},
	consts.NewsAnalyst:         {consts.EventNewsDone},
	consts.FundamentalsAnalyst: {consts.EventFundamentalsDone},
	consts.ResearchManager:     {consts.EventResearchManagerDone},
	consts.Trader:              {consts.EventTraderDone},
	consts.RiskJudge:           {consts.EventRiskJudgeDone},
}

var analystDoneEvents = map[string]string{
	consts.AnalystMarket:       consts.EventMarketDone,
	consts.AnalystSocial:       consts.EventSocialDone,
	consts.AnalystNews:         consts.EventNewsDone,
	consts.AnalystFundamentals: consts.EventFundamentalsDone,
}

// ProgressCallback maps graph node transitions onto the fixed progress
// event vocabulary. Every event fires at most once per analysis.
type ProgressCallback struct {
	callbacks.HandlerBuilder

	fn  ProgressFunc
	log *logging.Logger

	// Done events the fused analyst node stands for; only the
	// selected analysts report completion.
	parallelDone []string

	mu    sync.Mutex
	fired map[string]bool
}

func NewProgressCallback(fn ProgressFunc, analysts []string) *ProgressCallback {
	done := make([]string, 0, len(analysts))
	for _, key := range analysts {
		if event, ok := analystDoneEvents[key]; ok {
			done = append(done, event)
		}
	}
	return &ProgressCallback{
		fn:           fn,
		log:          logging.ForComponent("progress_callback"),
		parallelDone: done,
		fired:        make(map[string]bool),
	}
}

func (cb *ProgressCallback) emit(event string) {
	if cb.fn == nil || event == "" {
		return
	}
	cb.mu.Lock()
	seen := cb.fired[event]
	cb.fired[event] = true
	cb.mu.Unlock()
	if seen {
		return
	}
	cb.fn(event)
}

func (cb *ProgressCallback) endEventsFor(node string) []string {
	if node == ParallelAnalystsNode {
		return cb.parallelDone
	}
	return endEvents[node]
}

func (cb *ProgressCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if info == nil {
		return ctx
	}
	if event, ok := startEvents[info.Name]; ok {
		cb.emit(event)
	}
	return ctx
}

func (cb *ProgressCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if info == nil {
		return ctx
	}
	for _, event := range cb.endEventsFor(info.Name) {
		cb.emit(event)
	}
	return ctx
}

func (cb *ProgressCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	if info != nil && err != nil {
		cb.log.Warnf("node %s failed: %v", info.Name, err)
	}
	return ctx
}

func (cb *ProgressCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	defer input.Close()
	if info != nil {
		if event, ok := startEvents[info.Name]; ok {
			cb.emit(event)
		}
	}
	return ctx
}

func (cb *ProgressCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	defer output.Close()
	if info != nil {
		for _, event := range cb.endEventsFor(info.Name) {
			cb.emit(event)
		}
	}
	return ctx
}
