package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/llm"
	"github.com/dyike/TradeMind/internal/logging"
	"github.com/dyike/TradeMind/internal/market"
	"github.com/dyike/TradeMind/internal/memory"
	"github.com/dyike/TradeMind/internal/models"
	"github.com/dyike/TradeMind/internal/tools"
)

// Memory names, one per reflecting agent role.
const (
	MemoryBull        = "bull_memory"
	MemoryBear        = "bear_memory"
	MemoryTrader      = "trader_memory"
	MemoryInvestJudge = "invest_judge_memory"
	MemoryRiskManager = "risk_manager_memory"
)

// NodeFunc mutates the shared analysis state. Each pipeline node runs
// one NodeFunc and sets state.Goto for the orchestrator's hand-off.
type NodeFunc func(ctx context.Context, state *models.AgentState) error

// Agents builds the node functions of the pipeline around shared
// model handles, tools and memories.
type Agents struct {
	cfg      *config.Config
	quick    *llm.Handle
	deep     *llm.Handle
	toolkit  *tools.Toolkit
	memories map[string]*memory.FinancialSituationMemory
	log      *logging.Logger

	// selected analysts in execution order
	selected []string
}

func New(cfg *config.Config, quick, deep *llm.Handle, toolkit *tools.Toolkit,
	memories map[string]*memory.FinancialSituationMemory, selected []string) *Agents {
	return &Agents{
		cfg:      cfg,
		quick:    quick,
		deep:     deep,
		toolkit:  toolkit,
		memories: memories,
		selected: selected,
		log:      logging.ForComponent("agents"),
	}
}

func (a *Agents) Selected() []string { return a.selected }

// currentSituation concatenates the analyst reports, the text agents
// embed when querying memories.
func currentSituation(state *models.AgentState) string {
	return strings.TrimSpace(strings.Join([]string{
		state.MarketReport,
		state.SentimentReport,
		state.NewsReport,
		state.FundamentalsReport,
	}, "\n\n"))
}

// recallLessons fetches past lessons for a role, formatted as a prompt
// section. Memory failures degrade to an empty section.
func (a *Agents) recallLessons(ctx context.Context, name string, state *models.AgentState) string {
	if !a.cfg.MemoryEnabled {
		return ""
	}
	mem, ok := a.memories[name]
	if !ok || mem == nil {
		return ""
	}
	matches, err := mem.GetMemories(ctx, currentSituation(state), 2)
	if err != nil {
		a.log.Warnw("memory recall failed", "memory", name, "err", err)
		return ""
	}
	return memory.FormatMemories(matches)
}

// executeToolCalls runs each tool call inline and returns the tool
// result messages in call order.
func executeToolCalls(ctx context.Context, catalogue []tool.BaseTool, calls []schema.ToolCall) ([]*schema.Message, error) {
	byName := make(map[string]tool.InvokableTool, len(catalogue))
	for _, t := range catalogue {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		inv, ok := t.(tool.InvokableTool)
		if !ok {
			continue
		}
		byName[info.Name] = inv
	}

	out := make([]*schema.Message, 0, len(calls))
	for _, call := range calls {
		inv, ok := byName[call.Function.Name]
		if !ok {
			out = append(out, schema.ToolMessage(
				fmt.Sprintf("tool %s is not available", call.Function.Name), call.ID))
			continue
		}
		result, err := inv.InvokableRun(ctx, call.Function.Arguments)
		if err != nil {
			result = fmt.Sprintf("tool %s failed: %v", call.Function.Name, err)
		}
		out = append(out, schema.ToolMessage(result, call.ID))
	}
	return out, nil
}

// toolInfos extracts the ToolInfo of each tool for model binding.
func toolInfos(ctx context.Context, catalogue []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(catalogue))
	for _, t := range catalogue {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// marketContext renders ticker facts shared by all prompts.
func marketContext(state *models.AgentState) string {
	info := market.GetInfo(state.CompanyOfInterest)
	return fmt.Sprintf("Company: %s (%s)\nTrade date: %s\nPrices are quoted in %s (%s).",
		state.CompanyOfInterest, info.MarketName, state.TradeDate,
		info.CurrencyName, info.CurrencySymbol)
}
