package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/dataflows"
	"github.com/dyike/TradeMind/internal/market"
	"github.com/dyike/TradeMind/internal/models"
)

type analystSpec struct {
	key        string
	node       string
	clearNode  string
	reportSlot func(state *models.AgentState) *string
	prompt     string
}

func (a *Agents) analystSpecs() map[string]analystSpec {
	return map[string]analystSpec{
		consts.AnalystMarket: {
			key:        consts.AnalystMarket,
			node:       consts.MarketAnalyst,
			clearNode:  consts.MsgClearMarket,
			reportSlot: func(s *models.AgentState) *string { return &s.MarketReport },
			prompt: `You are a market analyst studying price action and technical indicators.

Use the available tools to retrieve recent price data and the technical indicators most relevant to the current setup. Select complementary indicators: choose at most 8 covering trend, momentum, volatility and volume without redundancy (for example, do not request both rsi and mfi unless the divergence matters).

Write a detailed report of observed trends, support/resistance levels, momentum and volume behavior. End the report with a markdown table summarizing the key readings and their implications.`,
		},
		consts.AnalystSocial: {
			key:        consts.AnalystSocial,
			node:       consts.SocialMediaAnalyst,
			clearNode:  consts.MsgClearSocial,
			reportSlot: func(s *models.AgentState) *string { return &s.SentimentReport },
			prompt: `You are a social media and sentiment analyst.

Use the available tools to gather recent company coverage and public discussion. Assess the tone of the conversation, notable shifts in sentiment, and any narratives that could move the stock.

Write a detailed sentiment report. End with a markdown table summarizing the sources reviewed and their sentiment direction.`,
		},
		consts.AnalystNews: {
			key:        consts.AnalystNews,
			node:       consts.NewsAnalyst,
			clearNode:  consts.MsgClearNews,
			reportSlot: func(s *models.AgentState) *string { return &s.NewsReport },
			prompt: `You are a news analyst covering macroeconomics and company events.

Use the available tools to gather global market news and company-specific headlines. Identify events with a plausible price impact: earnings, guidance, regulation, macro data, sector rotation.

Write a detailed news report. End with a markdown table of the key events and their expected impact.`,
		},
		consts.AnalystFundamentals: {
			key:        consts.AnalystFundamentals,
			node:       consts.FundamentalsAnalyst,
			clearNode:  consts.MsgClearFundamentals,
			reportSlot: func(s *models.AgentState) *string { return &s.FundamentalsReport },
			prompt: `You are a fundamentals analyst.

Use the available tools to review the company's financial statements, insider activity and current valuation. Assess profitability, balance sheet strength, cash generation and insider conviction.

Write a detailed fundamentals report. End with a markdown table of the key financial metrics.`,
		},
	}
}

// AnalystNode builds the node function for one analyst type. The
// model first gets a chance to call tools on its own; if it answers
// without any tool call, the canonical data tool is executed anyway
// so the report is never written blind.
func (a *Agents) AnalystNode(analystKey string) (NodeFunc, error) {
	spec, ok := a.analystSpecs()[analystKey]
	if !ok {
		return nil, fmt.Errorf("unknown analyst type: %s", analystKey)
	}

	return func(ctx context.Context, state *models.AgentState) error {
		catalogue := a.toolkit.ForAnalyst(spec.key)
		infos, err := toolInfos(ctx, catalogue)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.node, err)
		}
		known := make(map[string]bool, len(infos))
		for _, info := range infos {
			known[info.Name] = true
		}

		bound, err := a.quick.WithTools(infos)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.node, err)
		}

		system := spec.prompt + "\n\n" + marketContext(state) +
			"\n\nAvailable tools:\n" + a.toolkit.ToolUsage(spec.key) +
			"\nCall the tools now; do not announce that you are going to call them.\n\n" +
			dataDiscipline(state)
		messages := []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(fmt.Sprintf("Analyze %s as of %s.", state.CompanyOfInterest, state.TradeDate)),
		}

		first, err := bound.InvokeWithKnownTools(ctx, messages, known)
		if err != nil {
			return fmt.Errorf("%s first pass: %w", spec.node, err)
		}

		var report string
		if len(first.ToolCalls) > 0 {
			report, err = a.analyzeToolResults(ctx, spec, state, messages, first, catalogue)
		} else {
			report, err = a.forcedToolPath(ctx, spec, state, catalogue)
		}
		if err != nil {
			return err
		}

		*spec.reportSlot(state) = report
		state.Sender = spec.node
		state.Messages = append(state.Messages, schema.AssistantMessage(report, nil))
		state.Goto = spec.clearNode
		return nil
	}, nil
}

// analyzeToolResults executes the model's tool calls and asks it to
// write the report from the returned data, tools unbound.
func (a *Agents) analyzeToolResults(ctx context.Context, spec analystSpec, state *models.AgentState,
	messages []*schema.Message, assistant *schema.Message, catalogue []tool.BaseTool) (string, error) {
	toolResults, err := executeToolCalls(ctx, catalogue, assistant.ToolCalls)
	if err != nil {
		return "", fmt.Errorf("%s tool execution: %w", spec.node, err)
	}

	followUp := make([]*schema.Message, 0, len(messages)+len(toolResults)+2)
	followUp = append(followUp, messages...)
	followUp = append(followUp, assistant)
	followUp = append(followUp, toolResults...)
	followUp = append(followUp, schema.UserMessage(
		"Write your full analysis report based on the data above. Do not call any more tools."))

	final, err := a.quick.Invoke(ctx, followUp)
	if err != nil {
		return "", fmt.Errorf("%s analysis pass: %w", spec.node, err)
	}
	return final.Content, nil
}

// forcedToolPath runs the analyst's canonical data tool directly and
// prompts the model with the embedded result. This covers models that
// answer without calling tools.
func (a *Agents) forcedToolPath(ctx context.Context, spec analystSpec, state *models.AgentState,
	catalogue []tool.BaseTool) (string, error) {
	name := a.toolkit.CanonicalToolName(spec.key)
	args, err := json.Marshal(a.canonicalArgs(spec.key, state))
	if err != nil {
		return "", err
	}

	var result string
	for _, t := range catalogue {
		info, infoErr := t.Info(ctx)
		if infoErr != nil {
			continue
		}
		if info.Name != name {
			continue
		}
		inv, ok := t.(tool.InvokableTool)
		if !ok {
			continue
		}
		result, err = inv.InvokableRun(ctx, string(args))
		if err != nil {
			result = fmt.Sprintf("tool %s failed: %v", name, err)
		}
		break
	}
	if result == "" {
		result = "No data could be retrieved."
	}

	a.log.Infow("analyst declined tool use, running canonical tool", "analyst", spec.key, "tool", name)

	prompt := []*schema.Message{
		schema.SystemMessage(spec.prompt + "\n\n" + marketContext(state) + "\n\n" + dataDiscipline(state)),
		schema.UserMessage(fmt.Sprintf(
			"Here is the retrieved data:\n\n%s\n\nWrite your full analysis report based on this data.", result)),
	}
	final, err := a.quick.Invoke(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s forced analysis pass: %w", spec.node, err)
	}
	return final.Content, nil
}

// dataDiscipline states the non-negotiable report rules: no invented
// figures, no refusals, local currency, an explicit verdict in the
// market's own vocabulary.
func dataDiscipline(state *models.AgentState) string {
	info := market.GetInfo(state.CompanyOfInterest)
	var b strings.Builder
	b.WriteString("Ground every figure in retrieved data. Never invent prices, volumes or financials. ")
	b.WriteString("Never answer that you are unable to help; when a source reports a data gap, say so and work with what remains.\n")
	fmt.Fprintf(&b, "Quote all prices in %s (%s).\n", info.CurrencyName, info.CurrencySymbol)
	if market.IsChinaStock(state.CompanyOfInterest) || market.IsHKStock(state.CompanyOfInterest) {
		b.WriteString("请使用中文撰写报告，并在结论中给出明确的操作建议：买入、持有或卖出。")
	} else {
		b.WriteString("State a clear recommendation in your conclusion: buy, hold, or sell.")
	}
	return b.String()
}

// canonicalArgs builds default arguments for the forced tool call,
// shaped for whichever tool set the current mode binds.
func (a *Agents) canonicalArgs(analystKey string, state *models.AgentState) map[string]interface{} {
	if a.cfg.OnlineTools {
		if analystKey == consts.AnalystMarket {
			return map[string]interface{}{
				"ticker":     state.CompanyOfInterest,
				"start_date": lookBackDate(state.TradeDate, 30),
				"end_date":   state.TradeDate,
			}
		}
		return map[string]interface{}{
			"ticker":    state.CompanyOfInterest,
			"curr_date": state.TradeDate,
		}
	}
	switch analystKey {
	case consts.AnalystMarket:
		return map[string]interface{}{
			"symbol":     state.CompanyOfInterest,
			"start_date": lookBackDate(state.TradeDate, 30),
			"end_date":   state.TradeDate,
		}
	case consts.AnalystFundamentals:
		return map[string]interface{}{"symbol": state.CompanyOfInterest}
	}
	return map[string]interface{}{
		"query":     state.CompanyOfInterest,
		"curr_date": state.TradeDate,
	}
}

func lookBackDate(date string, days int) string {
	d, err := dataflows.ParseDate(date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, -days).Format("2006-01-02")
}

// MsgClearNode replaces accumulated messages with a single placeholder
// after an analyst finishes, then hands off to the next stage. The
// placeholder keeps Anthropic-family models from reprocessing prior
// tool-call chatter.
func (a *Agents) MsgClearNode(analystKey string) NodeFunc {
	return func(ctx context.Context, state *models.AgentState) error {
		state.Messages = []*schema.Message{schema.UserMessage("Continue")}
		state.Goto = a.afterAnalyst(analystKey)
		return nil
	}
}

// afterAnalyst returns the node following one analyst's clear step:
// the next selected analyst, or the research debate once all analysts
// have reported.
func (a *Agents) afterAnalyst(analystKey string) string {
	specs := a.analystSpecs()
	for i, key := range a.selected {
		if key != analystKey {
			continue
		}
		if i+1 < len(a.selected) {
			return specs[a.selected[i+1]].node
		}
	}
	if a.cfg.MaxDebateRounds == 1 {
		return consts.InvestDebate
	}
	return consts.BullResearcher
}
