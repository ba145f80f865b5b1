package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/market"
	"github.com/dyike/TradeMind/internal/models"
)

// TraderNode turns the investment plan into a concrete trading
// proposal with a target price.
func (a *Agents) TraderNode() NodeFunc {
	return func(ctx context.Context, state *models.AgentState) error {
		info := market.GetInfo(state.CompanyOfInterest)

		var b strings.Builder
		fmt.Fprintf(&b, `You are a trading agent deciding how to act on the research team's plan for %s.

Analyze the plan together with the underlying reports and commit to a specific position: buy, sell, or hold. State a target price in %s (%s), your confidence, and the key risks.

Always end your response with 'FINAL TRANSACTION PROPOSAL: **BUY/HOLD/SELL**' to confirm your recommendation. Account for lessons from past decisions on similar situations.`,
			state.CompanyOfInterest, info.CurrencyName, info.CurrencySymbol)
		b.WriteString("\n\n")
		b.WriteString(marketContext(state))
		fmt.Fprintf(&b, "\n\nAnalyst reports:\n%s\n", currentSituation(state))
		fmt.Fprintf(&b, "\nInvestment plan:\n%s\n", state.InvestmentPlan)
		if lessons := a.recallLessons(ctx, MemoryTrader, state); lessons != "" {
			fmt.Fprintf(&b, "\n%s\n", lessons)
		}

		msg, err := a.deep.Invoke(ctx, []*schema.Message{
			schema.SystemMessage(b.String()),
			schema.UserMessage(fmt.Sprintf("Decide the trade for %s.", state.CompanyOfInterest)),
		})
		if err != nil {
			return fmt.Errorf("trader: %w", err)
		}

		state.TraderInvestmentPlan = msg.Content
		state.Sender = consts.Trader

		if a.cfg.MaxRiskDiscussRounds == 1 {
			state.Goto = consts.RiskDebate
		} else {
			state.Goto = consts.RiskyAnalyst
		}
		return nil
	}
}
