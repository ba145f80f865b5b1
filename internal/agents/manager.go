package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/models"
)

const researchManagerPrompt = `You are a portfolio manager moderating a debate between a bull and a bear researcher.

Summarize the strongest points of both sides, then commit to a clear recommendation: Buy, Sell, or Hold. Hold is only acceptable when specifically justified by the arguments, never as a default compromise.

Then develop a concrete investment plan for the trader: your recommendation, the rationale grounded in the debate's strongest arguments, and strategic actions for implementing it. Account for your past mistakes on similar situations.

Speak conversationally as if talking to your team. Do not use special formatting.`

// ResearchManagerNode judges the bull/bear debate and writes the
// investment plan for the trader.
func (a *Agents) ResearchManagerNode() NodeFunc {
	return func(ctx context.Context, state *models.AgentState) error {
		var b strings.Builder
		b.WriteString(researchManagerPrompt)
		b.WriteString("\n\n")
		b.WriteString(marketContext(state))
		fmt.Fprintf(&b, "\n\nAnalyst reports:\n%s\n", currentSituation(state))
		fmt.Fprintf(&b, "\nDebate history:\n%s\n", state.InvestDebateState.History)
		if lessons := a.recallLessons(ctx, MemoryInvestJudge, state); lessons != "" {
			fmt.Fprintf(&b, "\n%s\n", lessons)
		}

		msg, err := a.deep.Invoke(ctx, []*schema.Message{
			schema.SystemMessage(b.String()),
			schema.UserMessage("Deliver your judgment and investment plan."),
		})
		if err != nil {
			return fmt.Errorf("research manager: %w", err)
		}

		state.InvestDebateState.JudgeDecision = msg.Content
		state.InvestmentPlan = msg.Content
		state.Sender = consts.ResearchManager
		state.Goto = consts.Trader
		return nil
	}
}
