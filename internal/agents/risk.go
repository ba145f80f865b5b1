package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/models"
)

type riskSpec struct {
	node       string
	speaker    string
	prompt     string
	ownHistory func(rd *models.RiskDebateState) *string
	ownCurrent func(rd *models.RiskDebateState) *string
}

func riskSpecs() []riskSpec {
	return []riskSpec{
		{
			node:    consts.RiskyAnalyst,
			speaker: "Risky Analyst",
			prompt: `You are the aggressive risk analyst. Champion high-reward opportunities in the trader's plan and argue why bold positioning beats excessive caution. Challenge the conservative and neutral views directly where they leave returns on the table.`,
			ownHistory: func(rd *models.RiskDebateState) *string { return &rd.RiskyHistory },
			ownCurrent: func(rd *models.RiskDebateState) *string { return &rd.CurrentRiskyResponse },
		},
		{
			node:    consts.SafeAnalyst,
			speaker: "Safe Analyst",
			prompt: `You are the conservative risk analyst. Protect capital: stress downside scenarios, liquidity, volatility and what the trader's plan risks losing. Challenge the aggressive and neutral views directly where they underweight danger.`,
			ownHistory: func(rd *models.RiskDebateState) *string { return &rd.SafeHistory },
			ownCurrent: func(rd *models.RiskDebateState) *string { return &rd.CurrentSafeResponse },
		},
		{
			node:    consts.NeutralAnalyst,
			speaker: "Neutral Analyst",
			prompt: `You are the neutral risk analyst. Weigh both sides impartially: where is the aggressive view overconfident, where is the conservative view overcautious, and what balanced position does the evidence support.`,
			ownHistory: func(rd *models.RiskDebateState) *string { return &rd.NeutralHistory },
			ownCurrent: func(rd *models.RiskDebateState) *string { return &rd.CurrentNeutralResponse },
		},
	}
}

// RiskDebatorNode builds the node for one of the three risk stances.
func (a *Agents) RiskDebatorNode(node string) (NodeFunc, error) {
	var spec *riskSpec
	specs := riskSpecs()
	for i := range specs {
		if specs[i].node == node {
			spec = &specs[i]
			break
		}
	}
	if spec == nil {
		return nil, fmt.Errorf("unknown risk debator node: %s", node)
	}
	cl := NewConditionalLogic(a.cfg)

	return func(ctx context.Context, state *models.AgentState) error {
		argument, err := a.riskArgument(ctx, spec.prompt, state)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.node, err)
		}

		rd := state.RiskDebateState
		tagged := spec.speaker + ": " + argument
		*spec.ownHistory(rd) += tagged + "\n"
		*spec.ownCurrent(rd) = tagged
		rd.History += tagged + "\n"
		rd.LatestSpeaker = spec.speaker
		rd.Count++

		state.Goto = cl.NextRiskNode(state)
		return nil
	}, nil
}

func (a *Agents) riskArgument(ctx context.Context, rolePrompt string, state *models.AgentState) (string, error) {
	var b strings.Builder
	b.WriteString(rolePrompt)
	b.WriteString("\n\nSpeak conversationally as if in a live discussion. Do not use special formatting.\n\n")
	b.WriteString(marketContext(state))
	fmt.Fprintf(&b, "\n\nAnalyst reports:\n%s\n", currentSituation(state))
	fmt.Fprintf(&b, "\nTrader's plan:\n%s\n", state.TraderInvestmentPlan)
	if state.RiskDebateState.History != "" {
		fmt.Fprintf(&b, "\nDiscussion so far:\n%s\n", state.RiskDebateState.History)
	}

	msg, err := a.quick.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(b.String()),
		schema.UserMessage("Present your risk assessment."),
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

const riskJudgePrompt = `You are the risk management judge moderating the discussion between the aggressive, conservative, and neutral risk analysts.

Weigh their arguments and decide the final action for the trader: Buy, Sell, or Hold. Hold needs specific justification, never pick it as a compromise. Refine the trader's plan where the discussion exposed weaknesses, and state the final decision clearly with a target price, confidence and risk assessment. Account for past lessons on similar situations.`

// RiskJudgeNode settles the risk debate and writes the final trade
// decision.
func (a *Agents) RiskJudgeNode() NodeFunc {
	return func(ctx context.Context, state *models.AgentState) error {
		var b strings.Builder
		b.WriteString(riskJudgePrompt)
		b.WriteString("\n\n")
		b.WriteString(marketContext(state))
		fmt.Fprintf(&b, "\n\nAnalyst reports:\n%s\n", currentSituation(state))
		fmt.Fprintf(&b, "\nTrader's plan:\n%s\n", state.TraderInvestmentPlan)
		fmt.Fprintf(&b, "\nRisk discussion:\n%s\n", state.RiskDebateState.History)
		if lessons := a.recallLessons(ctx, MemoryRiskManager, state); lessons != "" {
			fmt.Fprintf(&b, "\n%s\n", lessons)
		}

		msg, err := a.deep.Invoke(ctx, []*schema.Message{
			schema.SystemMessage(b.String()),
			schema.UserMessage("Deliver the final trade decision."),
		})
		if err != nil {
			return fmt.Errorf("risk judge: %w", err)
		}

		state.RiskDebateState.JudgeDecision = msg.Content
		state.FinalTradeDecision = msg.Content
		state.Sender = consts.RiskJudge
		state.Goto = compose.END
		return nil
	}
}
