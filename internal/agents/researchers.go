package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/internal/models"
)

const bullPrompt = `You are a bullish investment researcher arguing for buying the stock.

Build the strongest evidence-based case for upside: growth drivers, positive catalysts, competitive advantages and favorable technicals. Directly rebut the bear researcher's most recent concerns where they are weak, and concede nothing without data.

Speak conversationally as if in a live debate. Do not use special formatting.`

const bearPrompt = `You are a bearish investment researcher arguing against buying the stock.

Build the strongest evidence-based case for caution: risks, deteriorating fundamentals, stretched valuation, negative catalysts and weak technicals. Directly rebut the bull researcher's most recent claims where they overreach.

Speak conversationally as if in a live debate. Do not use special formatting.`

// BullResearcherNode argues the long case and appends to the debate.
func (a *Agents) BullResearcherNode() NodeFunc {
	cl := NewConditionalLogic(a.cfg)
	return func(ctx context.Context, state *models.AgentState) error {
		argument, err := a.debateArgument(ctx, bullPrompt, MemoryBull, state,
			state.InvestDebateState.BearHistory)
		if err != nil {
			return fmt.Errorf("bull researcher: %w", err)
		}

		debate := state.InvestDebateState
		tagged := "Bull Analyst: " + argument
		debate.BullHistory += tagged + "\n"
		debate.History += tagged + "\n"
		debate.CurrentResponse = tagged
		debate.Count++

		state.Goto = cl.NextDebateNode(state)
		return nil
	}
}

// BearResearcherNode argues the short case and appends to the debate.
func (a *Agents) BearResearcherNode() NodeFunc {
	cl := NewConditionalLogic(a.cfg)
	return func(ctx context.Context, state *models.AgentState) error {
		argument, err := a.debateArgument(ctx, bearPrompt, MemoryBear, state,
			state.InvestDebateState.BullHistory)
		if err != nil {
			return fmt.Errorf("bear researcher: %w", err)
		}

		debate := state.InvestDebateState
		tagged := "Bear Analyst: " + argument
		debate.BearHistory += tagged + "\n"
		debate.History += tagged + "\n"
		debate.CurrentResponse = tagged
		debate.Count++

		state.Goto = cl.NextDebateNode(state)
		return nil
	}
}

// debateArgument produces one side's next argument from the reports,
// the debate so far and that side's recalled lessons.
func (a *Agents) debateArgument(ctx context.Context, rolePrompt, memoryName string,
	state *models.AgentState, opponentHistory string) (string, error) {

	var b strings.Builder
	b.WriteString(rolePrompt)
	b.WriteString("\n\n")
	b.WriteString(marketContext(state))
	fmt.Fprintf(&b, "\n\nMarket research report:\n%s\n", state.MarketReport)
	fmt.Fprintf(&b, "\nSentiment report:\n%s\n", state.SentimentReport)
	fmt.Fprintf(&b, "\nNews report:\n%s\n", state.NewsReport)
	fmt.Fprintf(&b, "\nFundamentals report:\n%s\n", state.FundamentalsReport)

	if state.InvestDebateState.History != "" {
		fmt.Fprintf(&b, "\nDebate so far:\n%s\n", state.InvestDebateState.History)
	}
	if opponentHistory != "" {
		fmt.Fprintf(&b, "\nYour opponent's arguments:\n%s\n", opponentHistory)
	}
	if lessons := a.recallLessons(ctx, memoryName, state); lessons != "" {
		fmt.Fprintf(&b, "\n%s\n", lessons)
	}

	msg, err := a.quick.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(b.String()),
		schema.UserMessage("Present your next argument in the debate."),
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}
