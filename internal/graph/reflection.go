package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/internal/agents"
	"github.com/dyike/TradeMind/internal/llm"
	"github.com/dyike/TradeMind/internal/logging"
	"github.com/dyike/TradeMind/internal/memory"
	"github.com/dyike/TradeMind/internal/models"
)

const reflectionPrompt = `You are an expert financial analyst reviewing a past trading decision.
Given the analysis below and the realised return, write one concise paragraph of
lessons learned for the role in question: what the reasoning got right, what it
missed, and what to weigh differently next time. Be specific to the evidence.
Do not restate the inputs.`

// Reflector derives post-hoc lessons from a completed analysis and
// writes them into the role memories.
type Reflector struct {
	model    *llm.Handle
	memories map[string]*memory.FinancialSituationMemory
	log      *logging.Logger
}

func NewReflector(model *llm.Handle, memories map[string]*memory.FinancialSituationMemory) *Reflector {
	return &Reflector{
		model:    model,
		memories: memories,
		log:      logging.ForComponent("reflection"),
	}
}

// roleTranscripts maps each memory namespace to that role's own output
// for the run.
func roleTranscripts(state *models.AgentState) map[string]string {
	return map[string]string{
		agents.MemoryBull:        state.InvestDebateState.BullHistory,
		agents.MemoryBear:        state.InvestDebateState.BearHistory,
		agents.MemoryTrader:      state.TraderInvestmentPlan,
		agents.MemoryInvestJudge: state.InvestDebateState.JudgeDecision,
		agents.MemoryRiskManager: state.FinalTradeDecision,
	}
}

// Reflect asks the model for a lesson per role and stores each lesson
// against the run's market situation. A single role's failure is
// logged and skipped, never aborting the others.
func (r *Reflector) Reflect(ctx context.Context, state *models.AgentState, realizedReturn float64) {
	situation := strings.TrimSpace(strings.Join([]string{
		state.MarketReport,
		state.SentimentReport,
		state.NewsReport,
		state.FundamentalsReport,
	}, "\n\n"))
	if situation == "" {
		r.log.Warn("no reports to reflect on, skipping")
		return
	}

	for role, transcript := range roleTranscripts(state) {
		mem := r.memories[role]
		if mem == nil || strings.TrimSpace(transcript) == "" {
			continue
		}
		lesson, err := r.reflectRole(ctx, situation, transcript, realizedReturn)
		if err != nil {
			r.log.Warnf("reflection for %s failed: %v", role, err)
			continue
		}
		if err := mem.AddSituations(ctx, [][2]string{{situation, lesson}}); err != nil {
			r.log.Warnf("storing lesson for %s failed: %v", role, err)
		}
	}
}

func (r *Reflector) reflectRole(ctx context.Context, situation, transcript string, realizedReturn float64) (string, error) {
	outcome := "a loss"
	if realizedReturn > 0 {
		outcome = "a profit"
	}
	resp, err := r.model.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(reflectionPrompt),
		schema.UserMessage(fmt.Sprintf(
			"Market situation:\n%s\n\nThe role's reasoning and output:\n%s\n\nRealised return: %.2f%% (%s).",
			situation, transcript, realizedReturn*100, outcome)),
	})
	if err != nil {
		return "", err
	}
	lesson := strings.TrimSpace(resp.Content)
	if lesson == "" {
		return "", fmt.Errorf("empty reflection")
	}
	return lesson, nil
}
