package agents

import (
	"testing"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/models"
)

func logicWithRounds(debate, risk int) *ConditionalLogic {
	cfg := config.DefaultConfig()
	cfg.MaxDebateRounds = debate
	cfg.MaxRiskDiscussRounds = risk
	return NewConditionalLogic(cfg)
}

func TestNextDebateNodeAlternates(t *testing.T) {
	cl := logicWithRounds(2, 1)
	state := models.NewAgentState("AAPL", "2025-06-01")

	// Nobody has spoken: the bull opens.
	if got := cl.NextDebateNode(state); got != consts.BullResearcher {
		t.Errorf("opening speaker = %q", got)
	}

	state.InvestDebateState.Count = 1
	state.InvestDebateState.CurrentResponse = "Bull Analyst: strong growth ahead"
	if got := cl.NextDebateNode(state); got != consts.BearResearcher {
		t.Errorf("after bull, next = %q", got)
	}

	state.InvestDebateState.Count = 2
	state.InvestDebateState.CurrentResponse = "Bear Analyst: valuation is stretched"
	if got := cl.NextDebateNode(state); got != consts.BullResearcher {
		t.Errorf("after bear, next = %q", got)
	}
}

func TestNextDebateNodeEndsAtBudget(t *testing.T) {
	cl := logicWithRounds(2, 1)
	state := models.NewAgentState("AAPL", "2025-06-01")
	state.InvestDebateState.Count = 4
	state.InvestDebateState.CurrentResponse = "Bear Analyst: final word"

	if got := cl.NextDebateNode(state); got != consts.ResearchManager {
		t.Errorf("at budget, next = %q, want research manager", got)
	}
}

func TestNextRiskNodeRotation(t *testing.T) {
	cl := logicWithRounds(1, 2)
	state := models.NewAgentState("AAPL", "2025-06-01")

	if got := cl.NextRiskNode(state); got != consts.RiskyAnalyst {
		t.Errorf("opening risk speaker = %q", got)
	}

	state.RiskDebateState.Count = 1
	state.RiskDebateState.LatestSpeaker = "Risky Analyst"
	if got := cl.NextRiskNode(state); got != consts.SafeAnalyst {
		t.Errorf("after risky, next = %q", got)
	}

	state.RiskDebateState.Count = 2
	state.RiskDebateState.LatestSpeaker = "Safe Analyst"
	if got := cl.NextRiskNode(state); got != consts.NeutralAnalyst {
		t.Errorf("after safe, next = %q", got)
	}

	state.RiskDebateState.Count = 3
	state.RiskDebateState.LatestSpeaker = "Neutral Analyst"
	if got := cl.NextRiskNode(state); got != consts.RiskyAnalyst {
		t.Errorf("after neutral, next = %q", got)
	}
}

func TestNextRiskNodeEndsAtBudget(t *testing.T) {
	cl := logicWithRounds(1, 2)
	state := models.NewAgentState("AAPL", "2025-06-01")
	state.RiskDebateState.Count = 6
	state.RiskDebateState.LatestSpeaker = "Neutral Analyst"

	if got := cl.NextRiskNode(state); got != consts.RiskJudge {
		t.Errorf("at budget, next = %q, want risk judge", got)
	}
}

func TestAfterAnalystOrdering(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxDebateRounds = 1
	a := New(cfg, nil, nil, nil, nil, []string{consts.AnalystMarket, consts.AnalystNews})

	if got := a.afterAnalyst(consts.AnalystMarket); got != consts.NewsAnalyst {
		t.Errorf("after market analyst = %q", got)
	}
	if got := a.afterAnalyst(consts.AnalystNews); got != consts.InvestDebate {
		t.Errorf("after last analyst = %q, want fused debate", got)
	}

	cfg.MaxDebateRounds = 2
	if got := a.afterAnalyst(consts.AnalystNews); got != consts.BullResearcher {
		t.Errorf("after last analyst with multi-round debate = %q", got)
	}
}
