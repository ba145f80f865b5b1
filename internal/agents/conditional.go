package agents

import (
	"strings"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/models"
)

// ConditionalLogic decides the hand-off targets for the debate loops.
type ConditionalLogic struct {
	maxDebateRounds      int
	maxRiskDiscussRounds int
}

func NewConditionalLogic(cfg *config.Config) *ConditionalLogic {
	return &ConditionalLogic{
		maxDebateRounds:      cfg.MaxDebateRounds,
		maxRiskDiscussRounds: cfg.MaxRiskDiscussRounds,
	}
}

// NextDebateNode returns the next node of the bull/bear debate. Each
// round is one bull plus one bear argument; after the budget runs out
// the research manager takes over. Within a round the side that has
// not answered the current response speaks next.
func (cl *ConditionalLogic) NextDebateNode(state *models.AgentState) string {
	debate := state.InvestDebateState
	if debate == nil {
		return consts.BullResearcher
	}
	if debate.Count >= 2*cl.maxDebateRounds {
		return consts.ResearchManager
	}
	if strings.HasPrefix(debate.CurrentResponse, "Bull") {
		return consts.BearResearcher
	}
	return consts.BullResearcher
}

// NextRiskNode returns the next node of the three-way risk debate.
// Speakers rotate aggressive, conservative, neutral until the round
// budget is spent, then the risk judge decides.
func (cl *ConditionalLogic) NextRiskNode(state *models.AgentState) string {
	risk := state.RiskDebateState
	if risk == nil {
		return consts.RiskyAnalyst
	}
	if risk.Count >= 3*cl.maxRiskDiscussRounds {
		return consts.RiskJudge
	}
	switch {
	case strings.HasPrefix(risk.LatestSpeaker, "Risky"):
		return consts.SafeAnalyst
	case strings.HasPrefix(risk.LatestSpeaker, "Safe"):
		return consts.NeutralAnalyst
	default:
		return consts.RiskyAnalyst
	}
}
