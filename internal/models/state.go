package models

import (
	"github.com/cloudwego/eino/schema"
)

// InvestDebateState tracks the bull/bear researcher debate.
type InvestDebateState struct {
	BullHistory     string `json:"bull_history"`
	BearHistory     string `json:"bear_history"`
	History         string `json:"history"`
	CurrentResponse string `json:"current_response"`
	JudgeDecision   string `json:"judge_decision"`
	Count           int    `json:"count"`
}

// RiskDebateState tracks the three-way risk discussion.
type RiskDebateState struct {
	RiskyHistory           string `json:"risky_history"`
	SafeHistory            string `json:"safe_history"`
	NeutralHistory         string `json:"neutral_history"`
	History                string `json:"history"`
	LatestSpeaker          string `json:"latest_speaker"`
	CurrentRiskyResponse   string `json:"current_risky_response"`
	CurrentSafeResponse    string `json:"current_safe_response"`
	CurrentNeutralResponse string `json:"current_neutral_response"`
	JudgeDecision          string `json:"judge_decision"`
	Count                  int    `json:"count"`
}

// AgentState is the shared object threaded through the graph. Nodes read
// from it under the graph's state lock and write only the fields they own.
type AgentState struct {
	Messages          []*schema.Message `json:"messages"`
	CompanyOfInterest string            `json:"company_of_interest"`
	TradeDate         string            `json:"trade_date"`
	Sender            string            `json:"sender"`

	MarketReport       string `json:"market_report"`
	SentimentReport    string `json:"sentiment_report"`
	NewsReport         string `json:"news_report"`
	FundamentalsReport string `json:"fundamentals_report"`

	InvestDebateState    *InvestDebateState `json:"investment_debate_state"`
	InvestmentPlan       string             `json:"investment_plan"`
	TraderInvestmentPlan string             `json:"trader_investment_plan"`

	RiskDebateState    *RiskDebateState `json:"risk_debate_state"`
	FinalTradeDecision string           `json:"final_trade_decision"`

	// Goto carries the next node name between a router and the branch that
	// consumes it.
	Goto string `json:"goto"`
}

// NewAgentState returns the empty state for one analysis with all
// histories empty-initialised.
func NewAgentState(symbol, date string) *AgentState {
	return &AgentState{
		Messages:          []*schema.Message{},
		CompanyOfInterest: symbol,
		TradeDate:         date,
		InvestDebateState: &InvestDebateState{},
		RiskDebateState:   &RiskDebateState{},
	}
}

// LastMessage returns the newest message or nil.
func (s *AgentState) LastMessage() *schema.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// HasPendingToolCalls reports whether the last message carries tool calls.
// Tool-result messages have no ToolCalls field content, so absence means
// "no tool calls".
func (s *AgentState) HasPendingToolCalls() bool {
	last := s.LastMessage()
	return last != nil && len(last.ToolCalls) > 0
}
