package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/dataflows"
	"github.com/dyike/TradeMind/internal/market"
	"github.com/dyike/TradeMind/internal/models"
)

// CreateInitialState validates the inputs and returns the empty state
// for one analysis. Validation happens before any I/O.
func CreateInitialState(ticker, date string) (*models.AgentState, error) {
	normalized := market.NormalizeHKTicker(ticker)
	if !market.ValidTicker(normalized) {
		return nil, fmt.Errorf("invalid ticker %q", ticker)
	}
	if !market.ValidDate(date) {
		return nil, fmt.Errorf("invalid trade date %q, want YYYY-MM-DD", date)
	}
	return models.NewAgentState(normalized, date), nil
}

// SaveStateLog persists the complete final state under the results
// directory so a run can be audited after the fact.
func SaveStateLog(cfg *config.Config, state *models.AgentState) (string, error) {
	dir := filepath.Join(cfg.ResultsDir, state.CompanyOfInterest, state.TradeDate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	path := filepath.Join(dir, "full_states_log.json")
	if err := dataflows.SaveJSON(path, state); err != nil {
		return "", fmt.Errorf("save state log: %w", err)
	}
	return path, nil
}

// ReportsOf collects the non-empty analyst and synthesis reports by name.
func ReportsOf(state *models.AgentState) map[string]string {
	reports := map[string]string{}
	add := func(name, body string) {
		if body != "" {
			reports[name] = body
		}
	}
	add("market_report", state.MarketReport)
	add("sentiment_report", state.SentimentReport)
	add("news_report", state.NewsReport)
	add("fundamentals_report", state.FundamentalsReport)
	add("investment_plan", state.InvestmentPlan)
	add("trader_investment_plan", state.TraderInvestmentPlan)
	add("final_trade_decision", state.FinalTradeDecision)
	return reports
}
