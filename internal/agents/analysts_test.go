package agents

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/dataflows"
	"github.com/dyike/TradeMind/internal/models"
	"github.com/dyike/TradeMind/internal/tools"
)

func testAgents(t *testing.T, online bool, selected ...string) *Agents {
	t.Helper()
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.DataDir = dir
	cfg.DataCacheDir = dir
	cfg.OnlineTools = online
	return New(cfg, nil, nil, tools.NewToolkit(cfg, dataflows.New(cfg)), nil, selected)
}

func TestMsgClearLeavesPlaceholder(t *testing.T) {
	a := testAgents(t, false, consts.AnalystMarket, consts.AnalystNews)

	state := models.NewAgentState("AAPL", "2026-01-15")
	state.Messages = []*schema.Message{
		schema.UserMessage("Analyze AAPL as of 2026-01-15."),
		schema.AssistantMessage("report text", nil),
	}

	clear := a.MsgClearNode(consts.AnalystMarket)
	if err := clear(context.Background(), state); err != nil {
		t.Fatalf("msg clear: %v", err)
	}

	if len(state.Messages) != 1 {
		t.Fatalf("messages = %d, want a single placeholder", len(state.Messages))
	}
	if state.Messages[0].Role != schema.User || state.Messages[0].Content != "Continue" {
		t.Fatalf("placeholder = %+v", state.Messages[0])
	}
	if state.Goto != consts.NewsAnalyst {
		t.Fatalf("goto = %q, want next selected analyst", state.Goto)
	}
}

func TestCanonicalArgsFollowToolMode(t *testing.T) {
	state := models.NewAgentState("AAPL", "2026-01-15")

	online := testAgents(t, true, consts.AnalystMarket)
	args := online.canonicalArgs(consts.AnalystMarket, state)
	if args["ticker"] != "AAPL" || args["end_date"] != "2026-01-15" {
		t.Fatalf("online market args = %v", args)
	}
	if args["start_date"] != "2025-12-16" {
		t.Fatalf("start_date = %v, want 30 days back", args["start_date"])
	}

	offline := testAgents(t, false, consts.AnalystNews)
	args = offline.canonicalArgs(consts.AnalystNews, state)
	if args["query"] != "AAPL" || args["curr_date"] != "2026-01-15" {
		t.Fatalf("offline news args = %v", args)
	}
}
