package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/tool"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/dataflows"
)

func testToolkit(t *testing.T, online bool) *Toolkit {
	t.Helper()
	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.DataDir = dir
	cfg.DataCacheDir = dir
	cfg.OnlineTools = online
	return NewToolkit(cfg, dataflows.New(cfg))
}

func toolNames(t *testing.T, ts []tool.BaseTool) map[string]bool {
	t.Helper()
	names := map[string]bool{}
	for _, bt := range ts {
		info, err := bt.Info(context.Background())
		if err != nil {
			t.Fatalf("tool info: %v", err)
		}
		names[info.Name] = true
	}
	return names
}

func allAnalysts() []string {
	return []string{
		consts.AnalystMarket,
		consts.AnalystSocial,
		consts.AnalystNews,
		consts.AnalystFundamentals,
	}
}

func TestForAnalystOnlineToolSets(t *testing.T) {
	tk := testToolkit(t, true)

	cases := []struct {
		analyst string
		want    []string
	}{
		{consts.AnalystMarket, []string{"get_stock_market_data_unified", "get_stockstats_indicators_report_online"}},
		{consts.AnalystSocial, []string{"get_stock_sentiment_unified", "get_realtime_stock_news"}},
		{consts.AnalystNews, []string{"get_stock_news_unified", "get_global_news", "get_google_news"}},
		{consts.AnalystFundamentals, []string{"get_stock_fundamentals_unified"}},
	}
	for _, tc := range cases {
		names := toolNames(t, tk.ForAnalyst(tc.analyst))
		if len(names) != len(tc.want) {
			t.Fatalf("%s: got %d tools %v, want %d", tc.analyst, len(names), names, len(tc.want))
		}
		for _, name := range tc.want {
			if !names[name] {
				t.Fatalf("%s: missing tool %s", tc.analyst, name)
			}
		}
	}

	if tk.ForAnalyst("unknown") != nil {
		t.Fatal("unknown analyst must have no tools")
	}
}

func TestForAnalystOfflineToolSets(t *testing.T) {
	tk := testToolkit(t, false)

	cases := []struct {
		analyst string
		want    []string
	}{
		{consts.AnalystMarket, []string{"get_YFin_data", "get_stockstats_indicators_report"}},
		{consts.AnalystSocial, []string{"get_google_news", "get_finnhub_news"}},
		{consts.AnalystNews, []string{"get_google_news", "get_finnhub_news"}},
		{consts.AnalystFundamentals, []string{
			"get_simfin_balance_sheet",
			"get_simfin_income_stmt",
			"get_simfin_cashflow",
			"get_finnhub_company_insider_sentiment",
			"get_finnhub_company_insider_transactions",
		}},
	}
	for _, tc := range cases {
		names := toolNames(t, tk.ForAnalyst(tc.analyst))
		if len(names) != len(tc.want) {
			t.Fatalf("%s: got %d tools %v, want %d", tc.analyst, len(names), names, len(tc.want))
		}
		for _, name := range tc.want {
			if !names[name] {
				t.Fatalf("%s: missing tool %s", tc.analyst, name)
			}
		}
	}
}

func TestCanonicalToolNameIsInAnalystSet(t *testing.T) {
	for _, online := range []bool{true, false} {
		tk := testToolkit(t, online)
		for _, analyst := range allAnalysts() {
			canonical := tk.CanonicalToolName(analyst)
			if canonical == "" {
				t.Fatalf("online=%v: %s has no canonical tool", online, analyst)
			}
			if !toolNames(t, tk.ForAnalyst(analyst))[canonical] {
				t.Fatalf("online=%v: %s: canonical tool %s not in its tool set", online, analyst, canonical)
			}
		}
	}
}

func TestToolUsageNamesBoundTools(t *testing.T) {
	for _, online := range []bool{true, false} {
		tk := testToolkit(t, online)
		for _, analyst := range allAnalysts() {
			usage := tk.ToolUsage(analyst)
			for name := range toolNames(t, tk.ForAnalyst(analyst)) {
				if !strings.Contains(usage, name) {
					t.Fatalf("online=%v: %s usage does not mention %s:\n%s", online, analyst, name, usage)
				}
			}
		}
	}
}

func TestToolFailureBecomesReportText(t *testing.T) {
	tk := testToolkit(t, false)

	// Offline archive is empty, so the call must fail into report
	// text, never into a Go error.
	bt := tk.YFinDataTool()
	inv, ok := bt.(tool.InvokableTool)
	if !ok {
		t.Fatal("offline price tool must be invokable")
	}

	args, _ := json.Marshal(map[string]interface{}{
		"symbol":     "AAPL",
		"start_date": "2025-12-15",
		"end_date":   "2026-01-15",
	})
	out, err := inv.InvokableRun(context.Background(), string(args))
	if err != nil {
		t.Fatalf("tool returned Go error: %v", err)
	}
	if !strings.Contains(out, "Data unavailable") {
		t.Fatalf("output = %q, want a data-unavailable report", out)
	}
}
