package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/graph"
	"github.com/dyike/TradeMind/internal/logging"
	"github.com/dyike/TradeMind/internal/market"
	"github.com/dyike/TradeMind/internal/models"
	"github.com/dyike/TradeMind/internal/progress"
	"github.com/dyike/TradeMind/internal/session"
	"github.com/dyike/TradeMind/internal/storage"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "trademind",
		Short: "TradeMind - multi-agent stock analysis",
		Long: `TradeMind runs a team of LLM agents over market, news, sentiment and
fundamentals data to produce a structured trading decision for a stock.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				cfg.Debug = true
			}
			level := "info"
			if cfg.Debug {
				level = "debug"
			}
			if err := logging.Init(level, cfg.Debug); err != nil {
				return fmt.Errorf("init logging: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newProgressCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	return rootCmd
}

func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "Run a trading analysis for a stock symbol",
		Long: `Run the full agent pipeline for one ticker and date.
Example: trademind analyze AAPL --date=2026-01-15 --analysts=market,news`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := args[0]
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			analystsFlag, _ := cmd.Flags().GetString("analysts")
			depth, _ := cmd.Flags().GetInt("depth")
			if depth > 0 {
				cfg.ResearchDepth = depth
			}
			parallel, _ := cmd.Flags().GetBool("parallel")
			cfg.ParallelAnalysts = parallel
			return runAnalyze(cmd.Context(), cfg, symbol, date, parseAnalysts(analystsFlag))
		},
	}

	cmd.Flags().String("date", "", "Analysis date, YYYY-MM-DD (today if omitted)")
	cmd.Flags().String("analysts", "", "Comma-separated analysts: market,social,news,fundamentals (all if omitted)")
	cmd.Flags().Int("depth", 0, "Research depth 1-3 (overrides config)")
	cmd.Flags().Bool("parallel", true, "Run analysts concurrently")

	return cmd
}

func parseAnalysts(flag string) []string {
	if strings.TrimSpace(flag) == "" {
		return nil
	}
	var keys []string
	for _, part := range strings.Split(flag, ",") {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// eventMessages translate pipeline events into the log lines the
// progress tracker infers steps from.
var eventMessages = map[string]string{
	consts.EventMarketDone:          "[模块完成] market_analyst",
	consts.EventSocialDone:          "[模块完成] social_media_analyst",
	consts.EventNewsDone:            "[模块完成] news_analyst",
	consts.EventFundamentalsDone:    "[模块完成] fundamentals_analyst",
	consts.EventInvestDebateStarted: "[模块开始] bull_researcher",
	consts.EventResearchManagerDone: "[模块完成] research_manager",
	consts.EventTraderDone:          "[模块完成] trader",
	consts.EventRiskDebateStarted:   "[模块开始] risk_debate",
	consts.EventRiskJudgeDone:       "[模块完成] risk_manager",
}

func runAnalyze(ctx context.Context, cfg *config.Config, symbol, date string, analysts []string) error {
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	opts := []graph.Option{}
	if len(analysts) > 0 {
		opts = append(opts, graph.WithAnalysts(analysts...))
	}
	if cfg.Mongo.Enabled {
		store, err := storage.NewReportStore(ctx, cfg)
		if err != nil {
			logging.Warnf("report store unavailable, continuing without persistence: %v", err)
		} else {
			opts = append(opts, graph.WithReportStore(store))
		}
	}

	g, err := graph.NewTradingAgentsGraph(ctx, cfg, opts...)
	if err != nil {
		return err
	}

	analysisID := uuid.NewString()
	trackedAnalysts := analysts
	if len(trackedAnalysts) == 0 {
		trackedAnalysts = []string{
			consts.AnalystMarket,
			consts.AnalystSocial,
			consts.AnalystNews,
			consts.AnalystFundamentals,
		}
	}
	tracker := progress.NewTracker(ctx, cfg, analysisID, trackedAnalysts, redisClient)
	bridge := progress.NewLogBridge()
	defer bridge.Close()
	bridge.Register(analysisID, tracker)

	registry := session.NewRegistry(cfg, redisClient)
	worker := registry.Register(analysisID)
	defer registry.Unregister(analysisID)

	fmt.Printf("Analysis %s: %s on %s\n", analysisID, symbol, date)

	state, decision, err := g.Propagate(ctx, symbol, date, func(event string) {
		if msg, ok := eventMessages[event]; ok {
			tracker.UpdateMessage(ctx, msg)
		}
	})
	worker.Finish()
	if err != nil {
		tracker.MarkFailed(ctx, err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	tracker.MarkCompleted(ctx, "✅ 分析完成", map[string]interface{}{
		"action":     decision.Action,
		"confidence": decision.Confidence,
	})

	printResults(state.CompanyOfInterest, date, graph.ReportsOf(state), decision)
	return nil
}

func printResults(symbol, date string, reports map[string]string, decision models.Decision) {
	fmt.Printf("\n=== ANALYSIS RESULTS: %s (%s) ===\n", symbol, date)
	for _, name := range []string{
		"market_report",
		"sentiment_report",
		"news_report",
		"fundamentals_report",
		"investment_plan",
		"trader_investment_plan",
		"final_trade_decision",
	} {
		body, ok := reports[name]
		if !ok {
			continue
		}
		fmt.Printf("\n--- %s ---\n%s\n", name, body)
	}

	fmt.Printf("\n=== DECISION ===\n")
	fmt.Printf("Action:     %s\n", strings.ToUpper(decision.Action))
	if decision.TargetPrice != nil {
		info := market.GetInfo(symbol)
		fmt.Printf("Target:     %s%.2f\n", info.CurrencySymbol, *decision.TargetPrice)
	}
	fmt.Printf("Confidence: %.0f%%\n", decision.Confidence*100)
	fmt.Printf("Risk score: %.0f%%\n", decision.RiskScore*100)
	fmt.Printf("Reasoning:  %s\n", decision.Reasoning)
}

func newProgressCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "progress [ANALYSIS_ID]",
		Short: "Show the progress record of an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var redisClient *redis.Client
			if cfg.Redis.Enabled {
				redisClient = redis.NewClient(&redis.Options{
					Addr:     cfg.Redis.Addr(),
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})
				defer redisClient.Close()
			}
			record, err := progress.GetProgressByID(cmd.Context(), cfg, redisClient, args[0])
			if err != nil {
				return err
			}
			payload, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		},
	}
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := *cfg
			shown.OpenAIAPIKey = maskKey(shown.OpenAIAPIKey)
			shown.AnthropicAPIKey = maskKey(shown.AnthropicAPIKey)
			shown.FinnhubAPIKey = maskKey(shown.FinnhubAPIKey)
			shown.Redis.Password = maskKey(shown.Redis.Password)
			shown.Mongo.Password = maskKey(shown.Mongo.Password)
			payload, err := json.MarshalIndent(&shown, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Println("configuration OK")
			return nil
		},
	})

	return configCmd
}

func maskKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("TradeMind v1.0.0")
			fmt.Println("Multi-agent trading analysis")
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
