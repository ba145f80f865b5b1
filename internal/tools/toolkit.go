package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	t_utils "github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/TradeMind/consts"
	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/dataflows"
	"github.com/dyike/TradeMind/internal/logging"
	"github.com/dyike/TradeMind/internal/market"
)

// Toolkit builds the eino tools agents can call. Tool names are wire
// contract: prompts and tool-call routing refer to them literally.
// Data failures are returned as readable report text rather than Go
// errors so the model can see what went wrong and adjust.
type Toolkit struct {
	data *dataflows.Interface
	cfg  *config.Config
	log  *logging.Logger
}

func NewToolkit(cfg *config.Config, data *dataflows.Interface) *Toolkit {
	return &Toolkit{
		data: data,
		cfg:  cfg,
		log:  logging.ForComponent("toolkit"),
	}
}

// ForAnalyst returns the tool set for one analyst type. Online mode
// binds the unified tools; offline mode binds the legacy tools that
// read archived data.
func (tk *Toolkit) ForAnalyst(analyst string) []tool.BaseTool {
	if tk.cfg.OnlineTools {
		switch analyst {
		case consts.AnalystMarket:
			return []tool.BaseTool{tk.MarketDataUnifiedTool(), tk.IndicatorsOnlineTool()}
		case consts.AnalystSocial:
			return []tool.BaseTool{tk.SentimentUnifiedTool(), tk.RealtimeNewsTool()}
		case consts.AnalystNews:
			return []tool.BaseTool{tk.NewsUnifiedTool(), tk.GlobalNewsTool(), tk.GoogleNewsTool()}
		case consts.AnalystFundamentals:
			return []tool.BaseTool{tk.FundamentalsUnifiedTool()}
		}
		return nil
	}

	switch analyst {
	case consts.AnalystMarket:
		return []tool.BaseTool{tk.YFinDataTool(), tk.IndicatorsTool()}
	case consts.AnalystSocial:
		return []tool.BaseTool{tk.GoogleNewsTool(), tk.FinnhubNewsTool()}
	case consts.AnalystNews:
		return []tool.BaseTool{tk.GoogleNewsTool(), tk.FinnhubNewsTool()}
	case consts.AnalystFundamentals:
		return []tool.BaseTool{
			tk.SimfinBalanceSheetTool(),
			tk.SimfinIncomeTool(),
			tk.SimfinCashflowTool(),
			tk.InsiderSentimentTool(),
			tk.InsiderTransactionsTool(),
		}
	}
	return nil
}

// CanonicalToolName returns the tool name used on the forced path for
// an analyst when the model declines to call tools on its own. The
// name is always a member of ForAnalyst's set for the current mode.
func (tk *Toolkit) CanonicalToolName(analyst string) string {
	if tk.cfg.OnlineTools {
		switch analyst {
		case consts.AnalystMarket:
			return "get_stock_market_data_unified"
		case consts.AnalystSocial:
			return "get_stock_sentiment_unified"
		case consts.AnalystNews:
			return "get_stock_news_unified"
		case consts.AnalystFundamentals:
			return "get_stock_fundamentals_unified"
		}
		return ""
	}
	switch analyst {
	case consts.AnalystMarket:
		return "get_YFin_data"
	case consts.AnalystSocial:
		return "get_google_news"
	case consts.AnalystNews:
		return "get_google_news"
	case consts.AnalystFundamentals:
		return "get_simfin_balance_sheet"
	}
	return ""
}

// ToolUsage renders the calling instructions embedded in analyst
// prompts: exact tool names with their argument forms.
func (tk *Toolkit) ToolUsage(analyst string) string {
	if tk.cfg.OnlineTools {
		switch analyst {
		case consts.AnalystMarket:
			return "- get_stock_market_data_unified(ticker, start_date, end_date): daily OHLCV bars\n" +
				"- get_stockstats_indicators_report_online(symbol, indicator, curr_date, look_back_days): one technical indicator series"
		case consts.AnalystSocial:
			return "- get_stock_sentiment_unified(ticker, curr_date): public sentiment summary\n" +
				"- get_realtime_stock_news(ticker, curr_date): the freshest coverage"
		case consts.AnalystNews:
			return "- get_stock_news_unified(ticker, curr_date): company news from the last 7 days\n" +
				"- get_global_news(curr_date): macro and market news\n" +
				"- get_google_news(query, curr_date): news search for any query"
		case consts.AnalystFundamentals:
			return "- get_stock_fundamentals_unified(ticker, curr_date): statements, quote and valuation"
		}
		return ""
	}
	switch analyst {
	case consts.AnalystMarket:
		return "- get_YFin_data(symbol, start_date, end_date): archived daily OHLCV bars\n" +
			"- get_stockstats_indicators_report(symbol, indicator, curr_date, look_back_days): one technical indicator series"
	case consts.AnalystSocial, consts.AnalystNews:
		return "- get_google_news(query, curr_date): news search for any query\n" +
			"- get_finnhub_news(symbol, curr_date, look_back_days): archived company news"
	case consts.AnalystFundamentals:
		return "- get_simfin_balance_sheet(symbol): latest balance sheet\n" +
			"- get_simfin_income_stmt(symbol): latest income statement\n" +
			"- get_simfin_cashflow(symbol): latest cash flow statement\n" +
			"- get_finnhub_company_insider_sentiment(symbol, curr_date): insider sentiment aggregates\n" +
			"- get_finnhub_company_insider_transactions(symbol, curr_date): recent insider trades"
	}
	return ""
}

type tickerRangeInput struct {
	Ticker    string `json:"ticker"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type tickerDateInput struct {
	Ticker   string `json:"ticker"`
	CurrDate string `json:"curr_date"`
}

type reportOutput struct {
	Result string `json:"result"`
}

// MarketDataUnifiedTool returns OHLCV history for any supported
// market. The ticker shape decides which upstream serves the data.
func (tk *Toolkit) MarketDataUnifiedTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_stock_market_data_unified",
			Desc: "Get daily OHLCV market data for a stock (US, China A-share, or Hong Kong)",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"start_date": {
					Type:     "string",
					Desc:     "First date of the window, YYYY-mm-dd",
					Required: true,
				},
				"end_date": {
					Type:     "string",
					Desc:     "Last date of the window, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input tickerRangeInput) (*reportOutput, error) {
			days := windowDays(input.StartDate, input.EndDate)
			report, err := tk.data.GetStockDataReport(input.Ticker, input.EndDate, days)
			if err != nil {
				tk.log.Warnw("market data tool failed", "ticker", input.Ticker, "err", err)
				return &reportOutput{Result: errorReport("market data", input.Ticker, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

// windowDays converts an explicit date range into a look-back window,
// defaulting to 30 days when the range does not parse.
func windowDays(startDate, endDate string) int {
	start, err := dataflows.ParseDate(startDate)
	if err != nil {
		return 30
	}
	end, err := dataflows.ParseDate(endDate)
	if err != nil {
		return 30
	}
	days := int(end.Sub(start).Hours() / 24)
	if days <= 0 {
		return 30
	}
	return days
}

// YFinDataTool reads the offline price archive for an explicit range.
func (tk *Toolkit) YFinDataTool() tool.BaseTool {
	type yfinInput struct {
		Symbol    string `json:"symbol"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_YFin_data",
			Desc: "Get archived daily OHLCV price data for a stock over a date range",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"start_date": {
					Type:     "string",
					Desc:     "First date of the window, YYYY-mm-dd",
					Required: true,
				},
				"end_date": {
					Type:     "string",
					Desc:     "Last date of the window, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input yfinInput) (*reportOutput, error) {
			report, err := tk.data.GetYFinDataReport(input.Symbol, input.StartDate, input.EndDate)
			if err != nil {
				tk.log.Warnw("offline price tool failed", "symbol", input.Symbol, "err", err)
				return &reportOutput{Result: errorReport("market data", input.Symbol, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

type indicatorInput struct {
	Symbol       string `json:"symbol"`
	Indicator    string `json:"indicator"`
	CurrDate     string `json:"curr_date"`
	LookBackDays int    `json:"look_back_days"`
}

// IndicatorsTool computes one technical indicator series from the
// offline archive.
func (tk *Toolkit) IndicatorsTool() tool.BaseTool {
	return tk.indicatorsTool("get_stockstats_indicators_report",
		"Get a technical indicator report for a stock from archived data")
}

// IndicatorsOnlineTool is the online variant of the indicator report;
// the data layer fetches fresh bars when the archive has none.
func (tk *Toolkit) IndicatorsOnlineTool() tool.BaseTool {
	return tk.indicatorsTool("get_stockstats_indicators_report_online",
		"Get a technical indicator report for a stock over a time window")
}

func (tk *Toolkit) indicatorsTool(name, desc string) tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: name,
			Desc: desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"indicator": {
					Type:     "string",
					Desc:     "Indicator name, e.g. close_50_sma, rsi, macd, boll_ub",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
				"look_back_days": {
					Type:     "integer",
					Desc:     "How many days to look back (default: 30)",
					Required: false,
				},
			}),
		},
		func(ctx context.Context, input indicatorInput) (*reportOutput, error) {
			days := input.LookBackDays
			if days <= 0 {
				days = 30
			}
			report, err := tk.data.GetIndicatorReport(input.Symbol, input.Indicator, input.CurrDate, days)
			if err != nil {
				tk.log.Warnw("indicator tool failed", "symbol", input.Symbol, "indicator", input.Indicator, "err", err)
				return &reportOutput{Result: errorReport("indicator data", input.Symbol, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

// NewsUnifiedTool returns the last week of company news.
func (tk *Toolkit) NewsUnifiedTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_stock_news_unified",
			Desc: "Get news about a stock from the last 7 days",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input tickerDateInput) (*reportOutput, error) {
			report, err := tk.data.GetStockNewsReport(input.Ticker, input.CurrDate)
			if err != nil {
				return &reportOutput{Result: errorReport("company news", input.Ticker, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

// SentimentUnifiedTool summarises the public mood around a stock.
func (tk *Toolkit) SentimentUnifiedTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_stock_sentiment_unified",
			Desc: "Get a social and news sentiment summary for a stock",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input tickerDateInput) (*reportOutput, error) {
			report, err := tk.data.GetSentimentReport(input.Ticker, input.CurrDate)
			if err != nil {
				return &reportOutput{Result: errorReport("sentiment data", input.Ticker, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

// RealtimeNewsTool searches for the freshest coverage of a stock.
func (tk *Toolkit) RealtimeNewsTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_realtime_stock_news",
			Desc: "Get realtime news coverage for a stock, fresher than the newswire",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input tickerDateInput) (*reportOutput, error) {
			report, err := tk.data.GetRealtimeStockNewsReport(input.Ticker, input.CurrDate)
			if err != nil {
				return &reportOutput{Result: errorReport("realtime news", input.Ticker, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

type finnhubNewsInput struct {
	Symbol       string `json:"symbol"`
	CurrDate     string `json:"curr_date"`
	LookBackDays int    `json:"look_back_days"`
}

// FinnhubNewsTool returns archived company newswire articles.
func (tk *Toolkit) FinnhubNewsTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_finnhub_news",
			Desc: "Get archived news articles about a specific company",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
				"look_back_days": {
					Type:     "integer",
					Desc:     "How many days of news to retrieve (default: 7)",
					Required: false,
				},
			}),
		},
		func(ctx context.Context, input finnhubNewsInput) (*reportOutput, error) {
			days := input.LookBackDays
			if days <= 0 {
				days = 7
			}
			report, err := tk.data.GetFinnhubNewsReport(input.Symbol, input.CurrDate, days)
			if err != nil {
				return &reportOutput{Result: errorReport("company news", input.Symbol, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

type googleNewsInput struct {
	Query    string `json:"query"`
	CurrDate string `json:"curr_date"`
}

// GoogleNewsTool searches Google News for arbitrary queries.
func (tk *Toolkit) GoogleNewsTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_google_news",
			Desc: "Search Google News for articles matching a query",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Search query, e.g. company name or market theme",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input googleNewsInput) (*reportOutput, error) {
			report, err := tk.data.GetGoogleNewsReport(input.Query, input.CurrDate)
			if err != nil {
				return &reportOutput{Result: errorReport("google news", input.Query, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

type globalNewsInput struct {
	CurrDate string `json:"curr_date"`
}

// GlobalNewsTool returns macro and general market news.
func (tk *Toolkit) GlobalNewsTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_global_news",
			Desc: "Get general global macroeconomic and market news",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input globalNewsInput) (*reportOutput, error) {
			report, err := tk.data.GetGlobalNewsReport()
			if err != nil {
				return &reportOutput{Result: errorReport("global news", "market", err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

type symbolDateInput struct {
	Symbol   string `json:"symbol"`
	CurrDate string `json:"curr_date"`
}

// FundamentalsUnifiedTool returns financial statements plus the live
// quote.
func (tk *Toolkit) FundamentalsUnifiedTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_stock_fundamentals_unified",
			Desc: "Get fundamental analysis data: balance sheet, income statement, cash flow and current quote",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"ticker": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input tickerDateInput) (*reportOutput, error) {
			report, err := tk.data.GetFundamentalsReport(input.Ticker, input.CurrDate)
			if err != nil {
				return &reportOutput{Result: errorReport("fundamentals", input.Ticker, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

type symbolInput struct {
	Symbol string `json:"symbol"`
}

// SimfinBalanceSheetTool returns the latest archived balance sheet.
func (tk *Toolkit) SimfinBalanceSheetTool() tool.BaseTool {
	return tk.simfinTool("get_simfin_balance_sheet",
		"Get the latest archived balance sheet for a company", dataflows.StatementBalanceSheet)
}

// SimfinIncomeTool returns the latest archived income statement.
func (tk *Toolkit) SimfinIncomeTool() tool.BaseTool {
	return tk.simfinTool("get_simfin_income_stmt",
		"Get the latest archived income statement for a company", dataflows.StatementIncome)
}

// SimfinCashflowTool returns the latest archived cash flow statement.
func (tk *Toolkit) SimfinCashflowTool() tool.BaseTool {
	return tk.simfinTool("get_simfin_cashflow",
		"Get the latest archived cash flow statement for a company", dataflows.StatementCashflow)
}

func (tk *Toolkit) simfinTool(name, desc, kind string) tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: name,
			Desc: desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input symbolInput) (*reportOutput, error) {
			report, err := tk.data.GetSimfinStatementReport(input.Symbol, kind)
			if err != nil {
				return &reportOutput{Result: errorReport("financial statements", input.Symbol, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

// InsiderSentimentTool returns monthly insider sentiment aggregates.
func (tk *Toolkit) InsiderSentimentTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_finnhub_company_insider_sentiment",
			Desc: "Get insider sentiment data for a company over the past 90 days",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input symbolDateInput) (*reportOutput, error) {
			report, err := tk.data.GetInsiderSentimentReport(input.Symbol, input.CurrDate)
			if err != nil {
				return &reportOutput{Result: errorReport("insider sentiment", input.Symbol, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

// InsiderTransactionsTool returns recent insider trades.
func (tk *Toolkit) InsiderTransactionsTool() tool.BaseTool {
	return t_utils.NewTool(
		&schema.ToolInfo{
			Name: "get_finnhub_company_insider_transactions",
			Desc: "Get insider transaction records for a company over the past 90 days",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"symbol": {
					Type:     "string",
					Desc:     "Ticker symbol of the company",
					Required: true,
				},
				"curr_date": {
					Type:     "string",
					Desc:     "The current trading date, YYYY-mm-dd",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, input symbolDateInput) (*reportOutput, error) {
			report, err := tk.data.GetInsiderTransactionsReport(input.Symbol, input.CurrDate)
			if err != nil {
				return &reportOutput{Result: errorReport("insider transactions", input.Symbol, err)}, nil
			}
			return &reportOutput{Result: report}, nil
		},
	)
}

// errorReport formats a data failure so the model can read it and
// explain the gap instead of failing the whole analysis.
func errorReport(kind, subject string, err error) string {
	info := market.GetInfo(subject)
	return fmt.Sprintf("## Data unavailable\n\nCould not retrieve %s for %s (%s): %v\n\nProceed with the analysis using other available information and note this gap.",
		kind, subject, info.MarketName, err)
}
