package consts

// Graph node names. These are wire-level identifiers: conditional logic
// returns them, the graph registers them, and the progress callback maps
// them to events.
const (
	// 分析师节点
	MarketAnalyst       = "Market Analyst"
	SocialMediaAnalyst  = "Social Analyst"
	NewsAnalyst         = "News Analyst"
	FundamentalsAnalyst = "Fundamentals Analyst"

	// 消息清理节点，防止后续模型看到工具调用残留
	MsgClearMarket       = "Msg Clear Market"
	MsgClearSocial       = "Msg Clear Social"
	MsgClearNews         = "Msg Clear News"
	MsgClearFundamentals = "Msg Clear Fundamentals"

	// 工具节点（legacy 路径）
	ToolsMarket       = "tools_market"
	ToolsSocial       = "tools_social"
	ToolsNews         = "tools_news"
	ToolsFundamentals = "tools_fundamentals"

	// 研究员节点
	BullResearcher  = "Bull Researcher"
	BearResearcher  = "Bear Researcher"
	ResearchManager = "Research Manager"
	InvestDebate    = "Invest Debate"

	// 交易员节点
	Trader = "Trader"

	// 风险分析节点
	RiskyAnalyst   = "Risky Analyst"
	SafeAnalyst    = "Safe Analyst"
	NeutralAnalyst = "Neutral Analyst"
	RiskJudge      = "Risk Judge"
	RiskDebate     = "Risk Debate"
)

// Analyst selection keys, as passed to GraphSetup.
const (
	AnalystMarket       = "market"
	AnalystSocial       = "social"
	AnalystNews         = "news"
	AnalystFundamentals = "fundamentals"
)

// Progress events emitted by Propagate. Each fires at most once per
// analysis.
const (
	EventMarketDone          = "node_market_done"
	EventSocialDone          = "node_social_done"
	EventNewsDone            = "node_news_done"
	EventFundamentalsDone    = "node_fundamentals_done"
	EventInvestDebateStarted = "node_invest_debate_started"
	EventResearchManagerDone = "node_research_manager_done"
	EventTraderDone          = "node_trader_done"
	EventRiskDebateStarted   = "node_risk_debate_started"
	EventRiskJudgeDone       = "node_risk_judge_done"
)
