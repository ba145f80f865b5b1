package dataflows

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/market"
)

// Interface is the high-level data access layer. Agent tools call
// into it and receive markdown-formatted report strings.
type Interface struct {
	yahoo   *YahooClient
	finnhub *FinnhubClient
	gnews   *GoogleNewsClient
	simfin  *SimfinClient
	cfg     *config.Config
}

func New(cfg *config.Config) *Interface {
	return &Interface{
		yahoo:   NewYahooClient(cfg),
		finnhub: NewFinnhubClient(cfg),
		gnews:   NewGoogleNewsClient(cfg),
		simfin:  NewSimfinClient(cfg),
		cfg:     cfg,
	}
}

// GetStockData returns daily bars for the look-back window ending on
// curDate, preferring offline data when online tools are disabled.
func (dfi *Interface) GetStockData(symbol, curDate string, lookBackDays int) ([]*MarketData, error) {
	end, err := ParseDate(curDate)
	if err != nil {
		return nil, err
	}
	start := end.AddDate(0, 0, -lookBackDays)

	if !dfi.cfg.OnlineTools {
		return dfi.yahoo.GetOfflineData(symbol, start, end)
	}
	if data, err := dfi.yahoo.GetOfflineData(symbol, start, end); err == nil {
		return data, nil
	}
	return dfi.yahoo.GetHistoricalData(symbol, start, end)
}

// GetStockDataReport renders the look-back window as a markdown table.
func (dfi *Interface) GetStockDataReport(symbol, curDate string, lookBackDays int) (string, error) {
	bars, err := dfi.GetStockData(symbol, curDate, lookBackDays)
	if err != nil {
		return "", err
	}
	return renderBars(symbol, bars, curDate)
}

// GetYFinDataReport reads the offline price archive for an explicit
// date range. Serves the offline tool set; never touches the network.
func (dfi *Interface) GetYFinDataReport(symbol, startDate, endDate string) (string, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return "", err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return "", err
	}
	bars, err := dfi.yahoo.GetOfflineData(symbol, start, end)
	if err != nil {
		return "", err
	}
	return renderBars(symbol, bars, endDate)
}

func renderBars(symbol string, bars []*MarketData, asOf string) (string, error) {
	if len(bars) == 0 {
		return "", fmt.Errorf("no price data for %s through %s", symbol, asOf)
	}
	info := market.GetInfo(symbol)
	var b strings.Builder
	fmt.Fprintf(&b, "## %s Price Data (%s, prices in %s)\n\n", symbol, info.MarketName, info.CurrencyName)
	b.WriteString("| Date | Open | High | Low | Close | Volume |\n")
	b.WriteString("|------|------|------|-----|-------|--------|\n")
	for _, bar := range bars {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %d |\n",
			bar.Date.Format("2006-01-02"),
			bar.Open.StringFixed(2), bar.High.StringFixed(2),
			bar.Low.StringFixed(2), bar.Close.StringFixed(2),
			bar.Volume)
	}
	return b.String(), nil
}

// GetIndicatorReport computes one technical indicator over the
// look-back window and renders it with its description.
func (dfi *Interface) GetIndicatorReport(symbol, indicator, curDate string, lookBackDays int) (string, error) {
	desc, ok := SupportedIndicators[indicator]
	if !ok {
		names := make([]string, 0, len(SupportedIndicators))
		for name := range SupportedIndicators {
			names = append(names, name)
		}
		return "", fmt.Errorf("indicator %s is not supported, choose from: %s",
			indicator, strings.Join(names, ", "))
	}

	end, err := ParseDate(curDate)
	if err != nil {
		return "", err
	}
	start := end.AddDate(0, 0, -lookBackDays)

	// Fetch extra history so long-period indicators have a warm-up.
	bars, err := dfi.GetStockData(symbol, curDate, lookBackDays+250)
	if err != nil {
		return "", err
	}

	points, err := CalcIndicator(indicator, bars, start, end)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s values for %s\n\n%s\n\n", indicator, symbol, desc)
	b.WriteString("| Date | Value |\n|------|-------|\n")
	for _, p := range points {
		fmt.Fprintf(&b, "| %s | %.4f |\n", p.Date, p.Value)
	}
	return b.String(), nil
}

// GetStockNewsReport assembles the last week of coverage for a stock:
// company newswire first, Google News when the wire has nothing.
func (dfi *Interface) GetStockNewsReport(symbol, curDate string) (string, error) {
	if !dfi.cfg.OnlineTools {
		return "", fmt.Errorf("online tools are disabled")
	}
	end, err := ParseDate(curDate)
	if err != nil {
		return "", err
	}
	start := end.AddDate(0, 0, -7)

	articles, err := dfi.finnhub.GetCompanyNews(symbol, start, end)
	if err != nil || len(articles) == 0 {
		articles, err = dfi.gnews.Search(symbol, 20)
		if err != nil {
			return "", err
		}
	}
	articles = FilterRelevant(articles, symbol)
	return formatArticles(fmt.Sprintf("%s News (%s to %s)", symbol,
		start.Format("2006-01-02"), end.Format("2006-01-02")), articles), nil
}

// GetRealtimeStockNewsReport searches for the freshest coverage of a
// stock, bypassing the company newswire's publication lag.
func (dfi *Interface) GetRealtimeStockNewsReport(symbol, curDate string) (string, error) {
	if !dfi.cfg.OnlineTools {
		return "", fmt.Errorf("online tools are disabled")
	}
	articles, err := dfi.gnews.Search(symbol+" stock", 20)
	if err != nil {
		return "", err
	}
	articles = FilterRelevant(articles, symbol)
	return formatArticles(fmt.Sprintf("%s Realtime News (as of %s)", symbol, curDate), articles), nil
}

// GetSentimentReport summarises the public mood around a stock from
// recent coverage volume, with insider sentiment where the market
// reports it.
func (dfi *Interface) GetSentimentReport(symbol, curDate string) (string, error) {
	if !dfi.cfg.OnlineTools {
		return "", fmt.Errorf("online tools are disabled")
	}
	articles, err := dfi.gnews.Search(symbol, 20)
	if err != nil {
		return "", err
	}
	articles = FilterRelevant(articles, symbol)

	info := market.GetInfo(symbol)
	var b strings.Builder
	fmt.Fprintf(&b, "## %s Sentiment (%s, as of %s)\n\n", symbol, info.MarketName, curDate)
	fmt.Fprintf(&b, "Recent coverage volume: %d relevant articles.\n\n", len(articles))

	if market.IsUSStock(symbol) {
		if insider, err := dfi.GetInsiderSentimentReport(symbol, curDate); err == nil {
			b.WriteString(insider)
			b.WriteString("\n")
		}
	}

	b.WriteString("### Recent Headlines\n\n")
	for i, a := range articles {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "- %s", a.Title)
		if a.Source != "" {
			fmt.Fprintf(&b, " (%s)", a.Source)
		}
		b.WriteString("\n")
	}
	if len(articles) == 0 {
		b.WriteString("No recent headlines found.\n")
	}
	return b.String(), nil
}

// GetFinnhubNewsReport serves the legacy newswire tool. It skips the
// online-mode gate: the file cache answers when the API is out of
// reach, matching how the offline tool set reads archived data.
func (dfi *Interface) GetFinnhubNewsReport(symbol, curDate string, lookBackDays int) (string, error) {
	end, err := ParseDate(curDate)
	if err != nil {
		return "", err
	}
	start := end.AddDate(0, 0, -lookBackDays)

	articles, err := dfi.finnhub.GetCompanyNews(symbol, start, end)
	if err != nil {
		return "", err
	}
	articles = FilterRelevant(articles, symbol)
	return formatArticles(fmt.Sprintf("%s News (%s to %s)", symbol,
		start.Format("2006-01-02"), end.Format("2006-01-02")), articles), nil
}

// GetSimfinStatementReport renders one offline financial statement.
func (dfi *Interface) GetSimfinStatementReport(symbol, kind string) (string, error) {
	stmt, err := dfi.simfin.GetStatement(symbol, kind)
	if err != nil {
		return "", err
	}
	return FormatStatement(stmt), nil
}

// GetGlobalNewsReport returns general macro and market news.
func (dfi *Interface) GetGlobalNewsReport() (string, error) {
	if !dfi.cfg.OnlineTools {
		return "", fmt.Errorf("online tools are disabled")
	}
	articles, err := dfi.finnhub.GetGeneralNews("general")
	if err != nil {
		return "", err
	}
	return formatArticles("Global Market News", articles), nil
}

// GetGoogleNewsReport searches Google News for the query.
func (dfi *Interface) GetGoogleNewsReport(query, curDate string) (string, error) {
	if !dfi.cfg.OnlineTools {
		return "", fmt.Errorf("online tools are disabled")
	}
	articles, err := dfi.gnews.Search(query, 20)
	if err != nil {
		return "", err
	}
	return formatArticles(fmt.Sprintf("Google News: %s (as of %s)", query, curDate), articles), nil
}

// GetInsiderSentimentReport returns monthly insider sentiment.
func (dfi *Interface) GetInsiderSentimentReport(symbol, curDate string) (string, error) {
	if !dfi.cfg.OnlineTools {
		return "", fmt.Errorf("online tools are disabled")
	}
	end, err := ParseDate(curDate)
	if err != nil {
		return "", err
	}
	start := end.AddDate(0, 0, -90)

	items, err := dfi.finnhub.GetInsiderSentiment(symbol, start, end)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Insider Sentiment\n\n", symbol)
	b.WriteString("| Year | Month | Net Change | MSPR |\n|------|-------|-----------|------|\n")
	for _, s := range items {
		fmt.Fprintf(&b, "| %d | %d | %d | %s |\n", s.Year, s.Month, s.Change, s.MSPR.StringFixed(2))
	}
	return b.String(), nil
}

// GetInsiderTransactionsReport returns recent insider trades.
func (dfi *Interface) GetInsiderTransactionsReport(symbol, curDate string) (string, error) {
	if !dfi.cfg.OnlineTools {
		return "", fmt.Errorf("online tools are disabled")
	}
	end, err := ParseDate(curDate)
	if err != nil {
		return "", err
	}
	start := end.AddDate(0, 0, -90)

	items, err := dfi.finnhub.GetInsiderTransactions(symbol, start, end)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Insider Transactions\n\n", symbol)
	b.WriteString("| Date | Person | Shares | Change | Code | Price |\n|------|--------|--------|--------|------|-------|\n")
	for _, tr := range items {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s | %s |\n",
			tr.TransactionDate.Format("2006-01-02"), tr.PersonName,
			tr.Share, tr.Change, tr.TransactionCode, tr.TransactionPrice.StringFixed(2))
	}
	return b.String(), nil
}

// GetFundamentalsReport combines the offline financial statements and,
// when online, the current quote into one markdown report.
func (dfi *Interface) GetFundamentalsReport(symbol, curDate string) (string, error) {
	var sections []string

	for _, kind := range []string{StatementBalanceSheet, StatementIncome, StatementCashflow} {
		stmt, err := dfi.simfin.GetStatement(symbol, kind)
		if err != nil {
			continue
		}
		sections = append(sections, FormatStatement(stmt))
	}

	if dfi.cfg.OnlineTools {
		if q, err := dfi.yahoo.GetQuote(symbol); err == nil {
			sections = append(sections, fmt.Sprintf(
				"### Current Quote\n\nPrice: %s | Volume: %d | As of: %s",
				q.Close.StringFixed(2), q.Volume, q.Timestamp.Format(time.RFC3339)))
		}
	}

	if len(sections) == 0 {
		return "", fmt.Errorf("no fundamental data available for %s", symbol)
	}
	return fmt.Sprintf("## %s Fundamentals (as of %s)\n\n%s",
		symbol, curDate, strings.Join(sections, "\n\n")), nil
}

func formatArticles(title string, articles []*NewsArticle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", title)
	if len(articles) == 0 {
		b.WriteString("No articles found.\n")
		return b.String()
	}
	for _, a := range articles {
		fmt.Fprintf(&b, "### %s", a.Title)
		if a.Source != "" {
			fmt.Fprintf(&b, " (%s)", a.Source)
		}
		b.WriteString("\n\n")
		if !a.PublishedAt.IsZero() {
			fmt.Fprintf(&b, "Published: %s\n\n", a.PublishedAt.Format("2006-01-02"))
		}
		if a.Content != "" {
			fmt.Fprintf(&b, "%s\n\n", a.Content)
		}
	}
	return b.String()
}
