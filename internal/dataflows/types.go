package dataflows

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketData is one daily OHLCV bar.
type MarketData struct {
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adj_close"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewsArticle is a normalized article from any news source.
type NewsArticle struct {
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	URL         string            `json:"url"`
	Source      string            `json:"source"`
	PublishedAt time.Time         `json:"published_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// InsiderTransaction is one reported insider trade.
type InsiderTransaction struct {
	Symbol           string          `json:"symbol"`
	PersonName       string          `json:"person_name"`
	Share            int64           `json:"share"`
	Change           int64           `json:"change"`
	FilingDate       time.Time       `json:"filing_date"`
	TransactionDate  time.Time       `json:"transaction_date"`
	TransactionCode  string          `json:"transaction_code"`
	TransactionPrice decimal.Decimal `json:"transaction_price"`
}

// InsiderSentiment is Finnhub's monthly insider sentiment aggregate.
type InsiderSentiment struct {
	Symbol string          `json:"symbol"`
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Change int64           `json:"change"`
	MSPR   decimal.Decimal `json:"mspr"`
}

// IndicatorPoint is one dated value of a technical indicator series.
type IndicatorPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// FundamentalStatement is one offline financial statement keyed by
// line item name.
type FundamentalStatement struct {
	Symbol     string             `json:"symbol"`
	Statement  string             `json:"statement"`
	FiscalDate string             `json:"fiscal_date"`
	Currency   string             `json:"currency"`
	Items      map[string]float64 `json:"items"`
}
