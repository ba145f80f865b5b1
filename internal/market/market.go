package market

import (
	"regexp"
	"strings"
)

// Market identifies the exchange family a ticker belongs to, which
// drives currency vocabulary and data source selection downstream.
type Market string

const (
	ChinaA   Market = "china_a"
	HongKong Market = "hong_kong"
	US       Market = "us"
	Unknown  Market = "unknown"
)

var (
	chinaAPattern = regexp.MustCompile(`^\d{6}$`)
	hkPattern     = regexp.MustCompile(`^\d{4,5}\.HK$`)
	usPattern     = regexp.MustCompile(`^[A-Z]{1,5}$`)
	hkBarePattern = regexp.MustCompile(`^\d{4,5}$`)
	datePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Identify classifies a ticker by shape: six digits for China A
// shares, 4-5 digits with .HK suffix for Hong Kong, 1-5 letters for
// US equities.
func Identify(ticker string) Market {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if t == "" {
		return Unknown
	}
	switch {
	case chinaAPattern.MatchString(t):
		return ChinaA
	case hkPattern.MatchString(t):
		return HongKong
	case usPattern.MatchString(t):
		return US
	}
	return Unknown
}

func IsChinaStock(ticker string) bool { return Identify(ticker) == ChinaA }
func IsHKStock(ticker string) bool    { return Identify(ticker) == HongKong }
func IsUSStock(ticker string) bool    { return Identify(ticker) == US }

// Currency returns the currency name and symbol used when prompting
// about prices for the ticker's market.
func Currency(ticker string) (name, symbol string) {
	switch Identify(ticker) {
	case ChinaA:
		return "人民币", "¥"
	case HongKong:
		return "港币", "HK$"
	case US:
		return "美元", "$"
	}
	return "未知", "?"
}

// DataSource returns the preferred data provider for the market.
func DataSource(ticker string) string {
	switch Identify(ticker) {
	case ChinaA:
		return "china_unified"
	case HongKong, US:
		return "yahoo_finance"
	}
	return "unknown"
}

// NormalizeHKTicker appends the .HK suffix to bare 4-5 digit codes.
func NormalizeHKTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if hkBarePattern.MatchString(t) {
		return t + ".HK"
	}
	return t
}

// Info carries the market facts agents embed into their prompts.
type Info struct {
	Ticker         string `json:"ticker"`
	Market         Market `json:"market"`
	MarketName     string `json:"market_name"`
	CurrencyName   string `json:"currency_name"`
	CurrencySymbol string `json:"currency_symbol"`
	DataSource     string `json:"data_source"`
}

func GetInfo(ticker string) Info {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	m := Identify(t)
	name, symbol := Currency(t)

	marketName := "未知市場"
	switch m {
	case ChinaA:
		marketName = "中國A股"
	case HongKong:
		marketName = "港股"
	case US:
		marketName = "美股"
	}

	return Info{
		Ticker:         t,
		Market:         m,
		MarketName:     marketName,
		CurrencyName:   name,
		CurrencySymbol: symbol,
		DataSource:     DataSource(t),
	}
}

// ValidTicker reports whether the ticker matches any known market
// shape. Callers reject unknown shapes before issuing any network or
// model calls.
func ValidTicker(ticker string) bool {
	return Identify(ticker) != Unknown
}

// ValidDate reports whether the trade date is in YYYY-MM-DD form.
func ValidDate(date string) bool {
	return datePattern.MatchString(date)
}
