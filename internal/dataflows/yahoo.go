package dataflows

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"github.com/dyike/TradeMind/internal/config"
	"github.com/dyike/TradeMind/internal/market"
)

// YahooClient fetches price data from Yahoo Finance.
type YahooClient struct {
	cache *FileCache
	cfg   *config.Config
}

func NewYahooClient(cfg *config.Config) *YahooClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo_finance")
	return &YahooClient{
		cache: NewFileCache(cacheDir, 24*time.Hour, true),
		cfg:   cfg,
	}
}

// GetQuote returns the latest quote for a symbol.
func (yc *YahooClient) GetQuote(symbol string) (*MarketData, error) {
	symbol = normalizeYahooSymbol(symbol)

	var cached MarketData
	if yc.cache.Get("yahoo", "quote", symbol, &cached) {
		return &cached, nil
	}

	var result *MarketData
	err := WithRetry(DefaultRetryConfig(), func() error {
		q, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("get quote for %s: %w", symbol, err)
		}
		result = &MarketData{
			Symbol:    symbol,
			Date:      time.Now(),
			Open:      decimal.NewFromFloat(q.RegularMarketOpen),
			High:      decimal.NewFromFloat(q.RegularMarketDayHigh),
			Low:       decimal.NewFromFloat(q.RegularMarketDayLow),
			Close:     decimal.NewFromFloat(q.RegularMarketPrice),
			AdjClose:  decimal.NewFromFloat(q.RegularMarketPrice),
			Volume:    int64(q.RegularMarketVolume),
			Timestamp: time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yc.cache.Set("yahoo", "quote", symbol, result)
	return result, nil
}

// GetHistoricalData returns daily bars for the date range.
func (yc *YahooClient) GetHistoricalData(symbol string, start, end time.Time) ([]*MarketData, error) {
	symbol = normalizeYahooSymbol(symbol)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}
	var cached []*MarketData
	if yc.cache.Get("yahoo", "historical", cacheKey, &cached) {
		return cached, nil
	}

	var result []*MarketData
	err := WithRetry(DefaultRetryConfig(), func() error {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}
		iter := chart.Get(params)

		result = result[:0]
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, &MarketData{
				Symbol:    symbol,
				Date:      time.Unix(int64(bar.Timestamp), 0),
				Open:      bar.Open,
				High:      bar.High,
				Low:       bar.Low,
				Close:     bar.Close,
				AdjClose:  bar.AdjClose,
				Volume:    int64(bar.Volume),
				Timestamp: time.Now(),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("get historical data for %s: %w", symbol, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	yc.cache.Set("yahoo", "historical", cacheKey, result)
	return result, nil
}

// GetOfflineData loads bars previously saved under the data dir.
func (yc *YahooClient) GetOfflineData(symbol string, start, end time.Time) ([]*MarketData, error) {
	symbol = normalizeYahooSymbol(symbol)

	path := filepath.Join(yc.cfg.DataDir, "market_data", "price_data",
		fmt.Sprintf("%s_%s_%s.json", symbol,
			start.Format("2006-01-02"), end.Format("2006-01-02")))

	var result []*MarketData
	if err := LoadJSON(path, &result); err != nil {
		return nil, fmt.Errorf("offline price data not available for %s: %w", symbol, err)
	}
	return result, nil
}

// normalizeYahooSymbol maps market-specific ticker shapes to the form
// Yahoo expects. Bare HK codes gain the .HK suffix, A-share codes gain
// an exchange suffix by leading-digit convention.
func normalizeYahooSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch market.Identify(s) {
	case market.HongKong:
		return market.NormalizeHKTicker(s)
	case market.ChinaA:
		if strings.HasPrefix(s, "6") {
			return s + ".SS"
		}
		return s + ".SZ"
	}
	return s
}
