package dataflows

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/dyike/TradeMind/internal/config"
)

// FinnhubClient fetches news and insider activity from the Finnhub
// REST API.
type FinnhubClient struct {
	client *resty.Client
	cache  *FileCache
	apiKey string
}

func NewFinnhubClient(cfg *config.Config) *FinnhubClient {
	client := resty.New().
		SetBaseURL("https://finnhub.io/api/v1").
		SetTimeout(30 * time.Second)

	return &FinnhubClient{
		client: client,
		cache:  NewFileCache(filepath.Join(cfg.DataCacheDir, "finnhub"), 6*time.Hour, true),
		apiKey: cfg.FinnhubAPIKey,
	}
}

type finnhubNews struct {
	Category string `json:"category"`
	DateTime int64  `json:"datetime"`
	Headline string `json:"headline"`
	ID       int64  `json:"id"`
	Related  string `json:"related"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// GetCompanyNews returns news articles for a symbol in the date range.
func (fc *FinnhubClient) GetCompanyNews(symbol string, from, to time.Time) ([]*NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}

	cacheKey := map[string]string{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}
	var cached []*NewsArticle
	if fc.cache.Get("finnhub", "company_news", cacheKey, &cached) {
		return cached, nil
	}

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/company-news")
		if err != nil {
			return fmt.Errorf("fetch news for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub error %d: %s", resp.StatusCode(), resp.String())
		}

		var items []finnhubNews
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return fmt.Errorf("parse news response: %w", err)
		}

		result = make([]*NewsArticle, 0, len(items))
		for _, n := range items {
			result = append(result, &NewsArticle{
				Title:       n.Headline,
				Content:     n.Summary,
				URL:         n.URL,
				Source:      n.Source,
				PublishedAt: time.Unix(n.DateTime, 0),
				Metadata: map[string]string{
					"category": n.Category,
					"related":  n.Related,
					"id":       strconv.FormatInt(n.ID, 10),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "company_news", cacheKey, result)
	return result, nil
}

// GetGeneralNews returns general market news for a category.
func (fc *FinnhubClient) GetGeneralNews(category string) ([]*NewsArticle, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}

	var cached []*NewsArticle
	if fc.cache.Get("finnhub", "general_news", category, &cached) {
		return cached, nil
	}

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"category": category,
				"token":    fc.apiKey,
			}).
			Get("/news")
		if err != nil {
			return fmt.Errorf("fetch general news: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub error %d: %s", resp.StatusCode(), resp.String())
		}

		var items []finnhubNews
		if err := json.Unmarshal(resp.Body(), &items); err != nil {
			return fmt.Errorf("parse news response: %w", err)
		}

		result = make([]*NewsArticle, 0, len(items))
		for _, n := range items {
			result = append(result, &NewsArticle{
				Title:       n.Headline,
				Content:     n.Summary,
				URL:         n.URL,
				Source:      n.Source,
				PublishedAt: time.Unix(n.DateTime, 0),
				Metadata:    map[string]string{"category": n.Category},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "general_news", category, result)
	return result, nil
}

// GetInsiderSentiment returns monthly insider sentiment aggregates.
func (fc *FinnhubClient) GetInsiderSentiment(symbol string, from, to time.Time) ([]*InsiderSentiment, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}

	cacheKey := map[string]string{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}
	var cached []*InsiderSentiment
	if fc.cache.Get("finnhub", "insider_sentiment", cacheKey, &cached) {
		return cached, nil
	}

	var result []*InsiderSentiment
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/stock/insider-sentiment")
		if err != nil {
			return fmt.Errorf("fetch insider sentiment for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub error %d: %s", resp.StatusCode(), resp.String())
		}

		var apiResp struct {
			Data []struct {
				Symbol string  `json:"symbol"`
				Year   int     `json:"year"`
				Month  int     `json:"month"`
				Change int64   `json:"change"`
				MSPR   float64 `json:"mspr"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
			return fmt.Errorf("parse insider sentiment response: %w", err)
		}

		result = make([]*InsiderSentiment, 0, len(apiResp.Data))
		for _, s := range apiResp.Data {
			result = append(result, &InsiderSentiment{
				Symbol: s.Symbol,
				Year:   s.Year,
				Month:  s.Month,
				Change: s.Change,
				MSPR:   decimal.NewFromFloat(s.MSPR),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "insider_sentiment", cacheKey, result)
	return result, nil
}

// GetInsiderTransactions returns reported insider trades.
func (fc *FinnhubClient) GetInsiderTransactions(symbol string, from, to time.Time) ([]*InsiderTransaction, error) {
	if fc.apiKey == "" {
		return nil, fmt.Errorf("finnhub API key not configured")
	}

	cacheKey := map[string]string{
		"symbol": symbol,
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
	}
	var cached []*InsiderTransaction
	if fc.cache.Get("finnhub", "insider_transactions", cacheKey, &cached) {
		return cached, nil
	}

	var result []*InsiderTransaction
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := fc.client.R().
			SetQueryParams(map[string]string{
				"symbol": symbol,
				"from":   from.Format("2006-01-02"),
				"to":     to.Format("2006-01-02"),
				"token":  fc.apiKey,
			}).
			Get("/stock/insider-transactions")
		if err != nil {
			return fmt.Errorf("fetch insider transactions for %s: %w", symbol, err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("finnhub error %d: %s", resp.StatusCode(), resp.String())
		}

		var apiResp struct {
			Data []struct {
				Symbol           string  `json:"symbol"`
				PersonName       string  `json:"personName"`
				Share            int64   `json:"share"`
				Change           int64   `json:"change"`
				FilingDate       string  `json:"filingDate"`
				TransactionDate  string  `json:"transactionDate"`
				TransactionCode  string  `json:"transactionCode"`
				TransactionPrice float64 `json:"transactionPrice"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
			return fmt.Errorf("parse insider transactions response: %w", err)
		}

		result = make([]*InsiderTransaction, 0, len(apiResp.Data))
		for _, tr := range apiResp.Data {
			filing, _ := ParseDate(tr.FilingDate)
			txDate, _ := ParseDate(tr.TransactionDate)
			result = append(result, &InsiderTransaction{
				Symbol:           tr.Symbol,
				PersonName:       tr.PersonName,
				Share:            tr.Share,
				Change:           tr.Change,
				FilingDate:       filing,
				TransactionDate:  txDate,
				TransactionCode:  tr.TransactionCode,
				TransactionPrice: decimal.NewFromFloat(tr.TransactionPrice),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fc.cache.Set("finnhub", "insider_transactions", cacheKey, result)
	return result, nil
}
