package dataflows

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/dyike/TradeMind/internal/config"
)

// GoogleNewsClient scrapes Google News search results.
type GoogleNewsClient struct {
	client *resty.Client
	cache  *FileCache
}

func NewGoogleNewsClient(cfg *config.Config) *GoogleNewsClient {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	return &GoogleNewsClient{
		client: client,
		cache:  NewFileCache(filepath.Join(cfg.DataCacheDir, "google_news"), 30*time.Minute, true),
	}
}

type newsRSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
			Source      struct {
				Text string `xml:",chardata"`
			} `xml:"source"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Search queries the Google News RSS feed, falling back to HTML
// scraping when the feed yields nothing.
func (gnc *GoogleNewsClient) Search(query string, maxResults int) ([]*NewsArticle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	cacheKey := fmt.Sprintf("%s_%d", query, maxResults)
	var cached []*NewsArticle
	if gnc.cache.Get("google_news", "search", cacheKey, &cached) {
		return cached, nil
	}

	articles, err := gnc.searchRSS(query)
	if err != nil || len(articles) == 0 {
		articles, err = gnc.searchHTML(query)
		if err != nil {
			return nil, err
		}
	}

	articles = dedupeByURL(articles)
	if len(articles) > maxResults {
		articles = articles[:maxResults]
	}

	gnc.cache.Set("google_news", "search", cacheKey, articles)
	return articles, nil
}

func (gnc *GoogleNewsClient) searchRSS(query string) ([]*NewsArticle, error) {
	feedURL := fmt.Sprintf("https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en",
		url.QueryEscape(query))

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := gnc.client.R().Get(feedURL)
		if err != nil {
			return fmt.Errorf("fetch news feed: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("news feed error %d", resp.StatusCode())
		}

		var rss newsRSS
		if err := xml.Unmarshal(resp.Body(), &rss); err != nil {
			return fmt.Errorf("parse news feed: %w", err)
		}

		result = result[:0]
		for _, item := range rss.Channel.Items {
			published, _ := time.Parse(time.RFC1123, item.PubDate)
			result = append(result, &NewsArticle{
				Title:       item.Title,
				Content:     stripHTMLTags(item.Description),
				URL:         item.Link,
				Source:      item.Source.Text,
				PublishedAt: published,
			})
		}
		return nil
	})
	return result, err
}

func (gnc *GoogleNewsClient) searchHTML(query string) ([]*NewsArticle, error) {
	searchURL := fmt.Sprintf("https://www.google.com/search?q=%s&tbm=nws",
		url.QueryEscape(query))

	var result []*NewsArticle
	err := WithRetry(DefaultRetryConfig(), func() error {
		resp, err := gnc.client.R().Get(searchURL)
		if err != nil {
			return fmt.Errorf("fetch news search: %w", err)
		}
		if resp.StatusCode() != 200 {
			return fmt.Errorf("news search error %d", resp.StatusCode())
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
		if err != nil {
			return fmt.Errorf("parse search results: %w", err)
		}

		result = result[:0]
		doc.Find("div.SoaBEf, div.dbsr").Each(func(_ int, s *goquery.Selection) {
			title := strings.TrimSpace(s.Find("div.MBeuO, div.JheGif").First().Text())
			link, _ := s.Find("a").First().Attr("href")
			snippet := strings.TrimSpace(s.Find("div.GI74Re, div.Y3v8qd").First().Text())
			source := strings.TrimSpace(s.Find("div.NUnG9d span, div.XTjFC").First().Text())
			if title == "" || link == "" {
				return
			}
			result = append(result, &NewsArticle{
				Title:   title,
				Content: snippet,
				URL:     link,
				Source:  source,
			})
		})
		return nil
	})
	return result, err
}

func stripHTMLTags(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

func dedupeByURL(articles []*NewsArticle) []*NewsArticle {
	seen := make(map[string]bool, len(articles))
	out := articles[:0]
	for _, a := range articles {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, a)
	}
	return out
}

// FilterRelevant drops articles that mention none of the given terms
// in the title or content. Term matching is case-insensitive.
func FilterRelevant(articles []*NewsArticle, terms ...string) []*NewsArticle {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	if len(lowered) == 0 {
		return articles
	}

	out := make([]*NewsArticle, 0, len(articles))
	for _, a := range articles {
		text := strings.ToLower(a.Title + " " + a.Content)
		for _, term := range lowered {
			if strings.Contains(text, term) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
