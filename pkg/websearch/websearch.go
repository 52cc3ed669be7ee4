package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

type Config struct {
	Endpoint string
	APIKey   string
	// RateLimit is the maximum request rate per second. Brave's free tier
	// allows one request per second.
	RateLimit float64
	Timeout   time.Duration
}

// Client queries the Brave web search API.
type Client struct {
	config  Config
	http    *http.Client
	limiter *rate.Limiter
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func NewWithConfig(config Config) *Client {
	if config.Endpoint == "" {
		config.Endpoint = "https://api.search.brave.com/res/v1/web/search"
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Search returns formatted result blocks for query, at most limit of them.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if c.config.APIKey == "" {
		return nil, fmt.Errorf("web search requires an API key")
	}
	if limit <= 0 {
		limit = 5
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("bad search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(limit))
	q.Set("offset", "0")
	q.Set("source", "web")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned status %d", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding web search response: %w", err)
	}

	results := make([]string, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, fmt.Sprintf("Title: %s\nURL: %s\nSnippet: %s",
			stripMarkup(r.Title), r.URL, stripMarkup(r.Description)))
	}
	return results, nil
}

// stripMarkup flattens the highlight tags Brave embeds in titles and
// snippets to plain text.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
