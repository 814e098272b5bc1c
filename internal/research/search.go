package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// Searcher runs a web search and returns its top results
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, num int) ([]types.SearchResult, error)
}

// GoogleSearcher searches with the Google Custom Search JSON API
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearcher creates a Custom Search client for the engine cx
func NewGoogleSearcher(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google search requires an API key and a search engine id")
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx}, nil
}

// Name implements Searcher
func (g *GoogleSearcher) Name() string { return "google" }

// Search implements Searcher
func (g *GoogleSearcher) Search(ctx context.Context, query string, num int) ([]types.SearchResult, error) {
	resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(int64(num)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]types.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, types.SearchResult{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}

// SerpAPIEndpoint is the SerpAPI search endpoint
const SerpAPIEndpoint = "https://serpapi.com/search"

// SerpAPISearcher searches Google through SerpAPI
type SerpAPISearcher struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSerpAPISearcher creates a SerpAPI searcher. An empty endpoint means SerpAPIEndpoint.
func NewSerpAPISearcher(apiKey, endpoint string) (*SerpAPISearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SerpAPI requires an API key")
	}
	if endpoint == "" {
		endpoint = SerpAPIEndpoint
	}
	return &SerpAPISearcher{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Name implements Searcher
func (s *SerpAPISearcher) Name() string { return "serpapi" }

// Search implements Searcher
func (s *SerpAPISearcher) Search(ctx context.Context, query string, num int) ([]types.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("SerpAPI authentication failed, check the API key")
	case http.StatusForbidden:
		return nil, fmt.Errorf("SerpAPI quota exceeded or account issue")
	default:
		return nil, fmt.Errorf("SerpAPI returned status %d", resp.StatusCode)
	}

	organic := gjson.GetBytes(body, "organic_results").Array()
	results := make([]types.SearchResult, 0, len(organic))
	for _, item := range organic {
		if len(results) == num {
			break
		}
		results = append(results, types.SearchResult{
			Title:   item.Get("title").String(),
			Link:    item.Get("link").String(),
			Snippet: item.Get("snippet").String(),
		})
	}
	return results, nil
}
