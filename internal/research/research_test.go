package research

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// fakeSearcher answers queries by substring match and records them
type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	answers map[string][]types.SearchResult
	err     error
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(ctx context.Context, query string, num int) ([]types.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for fragment, results := range f.answers {
		if strings.Contains(query, fragment) {
			return results, nil
		}
	}
	return nil, nil
}

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return "fake" }
func (f *fakeLLM) Close() error                       { return nil }

func companySite(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><nav>Menu</nav><main>Acme builds reusable rockets with Go and Kafka. " +
			strings.Repeat("We value ownership. ", 40) + "</main></body></html>"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebResearcher_Research(t *testing.T) {
	site := companySite(t)
	searcher := &fakeSearcher{answers: map[string][]types.SearchResult{
		"official website":         {{Title: "Acme", Link: site.URL}},
		"tech stack culture":       {{Title: "Acme engineering", Link: "https://blog.acme.test", Snippet: "We use Go"}},
		"site:linkedin.com":        {{Title: "SRE at Acme", Link: "https://linkedin.com/jobs/1", Snippet: "Kubernetes required"}},
	}}
	client := &fakeLLM{reply: "Profile:\n" + `{"name": "Acme Corp", "description": "Rocket maker", "industry": "Aerospace",
		"techStack": ["Go", "Kafka", ""], "culture": "Ownership", "recentNews": null, "jobRequirements": ["Kubernetes"]}`}

	r := NewWebResearcher(searcher, client)
	profile, err := r.Research(context.Background(), " Acme ", "SRE", "Team runs launch control")
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", profile.Name)
	assert.Equal(t, site.URL, profile.Website, "website falls back to the discovered site")
	assert.Equal(t, []string{"Go", "Kafka"}, profile.TechStack)
	assert.Equal(t, []string{}, profile.RecentNews)
	assert.Equal(t, []string{"Kubernetes"}, profile.JobRequirements)

	require.NotNil(t, profile.RawData)
	assert.Len(t, profile.RawData.SearchResults, 1)
	assert.Len(t, profile.RawData.JobPostings, 1)
	assert.True(t, strings.HasPrefix(profile.RawData.WebsiteContent, "Acme builds reusable rockets"))
	assert.LessOrEqual(t, len([]rune(profile.RawData.WebsiteContent)), websiteTextLimit)
	assert.NotContains(t, profile.RawData.WebsiteContent, "Menu")

	assert.Len(t, searcher.queries, 3)
	assert.Contains(t, client.prompt, "information about Acme")
	assert.Contains(t, client.prompt, "Team runs launch control")
	assert.Contains(t, client.prompt, "Kubernetes required")
	assert.Contains(t, client.prompt, "Acme builds reusable rockets")
}

func TestWebResearcher_SearchFailuresDegrade(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("quota exceeded")}
	client := &fakeLLM{reply: `{"name": "Acme", "description": "From details only"}`}

	profile, err := NewWebResearcher(searcher, client).Research(context.Background(), "Acme", "SRE", "")
	require.NoError(t, err)
	assert.Equal(t, "From details only", profile.Description)
	assert.Contains(t, client.prompt, "None provided")
	assert.Contains(t, client.prompt, "WEBSITE CONTENT:\nNot available")
}

func TestWebResearcher_SynthesisFailureUsesFallback(t *testing.T) {
	tests := []struct {
		name   string
		client llm.Client
	}{
		{"llm error", &fakeLLM{err: errors.New("503")}},
		{"prose reply", &fakeLLM{reply: "I cannot find anything about this company."}},
		{"wrong types", &fakeLLM{reply: `{"techStack": "Go"}`}},
		{"no client", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := NewWebResearcher(nil, tt.client).Research(context.Background(), "Acme", "SRE", "")
			require.NoError(t, err)
			assert.Equal(t, "Acme", profile.Name)
			assert.Equal(t, "Acme - SRE position", profile.Description)
			assert.Empty(t, profile.TechStack)
		})
	}
}

func TestWebResearcher_RequiresCompany(t *testing.T) {
	_, err := NewWebResearcher(nil, nil).Research(context.Background(), "  ", "SRE", "")
	assert.Error(t, err)
}

func TestWebResearcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searcher := &fakeSearcher{err: context.Canceled}
	_, err := NewWebResearcher(searcher, &fakeLLM{reply: `{}`}).Research(ctx, "Acme", "SRE", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackProfile(t *testing.T) {
	assert.Equal(t, "Hiring for payments", FallbackProfile("Acme", "SRE", " Hiring for payments ").Description)
	assert.Equal(t, "Acme - SRE position", FallbackProfile("Acme", "SRE", "").Description)
}

func TestDecodeProfile_Defaults(t *testing.T) {
	profile, err := DecodeProfile(`{"name": "", "website": null}`, "Acme", "https://acme.test")
	require.NoError(t, err)
	assert.Equal(t, "Acme", profile.Name)
	assert.Equal(t, "https://acme.test", profile.Website)
	assert.NotNil(t, profile.TechStack)
	assert.NotNil(t, profile.JobRequirements)
}
