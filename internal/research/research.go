// Package research builds a company profile for a target role from web searches,
// the company's own website and an LLM synthesis of both.
package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	// resultsPerQuery is how many search results each query keeps
	resultsPerQuery = 5
	// websiteTextLimit caps the scraped website text handed to the LLM
	websiteTextLimit = 3000
)

// Researcher produces a company profile for a target role
type Researcher interface {
	Research(ctx context.Context, company, role, details string) (*types.ResearchProfile, error)
}

// WebResearcher researches companies on the web. Search and synthesis are both
// optional: without a searcher the profile is synthesized from the user's details
// alone, and without an LLM the fallback profile is returned.
type WebResearcher struct {
	searcher  Searcher
	client    llm.Client
	fetchOpts *fetch.Options
	render    fetch.Renderer
}

// Option configures a WebResearcher
type Option func(*WebResearcher)

// WithFetchOptions sets the HTTP options used to scrape company sites
func WithFetchOptions(opts *fetch.Options) Option {
	return func(r *WebResearcher) { r.fetchOpts = opts }
}

// WithBrowser enables rendering of JavaScript-heavy company sites
func WithBrowser(render fetch.Renderer) Option {
	return func(r *WebResearcher) { r.render = render }
}

// NewWebResearcher creates a researcher. searcher and client may be nil.
func NewWebResearcher(searcher Searcher, client llm.Client, opts ...Option) *WebResearcher {
	r := &WebResearcher{searcher: searcher, client: client, fetchOpts: fetch.DefaultOptions()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// gathered is the raw material collected before synthesis
type gathered struct {
	searchResults  []types.SearchResult
	website        string
	websiteContent string
	jobPostings    []types.SearchResult
}

// Research gathers material about company and synthesizes a profile. Source and
// synthesis failures degrade to a fallback profile; only cancellation is an error.
func (r *WebResearcher) Research(ctx context.Context, company, role, details string) (*types.ResearchProfile, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, fmt.Errorf("company name is required")
	}

	start := time.Now()
	material, err := r.gather(ctx, company, role)
	if err != nil {
		return nil, err
	}
	raw := &types.RawData{
		SearchResults:  material.searchResults,
		WebsiteContent: material.websiteContent,
		JobPostings:    material.jobPostings,
	}

	profile, err := r.synthesize(ctx, company, role, details, material)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[research] synthesis for %s failed, using fallback profile: %v", company, err)
		profile = FallbackProfile(company, role, details)
		profile.Website = material.website
	}
	profile.RawData = raw

	log.Printf("[research] %s / %s: %d search results, %d job postings, %d chars of site text in %s",
		company, role, len(material.searchResults), len(material.jobPostings), len(material.websiteContent),
		time.Since(start).Round(time.Millisecond))
	return profile, nil
}

// gather runs the three searches and the website scrape concurrently
func (r *WebResearcher) gather(ctx context.Context, company, role string) (*gathered, error) {
	out := &gathered{}
	if r.searcher == nil {
		return out, nil
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out.searchResults = r.search(gCtx, fmt.Sprintf("%s %s job requirements tech stack culture", company, role), resultsPerQuery)
		return gCtx.Err()
	})

	g.Go(func() error {
		found := r.search(gCtx, fmt.Sprintf("%s official website", company), 1)
		if len(found) == 0 || found[0].Link == "" {
			return gCtx.Err()
		}
		out.website = found[0].Link
		text, err := fetch.PageText(gCtx, out.website, websiteTextLimit, r.fetchOpts, r.render)
		if err != nil {
			log.Printf("[research] failed to scrape %s: %v", out.website, err)
			return gCtx.Err()
		}
		out.websiteContent = text
		return nil
	})

	g.Go(func() error {
		query := fmt.Sprintf("%s %s job description requirements site:linkedin.com OR site:indeed.com OR site:glassdoor.com", company, role)
		out.jobPostings = r.search(gCtx, query, resultsPerQuery)
		return gCtx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// search runs one query, logging and swallowing failures
func (r *WebResearcher) search(ctx context.Context, query string, num int) []types.SearchResult {
	results, err := r.searcher.Search(ctx, query, num)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Printf("[research] %s search %q failed: %v", r.searcher.Name(), query, err)
		}
		return nil
	}
	return results
}

func (r *WebResearcher) synthesize(ctx context.Context, company, role, details string, material *gathered) (*types.ResearchProfile, error) {
	if r.client == nil {
		return nil, fmt.Errorf("no LLM client configured")
	}

	prompt := llm.BuildExtractionPrompt(llm.CompanyProfileSchema(company, role), synthesisInput(company, role, details, material))
	reply, err := r.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, err
	}
	return DecodeProfile(reply, company, material.website)
}

func synthesisInput(company, role, details string, material *gathered) string {
	if strings.TrimSpace(details) == "" {
		details = "None provided"
	}
	websiteContent := material.websiteContent
	if websiteContent == "" {
		websiteContent = "Not available"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "COMPANY NAME: %s\nTARGET ROLE: %s\n\n", company, role)
	fmt.Fprintf(&sb, "USER PROVIDED DETAILS:\n%s\n\n", details)
	fmt.Fprintf(&sb, "WEB SEARCH RESULTS:\n%s\n\n", indentJSON(material.searchResults))
	fmt.Fprintf(&sb, "WEBSITE CONTENT:\n%s\n\n", websiteContent)
	fmt.Fprintf(&sb, "JOB POSTINGS:\n%s", indentJSON(material.jobPostings))
	return sb.String()
}

func indentJSON(results []types.SearchResult) string {
	if len(results) == 0 {
		return "[]"
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeProfile reads a synthesis reply leniently. Missing strings and lists become
// empty values; name and website fall back to the given defaults.
func DecodeProfile(reply, company, website string) (*types.ResearchProfile, error) {
	candidate := llm.FirstJSONObject(reply)
	if candidate == "" {
		return nil, fmt.Errorf("no JSON object in synthesis reply")
	}
	if err := schemas.ValidateResearchProfile(candidate); err != nil {
		return nil, err
	}

	parsed := gjson.Parse(candidate)
	profile := &types.ResearchProfile{
		Name:            firstNonEmpty(parsed.Get("name").String(), company),
		Website:         firstNonEmpty(parsed.Get("website").String(), website),
		Description:     strings.TrimSpace(parsed.Get("description").String()),
		Industry:        strings.TrimSpace(parsed.Get("industry").String()),
		TechStack:       stringList(parsed.Get("techStack")),
		Culture:         strings.TrimSpace(parsed.Get("culture").String()),
		RecentNews:      stringList(parsed.Get("recentNews")),
		JobRequirements: stringList(parsed.Get("jobRequirements")),
	}
	return profile, nil
}

// FallbackProfile is used when synthesis fails: the user's details, or a one-line
// description of the position, and nothing else.
func FallbackProfile(company, role, details string) *types.ResearchProfile {
	profile := types.EmptyProfile(company)
	profile.Description = strings.TrimSpace(details)
	if profile.Description == "" {
		profile.Description = fmt.Sprintf("%s - %s position", company, role)
	}
	return profile
}

func stringList(v gjson.Result) []string {
	out := []string{}
	for _, item := range v.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
