package types

// ResearchProfile summarizes a target company and role. It is computed once per
// optimization run and reused unmodified by every generation call.
type ResearchProfile struct {
	Name            string   `json:"name"`
	Website         string   `json:"website"`
	Description     string   `json:"description"`
	Industry        string   `json:"industry"`
	TechStack       []string `json:"techStack"`
	Culture         string   `json:"culture"`
	RecentNews      []string `json:"recentNews"`
	JobRequirements []string `json:"jobRequirements"`
	RawData         *RawData `json:"rawData,omitempty"`
}

// RawData keeps the source material the profile was synthesized from
type RawData struct {
	SearchResults  []SearchResult `json:"searchResults,omitempty"`
	WebsiteContent string         `json:"websiteContent,omitempty"`
	JobPostings    []SearchResult `json:"jobPostings,omitempty"`
}

// SearchResult is a single web search hit
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// EmptyProfile returns the degraded profile used when research fails.
func EmptyProfile(company string) *ResearchProfile {
	return &ResearchProfile{
		Name:            company,
		TechStack:       []string{},
		RecentNews:      []string{},
		JobRequirements: []string{},
	}
}

// IsEmpty reports whether the profile carries no information beyond the company name
func (p *ResearchProfile) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Website == "" && p.Description == "" && p.Industry == "" && p.Culture == "" &&
		len(p.TechStack) == 0 && len(p.RecentNews) == 0 && len(p.JobRequirements) == 0
}
