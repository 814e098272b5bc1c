package generation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/prompts"
	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	promptFile = "generation.json"
	// notAvailable stands in for research fields the profile lacks
	notAvailable = "Not available"
	// topTechCount is how many tech stack entries the generate prompt highlights
	topTechCount = 5
)

// Generator produces and refines structured resume data
type Generator interface {
	Generate(ctx context.Context, text string, profile *types.ResearchProfile, role string) (*types.ResumeData, error)
	Score(ctx context.Context, text string, profile *types.ResearchProfile, role string) (*types.ATSResult, error)
	Improve(ctx context.Context, data *types.ResumeData, ats *types.ATSResult, profile *types.ResearchProfile, role string) (*types.ResumeData, error)
}

// LLMGenerator implements Generator with prompt templates and an llm.Client
type LLMGenerator struct {
	client llm.Client
}

// NewLLMGenerator creates a generator backed by client
func NewLLMGenerator(client llm.Client) *LLMGenerator {
	return &LLMGenerator{client: client}
}

// Generate extracts and optimizes resume data from the candidate's resume text
func (g *LLMGenerator) Generate(ctx context.Context, text string, profile *types.ResearchProfile, role string) (*types.ResumeData, error) {
	vars := profileVars(profile, role)
	vars["ResumeText"] = text

	reply, err := g.ask(ctx, "generate", "generate-resume-data", vars, llm.TierAdvanced)
	if err != nil {
		return nil, err
	}
	return DecodeResumeData("generate", reply)
}

// Score rates the text of a rendered resume against the company and role
func (g *LLMGenerator) Score(ctx context.Context, text string, profile *types.ResearchProfile, role string) (*types.ATSResult, error) {
	vars := profileVars(profile, role)
	vars["ResumeText"] = text

	reply, err := g.ask(ctx, "score", "score-resume", vars, llm.TierStandard)
	if err != nil {
		return nil, err
	}
	return DecodeATSResult(reply)
}

// Improve rewrites resume data to address the feedback of a previous score
func (g *LLMGenerator) Improve(ctx context.Context, data *types.ResumeData, ats *types.ATSResult, profile *types.ResearchProfile, role string) (*types.ResumeData, error) {
	current, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, &ParseError{Operation: "improve", Message: "failed to encode current resume data", Cause: err}
	}
	if ats == nil {
		ats = &types.ATSResult{}
	}

	vars := profileVars(profile, role)
	vars["ResumeJSON"] = string(current)
	vars["Score"] = strconv.Itoa(ats.Score)
	vars["Feedback"] = orNotAvailable(strings.Join(ats.Feedback, "\n"))
	vars["Improvements"] = orNotAvailable(strings.Join(ats.Improvements, "\n"))

	reply, err := g.ask(ctx, "improve", "improve-resume-data", vars, llm.TierAdvanced)
	if err != nil {
		return nil, err
	}
	return DecodeResumeData("improve", reply)
}

func (g *LLMGenerator) ask(ctx context.Context, operation, key string, vars map[string]string, tier llm.ModelTier) (string, error) {
	prompt, err := prompts.Render(promptFile, key, vars)
	if err != nil {
		return "", err
	}
	reply, err := g.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return "", &LLMError{Operation: operation, Cause: err}
	}
	return reply, nil
}

// profileVars maps the research profile onto the shared prompt placeholders
func profileVars(profile *types.ResearchProfile, role string) map[string]string {
	if profile == nil {
		profile = &types.ResearchProfile{}
	}
	top := profile.TechStack
	if len(top) > topTechCount {
		top = top[:topTechCount]
	}
	return map[string]string{
		"Company":         orNotAvailable(profile.Name),
		"Role":            role,
		"Description":     orNotAvailable(profile.Description),
		"Industry":        orNotAvailable(profile.Industry),
		"TechStack":       orNotAvailable(strings.Join(profile.TechStack, ", ")),
		"TopTech":         orNotAvailable(strings.Join(top, ", ")),
		"Culture":         orNotAvailable(profile.Culture),
		"JobRequirements": orNotAvailable(strings.Join(profile.JobRequirements, "; ")),
	}
}

func orNotAvailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}
