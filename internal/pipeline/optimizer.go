package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-optimizer/internal/compilation"
	"github.com/jonathan/resume-optimizer/internal/ingestion"
	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	// DefaultThreshold is the score at which the improvement loop stops
	DefaultThreshold = 70
	// DefaultMaxAttempts bounds generate+improve passes, counting the first
	DefaultMaxAttempts = 3
)

// errNoResult is reported when a Generator returns neither a result nor an error
var errNoResult = errors.New("generator returned no result")

// Extractor turns PDF bytes into text
type Extractor interface {
	ExtractText(data []byte) (*ingestion.Document, error)
}

// Researcher builds the company profile for a run
type Researcher interface {
	Research(ctx context.Context, company, role, details string) (*types.ResearchProfile, error)
}

// Generator produces, scores and improves resume data
type Generator interface {
	Generate(ctx context.Context, text string, profile *types.ResearchProfile, role string) (*types.ResumeData, error)
	Score(ctx context.Context, text string, profile *types.ResearchProfile, role string) (*types.ATSResult, error)
	Improve(ctx context.Context, data *types.ResumeData, ats *types.ATSResult, profile *types.ResearchProfile, role string) (*types.ResumeData, error)
}

// Compiler builds markup files into a document
type Compiler interface {
	Compile(ctx context.Context, files []types.MarkupFile, mainFile string) *compilation.Result
}

// Persister stores a finished run
type Persister interface {
	Persist(ctx context.Context, req *PersistRequest) (*PersistResult, error)
}

// Deps are the collaborators of an Optimizer. Researcher may be nil, in which case
// every run uses the empty profile.
type Deps struct {
	Extractor  Extractor
	Researcher Researcher
	Generator  Generator
	Compiler   Compiler
	Persister  Persister
}

// Options tunes the retry policy
type Options struct {
	Threshold        int
	MaxAttempts      int
	MinContentLength int
	DefaultTemplate  rendering.TemplateID
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.MinContentLength <= 0 {
		o.MinContentLength = ingestion.DefaultMinContentLength
	}
	if o.DefaultTemplate == "" {
		o.DefaultTemplate = rendering.DefaultTemplate
	}
	return o
}

// Request is one optimization run's input
type Request struct {
	UserID           string `validate:"omitempty,uuid"`
	Document         []byte `validate:"required,min=1"`
	OriginalFilename string
	Company          string `validate:"required,max=200"`
	Role             string `validate:"required,max=200"`
	CompanyDetails   string `validate:"max=5000"`
	// Template defaults to the optimizer's default template
	Template   string
	OnProgress ProgressCallback
}

// Result is the outcome of a run. On failure only Success and Error are set, and
// Err keeps the underlying error for status mapping.
type Result struct {
	Success           bool               `json:"success"`
	ResumeID          string             `json:"resumeId,omitempty"`
	Score             int                `json:"score"`
	Feedback          []string           `json:"feedback,omitempty"`
	Improvements      []string           `json:"improvements,omitempty"`
	Attempts          int                `json:"attempts,omitempty"`
	ScoreHistory      []types.ScoreEntry `json:"scoreHistory,omitempty"`
	CompanyResearch   *ResearchSummary   `json:"companyResearch,omitempty"`
	DownloadReference string             `json:"downloadUrl,omitempty"`
	TemplateUsed      string             `json:"template,omitempty"`
	Error             string             `json:"error,omitempty"`

	Err        error              `json:"-"`
	ResumeData *types.ResumeData  `json:"-"`
	Files      []types.MarkupFile `json:"-"`
	Document   []byte             `json:"-"`
}

// MarshalJSON encodes a failed run as just {success, error}
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{Error: r.Error})
	}
	type plain Result
	return json.Marshal(plain(r))
}

// ResearchSummary is the part of the research profile returned to the requester
type ResearchSummary struct {
	Name      string   `json:"name"`
	TechStack []string `json:"techStack"`
}

// Optimizer runs optimization requests. It is safe for concurrent use; each run
// keeps its own state.
type Optimizer struct {
	deps Deps
	opts Options
}

// New creates an Optimizer
func New(deps Deps, opts Options) (*Optimizer, error) {
	if deps.Extractor == nil || deps.Generator == nil || deps.Compiler == nil || deps.Persister == nil {
		return nil, fmt.Errorf("optimizer requires an extractor, generator, compiler and persister")
	}
	return &Optimizer{deps: deps, opts: opts.withDefaults()}, nil
}

// Options returns the effective options
func (o *Optimizer) Options() Options {
	return o.opts
}

// run is the mutable state of one optimization run
type run struct {
	req      *Request
	template rendering.TemplateID
	profile  *types.ResearchProfile
	data     *types.ResumeData
	files    []types.MarkupFile
	document []byte
	ats      *types.ATSResult
	attempt  int
	history  []types.ScoreEntry
	progress *progress
}

// Run executes the pipeline for req. Every failure is reported through the
// returned Result.
func (o *Optimizer) Run(ctx context.Context, req *Request) *Result {
	start := time.Now()
	r := &run{req: req, progress: &progress{callback: req.OnProgress}}

	result, err := o.execute(ctx, r)
	if err != nil {
		log.Printf("[optimize] run for %s / %s failed: %v", req.Company, req.Role, err)
		r.progress.emit(StageFailed, UserMessage(err))
		return &Result{Success: false, Error: UserMessage(err), Err: err}
	}

	log.Printf("[optimize] %s / %s finished with score %d after %d attempt(s) in %s",
		req.Company, req.Role, result.Score, result.Attempts, time.Since(start).Round(time.Millisecond))
	r.progress.emit(StageDone, fmt.Sprintf("Complete! Final score: %d", result.Score))
	return result
}

func (o *Optimizer) execute(ctx context.Context, r *run) (*Result, error) {
	if err := o.prepare(r); err != nil {
		return nil, err
	}

	text, err := o.extract(r)
	if err != nil {
		return nil, err
	}

	r.profile = o.research(ctx, r)

	r.progress.emit(StageGenerating, "")
	data, err := o.deps.Generator.Generate(ctx, text, r.profile, r.req.Role)
	if err == nil && data == nil {
		err = errNoResult
	}
	if err != nil {
		return nil, o.fail(ctx, StageGenerating, err)
	}

	r.attempt = 1
	r.progress.attempt = 1
	files, document, ats, stage, err := o.evaluate(ctx, r, data)
	if err != nil {
		return nil, o.fail(ctx, stage, err)
	}
	r.accept(data, files, document, ats)

	o.improve(ctx, r)
	if err := ctx.Err(); err != nil {
		return nil, stageError(StageIterating, err)
	}

	return o.finalize(ctx, r)
}

// prepare validates the request and resolves the template
func (o *Optimizer) prepare(r *run) error {
	r.req.Company = strings.TrimSpace(r.req.Company)
	r.req.Role = strings.TrimSpace(r.req.Role)
	if err := validator.New().Struct(r.req); err != nil {
		return &InputError{Message: "PDF resume, company name, and role are required", Cause: err}
	}

	name := r.req.Template
	if strings.TrimSpace(name) == "" {
		name = string(o.opts.DefaultTemplate)
	}
	id, err := rendering.ParseTemplateID(name)
	if err != nil {
		return &InputError{Message: fmt.Sprintf("Unknown template %q", name), Cause: err}
	}
	r.template = id
	return nil
}

func (o *Optimizer) extract(r *run) (string, error) {
	r.progress.emit(StageExtracting, "")
	doc, err := o.deps.Extractor.ExtractText(r.req.Document)
	if err != nil {
		return "", stageError(StageExtracting, err)
	}
	text := ingestion.CleanText(doc.Text)
	if err := ingestion.CheckContent(text, o.opts.MinContentLength); err != nil {
		return "", stageError(StageExtracting, err)
	}
	return text, nil
}

// research never fails the run: errors degrade to the empty profile
func (o *Optimizer) research(ctx context.Context, r *run) *types.ResearchProfile {
	r.progress.emit(StageResearching, "")
	if o.deps.Researcher == nil {
		return types.EmptyProfile(r.req.Company)
	}
	profile, err := o.deps.Researcher.Research(ctx, r.req.Company, r.req.Role, r.req.CompanyDetails)
	if err != nil || profile == nil {
		log.Printf("[optimize] research for %s failed, continuing with empty profile: %v", r.req.Company, err)
		return types.EmptyProfile(r.req.Company)
	}
	return profile
}

// evaluate renders, compiles and scores data. On failure it returns the stage
// that failed.
func (o *Optimizer) evaluate(ctx context.Context, r *run, data *types.ResumeData) ([]types.MarkupFile, []byte, *types.ATSResult, Stage, error) {
	r.progress.emit(StageRendering, "")
	files, err := rendering.Fill(r.template, data)
	if err != nil {
		return nil, nil, nil, StageRendering, err
	}

	r.progress.emit(StageCompiling, "")
	compiled := o.deps.Compiler.Compile(ctx, files, r.template.MainFile())
	if err := compiled.Err(); err != nil {
		return nil, nil, nil, StageCompiling, err
	}

	r.progress.emit(StageScoring, "")
	doc, err := o.deps.Extractor.ExtractText(compiled.Document)
	if err != nil {
		return nil, nil, nil, StageScoring, err
	}
	ats, err := o.deps.Generator.Score(ctx, ingestion.CleanText(doc.Text), r.profile, r.req.Role)
	if err == nil && ats == nil {
		err = errNoResult
	}
	if err != nil {
		return nil, nil, nil, StageScoring, err
	}
	ats.Score = types.ClampScore(ats.Score)
	r.progress.emitScore(ats.Score, fmt.Sprintf("ATS score: %d", ats.Score))
	return files, compiled.Document, ats, "", nil
}

// improve runs the bounded improvement loop. Any failure ends the loop and keeps
// the last state that compiled and scored.
func (o *Optimizer) improve(ctx context.Context, r *run) {
	for r.ats.Score < o.opts.Threshold && r.attempt < o.opts.MaxAttempts {
		r.attempt++
		r.progress.attempt = r.attempt
		r.progress.emit(StageIterating, fmt.Sprintf("Score %d < %d. Improving (attempt %d/%d)",
			r.ats.Score, o.opts.Threshold, r.attempt, o.opts.MaxAttempts))

		improved, err := o.deps.Generator.Improve(ctx, r.data, r.ats, r.profile, r.req.Role)
		if err == nil && improved == nil {
			err = errNoResult
		}
		if err != nil {
			log.Printf("[optimize] improvement %d failed, keeping previous result: %v", r.attempt, err)
			return
		}

		files, document, ats, stage, err := o.evaluate(ctx, r, improved)
		if err != nil {
			log.Printf("[optimize] %s failed on attempt %d, keeping previous result: %v", stage, r.attempt, err)
			return
		}
		r.accept(improved, files, document, ats)
	}
}

func (r *run) accept(data *types.ResumeData, files []types.MarkupFile, document []byte, ats *types.ATSResult) {
	r.data = data
	r.files = files
	r.document = document
	r.ats = ats
	r.history = append(r.history, types.ScoreEntry{Attempt: r.attempt, Score: ats.Score})
}

func (o *Optimizer) finalize(ctx context.Context, r *run) (*Result, error) {
	r.progress.emit(StageFinalizing, "")
	saved, err := o.deps.Persister.Persist(ctx, &PersistRequest{
		UserID:           r.req.UserID,
		Company:          r.req.Company,
		Role:             r.req.Role,
		Template:         string(r.template),
		OriginalFilename: r.req.OriginalFilename,
		ResumeData:       r.data,
		Profile:          r.profile,
		Files:            r.files,
		Document:         r.document,
		ATS:              r.ats,
		Attempts:         r.attempt,
		ScoreHistory:     r.history,
	})
	if err != nil {
		var persistErr *PersistenceError
		if !errors.As(err, &persistErr) {
			err = &PersistenceError{Message: "failed to persist optimized resume", Cause: err}
		}
		return nil, stageError(StageFinalizing, err)
	}

	return &Result{
		Success:           true,
		ResumeID:          saved.ResumeID,
		Score:             r.ats.Score,
		Feedback:          r.ats.Feedback,
		Improvements:      r.ats.Improvements,
		Attempts:          r.attempt,
		ScoreHistory:      r.history,
		CompanyResearch:   &ResearchSummary{Name: r.profile.Name, TechStack: r.profile.TechStack},
		DownloadReference: saved.DownloadReference,
		TemplateUsed:      string(r.template),
		ResumeData:        r.data,
		Files:             r.files,
		Document:          r.document,
	}, nil
}

// fail wraps a fatal stage error, preferring the context error when the run was
// cancelled underneath the stage
func (o *Optimizer) fail(ctx context.Context, stage Stage, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return stageError(stage, fmt.Errorf("%w: %v", ctxErr, err))
	}
	return stageError(stage, err)
}
