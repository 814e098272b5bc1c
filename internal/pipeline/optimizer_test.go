package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/compilation"
	"github.com/jonathan/resume-optimizer/internal/generation"
	"github.com/jonathan/resume-optimizer/internal/ingestion"
	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	uploadPDF  = "%PDF-upload"
	resumeText = "Ada Lovelace\nPrincipal Engineer at Analytical Engines Ltd.\n\n\n\nBuilt compilers and distributed systems; led a team of eight engineers across two continents."
)

// fakeExtractor maps uploaded bytes to text; compiled documents from fakeCompiler
// extract to a fixed text
type fakeExtractor struct {
	texts map[string]string
}

func (f *fakeExtractor) ExtractText(data []byte) (*ingestion.Document, error) {
	if text, ok := f.texts[string(data)]; ok {
		return &ingestion.Document{Text: text, PageCount: 1}, nil
	}
	if strings.HasPrefix(string(data), "compiled-") {
		return &ingestion.Document{Text: "compiled text of " + string(data), PageCount: 1}, nil
	}
	return nil, &ingestion.ExtractionError{Message: "not a PDF document"}
}

type fakeResearcher struct {
	profile *types.ResearchProfile
	err     error
	calls   int
}

func (f *fakeResearcher) Research(ctx context.Context, company, role, details string) (*types.ResearchProfile, error) {
	f.calls++
	return f.profile, f.err
}

type fakeGenerator struct {
	generateErr error
	scores      []int
	scoreErrAt  map[int]error
	improveErr  map[int]error
	// the nil* switches make a call return (nil, nil)
	nilGenerate  bool
	nilScoreAt   map[int]bool
	nilImproveAt map[int]bool

	generateCalls int
	scoreCalls    int
	improveCalls  int
	scoredTexts   []string
	profiles      []*types.ResearchProfile
}

func (f *fakeGenerator) Generate(ctx context.Context, text string, p *types.ResearchProfile, role string) (*types.ResumeData, error) {
	f.generateCalls++
	f.profiles = append(f.profiles, p)
	if f.generateErr != nil || f.nilGenerate {
		return nil, f.generateErr
	}
	return &types.ResumeData{Contact: types.Contact{Name: "Ada Lovelace"}, Summary: "v1"}, nil
}

func (f *fakeGenerator) Score(ctx context.Context, text string, p *types.ResearchProfile, role string) (*types.ATSResult, error) {
	f.scoreCalls++
	f.scoredTexts = append(f.scoredTexts, text)
	f.profiles = append(f.profiles, p)
	if err := f.scoreErrAt[f.scoreCalls]; err != nil {
		return nil, err
	}
	if f.nilScoreAt[f.scoreCalls] {
		return nil, nil
	}
	score := f.scores[len(f.scores)-1]
	if f.scoreCalls <= len(f.scores) {
		score = f.scores[f.scoreCalls-1]
	}
	return &types.ATSResult{
		Score:        score,
		Feedback:     []string{fmt.Sprintf("feedback %d", f.scoreCalls)},
		Improvements: []string{fmt.Sprintf("improvement %d", f.scoreCalls)},
	}, nil
}

func (f *fakeGenerator) Improve(ctx context.Context, d *types.ResumeData, a *types.ATSResult, p *types.ResearchProfile, role string) (*types.ResumeData, error) {
	f.improveCalls++
	f.profiles = append(f.profiles, p)
	if err := f.improveErr[f.improveCalls]; err != nil {
		return nil, err
	}
	if f.nilImproveAt[f.improveCalls] {
		return nil, nil
	}
	next := *d
	next.Summary = fmt.Sprintf("v%d", f.improveCalls+1)
	return &next, nil
}

type fakeCompiler struct {
	failAt map[int]bool
	calls  int
	mains  []string
}

func (f *fakeCompiler) Compile(ctx context.Context, files []types.MarkupFile, main string) *compilation.Result {
	f.calls++
	f.mains = append(f.mains, main)
	if f.failAt[f.calls] {
		return &compilation.Result{Success: false, Error: "Compilation failed (exit code 1): ! Undefined control sequence.", Logs: "full pdflatex log"}
	}
	return &compilation.Result{Success: true, Document: []byte(fmt.Sprintf("compiled-%d", f.calls))}
}

type fakePersister struct {
	err      error
	requests []*PersistRequest
}

func (f *fakePersister) Persist(ctx context.Context, req *PersistRequest) (*PersistResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &PersistResult{ResumeID: "resume-1", DownloadReference: "https://files.example.com/resume-1.pdf"}, nil
}

type harness struct {
	extractor  *fakeExtractor
	researcher *fakeResearcher
	generator  *fakeGenerator
	compiler   *fakeCompiler
	persister  *fakePersister
	events     []ProgressEvent
}

func newHarness(scores ...int) *harness {
	profile := types.EmptyProfile("Acme")
	profile.TechStack = []string{"Go", "Kafka"}
	return &harness{
		extractor:  &fakeExtractor{texts: map[string]string{uploadPDF: resumeText}},
		researcher: &fakeResearcher{profile: profile},
		generator:  &fakeGenerator{scores: scores, scoreErrAt: map[int]error{}, improveErr: map[int]error{}},
		compiler:   &fakeCompiler{failAt: map[int]bool{}},
		persister:  &fakePersister{},
	}
}

func (h *harness) run(t *testing.T, opts Options, mutate ...func(*Request)) *Result {
	t.Helper()
	o, err := New(Deps{
		Extractor:  h.extractor,
		Researcher: h.researcher,
		Generator:  h.generator,
		Compiler:   h.compiler,
		Persister:  h.persister,
	}, opts)
	require.NoError(t, err)

	req := &Request{
		Document:         []byte(uploadPDF),
		OriginalFilename: "ada.pdf",
		Company:          "Acme",
		Role:             "Backend Engineer",
		OnProgress:       func(e ProgressEvent) { h.events = append(h.events, e) },
	}
	for _, m := range mutate {
		m(req)
	}
	return o.Run(context.Background(), req)
}

func (h *harness) stages() []Stage {
	out := make([]Stage, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Stage)
	}
	return out
}

func TestRun_HappyPath(t *testing.T) {
	h := newHarness(85)
	res := h.run(t, Options{})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "resume-1", res.ResumeID)
	assert.Equal(t, 85, res.Score)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, []types.ScoreEntry{{Attempt: 1, Score: 85}}, res.ScoreHistory)
	assert.Equal(t, "professional", res.TemplateUsed)
	assert.Equal(t, "https://files.example.com/resume-1.pdf", res.DownloadReference)
	assert.Equal(t, &ResearchSummary{Name: "Acme", TechStack: []string{"Go", "Kafka"}}, res.CompanyResearch)
	assert.Equal(t, []byte("compiled-1"), res.Document)
	assert.Empty(t, res.Error)

	assert.Equal(t, 0, h.generator.improveCalls)
	assert.Equal(t, []string{"resume.tex"}, h.compiler.mains)
	assert.Equal(t, []string{"compiled text of compiled-1"}, h.generator.scoredTexts)

	require.Len(t, h.persister.requests, 1)
	saved := h.persister.requests[0]
	assert.Equal(t, "ada.pdf", saved.OriginalFilename)
	assert.Equal(t, 1, saved.Attempts)
	assert.Contains(t, types.FilesToMap(saved.Files), "resume.tex")

	assert.Equal(t, []Stage{
		StageExtracting, StageResearching, StageGenerating, StageRendering,
		StageCompiling, StageScoring, StageScoring, StageFinalizing, StageDone,
	}, h.stages())
}

func TestRun_CleansTextBeforeGenerating(t *testing.T) {
	h := newHarness(90)
	var generatedFrom string
	gen := &recordingGenerator{fakeGenerator: h.generator, text: &generatedFrom}

	o, err := New(Deps{Extractor: h.extractor, Generator: gen, Compiler: h.compiler, Persister: h.persister}, Options{})
	require.NoError(t, err)
	res := o.Run(context.Background(), &Request{Document: []byte(uploadPDF), Company: "Acme", Role: "SRE"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, ingestion.CleanText(resumeText), generatedFrom)
	assert.NotContains(t, generatedFrom, "\n\n\n")
}

type recordingGenerator struct {
	*fakeGenerator
	text *string
}

func (r *recordingGenerator) Generate(ctx context.Context, text string, p *types.ResearchProfile, role string) (*types.ResumeData, error) {
	*r.text = text
	return r.fakeGenerator.Generate(ctx, text, p, role)
}

func TestRun_RetryBound(t *testing.T) {
	h := newHarness(40, 50, 60)
	res := h.run(t, Options{})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, h.generator.scoreCalls, "threshold never reached: exactly maxAttempts scoring passes")
	assert.Equal(t, 2, h.generator.improveCalls)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []types.ScoreEntry{{Attempt: 1, Score: 40}, {Attempt: 2, Score: 50}, {Attempt: 3, Score: 60}}, res.ScoreHistory)
	assert.Equal(t, 60, res.Score)
	assert.Equal(t, []string{"feedback 3"}, res.Feedback)
	assert.Equal(t, []byte("compiled-3"), res.Document)
	assert.Equal(t, "v3", h.persister.requests[0].ResumeData.Summary)
}

func TestRun_StopsWhenThresholdReached(t *testing.T) {
	h := newHarness(40, 75, 99)
	res := h.run(t, Options{})

	require.True(t, res.Success)
	assert.Equal(t, 2, h.generator.scoreCalls)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 75, res.Score)
}

func TestRun_ReportsLastScoreNotBest(t *testing.T) {
	h := newHarness(60, 55, 50)
	res := h.run(t, Options{})

	require.True(t, res.Success)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, []byte("compiled-3"), res.Document)
}

func TestRun_CustomPolicy(t *testing.T) {
	h := newHarness(85, 90)
	res := h.run(t, Options{Threshold: 95, MaxAttempts: 2})

	require.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 90, res.Score)
}

func TestRun_RecompileFailureStopsEarly(t *testing.T) {
	h := newHarness(50)
	h.compiler.failAt[2] = true
	res := h.run(t, Options{})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Attempts, "attempts reports the incremented counter")
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, []types.ScoreEntry{{Attempt: 1, Score: 50}}, res.ScoreHistory)
	assert.Equal(t, 1, h.generator.scoreCalls)
	assert.Equal(t, 2, h.compiler.calls)

	saved := h.persister.requests[0]
	assert.Equal(t, []byte("compiled-1"), saved.Document, "last good document is persisted")
	assert.Equal(t, "v1", saved.ResumeData.Summary)
	assert.Equal(t, 2, saved.Attempts)
}

func TestRun_ImproveFailureKeepsLastGood(t *testing.T) {
	h := newHarness(50)
	h.generator.improveErr[1] = &generation.ParseError{Operation: "improve", Message: "no JSON"}
	res := h.run(t, Options{})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, 1, h.compiler.calls)
}

func TestRun_RescoreFailureKeepsLastGood(t *testing.T) {
	h := newHarness(50, 80)
	h.generator.scoreErrAt[2] = &generation.LLMError{Operation: "score", Cause: errors.New("503")}
	res := h.run(t, Options{})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 50, res.Score)
	assert.Equal(t, []types.ScoreEntry{{Attempt: 1, Score: 50}}, res.ScoreHistory)
	assert.Equal(t, []byte("compiled-1"), res.Document)
}

func TestRun_FirstGenerationParseFailureIsFatal(t *testing.T) {
	h := newHarness(90)
	h.generator.generateErr = &generation.ParseError{Operation: "generate", Message: "no JSON object in reply", Reply: "Sorry!"}
	res := h.run(t, Options{})

	require.False(t, res.Success)
	assert.Equal(t, 0, h.compiler.calls, "no compilation is attempted")
	assert.Empty(t, h.persister.requests)
	assert.Equal(t, msgParse, res.Error)

	var parseErr *generation.ParseError
	require.ErrorAs(t, res.Err, &parseErr)
	var stageErr *StageError
	require.ErrorAs(t, res.Err, &stageErr)
	assert.Equal(t, StageGenerating, stageErr.Stage)
	assert.Equal(t, StageFailed, h.events[len(h.events)-1].Stage)
}

func TestRun_NilGeneratorResults(t *testing.T) {
	t.Run("generate", func(t *testing.T) {
		h := newHarness(90)
		h.generator.nilGenerate = true
		var res *Result
		require.NotPanics(t, func() { res = h.run(t, Options{}) })

		require.False(t, res.Success)
		var stageErr *StageError
		require.ErrorAs(t, res.Err, &stageErr)
		assert.Equal(t, StageGenerating, stageErr.Stage)
		assert.ErrorIs(t, res.Err, errNoResult)
		assert.Equal(t, 0, h.compiler.calls)
	})

	t.Run("first score", func(t *testing.T) {
		h := newHarness(90)
		h.generator.nilScoreAt = map[int]bool{1: true}
		var res *Result
		require.NotPanics(t, func() { res = h.run(t, Options{}) })

		require.False(t, res.Success)
		var stageErr *StageError
		require.ErrorAs(t, res.Err, &stageErr)
		assert.Equal(t, StageScoring, stageErr.Stage)
		assert.Empty(t, h.persister.requests)
	})

	t.Run("rescore keeps last good", func(t *testing.T) {
		h := newHarness(50, 80)
		h.generator.nilScoreAt = map[int]bool{2: true}
		var res *Result
		require.NotPanics(t, func() { res = h.run(t, Options{}) })

		require.True(t, res.Success, res.Error)
		assert.Equal(t, 50, res.Score)
		assert.Equal(t, []byte("compiled-1"), res.Document)
	})

	t.Run("improve keeps last good", func(t *testing.T) {
		h := newHarness(50)
		h.generator.nilImproveAt = map[int]bool{1: true}
		var res *Result
		require.NotPanics(t, func() { res = h.run(t, Options{}) })

		require.True(t, res.Success, res.Error)
		assert.Equal(t, 50, res.Score)
		assert.Equal(t, 1, h.compiler.calls)
	})
}

func TestRun_FirstCompileFailureIsFatal(t *testing.T) {
	h := newHarness(90)
	h.compiler.failAt[1] = true
	res := h.run(t, Options{})

	require.False(t, res.Success)
	assert.Equal(t, msgCompile, res.Error)
	assert.NotContains(t, res.Error, "pdflatex log")
	assert.Equal(t, 0, h.generator.scoreCalls)

	var compileErr *compilation.CompilationError
	require.ErrorAs(t, res.Err, &compileErr)
	assert.Equal(t, "full pdflatex log", compileErr.LogOutput)
}

func TestRun_FirstScoreFailureIsFatal(t *testing.T) {
	h := newHarness(90)
	h.generator.scoreErrAt[1] = errors.New("model overloaded")
	res := h.run(t, Options{})

	require.False(t, res.Success)
	var stageErr *StageError
	require.ErrorAs(t, res.Err, &stageErr)
	assert.Equal(t, StageScoring, stageErr.Stage)
	assert.Empty(t, h.persister.requests)
}

func TestRun_CorruptUpload(t *testing.T) {
	h := newHarness(90)
	blob := []byte(strings.Repeat("x", 50))
	o, err := New(Deps{Extractor: ingestion.PDFExtractor{}, Generator: h.generator, Compiler: h.compiler, Persister: h.persister}, Options{})
	require.NoError(t, err)

	res := o.Run(context.Background(), &Request{Document: blob, Company: "Acme", Role: "SRE"})
	require.False(t, res.Success)
	assert.Equal(t, msgExtraction, res.Error)
	var extractionErr *ingestion.ExtractionError
	assert.ErrorAs(t, res.Err, &extractionErr)
	assert.Equal(t, 0, h.generator.generateCalls)
}

func TestRun_InsufficientText(t *testing.T) {
	h := newHarness(90)
	h.extractor.texts[uploadPDF] = "  Ada\n\n\n\nEngineer  "
	res := h.run(t, Options{})

	require.False(t, res.Success)
	assert.Equal(t, msgInsufficient, res.Error)
	var contentErr *ingestion.InsufficientContentError
	require.ErrorAs(t, res.Err, &contentErr)
	assert.Equal(t, ingestion.DefaultMinContentLength, contentErr.Minimum)
}

func TestRun_ResearchFailureDegrades(t *testing.T) {
	h := newHarness(90)
	h.researcher.err = errors.New("search quota exceeded")
	h.researcher.profile = nil
	res := h.run(t, Options{})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, h.researcher.calls)
	assert.Equal(t, types.EmptyProfile("Acme"), h.generator.profiles[0])
	assert.Equal(t, "Acme", res.CompanyResearch.Name)
}

func TestRun_ResearchRunsOnceAndIsShared(t *testing.T) {
	h := newHarness(10)
	res := h.run(t, Options{})

	require.True(t, res.Success)
	assert.Equal(t, 1, h.researcher.calls)
	for _, p := range h.generator.profiles {
		assert.Same(t, h.researcher.profile, p)
	}
}

func TestRun_PersistenceFailureIsFatal(t *testing.T) {
	h := newHarness(90)
	h.persister.err = errors.New("bucket unavailable")
	res := h.run(t, Options{})

	require.False(t, res.Success)
	assert.Equal(t, msgPersist, res.Error)
	var persistErr *PersistenceError
	assert.ErrorAs(t, res.Err, &persistErr)
}

func TestRun_ModernTemplate(t *testing.T) {
	h := newHarness(90)
	res := h.run(t, Options{}, func(r *Request) { r.Template = "Modern" })

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "modern", res.TemplateUsed)
	assert.Equal(t, []string{"mmayer.tex"}, h.compiler.mains)
	assert.Len(t, res.Files, 3)
}

func TestRun_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"missing company", func(r *Request) { r.Company = "  " }},
		{"missing role", func(r *Request) { r.Role = "" }},
		{"missing document", func(r *Request) { r.Document = nil }},
		{"empty document", func(r *Request) { r.Document = []byte{} }},
		{"bad user id", func(r *Request) { r.UserID = "not-a-uuid" }},
		{"unknown template", func(r *Request) { r.Template = "fancy" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(90)
			res := h.run(t, Options{}, tt.mutate)
			require.False(t, res.Success)
			var inputErr *InputError
			require.ErrorAs(t, res.Err, &inputErr)
			assert.Equal(t, 0, h.generator.generateCalls)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(90)
	o, err := New(Deps{Extractor: h.extractor, Generator: &cancellingGenerator{h.generator}, Compiler: h.compiler, Persister: h.persister}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	res := o.Run(context.WithValue(ctx, cancelKey{}, cancel), &Request{Document: []byte(uploadPDF), Company: "Acme", Role: "SRE"})

	require.False(t, res.Success)
	assert.Equal(t, msgCancelled, res.Error)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

type cancelKey struct{}

// cancellingGenerator cancels the run's context from inside Generate
type cancellingGenerator struct{ *fakeGenerator }

func (c *cancellingGenerator) Generate(ctx context.Context, text string, p *types.ResearchProfile, role string) (*types.ResumeData, error) {
	ctx.Value(cancelKey{}).(context.CancelFunc)()
	return nil, &generation.LLMError{Operation: "generate", Cause: ctx.Err()}
}

func TestRun_ProgressEvents(t *testing.T) {
	h := newHarness(40, 80)
	res := h.run(t, Options{})
	require.True(t, res.Success)

	var iterating, scored []ProgressEvent
	for _, e := range h.events {
		assert.Equal(t, TotalSteps, e.TotalSteps)
		if e.Stage == StageIterating {
			iterating = append(iterating, e)
		}
		if e.Score != nil {
			scored = append(scored, e)
		}
	}
	require.Len(t, iterating, 1)
	assert.Equal(t, 2, iterating[0].Attempt)
	assert.Equal(t, 7, iterating[0].Step)
	assert.Contains(t, iterating[0].Message, "Score 40 < 70")

	require.Len(t, scored, 2)
	assert.Equal(t, 40, *scored[0].Score)
	assert.Equal(t, 80, *scored[1].Score)
	assert.Equal(t, StageDone, h.events[len(h.events)-1].Stage)
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{}, Options{})
	assert.Error(t, err)
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, 70, opts.Threshold)
	assert.Equal(t, 3, opts.MaxAttempts)
	assert.Equal(t, ingestion.DefaultMinContentLength, opts.MinContentLength)
	assert.Equal(t, "professional", string(opts.DefaultTemplate))
}

func TestResult_MarshalJSON(t *testing.T) {
	failed, err := json.Marshal(&Result{Success: false, Error: msgPersist, Err: errors.New("bucket unavailable")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": false, "error": "`+msgPersist+`"}`, string(failed))

	ok, err := json.Marshal(Result{Success: true, Score: 0, Attempts: 1, TemplateUsed: "professional"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": true, "score": 0, "attempts": 1, "template": "professional"}`, string(ok))
}
