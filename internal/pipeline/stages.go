// Package pipeline orchestrates one resume optimization run: extraction, research,
// generation, rendering, compilation, scoring and the bounded improvement loop.
package pipeline

// Stage is a state of an optimization run
type Stage string

const (
	StageExtracting  Stage = "extracting"
	StageResearching Stage = "researching"
	StageGenerating  Stage = "generating"
	StageRendering   Stage = "rendering"
	StageCompiling   Stage = "compiling"
	StageScoring     Stage = "scoring"
	StageIterating   Stage = "iterating"
	StageFinalizing  Stage = "finalizing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// StageDefinition describes a stage for progress reporting
type StageDefinition struct {
	Stage Stage
	// Step is the 1-based position among the working stages; 0 for terminal stages
	Step    int
	Message string
}

// StageRegistry holds the working stages in execution order
var StageRegistry = []StageDefinition{
	{Stage: StageExtracting, Step: 1, Message: "Extracting text from PDF"},
	{Stage: StageResearching, Step: 2, Message: "Researching company"},
	{Stage: StageGenerating, Step: 3, Message: "Optimizing resume content"},
	{Stage: StageRendering, Step: 4, Message: "Filling resume template"},
	{Stage: StageCompiling, Step: 5, Message: "Compiling PDF"},
	{Stage: StageScoring, Step: 6, Message: "Scoring resume"},
	{Stage: StageIterating, Step: 7, Message: "Improving resume"},
	{Stage: StageFinalizing, Step: 8, Message: "Saving optimized resume"},
}

// TotalSteps is the number of working stages
var TotalSteps = len(StageRegistry)

// Definition returns the registry entry for s
func (s Stage) Definition() (StageDefinition, bool) {
	for _, def := range StageRegistry {
		if def.Stage == s {
			return def, true
		}
	}
	return StageDefinition{}, false
}

// IsTerminal reports whether the run ends in s
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageFailed
}
