package pipeline

// ProgressEvent reports a stage transition
type ProgressEvent struct {
	Stage      Stage  `json:"stage"`
	Step       int    `json:"step,omitempty"`
	TotalSteps int    `json:"totalSteps"`
	Message    string `json:"message"`
	Attempt    int    `json:"attempt,omitempty"`
	// Score is set on the event that follows a successful scoring pass
	Score *int `json:"score,omitempty"`
}

// ProgressCallback is called for every stage transition of a run. It runs on the
// run's goroutine and must not block for long.
type ProgressCallback func(event ProgressEvent)

type progress struct {
	callback ProgressCallback
	attempt  int
}

func (p *progress) emit(stage Stage, message string) {
	p.emitEvent(ProgressEvent{Stage: stage, Message: message})
}

func (p *progress) emitScore(score int, message string) {
	p.emitEvent(ProgressEvent{Stage: StageScoring, Message: message, Score: &score})
}

func (p *progress) emitEvent(event ProgressEvent) {
	if p.callback == nil {
		return
	}
	if def, ok := event.Stage.Definition(); ok {
		event.Step = def.Step
		if event.Message == "" {
			event.Message = def.Message
		}
	}
	event.TotalSteps = TotalSteps
	event.Attempt = p.attempt
	p.callback(event)
}
