package generation

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// jsonCandidate picks the part of a reply to decode: the first balanced object,
// or the whole trimmed reply when there is none.
func jsonCandidate(reply string) string {
	if obj := llm.FirstJSONObject(reply); obj != "" {
		return obj
	}
	return strings.TrimSpace(reply)
}

// DecodeResumeData parses a generate or improve reply. The JSON must match the
// resume data schema and carry every required field.
func DecodeResumeData(operation, reply string) (*types.ResumeData, error) {
	candidate := jsonCandidate(reply)
	if candidate == "" {
		return nil, &ParseError{Operation: operation, Message: "empty reply", Reply: reply}
	}

	if err := schemas.ValidateResumeData(candidate); err != nil {
		return nil, &ParseError{Operation: operation, Message: "reply does not match the resume data schema", Reply: reply, Cause: err}
	}

	var data types.ResumeData
	if err := json.Unmarshal([]byte(candidate), &data); err != nil {
		return nil, &ParseError{Operation: operation, Message: "invalid resume JSON", Reply: reply, Cause: err}
	}
	if err := data.Validate(); err != nil {
		return nil, &ParseError{Operation: operation, Message: "resume data is missing required fields", Reply: reply, Cause: err}
	}
	return &data, nil
}

// DecodeATSResult parses a score reply. Fractional scores are rounded and the
// result is clamped to 0..100.
func DecodeATSResult(reply string) (*types.ATSResult, error) {
	candidate := jsonCandidate(reply)
	if candidate == "" {
		return nil, &ParseError{Operation: "score", Message: "empty reply", Reply: reply}
	}

	if err := schemas.ValidateATSResult(candidate); err != nil {
		return nil, &ParseError{Operation: "score", Message: "reply does not match the ATS result schema", Reply: reply, Cause: err}
	}

	parsed := gjson.Parse(candidate)
	return &types.ATSResult{
		Score:        types.ClampScore(int(math.Round(parsed.Get("score").Float()))),
		Feedback:     stringList(parsed.Get("feedback")),
		Improvements: stringList(parsed.Get("improvements")),
	}, nil
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
