// Package schemas holds the JSON Schemas for the structured artifacts exchanged with
// the LLM: resume data, ATS scores and company research profiles.
package schemas

import "embed"

// Files contains every *.schema.json in this directory
//
//go:embed *.schema.json
var Files embed.FS

// Schema file names
const (
	ResumeData      = "resume_data.schema.json"
	ATSResult       = "ats_result.schema.json"
	ResearchProfile = "research_profile.schema.json"
)

// Load returns the content of a schema file
func Load(name string) (string, error) {
	data, err := Files.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
