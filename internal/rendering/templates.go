package rendering

import (
	"fmt"
	"strings"
)

// TemplateID identifies one of the built-in resume layouts
type TemplateID string

const (
	// TemplateProfessional is a single-file, single-column layout
	TemplateProfessional TemplateID = "professional"
	// TemplateModern is the AltaCV two-column layout with an education/projects sidebar
	TemplateModern TemplateID = "modern"
)

// DefaultTemplate is used when a request names no template
const DefaultTemplate = TemplateProfessional

// TemplateInfo describes a template's output files
type TemplateInfo struct {
	ID          TemplateID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Files       []string   `json:"files"`
	MainFile    string     `json:"main_file"`
}

var registry = []TemplateInfo{
	{
		ID:          TemplateProfessional,
		Name:        "Professional",
		Description: "Single-column layout optimized for ATS parsing",
		Files:       []string{"resume.tex"},
		MainFile:    "resume.tex",
	},
	{
		ID:          TemplateModern,
		Name:        "Modern",
		Description: "Two-column AltaCV layout with an education and projects sidebar",
		Files:       []string{"altacv.cls", "page1sidebar.tex", "mmayer.tex"},
		MainFile:    "mmayer.tex",
	},
}

// Templates lists the available templates
func Templates() []TemplateInfo {
	out := make([]TemplateInfo, len(registry))
	copy(out, registry)
	return out
}

// Lookup returns the template info for id
func Lookup(id TemplateID) (TemplateInfo, bool) {
	for _, info := range registry {
		if info.ID == id {
			return info, true
		}
	}
	return TemplateInfo{}, false
}

// ParseTemplateID validates a template name. The empty string maps to DefaultTemplate.
func ParseTemplateID(s string) (TemplateID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTemplate, nil
	}
	id := TemplateID(s)
	if _, ok := Lookup(id); !ok {
		return "", &TemplateError{Message: fmt.Sprintf("unknown template %q", s)}
	}
	return id, nil
}

// MainFile returns the file the compiler must build for id
func (id TemplateID) MainFile() string {
	info, _ := Lookup(id)
	return info.MainFile
}
