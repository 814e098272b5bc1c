package rendering

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/jonathan/resume-optimizer/internal/types"
)

//go:embed templates
var templateFS embed.FS

// taglineLength caps the modern layout's tagline, taken from the start of the summary
const taglineLength = 50

var (
	parsed   = map[string]*template.Template{}
	parsedMu sync.Mutex
)

// templateView is the data handed to every template
type templateView struct {
	*types.ResumeData
	// SidebarAnchor names the first main-column section in the modern layout; the
	// sidebar is attached to it. "none" when the main column is empty.
	SidebarAnchor string
}

// Fill renders data into the files of template id. Every returned file has
// non-whitespace content, and the main file is always among them.
func Fill(id TemplateID, data *types.ResumeData) ([]types.MarkupFile, error) {
	if data == nil {
		return nil, &RenderError{Message: "resume data is nil"}
	}
	info, ok := Lookup(id)
	if !ok {
		return nil, &TemplateError{Message: fmt.Sprintf("unknown template %q", id)}
	}

	view := &templateView{ResumeData: data, SidebarAnchor: sidebarAnchor(data)}

	files := make([]types.MarkupFile, 0, len(info.Files))
	for _, name := range info.Files {
		content, err := renderFile(id, name, view)
		if err != nil {
			return nil, err
		}
		files = append(files, types.MarkupFile{Filename: name, Content: content})
	}
	return files, nil
}

func renderFile(id TemplateID, name string, view *templateView) (string, error) {
	path := fmt.Sprintf("templates/%s/%s", id, name)

	// Static files (the class file) are shipped verbatim.
	if raw, err := templateFS.ReadFile(path); err == nil {
		return string(raw), nil
	}

	tmpl, err := loadTemplate(path + ".tmpl")
	if err != nil {
		return "", err
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, view); err != nil {
		return "", &TemplateError{
			Message: fmt.Sprintf("failed to execute template %s", path),
			Cause:   err,
		}
	}
	return out.String(), nil
}

// loadTemplate parses an embedded template once and caches it
func loadTemplate(path string) (*template.Template, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()

	if tmpl, ok := parsed[path]; ok {
		return tmpl, nil
	}

	content, err := templateFS.ReadFile(path)
	if err != nil {
		return nil, &TemplateError{
			Message: fmt.Sprintf("template file not found: %s", path),
			Cause:   err,
		}
	}

	// LaTeX is brace-heavy, so actions use << >> instead of {{ }}.
	tmpl, err := template.New(path).Delims("<<", ">>").Funcs(funcMap).Parse(string(content))
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse template",
			Cause:   err,
		}
	}
	parsed[path] = tmpl
	return tmpl, nil
}

var funcMap = template.FuncMap{
	"escape":       EscapeLaTeX,
	"url":          EscapeURL,
	"join":         joinEscaped,
	"degree":       degreeLine,
	"bold":         boldOrEmpty,
	"tagline":      tagline,
	"projectItems": projectItems,
}

func joinEscaped(items []string) string {
	escaped := make([]string, 0, len(items))
	for _, item := range items {
		if e := EscapeLaTeX(item); e != "" {
			escaped = append(escaped, e)
		}
	}
	return strings.Join(escaped, ", ")
}

// degreeLine renders "Degree in Field", tolerating either part missing
func degreeLine(e types.Education) string {
	degree, field := EscapeLaTeX(e.Degree), EscapeLaTeX(e.Field)
	switch {
	case degree != "" && field != "":
		return degree + " in " + field
	case degree != "":
		return degree
	default:
		return field
	}
}

func boldOrEmpty(s string) string {
	if e := EscapeLaTeX(s); e != "" {
		return `\textbf{` + e + `}`
	}
	return ""
}

func tagline(summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "Professional"
	}
	r := []rune(summary)
	if len(r) > taglineLength {
		r = r[:taglineLength]
	}
	return string(r)
}

// projectItems returns the bullet lines for a project: its achievements, or its
// description when it has none.
func projectItems(p types.Project) []string {
	if len(p.Achievements) > 0 {
		return p.Achievements
	}
	if strings.TrimSpace(p.Description) != "" {
		return []string{p.Description}
	}
	return nil
}

func sidebarAnchor(data *types.ResumeData) string {
	switch {
	case len(data.Experience) > 0:
		return "experience"
	case EscapeLaTeX(data.Summary) != "":
		return "summary"
	case data.Skills.HasSkills():
		return "skills"
	default:
		return "none"
	}
}
