package types

// MarkupFile is one LaTeX source file handed to the compiler
type MarkupFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// FilesToMap converts files to the filename->content map that is persisted with a resume
func FilesToMap(files []MarkupFile) map[string]string {
	m := make(map[string]string, len(files))
	for _, f := range files {
		m[f.Filename] = f.Content
	}
	return m
}
