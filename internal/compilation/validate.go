package compilation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/types"
)

// allowedExtensions are the source file types accepted by the compiler
var allowedExtensions = []string{".tex", ".cls"}

// Validate checks compiler input before any process is started. It returns nil
// when the input is valid, otherwise a failed Result describing the problem.
func Validate(files []types.MarkupFile, mainFile string) *Result {
	if len(files) == 0 {
		return failure("No files provided", "")
	}

	found := false
	for _, f := range files {
		if f.Filename == mainFile {
			found = true
			break
		}
	}
	if !found {
		return failure(fmt.Sprintf("Main file '%s' not found in provided files", mainFile), "")
	}

	for _, f := range files {
		if !hasAllowedExtension(f.Filename) {
			return failure("All files must have .tex or .cls extension", "")
		}
	}

	for _, f := range files {
		if f.Filename != filepath.Base(f.Filename) || strings.HasPrefix(f.Filename, ".") {
			return failure(fmt.Sprintf("Invalid file name: %s", f.Filename), "")
		}
	}

	var empty []string
	for _, f := range files {
		if strings.TrimSpace(f.Content) == "" {
			empty = append(empty, f.Filename)
		}
	}
	if len(empty) > 0 {
		return failure(fmt.Sprintf("Empty content in files: %s", strings.Join(empty, ", ")), "")
	}

	return nil
}

func hasAllowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
