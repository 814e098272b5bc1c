package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/compilation"
	"github.com/jonathan/resume-optimizer/internal/types"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a directory of LaTeX files to PDF",
	Long:  "Compiles the .tex and .cls files of a directory with the configured toolchain (docker or local pdflatex) and writes the PDF.",
	RunE:  runCompileCmd,
}

var (
	compileDir        string
	compileMainFile   string
	compileOutputFile string
	compileShowLogs   bool
)

func init() {
	compileCmd.Flags().StringVarP(&compileDir, "dir", "d", "", "Directory holding the LaTeX sources (required)")
	compileCmd.Flags().StringVarP(&compileMainFile, "main", "m", "resume.tex", "Main .tex file inside --dir")
	compileCmd.Flags().StringVarP(&compileOutputFile, "out", "o", "resume.pdf", "Path to write the PDF")
	compileCmd.Flags().BoolVar(&compileShowLogs, "logs", false, "Print the compiler log on failure")
	_ = compileCmd.MarkFlagRequired("dir")

	rootCmd.AddCommand(compileCmd)
}

func runCompileCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	compiler, err := newCompiler(cfg)
	if err != nil {
		return err
	}
	return runCompile(cmd.Context(), compiler, compileDir, compileMainFile, compileOutputFile, compileShowLogs, cmd.OutOrStdout())
}

// documentCompiler is the part of the compiler the command uses
type documentCompiler interface {
	Compile(ctx context.Context, files []types.MarkupFile, mainFile string) *compilation.Result
}

func runCompile(ctx context.Context, compiler documentCompiler, dir, mainFile, outFile string, showLogs bool, out io.Writer) error {
	files, err := readMarkupFiles(dir)
	if err != nil {
		return err
	}

	result := compiler.Compile(ctx, files, mainFile)
	if !result.Success {
		if showLogs && result.Logs != "" {
			fmt.Fprintln(out, result.Logs)
		}
		return result.Err()
	}

	if err := writeFile(outFile, result.Document); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s (%d bytes)\n", outFile, len(result.Document))
	return nil
}

// readMarkupFiles loads the .tex and .cls files directly inside dir
func readMarkupFiles(dir string) ([]types.MarkupFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []types.MarkupFile
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".tex" && ext != ".cls") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		files = append(files, types.MarkupFile{Filename: e.Name(), Content: string(content)})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .tex or .cls files in %s", dir)
	}
	return files, nil
}
