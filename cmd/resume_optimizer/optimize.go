package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/observability"
	"github.com/jonathan/resume-optimizer/internal/pipeline"
	"github.com/jonathan/resume-optimizer/internal/types"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a PDF resume for a company and role",
	Long: `Run the full pipeline on a local PDF: extract its text, research the company,
generate and score the tailored resume, improve it until it reaches the ATS threshold
and write the compiled PDF.`,
	RunE: runOptimizeCmd,
}

// optimizeOptions are the optimize command's flags
type optimizeOptions struct {
	ResumeFile string
	Company    string
	Role       string
	Template   string
	Details    string
	OutputFile string
	TexDir     string
	UserID     string
	JSON       bool
	Verbose    bool
}

var optimizeOpts optimizeOptions

func init() {
	f := optimizeCmd.Flags()
	f.StringVarP(&optimizeOpts.ResumeFile, "resume", "r", "", "Path to the PDF resume (required)")
	f.StringVarP(&optimizeOpts.Company, "company", "c", "", "Target company name (required)")
	f.StringVar(&optimizeOpts.Role, "role", "", "Target role (required)")
	f.StringVarP(&optimizeOpts.Template, "template", "t", "", "Template id (professional or modern)")
	f.StringVar(&optimizeOpts.Details, "details", "", "Extra details about the company or role")
	f.StringVarP(&optimizeOpts.OutputFile, "out", "o", "optimized_resume.pdf", "Path to write the compiled PDF")
	f.StringVar(&optimizeOpts.TexDir, "tex-dir", "", "Directory to write the final LaTeX sources (optional)")
	f.StringVarP(&optimizeOpts.UserID, "user-id", "u", "", "User ID to record the resume under (optional)")
	f.BoolVar(&optimizeOpts.JSON, "json", false, "Print the result as JSON")
	f.BoolVarP(&optimizeOpts.Verbose, "verbose", "v", false, "Print the research, tailored resume and score history")

	_ = optimizeCmd.MarkFlagRequired("resume")
	_ = optimizeCmd.MarkFlagRequired("company")
	_ = optimizeCmd.MarkFlagRequired("role")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimizeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	return runOptimize(cmd.Context(), a.optimizer, optimizeOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runner is the part of the optimizer the command uses
type runner interface {
	Run(ctx context.Context, req *pipeline.Request) *pipeline.Result
}

// runOptimize runs one optimization, reporting progress to progressOut and the
// result to out
func runOptimize(ctx context.Context, opt runner, opts optimizeOptions, out, progressOut io.Writer) error {
	if opts.UserID != "" {
		if _, err := uuid.Parse(opts.UserID); err != nil {
			return fmt.Errorf("invalid user-id: %w", err)
		}
	}
	if !strings.EqualFold(filepath.Ext(opts.ResumeFile), ".pdf") {
		return fmt.Errorf("resume must be a .pdf file: %s", opts.ResumeFile)
	}
	data, err := os.ReadFile(opts.ResumeFile)
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}

	progress := observability.NewPrinter(progressOut)
	result := opt.Run(ctx, &pipeline.Request{
		UserID:           opts.UserID,
		Document:         data,
		OriginalFilename: filepath.Base(opts.ResumeFile),
		Company:          strings.TrimSpace(opts.Company),
		Role:             strings.TrimSpace(opts.Role),
		CompanyDetails:   strings.TrimSpace(opts.Details),
		Template:         opts.Template,
		OnProgress:       progress.PrintProgress,
	})
	if !result.Success {
		if result.Err != nil {
			return fmt.Errorf("%s: %w", result.Error, result.Err)
		}
		return fmt.Errorf("%s", result.Error)
	}

	if err := writeFile(opts.OutputFile, result.Document); err != nil {
		return err
	}
	if opts.TexDir != "" {
		if err := writeMarkupFiles(opts.TexDir, result.Files); err != nil {
			return err
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if opts.Verbose {
		printer := observability.NewPrinter(out)
		printer.PrintResearch(result.CompanyResearch)
		printer.PrintResumeData(result.ResumeData)
		printer.PrintScores(result)
	}
	fmt.Fprintf(out, "ATS score: %d/100 after %d attempt(s)\n", result.Score, result.Attempts)
	for _, entry := range result.ScoreHistory {
		fmt.Fprintf(out, "  attempt %d: %d\n", entry.Attempt, entry.Score)
	}
	for _, item := range result.Improvements {
		fmt.Fprintf(out, "  + %s\n", item)
	}
	fmt.Fprintf(out, "Wrote %s\n", opts.OutputFile)
	if result.DownloadReference != "" {
		fmt.Fprintf(out, "Stored as %s\n", result.DownloadReference)
	}
	return nil
}

// writeFile writes data to path, creating its directory
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// writeMarkupFiles writes each file into dir
func writeMarkupFiles(dir string, files []types.MarkupFile) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, filepath.Base(f.Filename)), []byte(f.Content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Filename, err)
		}
	}
	return nil
}
