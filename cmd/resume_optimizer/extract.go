package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/ingestion"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the text of a PDF resume",
	Long:  "Extracts and cleans the text of a PDF resume, the first stage of the pipeline. With --json the document metadata is printed too.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runExtract(extractResumeFile, extractMinLength, extractJSON, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

var (
	extractResumeFile string
	extractMinLength  int
	extractJSON       bool
)

func init() {
	extractCmd.Flags().StringVarP(&extractResumeFile, "resume", "r", "", "Path to the PDF resume (required)")
	extractCmd.Flags().IntVar(&extractMinLength, "min-length", ingestion.DefaultMinContentLength, "Warn when the cleaned text is shorter than this")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "Print text and metadata as JSON")
	_ = extractCmd.MarkFlagRequired("resume")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(path string, minLength int, asJSON bool, out, warnOut io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}

	doc, err := ingestion.ExtractText(data)
	if err != nil {
		return err
	}
	doc.Text = ingestion.CleanText(doc.Text)
	if err := ingestion.CheckContent(doc.Text, minLength); err != nil {
		fmt.Fprintf(warnOut, "Warning: %v\n", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	_, err = fmt.Fprintln(out, doc.Text)
	return err
}
