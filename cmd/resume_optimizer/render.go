package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/schemas"
	"github.com/jonathan/resume-optimizer/internal/types"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render resume data into a LaTeX template",
	Long:  "Validates a ResumeData JSON file against its schema and fills the chosen template, writing the LaTeX sources to a directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runRender(renderDataFile, renderTemplate, renderOutputDir, cmd.OutOrStdout())
	},
}

var (
	renderDataFile  string
	renderTemplate  string
	renderOutputDir string
)

func init() {
	renderCmd.Flags().StringVarP(&renderDataFile, "data", "d", "", "Path to ResumeData JSON file (required)")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", string(rendering.DefaultTemplate), "Template id (professional or modern)")
	renderCmd.Flags().StringVarP(&renderOutputDir, "out-dir", "o", "", "Directory to write the LaTeX files (required)")
	_ = renderCmd.MarkFlagRequired("data")
	_ = renderCmd.MarkFlagRequired("out-dir")

	rootCmd.AddCommand(renderCmd)
}

func runRender(dataFile, template, outDir string, out io.Writer) error {
	id, err := rendering.ParseTemplateID(template)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(dataFile)
	if err != nil {
		return fmt.Errorf("failed to read resume data: %w", err)
	}
	if err := schemas.ValidateResumeData(string(content)); err != nil {
		return fmt.Errorf("invalid resume data: %w", err)
	}
	var data types.ResumeData
	if err := json.Unmarshal(content, &data); err != nil {
		return fmt.Errorf("failed to unmarshal resume data: %w", err)
	}

	files, err := rendering.Fill(id, &data)
	if err != nil {
		return err
	}
	if err := writeMarkupFiles(outDir, files); err != nil {
		return err
	}

	for _, f := range files {
		fmt.Fprintf(out, "Wrote %s\n", filepath.Join(outDir, f.Filename))
	}
	fmt.Fprintf(out, "Main file: %s\n", id.MainFile())
	return nil
}
