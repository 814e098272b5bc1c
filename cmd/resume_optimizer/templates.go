package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/rendering"
)

var templatesJSON bool

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the available resume templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listTemplates(cmd.OutOrStdout(), templatesJSON)
	},
}

func init() {
	templatesCmd.Flags().BoolVar(&templatesJSON, "json", false, "Print templates as JSON")
	rootCmd.AddCommand(templatesCmd)
}

func listTemplates(out io.Writer, asJSON bool) error {
	templates := rendering.Templates()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(templates)
	}
	for _, t := range templates {
		marker := " "
		if t.ID == rendering.DefaultTemplate {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-13s %s (%s)\n", marker, t.ID, t.Description, strings.Join(t.Files, ", "))
	}
	return nil
}
