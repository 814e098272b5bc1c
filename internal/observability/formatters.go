// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/pipeline"
	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// writeList writes up to limit items as bullets, noting how many were left out
func writeList(sb *strings.Builder, heading string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(heading + ":\n")
	for _, item := range items[:min(len(items), limit)] {
		fmt.Fprintf(sb, "  • %s\n", item)
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
}

// PrintProgress writes one progress event as a single line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	switch {
	case event.Step > 0 && event.Score != nil:
		fmt.Fprintf(p.out, "Step %d/%d: %s (score %d)\n", event.Step, event.TotalSteps, event.Message, *event.Score)
	case event.Step > 0:
		fmt.Fprintf(p.out, "Step %d/%d: %s\n", event.Step, event.TotalSteps, event.Message)
	default:
		fmt.Fprintf(p.out, "%s\n", event.Message)
	}
}

// PrintResearch outputs the company research used for tailoring.
func (p *Printer) PrintResearch(research *pipeline.ResearchSummary) {
	if research == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Company:  %s\n", research.Name)
	if len(research.TechStack) > 0 {
		sb.WriteString("\n")
		writeList(&sb, "Tech Stack", research.TechStack, maxItemsToShow)
	}

	p.printBox("COMPANY RESEARCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResumeData outputs a summary of the tailored resume content.
func (p *Printer) PrintResumeData(data *types.ResumeData) {
	if data == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name:     %s\n", data.Contact.Name)
	if data.Summary != "" {
		fmt.Fprintf(&sb, "Summary:  %s\n", data.Summary)
	}
	sb.WriteString("\n")

	if len(data.Experience) > 0 {
		sb.WriteString("Experience:\n")
		count := min(len(data.Experience), maxItemsToShow)
		for _, exp := range data.Experience[:count] {
			fmt.Fprintf(&sb, "  • %s, %s (%d bullets)\n", exp.Position, exp.Company, len(exp.Achievements))
		}
		if len(data.Experience) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(data.Experience)-maxItemsToShow)
		}
		sb.WriteString("\n")
	}

	writeList(&sb, "Technical Skills", data.Skills.Technical, maxItemsToShow)

	p.printBox("TAILORED RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScores outputs the ATS score history with the scorer's feedback.
func (p *Printer) PrintScores(result *pipeline.Result) {
	if result == nil || len(result.ScoreHistory) == 0 {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Final score: %d/100\n\n", result.Score)
	for _, entry := range result.ScoreHistory {
		bar := strings.Repeat("█", entry.Score/5)
		fmt.Fprintf(&sb, "Attempt %d  %3d %s\n", entry.Attempt, entry.Score, bar)
	}
	if len(result.Feedback) > 0 || len(result.Improvements) > 0 {
		sb.WriteString("\n")
	}
	writeList(&sb, "Feedback", result.Feedback, 3)
	writeList(&sb, "Improvements", result.Improvements, 3)

	p.printBox("ATS SCORES", strings.TrimSuffix(sb.String(), "\n"))
}
