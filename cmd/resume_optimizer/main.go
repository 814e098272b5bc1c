// Package main provides the entry point for the resume optimizer CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "resume_optimizer",
	Short: "Resume Optimizer CLI and HTTP API server",
	Long: "Resume Optimizer rewrites an uploaded PDF resume for a target company and role, " +
		"renders it into a LaTeX template, compiles it to PDF and scores it for ATS compatibility.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file (environment variables override it)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
