package compilation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonathan/resume-optimizer/internal/types"
)

const (
	// DefaultTimeout bounds one pdflatex run
	DefaultTimeout = 3 * time.Minute
	// DefaultMaxConcurrent bounds simultaneous compilations per Compiler
	DefaultMaxConcurrent = 2
	// MinPDFSize is the smallest output accepted as a real document
	MinPDFSize = 1000
	// maxOutputBytes caps captured stdout and stderr, each
	maxOutputBytes = 10 * 1024 * 1024
	// waitDelay is how long Wait waits for output pipes after the process is killed
	waitDelay = 5 * time.Second
)

// Options configures a Compiler
type Options struct {
	Timeout       time.Duration
	MaxConcurrent int64
	MinPDFSize    int
}

// Compiler compiles LaTeX sources with a Toolchain. Each call stages its files in
// a fresh scratch directory that is removed before Compile returns.
type Compiler struct {
	toolchain Toolchain
	opts      Options
	sem       *semaphore.Weighted
}

// New creates a Compiler. Zero option values take the package defaults.
func New(toolchain Toolchain, opts Options) *Compiler {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.MinPDFSize <= 0 {
		opts.MinPDFSize = MinPDFSize
	}
	return &Compiler{
		toolchain: toolchain,
		opts:      opts,
		sem:       semaphore.NewWeighted(opts.MaxConcurrent),
	}
}

// Compile builds mainFile from files. It never returns an error: every failure,
// including invalid input, is reported through a failed Result.
func (c *Compiler) Compile(ctx context.Context, files []types.MarkupFile, mainFile string) *Result {
	if res := Validate(files, mainFile); res != nil {
		return res
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return failure("Compilation cancelled before it started", err.Error())
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	workDir, err := os.MkdirTemp("", "latex-*")
	if err != nil {
		return failure("Failed to create scratch directory", err.Error())
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Printf("[compile] failed to remove scratch directory %s: %v", workDir, err)
		}
	}()

	for _, f := range files {
		if err := os.WriteFile(filepath.Join(workDir, f.Filename), []byte(f.Content), 0644); err != nil {
			return failure(fmt.Sprintf("Failed to write %s", f.Filename), err.Error())
		}
	}

	return c.run(ctx, workDir, mainFile)
}

func (c *Compiler) run(ctx context.Context, workDir, mainFile string) *Result {
	cmd, abort := c.toolchain.Command(ctx, workDir, mainFile)
	stdout := newLimitedBuffer(maxOutputBytes)
	stderr := newLimitedBuffer(maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	runErr := cmd.Run()
	if ctx.Err() != nil && abort != nil {
		abort()
	}
	logs := stdout.String() + "\n" + stderr.String()

	base := strings.TrimSuffix(mainFile, filepath.Ext(mainFile))
	logPath := filepath.Join(workDir, base+".log")
	pdfPath := filepath.Join(workDir, base+".pdf")

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure(fmt.Sprintf("Compilation timed out after %s", c.opts.Timeout), logs)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return failure("Compilation cancelled", logs)
	}

	if runErr != nil {
		return failure(fmt.Sprintf("Compilation failed (exit code %d): %s", exitCode(runErr), summarizeLog(logPath)), logs)
	}

	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return failure(fmt.Sprintf("PDF file not generated: %v. Log excerpt: %s", err, summarizeLog(logPath)), logs)
	}
	if len(pdf) < c.opts.MinPDFSize {
		return failure("Generated PDF is too small (compilation likely failed)", logs)
	}

	log.Printf("[compile] %s compiled %s (%d bytes) in %s", c.toolchain.Name(), mainFile, len(pdf), time.Since(start).Round(time.Millisecond))
	return &Result{Success: true, Document: pdf, Logs: logs}
}

// exitCode extracts the process exit status, -1 when the process never ran
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
