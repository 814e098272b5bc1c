package compilation

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// DefaultImage is the TeX Live image used by DockerToolchain
const DefaultImage = "texlive/texlive:latest"

// Toolchain builds the pdflatex process for one compilation. The returned abort
// function, when non-nil, is called if the context ends before the process does,
// to release anything the process left running outside this host process tree.
type Toolchain interface {
	Name() string
	Command(ctx context.Context, workDir, mainFile string) (cmd *exec.Cmd, abort func())
}

// DockerToolchain runs pdflatex inside a throwaway container with the scratch
// directory mounted at /data.
type DockerToolchain struct {
	Image string
	// Binary is the docker CLI to invoke, "docker" when empty
	Binary string
}

// Name implements Toolchain
func (d DockerToolchain) Name() string { return "docker" }

// Command implements Toolchain
func (d DockerToolchain) Command(ctx context.Context, workDir, mainFile string) (*exec.Cmd, func()) {
	image := d.Image
	if image == "" {
		image = DefaultImage
	}
	binary := d.Binary
	if binary == "" {
		binary = "docker"
	}

	name := "latex-" + uuid.NewString()
	cmd := exec.CommandContext(ctx, binary,
		"run", "--rm",
		"--name", name,
		"--network", "none",
		"-w", "/data",
		"-v", fmt.Sprintf("%s:/data", workDir),
		image,
		"pdflatex", "-interaction=nonstopmode", "-output-directory=/data", mainFile,
	)

	// Killing the docker CLI leaves the container running, so remove it by name.
	abort := func() {
		rmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if out, err := exec.CommandContext(rmCtx, binary, "rm", "-f", name).CombinedOutput(); err != nil {
			log.Printf("[compile] failed to remove container %s: %v: %s", name, err, out)
		}
	}
	return cmd, abort
}

// LocalToolchain runs a pdflatex binary installed on the host
type LocalToolchain struct {
	// Binary is the pdflatex executable, "pdflatex" when empty
	Binary string
}

// Name implements Toolchain
func (l LocalToolchain) Name() string { return "local" }

// Command implements Toolchain
func (l LocalToolchain) Command(ctx context.Context, workDir, mainFile string) (*exec.Cmd, func()) {
	binary := l.Binary
	if binary == "" {
		binary = "pdflatex"
	}
	cmd := exec.CommandContext(ctx, binary, "-interaction=nonstopmode", "-output-directory="+workDir, mainFile)
	cmd.Dir = workDir
	return cmd, nil
}

// NewToolchain returns the toolchain for a configured mode ("docker" or "local")
func NewToolchain(mode, image string) (Toolchain, error) {
	switch mode {
	case "", "docker":
		return DockerToolchain{Image: image}, nil
	case "local":
		return LocalToolchain{}, nil
	default:
		return nil, fmt.Errorf("unknown compiler mode %q", mode)
	}
}

// Available reports whether the toolchain's executable can be found on PATH
func Available(t Toolchain) bool {
	var binary string
	switch tc := t.(type) {
	case DockerToolchain:
		binary = tc.Binary
		if binary == "" {
			binary = "docker"
		}
	case LocalToolchain:
		binary = tc.Binary
		if binary == "" {
			binary = "pdflatex"
		}
	default:
		return true
	}
	_, err := exec.LookPath(binary)
	return err == nil
}
