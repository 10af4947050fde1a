package platform

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/scaii/sky-install/pkg/fsops"
)

// Platform is the host-specific strategy used by every installation step.
type Platform interface {
	// Name returns the operating system name the strategy targets.
	Name() string
	// Run executes a process and returns its captured result.
	Run(ctx context.Context, cmd Command) (*Result, error)
	// RemoveTree recursively deletes path. A missing path is not an error.
	RemoveTree(ctx context.Context, path string) error
	// CopyTree copies the contents of src into dst, creating dst if needed.
	CopyTree(ctx context.Context, src, dst string) error
	// CopyArtifact copies the built library for base from srcDir into
	// dstDir under its installed name and returns the destination path.
	CopyArtifact(srcDir, dstDir string, artifact Artifact) (string, error)
	// LibraryFile returns the file name of a shared library on this host.
	LibraryFile(base string) string
	// SearchPathVar names the variable the dynamic loader searches.
	SearchPathVar() string
}

// Artifact names a shared library before and after installation,
// without platform prefix or extension.
type Artifact struct {
	Built     string
	Installed string
}

// New returns the strategy for goos. Output of child processes is echoed to stdout.
func New(goos string, stdout io.Writer) (Platform, error) {
	switch goos {
	case "windows":
		return &windowsPlatform{runner: &ExecRunner{Shell: []string{"cmd", "/C"}, Stdout: stdout}}, nil
	default:
		return NewWithRunner(goos, &ExecRunner{Stdout: stdout})
	}
}

// NewWithRunner returns the strategy for goos using runner for processes.
func NewWithRunner(goos string, runner Runner) (Platform, error) {
	switch goos {
	case "linux":
		return &unixPlatform{name: goos, runner: runner, libPrefix: "lib", libExt: ".so", searchVar: "LD_LIBRARY_PATH"}, nil
	case "darwin":
		return &unixPlatform{name: goos, runner: runner, libPrefix: "lib", libExt: ".dylib", searchVar: "DYLD_LIBRARY_PATH"}, nil
	case "windows":
		return &windowsPlatform{runner: runner}, nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// Current returns the strategy for the running host.
func Current(stdout io.Writer) (Platform, error) {
	return New(runtime.GOOS, stdout)
}

// unixPlatform launches processes directly and manipulates trees natively.
type unixPlatform struct {
	name      string
	runner    Runner
	libPrefix string
	libExt    string
	searchVar string
}

func (p *unixPlatform) Name() string { return p.name }

func (p *unixPlatform) Run(ctx context.Context, cmd Command) (*Result, error) {
	return p.runner.Run(ctx, cmd)
}

func (p *unixPlatform) RemoveTree(_ context.Context, path string) error {
	return fsops.RemoveTree(path)
}

func (p *unixPlatform) CopyTree(_ context.Context, src, dst string) error {
	return fsops.CopyTree(src, dst)
}

func (p *unixPlatform) CopyArtifact(srcDir, dstDir string, artifact Artifact) (string, error) {
	return copyArtifact(p, srcDir, dstDir, artifact)
}

func (p *unixPlatform) LibraryFile(base string) string {
	return p.libPrefix + base + p.libExt
}

func (p *unixPlatform) SearchPathVar() string { return p.searchVar }

func copyArtifact(p Platform, srcDir, dstDir string, artifact Artifact) (string, error) {
	if err := fsops.EnsureDir(dstDir); err != nil {
		return "", err
	}
	src := filepath.Join(srcDir, p.LibraryFile(artifact.Built))
	dst := filepath.Join(dstDir, p.LibraryFile(artifact.Installed))
	if err := fsops.CopyFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}
