package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/scaii/sky-install/pkg/fsops"
)

// windowsPlatform routes every command through cmd /C so that shell
// builtins such as rmdir resolve. Recursive removal and copy use the
// shell's own utilities.
type windowsPlatform struct {
	runner Runner
}

func (p *windowsPlatform) Name() string { return "windows" }

func (p *windowsPlatform) Run(ctx context.Context, cmd Command) (*Result, error) {
	return p.runner.Run(ctx, cmd)
}

// RemoveTree shells out to rmdir. Success requires a zero exit status
// and no output; a path that is already gone is skipped.
func (p *windowsPlatform) RemoveTree(ctx context.Context, path string) error {
	exists, err := fsops.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	cmd := Command{Name: "rmdir", Args: []string{path, "/s", "/q"}}
	res, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if err := CheckResult(cmd, res); err != nil {
		return err
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		return fmt.Errorf("failed to delete %s: %s", path, out)
	}
	return nil
}

// CopyTree shells out to xcopy. xcopy reports a file count on stdout,
// so only the exit status decides success.
func (p *windowsPlatform) CopyTree(ctx context.Context, src, dst string) error {
	cmd := Command{Name: "xcopy", Args: []string{src, dst, "/i", "/s", "/e", "/y"}}
	res, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return err
	}
	return CheckResult(cmd, res)
}

func (p *windowsPlatform) CopyArtifact(srcDir, dstDir string, artifact Artifact) (string, error) {
	return copyArtifact(p, srcDir, dstDir, artifact)
}

func (p *windowsPlatform) LibraryFile(base string) string {
	return base + ".dll"
}

func (p *windowsPlatform) SearchPathVar() string { return "PATH" }
