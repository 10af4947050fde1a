// Package source acquires component sources: cloning repositories,
// checking out branches and vendoring third-party front-end assets.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scaii/sky-install/pkg/platform"
	"github.com/scaii/sky-install/pkg/telemetry"
)

var (
	// ErrCloneFailed is returned when git output reports a failed clone.
	ErrCloneFailed = errors.New("git clone failed")
	// ErrCheckoutFailed is returned when git output reports a failed checkout.
	ErrCheckoutFailed = errors.New("git checkout failed")
)

// Git drives the git command line client.
type Git struct {
	Runner platform.Runner
	// Binary is the git executable, "git" when empty.
	Binary string
}

// NewGit returns a client that launches processes through runner.
func NewGit(runner platform.Runner, binary string) *Git {
	return &Git{Runner: runner, Binary: binary}
}

func (g *Git) binary() string {
	if g.Binary == "" {
		return "git"
	}
	return g.Binary
}

// Clone clones url into a new directory under parentDir.
func (g *Git) Clone(ctx context.Context, url, parentDir string) error {
	telemetry.FromContext(ctx).NewComponentLogger("git").Debugf("Cloning %s into %s", url, parentDir)
	out, err := g.run(ctx, parentDir, "clone", url)
	if err != nil {
		return err
	}
	if failedOutput(out) {
		return fmt.Errorf("%w: %s", ErrCloneFailed, strings.TrimSpace(out))
	}
	return nil
}

// Checkout switches the repository in dir to branch.
func (g *Git) Checkout(ctx context.Context, dir, branch string) error {
	telemetry.FromContext(ctx).NewComponentLogger("git").Debugf("Checking out %s in %s", branch, dir)
	out, err := g.run(ctx, dir, "checkout", branch)
	if err != nil {
		return err
	}
	if failedOutput(out) {
		return fmt.Errorf("%w: problem checking out branch %s: %s", ErrCheckoutFailed, branch, strings.TrimSpace(out))
	}
	return nil
}

func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := platform.Command{Name: g.binary(), Args: args, Dir: dir}
	res, err := g.Runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if err := platform.CheckResult(cmd, res); err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// failedOutput applies the git text heuristic: output that starts with
// "error" or "fatal" means the operation failed even on a zero exit.
func failedOutput(out string) bool {
	out = strings.TrimLeft(out, " \t\r\n")
	return strings.HasPrefix(out, "error") || strings.HasPrefix(out, "fatal")
}
