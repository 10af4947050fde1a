package provision

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/scaii/sky-install/pkg/fsops"
	"github.com/scaii/sky-install/pkg/platform"
	"github.com/scaii/sky-install/pkg/source"
	"github.com/scaii/sky-install/pkg/telemetry"
)

// Installer performs the fetch, build and clean operations for one
// component at a time.
type Installer struct {
	Layout   Layout
	Platform platform.Platform
	Git      *source.Git
	Vendor   *source.Vendor
	// Cargo is the build tool executable, "cargo" when empty.
	Cargo string
	// Notify receives progress notices for the operator.
	Notify func(msg string)
}

// StagedArtifact describes a library placed into the installation.
type StagedArtifact struct {
	Component ComponentID
	Path      string
	Digest    string
	Size      int64
}

// CleanScope selects how much of a component a clean removes.
type CleanScope string

const (
	// CleanBuild removes installed outputs only.
	CleanBuild CleanScope = "build"
	// CleanAll also removes the source checkout.
	CleanAll CleanScope = "all"
)

func (in *Installer) notify(format string, args ...interface{}) {
	if in.Notify != nil {
		in.Notify(fmt.Sprintf(format, args...))
	}
}

func (in *Installer) cargo() string {
	if in.Cargo == "" {
		return "cargo"
	}
	return in.Cargo
}

// Fetch clones the component into the installation root, checks out branch
// when one is given and, for the core, vendors its front-end assets.
func (in *Installer) Fetch(ctx context.Context, c Component, branch string) error {
	in.notify("installing %s...", c.Title)

	root, err := in.Layout.EnsureInstallRoot()
	if err != nil {
		return err
	}
	if err := in.Git.Clone(ctx, c.RepoURL, root); err != nil {
		return err
	}

	dir := in.Layout.CheckoutDir(c)
	if branch != "" {
		if err := in.Git.Checkout(ctx, dir, branch); err != nil {
			return err
		}
	}

	if c.VendorAssets && in.Vendor != nil {
		if err := in.Vendor.Install(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// Build compiles a fetched component and stages its artifact and asset
// trees. It fails without running cargo when the checkout is missing.
func (in *Installer) Build(ctx context.Context, c Component, variant Variant) (*StagedArtifact, error) {
	checkout := in.Layout.CheckoutDir(c)
	if !fsops.IsDir(checkout) {
		return nil, NewPreconditionError(fmt.Sprintf(
			"%s has not been fetched - run '%s' command first", c.Title, fetchCommand(c.ID)))
	}

	in.notify("building %s...", c.Title)

	buildDir := in.Layout.BuildDir(c)
	cmd := platform.Command{Name: in.cargo(), Args: variant.CargoArgs(), Dir: buildDir}
	res, err := in.Platform.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := platform.CheckResult(cmd, res); err != nil {
		return nil, err
	}
	if strings.Contains(res.Stdout, "error") {
		return nil, NewProcessFailedError(fmt.Sprintf("cargo build failed %q", res.Stdout))
	}

	targetDir := filepath.Join(buildDir, "target", variant.TargetDir())
	path, err := in.Platform.CopyArtifact(targetDir, in.Layout.BinDir(c), c.Artifact)
	if err != nil {
		return nil, err
	}

	for _, asset := range c.Assets {
		dst := in.Layout.DotPath(asset.Dest)
		if err := fsops.EnsureDir(dst); err != nil {
			return nil, err
		}
		if err := in.Platform.CopyTree(ctx, filepath.Join(checkout, asset.Source), dst); err != nil {
			return nil, err
		}
	}

	staged, err := describeArtifact(c.ID, path)
	if err != nil {
		return nil, err
	}
	logger(ctx).WithFields(map[string]interface{}{
		"component": string(c.ID),
		"path":      staged.Path,
		"blake3":    staged.Digest,
	}).Info("Artifact staged")
	return staged, nil
}

// Clean removes a component's installed outputs and, for CleanAll, its
// checkout. Missing paths are skipped.
func (in *Installer) Clean(ctx context.Context, c Component, scope CleanScope) error {
	if scope == CleanAll {
		in.notify("removing %s...", c.Title)
		if err := in.Platform.RemoveTree(ctx, in.Layout.CheckoutDir(c)); err != nil {
			return err
		}
	}

	in.notify("removing %s build artifacts...", c.Title)
	lib := filepath.Join(in.Layout.BinDir(c), in.Platform.LibraryFile(c.Artifact.Installed))
	if err := os.Remove(lib); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", lib, err)
	}
	for _, out := range c.Outputs {
		if err := in.Platform.RemoveTree(ctx, in.Layout.DotPath(out)); err != nil {
			return err
		}
	}
	return nil
}

// ShallowClean removes every build output and keeps source checkouts.
func (in *Installer) ShallowClean(ctx context.Context) error {
	for _, dir := range []string{"backends", "bin", "glue"} {
		path := in.Layout.DotPath(dir)
		if !fsops.IsDir(path) {
			continue
		}
		if err := in.Platform.RemoveTree(ctx, path); err != nil {
			return err
		}
		logger(ctx).Infof("Removed build outputs %s", path)
	}
	return nil
}

func logger(ctx context.Context) *telemetry.Logger {
	return telemetry.FromContext(ctx).NewComponentLogger("installer")
}

func fetchCommand(id ComponentID) Command {
	if id == Core {
		return CmdGetCore
	}
	return CmdGetSkyRTS
}

func describeArtifact(id ComponentID, path string) (*StagedArtifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New(32, nil)
	size, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("failed to hash artifact %s: %w", path, err)
	}
	return &StagedArtifact{
		Component: id,
		Path:      path,
		Digest:    fmt.Sprintf("%x", h.Sum(nil)),
		Size:      size,
	}, nil
}
