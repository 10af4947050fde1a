package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scaii/sky-install/pkg/fsops"
	"github.com/scaii/sky-install/pkg/telemetry"
)

// Third-party front-end assets vendored into the core checkout.
const (
	ClosureLibraryURL     = "https://github.com/google/closure-library/archive/v20171112.zip"
	closureArchiveName    = "v20171112.zip"
	closureUnpackedDir    = "closure-library-20171112"
	closureInstalledDir   = "closure-library"
	ProtobufRepositoryURL = "https://github.com/google/protobuf"
	protobufCloneDir      = "protobuf"
	protobufJSDir         = "protobuf_js"
)

// TreeOps copies and removes directory trees using the host strategy.
type TreeOps interface {
	CopyTree(ctx context.Context, src, dst string) error
	RemoveTree(ctx context.Context, path string) error
}

// Vendor installs the visualization assets the core front end needs.
type Vendor struct {
	// ClosureURL overrides ClosureLibraryURL when set.
	ClosureURL string
	Git        *Git
	Downloader *Downloader
	Trees      TreeOps
}

// JSDir returns the directory holding the core's JavaScript dependencies.
func JSDir(coreDir string) string {
	return filepath.Join(coreDir, "viz", "js")
}

// EnsureClosureLibrary downloads and unpacks the closure library under
// the core checkout unless it is already present.
func (v *Vendor) EnsureClosureLibrary(ctx context.Context, coreDir string) error {
	jsDir := JSDir(coreDir)
	installed := filepath.Join(jsDir, closureInstalledDir)
	if fsops.IsDir(installed) {
		vendorLogger(ctx).Infof("Closure library already present at %s", installed)
		return nil
	}
	if err := fsops.EnsureDir(jsDir); err != nil {
		return err
	}

	if err := v.installClosureLibrary(ctx, jsDir, installed); err != nil {
		return fmt.Errorf("closure library download appears to have failed: %w", err)
	}
	return nil
}

func (v *Vendor) installClosureLibrary(ctx context.Context, jsDir, installed string) error {
	archive := filepath.Join(jsDir, closureArchiveName)
	url := v.ClosureURL
	if url == "" {
		url = ClosureLibraryURL
	}
	if err := v.Downloader.Download(ctx, url, archive); err != nil {
		return err
	}
	if err := fsops.ExtractArchiveFile(archive, jsDir); err != nil {
		return err
	}
	if err := os.Rename(filepath.Join(jsDir, closureUnpackedDir), installed); err != nil {
		return fmt.Errorf("failed to rename closure library: %w", err)
	}
	if err := os.Remove(archive); err != nil {
		return fmt.Errorf("failed to remove %s: %w", archive, err)
	}
	return nil
}

// VendorProtobufJS clones protobuf next to the core's JavaScript sources,
// keeps only its js runtime as protobuf_js and removes the rest.
func (v *Vendor) VendorProtobufJS(ctx context.Context, coreDir string) error {
	jsDir := JSDir(coreDir)
	target := filepath.Join(jsDir, protobufJSDir)
	if fsops.IsDir(target) {
		vendorLogger(ctx).Infof("Protobuf javascript runtime already present at %s", target)
		return nil
	}
	if err := fsops.EnsureDir(jsDir); err != nil {
		return err
	}

	clone := filepath.Join(jsDir, protobufCloneDir)
	if err := v.Trees.RemoveTree(ctx, clone); err != nil {
		return err
	}
	if err := v.Git.Clone(ctx, ProtobufRepositoryURL, jsDir); err != nil {
		return err
	}
	if err := v.Trees.CopyTree(ctx, filepath.Join(clone, "js"), target); err != nil {
		return err
	}
	return v.Trees.RemoveTree(ctx, clone)
}

func vendorLogger(ctx context.Context) *telemetry.Logger {
	return telemetry.FromContext(ctx).NewComponentLogger("vendor")
}

// Install runs both vendoring steps for the core checkout.
func (v *Vendor) Install(ctx context.Context, coreDir string) error {
	if err := v.EnsureClosureLibrary(ctx, coreDir); err != nil {
		return err
	}
	return v.VendorProtobufJS(ctx, coreDir)
}
