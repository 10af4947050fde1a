package provision

import (
	"os"
	"path/filepath"

	"github.com/scaii/sky-install/pkg/fsops"
)

// DotDirName is the per-user directory holding the installation.
const DotDirName = ".scaii"

// Layout derives every installation path from a home directory.
type Layout struct {
	Home string
}

// ResolveLayout returns a layout rooted at home, or at the current user's
// home directory when home is empty.
func ResolveLayout(home string) (Layout, error) {
	if home != "" {
		return Layout{Home: home}, nil
	}
	h, err := os.UserHomeDir()
	if err != nil || h == "" {
		return Layout{}, NewHomeUnresolvedError(err)
	}
	return Layout{Home: h}, nil
}

// DotDir returns <home>/.scaii, parent of bin, glue and backends.
func (l Layout) DotDir() string {
	return filepath.Join(l.Home, DotDirName)
}

// InstallRoot returns the directory that holds source checkouts.
func (l Layout) InstallRoot() string {
	return filepath.Join(l.DotDir(), "git")
}

// InstallRootExists reports whether a previous installation left its root.
// It never creates anything.
func (l Layout) InstallRootExists() bool {
	return fsops.IsDir(l.InstallRoot())
}

// EnsureInstallRoot creates the installation root if needed and returns it.
func (l Layout) EnsureInstallRoot() (string, error) {
	root := l.InstallRoot()
	if err := fsops.EnsureDir(root); err != nil {
		return "", err
	}
	return root, nil
}

// CheckoutDir returns the checkout directory of c.
func (l Layout) CheckoutDir(c Component) string {
	return filepath.Join(l.InstallRoot(), c.CheckoutDir)
}

// BuildDir returns the directory cargo runs in for c.
func (l Layout) BuildDir(c Component) string {
	return filepath.Join(l.InstallRoot(), c.BuildDir)
}

// BinDir returns the directory receiving c's artifact.
func (l Layout) BinDir(c Component) string {
	return filepath.Join(l.DotDir(), c.BinDir)
}

// DotPath joins rel onto the dot directory.
func (l Layout) DotPath(rel string) string {
	return filepath.Join(l.DotDir(), rel)
}

// LockPath returns the lock file guarding the installation.
func (l Layout) LockPath() string {
	return filepath.Join(l.DotDir(), ".lock")
}

// HistoryPath returns the default run history database path.
func (l Layout) HistoryPath() string {
	return filepath.Join(l.DotDir(), "history.db")
}
