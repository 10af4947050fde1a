package provision

import (
	"fmt"
	"path/filepath"

	"github.com/scaii/sky-install/pkg/platform"
)

// ComponentID identifies one of the independently built modules.
type ComponentID string

const (
	// Core is the SCAII core runtime.
	Core ComponentID = "core"
	// Backend is the Sky-RTS backend module.
	Backend ComponentID = "sky-rts"
)

// AssetTree is an auxiliary directory copied from a checkout into the
// installation. Paths are relative to the checkout directory and the dot
// directory respectively.
type AssetTree struct {
	Source string
	Dest   string
}

// Component is the compile-time description of a module.
type Component struct {
	ID ComponentID
	// Title is the human readable name used in notices.
	Title string
	// RepoURL is cloned into the installation root.
	RepoURL string
	// CheckoutDir is the directory git clone creates.
	CheckoutDir string
	// BuildDir is where cargo runs, relative to the installation root.
	BuildDir string
	// Artifact names the built and installed library.
	Artifact platform.Artifact
	// BinDir receives the artifact, relative to the dot directory.
	BinDir string
	// Outputs are the build output trees removed by a build clean,
	// relative to the dot directory.
	Outputs []string
	// Assets are copied after a successful build.
	Assets []AssetTree
	// VendorAssets reports whether front-end assets are vendored after fetching.
	VendorAssets bool
}

var components = []Component{
	{
		ID:          Core,
		Title:       "core",
		RepoURL:     "https://github.com/SCAII/SCAII.git",
		CheckoutDir: "SCAII",
		BuildDir:    "SCAII",
		Artifact:    platform.Artifact{Built: "scaii_core", Installed: "scaii_core"},
		BinDir:      "bin",
		Outputs:     []string{"glue"},
		Assets: []AssetTree{
			{Source: "glue", Dest: "glue"},
		},
		VendorAssets: true,
	},
	{
		ID:          Backend,
		Title:       "Sky-RTS",
		RepoURL:     "https://github.com/SCAII/Sky-RTS.git",
		CheckoutDir: "Sky-RTS",
		BuildDir:    filepath.Join("Sky-RTS", "backend"),
		Artifact:    platform.Artifact{Built: "backend", Installed: "sky-rts"},
		BinDir:      filepath.Join("backends", "bin"),
		Outputs:     []string{filepath.Join("backends", "sky-rts")},
		Assets: []AssetTree{
			{Source: filepath.Join("backend", "sky-rts", "glue", "python"), Dest: filepath.Join("glue", "python", "scaii", "env")},
			{Source: filepath.Join("backend", "sky-rts", "lua"), Dest: filepath.Join("backends", "sky-rts", "maps")},
		},
	},
}

// Components returns every component in installation order.
func Components() []Component {
	out := make([]Component, len(components))
	copy(out, components)
	return out
}

// Lookup returns the component with the given id.
func Lookup(id ComponentID) (Component, error) {
	for _, c := range components {
		if c.ID == id {
			return c, nil
		}
	}
	return Component{}, fmt.Errorf("unknown component: %s", id)
}

func mustLookup(id ComponentID) Component {
	c, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return c
}
