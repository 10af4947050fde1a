package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// fakeRunner records commands and replays canned results.
type fakeRunner struct {
	calls   []Command
	results []*Result
	err     error
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (*Result, error) {
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) == 0 {
		return &Result{}, nil
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func TestNewWithRunner(t *testing.T) {
	tests := []struct {
		goos      string
		core      string
		backend   string
		searchVar string
	}{
		{"linux", "libscaii_core.so", "libsky-rts.so", "LD_LIBRARY_PATH"},
		{"darwin", "libscaii_core.dylib", "libsky-rts.dylib", "DYLD_LIBRARY_PATH"},
		{"windows", "scaii_core.dll", "sky-rts.dll", "PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			p, err := NewWithRunner(tt.goos, &fakeRunner{})
			if err != nil {
				t.Fatalf("NewWithRunner() error = %v", err)
			}
			if p.Name() != tt.goos {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.goos)
			}
			if got := p.LibraryFile("scaii_core"); got != tt.core {
				t.Errorf("LibraryFile(core) = %s, want %s", got, tt.core)
			}
			if got := p.LibraryFile("sky-rts"); got != tt.backend {
				t.Errorf("LibraryFile(backend) = %s, want %s", got, tt.backend)
			}
			if p.SearchPathVar() != tt.searchVar {
				t.Errorf("SearchPathVar() = %s, want %s", p.SearchPathVar(), tt.searchVar)
			}
		})
	}
}

func TestNewUnsupported(t *testing.T) {
	if _, err := NewWithRunner("plan9", &fakeRunner{}); err == nil {
		t.Error("expected error for unsupported platform")
	}
}

func TestCopyArtifactRenames(t *testing.T) {
	p, _ := NewWithRunner("linux", &fakeRunner{})
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "backends", "bin")

	if err := os.WriteFile(filepath.Join(srcDir, "libbackend.so"), []byte("elf"), 0o755); err != nil {
		t.Fatal(err)
	}

	dst, err := p.CopyArtifact(srcDir, dstDir, Artifact{Built: "backend", Installed: "sky-rts"})
	if err != nil {
		t.Fatalf("CopyArtifact() error = %v", err)
	}
	if dst != filepath.Join(dstDir, "libsky-rts.so") {
		t.Errorf("CopyArtifact() = %s", dst)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("artifact not staged: %v", err)
	}
}

func TestCopyArtifactMissing(t *testing.T) {
	p, _ := NewWithRunner("darwin", &fakeRunner{})
	_, err := p.CopyArtifact(t.TempDir(), t.TempDir(), Artifact{Built: "scaii_core", Installed: "scaii_core"})
	if err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestWindowsRemoveTree(t *testing.T) {
	dir := t.TempDir()

	t.Run("issues rmdir for existing path", func(t *testing.T) {
		runner := &fakeRunner{}
		p, _ := NewWithRunner("windows", runner)

		if err := p.RemoveTree(context.Background(), dir); err != nil {
			t.Fatalf("RemoveTree() error = %v", err)
		}
		want := Command{Name: "rmdir", Args: []string{dir, "/s", "/q"}}
		if len(runner.calls) != 1 || !reflect.DeepEqual(runner.calls[0], want) {
			t.Errorf("calls = %+v, want %+v", runner.calls, want)
		}
	})

	t.Run("skips missing path", func(t *testing.T) {
		runner := &fakeRunner{}
		p, _ := NewWithRunner("windows", runner)

		if err := p.RemoveTree(context.Background(), filepath.Join(dir, "gone")); err != nil {
			t.Fatalf("RemoveTree() error = %v", err)
		}
		if len(runner.calls) != 0 {
			t.Errorf("expected no process for missing path, got %d", len(runner.calls))
		}
	})

	t.Run("output is failure", func(t *testing.T) {
		runner := &fakeRunner{results: []*Result{{Stdout: "The process cannot access the file"}}}
		p, _ := NewWithRunner("windows", runner)

		err := p.RemoveTree(context.Background(), dir)
		if err == nil || !strings.Contains(err.Error(), "cannot access") {
			t.Errorf("RemoveTree() error = %v", err)
		}
	})

	t.Run("exit status is failure", func(t *testing.T) {
		runner := &fakeRunner{results: []*Result{{ExitCode: 32, Stderr: "in use"}}}
		p, _ := NewWithRunner("windows", runner)

		var perr *ProcessError
		err := p.RemoveTree(context.Background(), dir)
		if !errors.As(err, &perr) || perr.ExitCode != 32 {
			t.Errorf("RemoveTree() error = %v, want ProcessError with status 32", err)
		}
	})
}

func TestWindowsCopyTree(t *testing.T) {
	runner := &fakeRunner{results: []*Result{{Stdout: "3 File(s) copied"}}}
	p, _ := NewWithRunner("windows", runner)

	if err := p.CopyTree(context.Background(), `C:\src`, `C:\dst`); err != nil {
		t.Fatalf("CopyTree() error = %v", err)
	}
	if len(runner.calls) != 1 || runner.calls[0].Name != "xcopy" {
		t.Fatalf("calls = %+v", runner.calls)
	}
	if runner.calls[0].Args[0] != `C:\src` || runner.calls[0].Args[1] != `C:\dst` {
		t.Errorf("xcopy args = %v", runner.calls[0].Args)
	}
}

func TestUnixTreeOperations(t *testing.T) {
	runner := &fakeRunner{}
	p, _ := NewWithRunner("linux", runner)
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "glue")

	if err := os.WriteFile(filepath.Join(src, "env.py"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.CopyTree(context.Background(), src, dst); err != nil {
		t.Fatalf("CopyTree() error = %v", err)
	}
	if err := p.RemoveTree(context.Background(), dst); err != nil {
		t.Fatalf("RemoveTree() error = %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("expected %s removed", dst)
	}
	if len(runner.calls) != 0 {
		t.Errorf("unix tree operations should not launch processes, got %d", len(runner.calls))
	}
}
