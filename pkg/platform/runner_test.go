package platform

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
)

func TestNormalizeCommandName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"protoc"`, "protoc"},
		{"protoc", "protoc"},
		{`"git"`, `"git"`},
		{"cargo", "cargo"},
	}
	for _, tt := range tests {
		if got := NormalizeCommandName(tt.in); got != tt.want {
			t.Errorf("NormalizeCommandName(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestProcessErrorMessage(t *testing.T) {
	err := &ProcessError{Command: Command{Name: "git", Args: []string{"clone"}}, ExitCode: 128, Stderr: "fatal: repository not found\n"}
	if err.Error() != "fatal: repository not found" {
		t.Errorf("Error() = %q", err.Error())
	}

	err = &ProcessError{Command: Command{Name: "cargo", Args: []string{"build"}}, ExitCode: 101}
	if !strings.Contains(err.Error(), "status 101") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCheckResult(t *testing.T) {
	cmd := Command{Name: "cargo"}
	if err := CheckResult(cmd, &Result{}); err != nil {
		t.Errorf("CheckResult(success) = %v", err)
	}
	var perr *ProcessError
	if err := CheckResult(cmd, &Result{ExitCode: 1, Stderr: "boom"}); !errors.As(err, &perr) {
		t.Errorf("CheckResult(failure) = %v, want ProcessError", err)
	}
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	t.Run("captures and echoes stdout", func(t *testing.T) {
		var echo bytes.Buffer
		r := &ExecRunner{Stdout: &echo}
		dir := t.TempDir()

		res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd; echo oops >&2"}, Dir: dir})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !res.Success() {
			t.Errorf("expected success, exit code %d", res.ExitCode)
		}
		if !strings.Contains(res.Stdout, dir) {
			t.Errorf("stdout %q does not report working directory %s", res.Stdout, dir)
		}
		if echo.String() != res.Stdout {
			t.Errorf("echoed %q, captured %q", echo.String(), res.Stdout)
		}
		if strings.TrimSpace(res.Stderr) != "oops" {
			t.Errorf("stderr = %q", res.Stderr)
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		r := &ExecRunner{}
		res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "exit 3"}})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", res.ExitCode)
		}
	})

	t.Run("missing program", func(t *testing.T) {
		r := &ExecRunner{}
		_, err := r.Run(context.Background(), Command{Name: "sky-install-no-such-tool"})
		var lerr *LaunchError
		if !errors.As(err, &lerr) {
			t.Errorf("Run() error = %v, want LaunchError", err)
		}
	})

	t.Run("stdout not text", func(t *testing.T) {
		r := &ExecRunner{}
		_, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", `printf '\377\376'`}})
		if !errors.Is(err, ErrOutputNotText) {
			t.Errorf("Run() error = %v, want ErrOutputNotText", err)
		}
	})

	t.Run("non-zero exit with binary stdout", func(t *testing.T) {
		r := &ExecRunner{}
		cmd := Command{Name: "sh", Args: []string{"-c", `printf '\377\376'; echo 'real failure' >&2; exit 3`}}
		res, err := r.Run(context.Background(), cmd)
		if err != nil {
			t.Fatalf("Run() error = %v, want a result", err)
		}
		if res.ExitCode != 3 {
			t.Errorf("ExitCode = %d, want 3", res.ExitCode)
		}

		var perr *ProcessError
		err = CheckResult(cmd, res)
		if !errors.As(err, &perr) {
			t.Fatalf("CheckResult() = %v, want ProcessError", err)
		}
		if err.Error() != "real failure" {
			t.Errorf("Error() = %q, want stderr", err.Error())
		}
	})

	t.Run("shell wrapped", func(t *testing.T) {
		r := &ExecRunner{Shell: []string{"sh", "-c", `printf '%s|' "$0" "$@"`}}
		res, err := r.Run(context.Background(), Command{Name: `"protoc"`, Args: []string{"--version", "a b"}})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Stdout != "protoc|--version|a b|" {
			t.Errorf("stdout = %q", res.Stdout)
		}
	})
}

func TestExecRunnerArgv(t *testing.T) {
	tests := []struct {
		name     string
		shell    []string
		cmd      Command
		wantName string
		wantArgs []string
	}{
		{
			name:     "direct",
			cmd:      Command{Name: "git", Args: []string{"clone", "url"}},
			wantName: "git",
			wantArgs: []string{"clone", "url"},
		},
		{
			name:     "cmd /C",
			shell:    []string{"cmd", "/C"},
			cmd:      Command{Name: "rmdir", Args: []string{`C:\x`, "/s", "/q"}},
			wantName: "cmd",
			wantArgs: []string{"/C", "rmdir", `C:\x`, "/s", "/q"},
		},
		{
			name:     "no args",
			shell:    []string{"cmd", "/C"},
			cmd:      Command{Name: "cargo"},
			wantName: "cmd",
			wantArgs: []string{"/C", "cargo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &ExecRunner{Shell: tt.shell}
			name, args := r.argv(tt.cmd)
			if name != tt.wantName {
				t.Errorf("name = %s, want %s", name, tt.wantName)
			}
			if strings.Join(args, "\x00") != strings.Join(tt.wantArgs, "\x00") {
				t.Errorf("args = %q, want %q", args, tt.wantArgs)
			}
		})
	}

	shell := []string{"cmd", "/C"}
	r := &ExecRunner{Shell: shell}
	r.argv(Command{Name: "a", Args: []string{"b"}})
	if len(shell) != 2 || shell[1] != "/C" {
		t.Errorf("shell prefix modified: %q", shell)
	}
}
