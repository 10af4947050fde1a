package provision

import (
	"errors"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name          string
		command       string
		args          []string
		wantCommand   Command
		wantBranch    string
		wantDefaulted bool
		wantVariant   Variant
		wantErr       bool
	}{
		{name: "install default branch", command: "install", wantCommand: CmdInstall, wantBranch: "dev", wantDefaulted: true, wantVariant: VariantRelease},
		{name: "install branch and variant", command: "install", args: []string{"main", "debug"}, wantCommand: CmdInstall, wantBranch: "main", wantVariant: VariantDebug},
		{name: "full-install alias", command: "full-install", args: []string{"feature"}, wantCommand: CmdInstall, wantBranch: "feature", wantVariant: VariantRelease},
		{name: "get-core default branch", command: "get-core", wantCommand: CmdGetCore, wantBranch: "dev", wantDefaulted: true, wantVariant: VariantRelease},
		{name: "get-sky-rts branch", command: "get-sky-rts", args: []string{"v2"}, wantCommand: CmdGetSkyRTS, wantBranch: "v2", wantVariant: VariantRelease},
		{name: "reinstall variant", command: "reinstall", args: []string{"debug"}, wantCommand: CmdReinstall, wantBranch: "dev", wantDefaulted: true, wantVariant: VariantDebug},
		{name: "re-install branch", command: "re-install", args: []string{"dev"}, wantCommand: CmdReinstall, wantBranch: "dev", wantVariant: VariantRelease},
		{name: "uninstall", command: "uninstall", wantCommand: CmdUninstall, wantVariant: VariantRelease},
		{name: "full-clean alias", command: "full-clean", wantCommand: CmdUninstall, wantVariant: VariantRelease},
		{name: "build-core ignores branch", command: "build-core", args: []string{"main"}, wantCommand: CmdBuildCore, wantVariant: VariantRelease},
		{name: "invalid variant", command: "install", args: []string{"dev", "fast"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest(tt.command, tt.args, VariantRelease)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.Command != tt.wantCommand {
				t.Errorf("Command = %s, want %s", req.Command, tt.wantCommand)
			}
			if req.Branch != tt.wantBranch {
				t.Errorf("Branch = %q, want %q", req.Branch, tt.wantBranch)
			}
			if req.BranchDefaulted != tt.wantDefaulted {
				t.Errorf("BranchDefaulted = %v, want %v", req.BranchDefaulted, tt.wantDefaulted)
			}
			if req.Variant != tt.wantVariant {
				t.Errorf("Variant = %s, want %s", req.Variant, tt.wantVariant)
			}
			if req.Name != tt.command {
				t.Errorf("Name = %s, want %s", req.Name, tt.command)
			}
		})
	}
}

func TestParseRequestUnknown(t *testing.T) {
	_, err := ParseRequest("frobnicate", nil, VariantRelease)
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("ParseRequest() error = %v, want ErrUnknownCommand", err)
	}
}

func TestParseRequestDefaultVariant(t *testing.T) {
	req, err := ParseRequest("build-sky-rts", nil, VariantDebug)
	if err != nil {
		t.Fatal(err)
	}
	if req.Variant != VariantDebug {
		t.Errorf("Variant = %s, want debug", req.Variant)
	}
}

func TestVariantCargo(t *testing.T) {
	if got := VariantRelease.CargoArgs(); len(got) != 2 || got[1] != "--release" {
		t.Errorf("release args = %v", got)
	}
	if got := VariantDebug.CargoArgs(); len(got) != 1 {
		t.Errorf("debug args = %v", got)
	}
	if VariantDebug.TargetDir() != "debug" || VariantRelease.TargetDir() != "release" {
		t.Error("unexpected target directories")
	}
}
