package provision

import (
	"errors"
	"fmt"
)

// DefaultBranch is checked out when a branch-taking command names none.
const DefaultBranch = "dev"

// ErrUnknownCommand is returned by ParseRequest for an unrecognised command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a canonical command name.
type Command string

const (
	CmdInstall          Command = "install"
	CmdReinstall        Command = "reinstall"
	CmdUninstall        Command = "uninstall"
	CmdGetCore          Command = "get-core"
	CmdGetSkyRTS        Command = "get-sky-rts"
	CmdBuildCore        Command = "build-core"
	CmdBuildSkyRTS      Command = "build-sky-rts"
	CmdCleanCoreAll     Command = "clean-core-all"
	CmdCleanCoreBuild   Command = "clean-core-build"
	CmdCleanSkyRTSAll   Command = "clean-sky-rts-all"
	CmdCleanSkyRTSBuild Command = "clean-sky-rts-build"
)

// aliases maps accepted spellings onto canonical commands.
var aliases = map[string]Command{
	"install":             CmdInstall,
	"full-install":        CmdInstall,
	"reinstall":           CmdReinstall,
	"re-install":          CmdReinstall,
	"uninstall":           CmdUninstall,
	"full-clean":          CmdUninstall,
	"get-core":            CmdGetCore,
	"get-sky-rts":         CmdGetSkyRTS,
	"build-core":          CmdBuildCore,
	"build-sky-rts":       CmdBuildSkyRTS,
	"clean-core-all":      CmdCleanCoreAll,
	"clean-core-build":    CmdCleanCoreBuild,
	"clean-sky-rts-all":   CmdCleanSkyRTSAll,
	"clean-sky-rts-build": CmdCleanSkyRTSBuild,
}

// branchCommands take an optional branch argument.
var branchCommands = map[Command]bool{
	CmdInstall:   true,
	CmdReinstall: true,
	CmdGetCore:   true,
	CmdGetSkyRTS: true,
}

// ResolveCommand returns the canonical command for name.
func ResolveCommand(name string) (Command, bool) {
	c, ok := aliases[name]
	return c, ok
}

// TakesBranch reports whether c accepts a branch argument.
func (c Command) TakesBranch() bool {
	return branchCommands[c]
}

// Variant selects the cargo build profile.
type Variant string

const (
	VariantRelease Variant = "release"
	VariantDebug   Variant = "debug"
)

// ParseVariant validates a variant name. An empty name yields def.
func ParseVariant(name string, def Variant) (Variant, error) {
	switch Variant(name) {
	case "":
		if def == "" {
			return VariantRelease, nil
		}
		return def, nil
	case VariantRelease, VariantDebug:
		return Variant(name), nil
	default:
		return "", fmt.Errorf("invalid build variant %q: must be debug or release", name)
	}
}

// CargoArgs returns the cargo build arguments for the variant.
func (v Variant) CargoArgs() []string {
	if v == VariantDebug {
		return []string{"build"}
	}
	return []string{"build", "--release"}
}

// TargetDir returns the cargo output directory name for the variant.
func (v Variant) TargetDir() string {
	if v == VariantDebug {
		return "debug"
	}
	return "release"
}

// Request is one parsed invocation. It is not modified after parsing.
type Request struct {
	// Name is the command as typed.
	Name    string
	Command Command
	Branch  string
	// BranchDefaulted is set when Branch was filled in with DefaultBranch.
	BranchDefaulted bool
	Variant         Variant
}

// ParseRequest builds a request from a command name and its positional
// arguments. Branch-taking commands read [branch] and install also
// [branch] [variant]; reinstall reads [variant].
func ParseRequest(name string, args []string, defVariant Variant) (Request, error) {
	cmd, ok := ResolveCommand(name)
	if !ok {
		return Request{Name: name}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	req := Request{Name: name, Command: cmd}
	variantArg := ""

	switch {
	case cmd == CmdReinstall && len(args) > 0 && isVariantName(args[0]):
		// reinstall [debug|release]
		variantArg = args[0]
	case cmd.TakesBranch():
		if len(args) > 0 {
			req.Branch = args[0]
		}
		if len(args) > 1 && (cmd == CmdInstall || cmd == CmdReinstall) {
			variantArg = args[1]
		}
	}

	if cmd.TakesBranch() && req.Branch == "" {
		req.Branch = DefaultBranch
		req.BranchDefaulted = true
	}

	v, err := ParseVariant(variantArg, defVariant)
	if err != nil {
		return Request{}, err
	}
	req.Variant = v
	return req, nil
}

func isVariantName(s string) bool {
	return s == string(VariantRelease) || s == string(VariantDebug)
}
