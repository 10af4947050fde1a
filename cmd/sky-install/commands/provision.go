package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scaii/sky-install/pkg/provision"
)

// provisionCommand describes one command that runs a provisioning pipeline.
type provisionCommand struct {
	use     string
	aliases []string
	short   string
	long    string
	maxArgs int
}

var provisionCommands = []provisionCommand{
	{
		use:     "install [branch] [debug|release]",
		aliases: []string{"full-install"},
		short:   "Remove any previous installation, then fetch and build everything",
		long: `Remove both components, clone the core and Sky-RTS at the given branch
(default "dev"), vendor the core's front-end libraries and build both.`,
		maxArgs: 2,
	},
	{
		use:     "reinstall [debug|release]",
		aliases: []string{"re-install"},
		short:   "Rebuild both components from the existing checkouts",
		long: `Remove the staged build outputs and rebuild the core and Sky-RTS from
their existing checkouts. Does nothing when no installation exists.`,
		maxArgs: 2,
	},
	{
		use:     "uninstall",
		aliases: []string{"full-clean"},
		short:   "Remove both components and their checkouts",
	},
	{
		use:     "get-core [branch]",
		short:   "Clone the core and vendor its front-end libraries",
		maxArgs: 1,
	},
	{
		use:     "get-sky-rts [branch]",
		short:   "Clone the Sky-RTS backend",
		maxArgs: 1,
	},
	{
		use:   "build-core",
		short: "Build the fetched core and stage its library",
	},
	{
		use:   "build-sky-rts",
		short: "Build the fetched Sky-RTS backend and stage its library",
	},
	{
		use:   "clean-core-all",
		short: "Remove the core checkout and its staged outputs",
	},
	{
		use:   "clean-core-build",
		short: "Remove the core's staged outputs",
	},
	{
		use:   "clean-sky-rts-all",
		short: "Remove the Sky-RTS checkout and its staged outputs",
	},
	{
		use:   "clean-sky-rts-build",
		short: "Remove the Sky-RTS staged outputs",
	},
}

func newProvisionCommands(opts *globalOptions) []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(provisionCommands))
	for _, pc := range provisionCommands {
		cmds = append(cmds, &cobra.Command{
			Use:     pc.use,
			Aliases: pc.aliases,
			Short:   pc.short,
			Long:    pc.long,
			Args:    cobra.MaximumNArgs(pc.maxArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runProvision(cmd, opts, args)
			},
		})
	}
	return cmds
}

// runProvision executes the pipeline named by the spelling the user typed.
func runProvision(cmd *cobra.Command, opts *globalOptions, args []string) error {
	a, err := newApp(cmd, opts, appMode{history: true, mutate: true})
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	ctx := a.telemetry.WithContext(cmd.Context())

	req, err := provision.ParseRequest(cmd.CalledAs(), args, provision.Variant(a.cfg.Build.Variant))
	if err != nil {
		return err
	}

	if req.BranchDefaulted && req.Command != provision.CmdReinstall {
		a.notice(fmt.Sprintf("No branch specified, defaulting to '%s'", req.Branch))
	}
	if req.Command == provision.CmdReinstall && a.layout.InstallRootExists() {
		a.notice("Reinstalling Sky-RTS.")
	}

	outcome, err := a.orchestrator.Execute(ctx, req)
	if err != nil {
		return err
	}

	if outcome.NothingToDo {
		a.warn("Installation not found. Nothing to reinstall.")
		return nil
	}
	for _, staged := range outcome.Artifacts {
		a.notice(fmt.Sprintf("installed %s", staged.Path))
	}
	return nil
}
