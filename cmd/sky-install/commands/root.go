package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
	version    string
}

// Execute runs the root command. A failing command has its error and
// usage printed before the error is returned.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.Enable = false
	}

	rootCmd := newRootCommand(version, commit, buildDate)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err != nil {
		reportFailure(cmd, err)
	}
	return err
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &globalOptions{version: version}

	rootCmd := &cobra.Command{
		Use:   "sky-install",
		Short: "Fetch, build and install the SCAII core and the Sky-RTS backend",
		Long: `sky-install provisions a local SCAII installation under ~/.scaii.

It clones the SCAII core and the Sky-RTS backend, vendors the front-end
libraries the core visualization needs, compiles both with cargo and
stages the resulting libraries and support trees into the installation.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		// Unrecognised names reach RunE instead of failing in cobra.
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), color.Warn.Sprintf("Unknown command:  %s", args[0]))
			}
			return cmd.Usage()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default ~/.scaii/sky-install.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	for _, cmd := range newProvisionCommands(opts) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newEnvCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))

	return rootCmd
}

// reportFailure prints the failing command's error followed by its usage.
func reportFailure(cmd *cobra.Command, err error) {
	name := cmd.CalledAs()
	if name == "" {
		name = cmd.Name()
	}
	fmt.Fprintln(cmd.ErrOrStderr(), color.Error.Sprintf("ERROR running command %s : %s", name, err))
	_ = cmd.Usage()
}
