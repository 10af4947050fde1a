package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newEnvCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Print the search paths the installed libraries need",
		Long: `Print shell statements that add the installation to the Python module
path and the platform's library search path. sky-install never changes
the environment itself.`,
		Example: `  # Apply to the current shell
  eval "$(sky-install env)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts, appMode{})
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			bin := a.layout.DotPath("bin")
			python := strings.Join([]string{bin, a.layout.DotPath(filepath.Join("glue", "python"))}, string(os.PathListSeparator))

			for _, line := range envLines(a.platform.Name(), map[string]string{
				"PYTHONPATH":               python,
				a.platform.SearchPathVar(): bin,
			}) {
				fmt.Fprintln(a.out, line)
			}
			return nil
		},
	}
}

// envLines renders prepend statements for the host shell, PYTHONPATH first.
func envLines(goos string, vars map[string]string) []string {
	names := []string{"PYTHONPATH"}
	for name := range vars {
		if name != "PYTHONPATH" {
			names = append(names, name)
		}
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		if goos == "windows" {
			lines = append(lines, fmt.Sprintf("set %s=%s;%%%s%%", name, vars[name], name))
			continue
		}
		lines = append(lines, fmt.Sprintf("export %s=\"%s${%s:+:$%s}\"", name, vars[name], name, name))
	}
	return lines
}
