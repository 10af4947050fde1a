package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/scaii/sky-install/pkg/provision"
	"github.com/scaii/sky-install/pkg/stores"
)

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous sky-install runs",
		Long: `Without arguments, list recent runs newest first. With a run ID, show
the steps of that run and the artifacts it staged.`,
		Example: `  # Last five runs
  sky-install history --limit 5

  # Steps of one run
  sky-install history 3f1c0b9e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(cmd, opts, appMode{history: true})
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if a.store == nil {
				a.warn("Run history is disabled.")
				return nil
			}
			if err := a.store.HealthCheck(ctx); err != nil {
				return err
			}

			if len(args) == 0 {
				runs, err := a.store.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					a.notice("No runs recorded.")
					return nil
				}
				printRuns(a.out, runs)
				return nil
			}

			run, err := a.store.GetRun(ctx, args[0])
			if errors.Is(err, stores.ErrNotFound) {
				return fmt.Errorf("run %s not found", args[0])
			}
			if err != nil {
				return err
			}
			steps, err := a.store.ListSteps(ctx, run.ID)
			if err != nil {
				return err
			}
			artifacts, err := a.store.ListArtifacts(ctx, run.ID)
			if err != nil {
				return err
			}
			printRun(a.out, run, steps, artifacts)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")

	return cmd
}

func printRuns(w io.Writer, runs []*provision.RunRecord) {
	fmt.Fprintf(w, "%-36s  %-20s  %-20s  %-10s  %s\n", "ID", "STARTED", "COMMAND", "STATUS", "BRANCH")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-20s  %-20s  %-10s  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Command, statusText(r.Status), r.Branch)
	}
}

func printRun(w io.Writer, run *provision.RunRecord, steps []*provision.StepRecord, artifacts []*provision.ArtifactRecord) {
	fmt.Fprintf(w, "Run:     %s\n", run.ID)
	fmt.Fprintf(w, "Command: %s\n", run.Command)
	if run.Branch != "" {
		fmt.Fprintf(w, "Branch:  %s\n", run.Branch)
	}
	fmt.Fprintf(w, "Variant: %s\n", run.Variant)
	fmt.Fprintf(w, "Status:  %s\n", statusText(run.Status))
	if run.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", run.Error)
	}

	fmt.Fprintln(w)
	for _, s := range steps {
		fmt.Fprintf(w, "%3d  %-24s  %-10s  %8s  attempts=%d\n",
			s.Seq, s.Name, statusText(s.Status), s.Duration.Round(time.Millisecond), s.Attempts)
		if s.Error != "" {
			fmt.Fprintf(w, "     %s\n", s.Error)
		}
	}

	if len(artifacts) > 0 {
		fmt.Fprintln(w)
		for _, art := range artifacts {
			fmt.Fprintf(w, "%-8s  %s  %d bytes  blake3:%s\n", art.Component, art.Path, art.Size, art.Digest)
		}
	}
}

func statusText(s provision.RunStatus) string {
	switch s {
	case provision.StatusSucceeded:
		return color.Success.Sprint(string(s))
	case provision.StatusFailed:
		return color.Error.Sprint(string(s))
	default:
		return string(s)
	}
}
