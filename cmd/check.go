package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newCheckCmd creates the 'check' subcommand, which probes the registry's
// search page and reports whether searches can run.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether the registry search is available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			status, checkErr := a.CheckSite(cmd.Context())

			t := table.NewWriter()
			t.SetStyle(table.StyleRounded)
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"URL", "Up", "Status", "Reason", "Time"})
			t.AppendRow(table.Row{status.URL, status.Up, status.StatusCode, status.Reason, status.Duration.Round(time.Millisecond)})
			t.Render()

			if checkErr != nil {
				return checkErr
			}
			a.Reporter().Succeed("Site is up")
			return nil
		},
	}
}
