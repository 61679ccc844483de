package cmd

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// newListCmd creates the 'list' subcommand, which prints the lot types and
// parishes accepted by search and all.
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "list [lot-types|parishes]",
		Short:       "List the lot types and parishes the registry knows",
		Args:        cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs:   []string{"lot-types", "parishes"},
		Annotations: map[string]string{skipAppAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			which := ""
			if len(args) == 1 {
				which = args[0]
			}
			if which == "" || which == "lot-types" {
				rows := make([]table.Row, 0, len(plan.LotTypes()))
				for _, lt := range plan.LotTypes() {
					rows = append(rows, table.Row{lt.ID, lt.Name})
				}
				renderList(out, "Lot type", rows)
			}
			if which == "" || which == "parishes" {
				rows := make([]table.Row, 0, len(plan.Parishes()))
				for _, p := range plan.Parishes() {
					rows = append(rows, table.Row{p.ID, p.Name})
				}
				renderList(out, "Parish / settlement", rows)
			}
		},
	}
}

func renderList(out io.Writer, title string, rows []table.Row) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"ID", title})
	t.AppendRows(rows)
	t.Render()
}
