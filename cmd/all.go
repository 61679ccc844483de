package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/lto-plan-scraper/internal/aggregate"
	"github.com/JakeFAU/lto-plan-scraper/internal/export"
	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

type allOptions struct {
	lotTypes []string
	parishes []string
	quiet    bool
}

// newAllCmd creates the 'all' subcommand, which sweeps a lot number across
// every lot type and parish.
func newAllCmd() *cobra.Command {
	var opts allOptions
	cmd := &cobra.Command{
		Use:   "all <lot-number>",
		Short: "Search a lot number in every lot type and parish",
		Long: `Runs one search per lot type and parish pair, lot type outermost, and
saves the combined records as "<date>.<ext>". A failing pair is reported and
skipped; the sweep carries on and exits non-zero once the results are saved.

--type and --parish narrow the sweep and may be repeated.`,
		Example: `  planscraper all 12
  planscraper all 12 --type "River Lot" --type "Park Lot" --parish Kildonan`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAll(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.lotTypes, "type", nil, "restrict to these lot types (id or name)")
	f.StringSliceVar(&opts.parishes, "parish", nil, "restrict to these parishes (id or name)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "skip the summary table")
	return cmd
}

func runAll(ctx context.Context, out io.Writer, lot string, opts allOptions) error {
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	if err := plan.ValidateLotNumber(lot); err != nil {
		return err
	}
	lotTypes, err := resolveLotTypes(opts.lotTypes)
	if err != nil {
		return err
	}
	parishes, err := resolveParishes(opts.parishes)
	if err != nil {
		return err
	}
	if err := checkSite(ctx, a); err != nil {
		return err
	}

	agg, err := a.Aggregator()
	if err != nil {
		return err
	}
	res, sweepErr := agg.Sweep(ctx, lot, lotTypes, parishes)
	if res.RunID == uuid.Nil && sweepErr != nil {
		return sweepErr
	}
	if !opts.quiet {
		renderSweep(out, res)
	}

	// Partial results are still saved after an interrupt.
	saveCtx := context.WithoutCancel(ctx)
	exp, err := a.Exporter(a.Config().Sweep.IncludeLot)
	if err != nil {
		return errors.Join(sweepErr, err)
	}
	name := export.SweepFilename(a.Clock().Now(), exp.Format())
	if err := saveResults(saveCtx, out, a, exp, name, res.Records); err != nil {
		return errors.Join(sweepErr, err)
	}
	if err := a.Persist(saveCtx, res); err != nil {
		return errors.Join(sweepErr, err)
	}
	if sweepErr != nil {
		return fmt.Errorf("sweep lot %s: %w", lot, sweepErr)
	}
	return nil
}

// renderSweep prints the cells that returned records or failed, with totals.
func renderSweep(out io.Writer, res aggregate.SweepResult) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Lot %s  run %s", res.LotNumber, res.RunID))
	t.AppendHeader(table.Row{"Lot type", "Parish", "Status", "Records", "Pages", "Time"})

	var empty, failed int
	for _, c := range res.Cells {
		switch c.Status {
		case aggregate.CellEmpty:
			empty++
			continue
		case aggregate.CellFailed:
			failed++
		}
		t.AppendRow(table.Row{c.LotType.Name, c.Parish.Name, c.Status, c.Records, c.Pages, c.Duration.Round(time.Millisecond)})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d cells", len(res.Cells)),
		fmt.Sprintf("%d empty", empty),
		fmt.Sprintf("%d failed", failed),
		len(res.Records),
		"",
		res.Duration.Round(time.Millisecond),
	})
	t.Render()
}
