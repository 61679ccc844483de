package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/lto-plan-scraper/internal/app"
	"github.com/JakeFAU/lto-plan-scraper/internal/export"
	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

type searchOptions struct {
	lot     string
	lotType string
	parish  string
	withLot bool
}

// newSearchCmd creates the 'search' subcommand, which runs one lot number,
// lot type and parish query and saves the merged records.
func newSearchCmd() *cobra.Command {
	var opts searchOptions
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search one lot type and parish for a lot number",
		Long: `Searches the registry for a lot number in one lot type and parish,
walks every result page, merges rows that share a deposit number, and saves
the ordered records as "<parish> - <lot type> - <lot> - <date>.<ext>".

Lot types and parishes are given by id or name; see "planscraper list".`,
		Example: `  planscraper search --lot 12 --type "River Lot" --parish Kildonan
  planscraper search --lot 3-7 --type 5 --parish 15 --with-lot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.lot, "lot", "", "lot number, range (1-7) or list (3,5,10)")
	f.StringVar(&opts.lotType, "type", "", "lot type id or name")
	f.StringVar(&opts.parish, "parish", "", "parish or settlement id or name")
	f.BoolVar(&opts.withLot, "with-lot", false, "keep the lot column in the output")
	for _, name := range []string{"lot", "type", "parish"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runSearch(ctx context.Context, out io.Writer, opts searchOptions) error {
	a, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	lotType, err := resolveLotType(opts.lotType)
	if err != nil {
		return err
	}
	parish, err := resolveParish(opts.parish)
	if err != nil {
		return err
	}
	q, err := plan.NewQuery(opts.lot, lotType.ID, parish.ID)
	if err != nil {
		return err
	}
	if err := checkSite(ctx, a); err != nil {
		return err
	}

	withLot := opts.withLot || a.Config().Sweep.IncludeLot
	fetcher, err := a.Fetcher(withLot)
	if err != nil {
		return err
	}
	records, _, err := fetcher.Fetch(ctx, q)
	if err != nil {
		return fmt.Errorf("search %s: %w", q, err)
	}

	exp, err := a.Exporter(withLot)
	if err != nil {
		return err
	}
	name := export.SearchFilename(q, a.Clock().Now(), exp.Format())
	return saveResults(ctx, out, a, exp, name, records)
}

// checkSite runs the availability probe unless it is switched off.
func checkSite(ctx context.Context, a *app.App) error {
	if a.Config().Source.SkipProbe {
		return nil
	}
	_, err := a.CheckSite(ctx)
	return err
}

// saveResults exports records under name and prints the resulting URI.
// Nothing to save is reported, not returned.
func saveResults(
	ctx context.Context,
	out io.Writer,
	a *app.App,
	exp *export.Exporter,
	name string,
	records []plan.Record,
) error {
	uri, err := exp.Save(ctx, name, records)
	if errors.Is(err, export.ErrNothingToSave) {
		a.Reporter().Fail("No results to save")
		return nil
	}
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	a.Reporter().Succeed(fmt.Sprintf("Saved results to %q", name))
	_, _ = fmt.Fprintln(out, uri)
	return nil
}
