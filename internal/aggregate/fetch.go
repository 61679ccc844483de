package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
	"github.com/JakeFAU/lto-plan-scraper/internal/progress"
)

// FetchOptions controls how a single query is folded.
type FetchOptions struct {
	// IncludeLot retains the leading lot column of each row.
	IncludeLot bool
	// Policy resolves deposits seen more than once. Nil selects LongestComments.
	Policy MergePolicy
}

// FetchStats summarises one paginated fetch.
type FetchStats struct {
	// Results is the count announced by the results banner.
	Results int
	// PagesExpected is ceil(Results / plan.PageSize).
	PagesExpected int
	// Pages is how many pages were actually read.
	Pages int
	// Rows counts raw rows folded; NewRecords counts deposits that were new
	// to the accumulator.
	Rows       int
	NewRecords int
	// Empty is set when the source reported no results.
	Empty bool
	// StoppedEarly is set when the source could not advance before the
	// expected last page.
	StoppedEarly bool
}

// Fetcher drives one search session page by page into an Accumulator.
type Fetcher struct {
	source   plan.Source
	reporter progress.Reporter
	emitter  progress.Emitter
	clock    Clock
	logger   *zap.Logger
	opts     FetchOptions
	runID    [16]byte
}

// NewFetcher constructs a Fetcher. Nil reporter, emitter and logger are
// replaced with no-op implementations.
func NewFetcher(
	source plan.Source,
	reporter progress.Reporter,
	emitter progress.Emitter,
	clock Clock,
	logger *zap.Logger,
	opts FetchOptions,
) *Fetcher {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Policy == nil {
		opts.Policy = LongestComments{}
	}
	return &Fetcher{
		source:   source,
		reporter: reporter,
		emitter:  emitter,
		clock:    clock,
		logger:   logger,
		opts:     opts,
	}
}

// WithRunID returns a copy of f that tags page events with runID.
func (f *Fetcher) WithRunID(runID [16]byte) *Fetcher {
	cp := *f
	cp.runID = runID
	return &cp
}

// Options returns the fetch options in effect.
func (f *Fetcher) Options() FetchOptions {
	return f.opts
}

// Fetch runs q into a fresh accumulator and returns its records in
// unspecified order.
func (f *Fetcher) Fetch(ctx context.Context, q plan.Query) ([]plan.Record, FetchStats, error) {
	acc := NewAccumulator(f.opts.Policy)
	stats, err := f.FetchInto(ctx, q, acc)
	if err != nil {
		return nil, stats, err
	}
	return acc.Values(), stats, nil
}

// FetchInto opens a session for q and folds every reachable page into acc.
// Pages are read strictly in order; the loop stops early when the session
// reports it cannot advance. The session is closed on every exit path.
func (f *Fetcher) FetchInto(ctx context.Context, q plan.Query, acc *Accumulator) (FetchStats, error) {
	var stats FetchStats
	logger := f.logger.With(zap.String("query", q.String()))

	sess, err := f.source.Open(ctx, q)
	if err != nil {
		if errors.Is(err, plan.ErrNoResults) {
			stats.Empty = true
			f.reporter.Fail(noResultsText(q))
			return stats, nil
		}
		return stats, sessionErr("open", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("close session failed", zap.Error(cerr))
		}
	}()

	summary, err := sess.Summary(ctx)
	if err != nil {
		if errors.Is(err, plan.ErrNoResults) {
			stats.Empty = true
			f.reporter.Fail(noResultsText(q))
			return stats, nil
		}
		return stats, sessionErr("summary", err)
	}
	count, err := plan.ParseResultCount(summary)
	if err != nil {
		return stats, fmt.Errorf("fetch %s: %w", q, err)
	}
	stats.Results = count
	stats.PagesExpected = plan.PageCount(count)
	if stats.PagesExpected == 0 {
		stats.Empty = true
		f.reporter.Fail(noResultsText(q))
		return stats, nil
	}
	logger.Debug("results banner parsed", zap.Int("results", count), zap.Int("pages", stats.PagesExpected))

	for page := 1; page <= stats.PagesExpected; page++ {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("fetch %s: %w", q, err)
		}
		f.reporter.Report(fmt.Sprintf("Scraping page %d of %d", page, stats.PagesExpected))

		rows, err := sess.Rows(ctx)
		if err != nil {
			return stats, sessionErr("rows", err)
		}
		for _, row := range rows {
			if acc.Fold(Normalize(row, f.opts.IncludeLot)) {
				stats.NewRecords++
			}
		}
		stats.Rows += len(rows)
		stats.Pages++
		f.emitPage(q, page, stats.PagesExpected, len(rows))

		if page == stats.PagesExpected {
			break
		}
		more, err := sess.Advance(ctx, page+1)
		if err != nil {
			return stats, sessionErr("advance", err)
		}
		if !more {
			stats.StoppedEarly = true
			logger.Info("source cannot advance; stopping early",
				zap.Int("page", page),
				zap.Int("pages", stats.PagesExpected),
			)
			break
		}
	}

	f.reporter.Succeed(fmt.Sprintf("Scraped %d pages", stats.Pages))
	return stats, nil
}

func (f *Fetcher) emitPage(q plan.Query, page, pages, rows int) {
	if f.runID == [16]byte{} {
		return
	}
	f.emitter.Emit(progress.Event{
		RunID:     f.runID,
		TS:        f.now(),
		Stage:     progress.StagePageDone,
		LotNumber: q.LotNumber(),
		LotType:   q.LotType().Name,
		Parish:    q.Parish().Name,
		Page:      page,
		Pages:     pages,
		Records:   rows,
	})
}

func (f *Fetcher) now() time.Time {
	if f.clock == nil {
		return time.Now().UTC()
	}
	return f.clock.Now()
}

func noResultsText(q plan.Query) string {
	return fmt.Sprintf("There aren't any results for %s", q)
}

func sessionErr(op string, err error) error {
	var se *plan.SessionError
	if errors.As(err, &se) {
		return err
	}
	return &plan.SessionError{Op: op, Err: err}
}
