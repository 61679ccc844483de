package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
	"github.com/JakeFAU/lto-plan-scraper/internal/progress"
)

// CellStatus is the outcome of one lot type and parish fetch.
type CellStatus string

// Cell outcomes.
const (
	CellOK     CellStatus = "ok"
	CellEmpty  CellStatus = "empty"
	CellFailed CellStatus = "failed"
)

// CellResult describes one cell of a sweep.
type CellResult struct {
	LotType plan.LotType
	Parish  plan.Parish
	Status  CellStatus
	// Records is the number of records the cell contributed.
	Records  int
	Pages    int
	Duration time.Duration
	Err      error
}

// SweepResult is the combined output of a sweep.
type SweepResult struct {
	RunID     uuid.UUID
	LotNumber string
	StartedAt time.Time
	// Records is the concatenation of every cell's records in cell order,
	// or the deduplicated union when cross-cell dedup is enabled.
	Records  []plan.Record
	Cells    []CellResult
	Duration time.Duration
}

// Failed returns the cells that failed.
func (r SweepResult) Failed() []CellResult {
	var out []CellResult
	for _, c := range r.Cells {
		if c.Status == CellFailed {
			out = append(out, c)
		}
	}
	return out
}

// SweepConfig tunes the aggregator.
type SweepConfig struct {
	// DedupAcrossCells folds every cell into one accumulator instead of one
	// per cell.
	DedupAcrossCells bool
}

// Aggregator runs a fetch for every lot type and parish pair, sequentially,
// lot type outermost. A failing cell is reported and recorded; the sweep
// carries on with the next cell. Only cancellation of ctx ends it early.
type Aggregator struct {
	fetcher  *Fetcher
	reporter progress.Reporter
	emitter  progress.Emitter
	clock    Clock
	ids      IDGenerator
	logger   *zap.Logger
	cfg      SweepConfig
}

// NewAggregator wires an Aggregator around fetcher.
func NewAggregator(
	fetcher *Fetcher,
	reporter progress.Reporter,
	emitter progress.Emitter,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
	cfg SweepConfig,
) *Aggregator {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		fetcher:  fetcher,
		reporter: reporter,
		emitter:  emitter,
		clock:    clock,
		ids:      ids,
		logger:   logger,
		cfg:      cfg,
	}
}

// Sweep searches lotNumber in every (lot type, parish) cell. The returned
// error joins every cell failure; records from the cells that succeeded are
// returned alongside it.
func (a *Aggregator) Sweep(
	ctx context.Context,
	lotNumber string,
	lotTypes []plan.LotType,
	parishes []plan.Parish,
) (SweepResult, error) {
	if err := plan.ValidateLotNumber(lotNumber); err != nil {
		return SweepResult{}, err
	}
	runID, err := a.newRunID()
	if err != nil {
		return SweepResult{}, fmt.Errorf("generate run id: %w", err)
	}
	res := SweepResult{RunID: runID, LotNumber: lotNumber}
	rawID := progress.UUIDToBytes(runID)
	fetcher := a.fetcher.WithRunID(rawID)
	logger := a.logger.With(zap.String("run_id", runID.String()), zap.String("lot", lotNumber))

	start := a.now()
	res.StartedAt = start
	a.emitter.Emit(progress.Event{
		RunID:     rawID,
		TS:        start,
		Stage:     progress.StageSweepStart,
		LotNumber: lotNumber,
	})
	logger.Info("sweep started",
		zap.Int("lot_types", len(lotTypes)),
		zap.Int("parishes", len(parishes)),
	)

	var shared *Accumulator
	if a.cfg.DedupAcrossCells {
		shared = NewAccumulator(fetcher.Options().Policy)
	}

	var errs []error
cells:
	for _, lt := range lotTypes {
		for _, p := range parishes {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break cells
			}
			cell, records := a.runCell(ctx, fetcher, rawID, lotNumber, lt, p, shared)
			res.Cells = append(res.Cells, cell)
			if cell.Err != nil {
				errs = append(errs, fmt.Errorf("%s in %s: %w", lt.Name, p.Name, cell.Err))
			}
			if shared == nil {
				res.Records = append(res.Records, records...)
			}
		}
	}
	if shared != nil {
		res.Records = shared.Values()
	}
	res.Duration = a.now().Sub(start)

	failed := res.Failed()
	done := progress.Event{
		RunID:     rawID,
		TS:        a.now(),
		Stage:     progress.StageSweepDone,
		LotNumber: lotNumber,
		Records:   len(res.Records),
		Dur:       res.Duration,
	}
	if len(failed) > 0 || ctx.Err() != nil {
		done.Note = failureNote(failed, ctx.Err())
	}
	a.emitter.Emit(done)

	logger.Info("sweep finished",
		zap.Int("cells", len(res.Cells)),
		zap.Int("failed_cells", len(failed)),
		zap.Int("records", len(res.Records)),
		zap.Duration("duration", res.Duration),
	)
	return res, errors.Join(errs...)
}

func (a *Aggregator) runCell(
	ctx context.Context,
	fetcher *Fetcher,
	runID [16]byte,
	lotNumber string,
	lt plan.LotType,
	p plan.Parish,
	shared *Accumulator,
) (CellResult, []plan.Record) {
	cell := CellResult{LotType: lt, Parish: p}
	a.reporter.Report(fmt.Sprintf("starting %s in %s", lt.Name, p.Name))
	start := a.now()
	evt := progress.Event{
		RunID:     runID,
		TS:        start,
		Stage:     progress.StageCellStart,
		LotNumber: lotNumber,
		LotType:   lt.Name,
		Parish:    p.Name,
	}
	a.emitter.Emit(evt)

	acc := NewAccumulator(fetcher.Options().Policy)

	var stats FetchStats
	q, err := plan.NewQuery(lotNumber, lt.ID, p.ID)
	if err == nil {
		stats, err = fetcher.FetchInto(ctx, q, acc)
	}
	cell.Pages = stats.Pages
	cell.Duration = a.now().Sub(start)
	evt.TS = a.now()
	evt.Dur = cell.Duration

	var records []plan.Record
	switch {
	case err != nil:
		cell.Status = CellFailed
		cell.Err = err
		a.reporter.Fail(fmt.Sprintf("%s in %s failed: %v", lt.Name, p.Name, err))
		a.logger.Warn("cell failed",
			zap.String("lot_type", lt.Name),
			zap.String("parish", p.Name),
			zap.Error(err),
		)
		evt.Stage = progress.StageCellError
		evt.Note = err.Error()
	case stats.Empty:
		cell.Status = CellEmpty
		evt.Stage = progress.StageCellEmpty
	default:
		cell.Status = CellOK
		evt.Stage = progress.StageCellDone
	}
	if cell.Status == CellOK {
		records = acc.Values()
		cell.Records = len(records)
		if shared != nil {
			cell.Records = 0
			for _, rec := range records {
				if shared.Fold(rec) {
					cell.Records++
				}
			}
		}
	}
	evt.Records = cell.Records
	a.emitter.Emit(evt)
	return cell, records
}

func (a *Aggregator) newRunID() (uuid.UUID, error) {
	if a.ids == nil {
		return uuid.NewRandom()
	}
	return a.ids.NewRawID()
}

func (a *Aggregator) now() time.Time {
	if a.clock == nil {
		return time.Now().UTC()
	}
	return a.clock.Now()
}

func failureNote(failed []CellResult, ctxErr error) string {
	parts := make([]string, 0, len(failed)+1)
	for _, c := range failed {
		parts = append(parts, fmt.Sprintf("%s in %s", c.LotType.Name, c.Parish.Name))
	}
	note := ""
	if len(parts) > 0 {
		note = fmt.Sprintf("%d cells failed: %s", len(parts), strings.Join(parts, "; "))
	}
	if ctxErr != nil {
		if note != "" {
			note += "; "
		}
		note += ctxErr.Error()
	}
	return note
}
