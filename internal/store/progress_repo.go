package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// ErrNotFound signals that the requested run does not exist.
var ErrNotFound = errors.New("sweep run not found")

// RunStatus mirrors the sweep_runs status column.
type RunStatus string

// Run statuses persisted in sweep_runs.status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	// RunPartial marks a sweep that finished with some failed cells.
	RunPartial RunStatus = "partial"
	RunError   RunStatus = "error"
)

// Run models one row of sweep_runs.
type Run struct {
	ID           uuid.UUID
	LotNumber    string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       RunStatus
	Records      int
	ErrorMessage *string
}

// RunRepository persists sweep run lifecycle rows.
type RunRepository interface {
	StartRun(ctx context.Context, runID uuid.UUID, lotNumber string, startedAt time.Time) error
	FinishRun(
		ctx context.Context,
		runID uuid.UUID,
		finishedAt time.Time,
		status RunStatus,
		records int,
		errMsg *string,
	) error
	GetRun(ctx context.Context, runID uuid.UUID) (Run, error)
}

// RunRef identifies the sweep run that produced a batch of records.
type RunRef struct {
	ID        uuid.UUID
	LotNumber string
	StartedAt time.Time
}

// RecordRepository persists plan records keyed by deposit. Each deposit holds
// its latest observation across runs; run_id names the run that wrote it.
type RecordRepository interface {
	UpsertRecords(ctx context.Context, run RunRef, records []plan.Record) (int, error)
}
