package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/lto-plan-scraper/internal/progress"
	"github.com/JakeFAU/lto-plan-scraper/internal/store"
)

// StoreSink persists sweep lifecycle rows via a store.RunRepository. Cell and
// page events are ignored; only sweep start and completion are written.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume forwards sweep events to the repository. It respects ctx deadlines
// and returns the first repository error.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageSweepStart:
			if err := s.repo.StartRun(ctx, evt.RunUUID(), evt.LotNumber, evt.TS); err != nil {
				return fmt.Errorf("start run: %w", err)
			}
		case progress.StageSweepDone:
			status := store.RunSuccess
			var note *string
			if evt.Note != "" {
				status = store.RunPartial
				msg := evt.Note
				note = &msg
			}
			if err := s.repo.FinishRun(ctx, evt.RunUUID(), evt.TS, status, evt.Records, note); err != nil {
				return fmt.Errorf("finish run: %w", err)
			}
			s.logger.Debug("sweep run persisted",
				zap.String("run_id", evt.RunUUID().String()),
				zap.String("status", string(status)),
			)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
