package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/lto-plan-scraper/internal/progress"
)

// LogSink emits structured logs for progress streams. It is useful for
// non-interactive runs where the spinner is disabled.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("lot_number", evt.LotNumber),
			zap.String("lot_type", evt.LotType),
			zap.String("parish", evt.Parish),
			zap.Int("page", evt.Page),
			zap.Int("pages", evt.Pages),
			zap.Int("records", evt.Records),
			zap.Duration("dur", evt.Dur),
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
