package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/lto-plan-scraper/internal/progress"
)

func TestLogSinkWritesOneLinePerEvent(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	sink := NewLogSink(zap.New(core))
	runID := progress.UUIDToBytes(uuid.New())
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, TS: time.Now(), Stage: progress.StageCellError, LotType: "Wood Lot", Parish: "Lorette", Note: "timeout"},
		{RunID: runID, TS: time.Now(), Stage: progress.StagePageDone, Page: 1, Records: 4},
	}))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	require.Equal(t, "CELL_ERROR", entries[0].ContextMap()["stage"])
	require.Equal(t, "timeout", entries[0].ContextMap()["note"])
	_, hasNote := entries[1].ContextMap()["note"]
	require.False(t, hasNote)
	require.NoError(t, sink.Close(context.Background()))
}
