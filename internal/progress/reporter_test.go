package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorderKeepsOrder(t *testing.T) {
	t.Parallel()

	rec := &Recorder{}
	rec.Report("loading")
	rec.Succeed("done")
	rec.Fail("nothing")

	require.Equal(t, []Entry{
		{Kind: KindReport, Message: "loading"},
		{Kind: KindSucceed, Message: "done"},
		{Kind: KindFail, Message: "nothing"},
	}, rec.Entries())
	require.Equal(t, []string{"done"}, rec.Messages(KindSucceed))
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, Nop{}, b}
	m.Report("r")
	m.Succeed("s")
	m.Fail("f")

	require.Equal(t, a.Entries(), b.Entries())
	require.Len(t, a.Entries(), 3)
}

func TestLogReporterLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	r := NewLogReporter(zap.New(core))
	r.Report("scraping page 1 of 2")
	r.Succeed("scraped 2 pages")
	r.Fail("no results")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	require.Equal(t, zap.DebugLevel, entries[0].Level)
	require.Equal(t, zap.InfoLevel, entries[1].Level)
	require.Equal(t, zap.WarnLevel, entries[2].Level)
	require.Equal(t, "no results", entries[2].Message)

	NewLogReporter(nil).Succeed("nil logger is tolerated")
}
