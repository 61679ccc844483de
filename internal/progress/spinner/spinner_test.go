package spinner

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestModelTracksStatusAndQuits(t *testing.T) {
	t.Parallel()

	m := newModel("Loading")
	require.NotNil(t, m.Init())
	require.Contains(t, m.View(), "Loading")

	next, cmd := m.Update(statusMsg("Scraping page 1 of 3"))
	require.Nil(t, cmd)
	require.Contains(t, next.View(), "Scraping page 1 of 3")

	next, cmd = next.Update(stopMsg{})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Empty(t, next.View())
}

func TestNoticeLines(t *testing.T) {
	t.Parallel()

	require.True(t, strings.HasSuffix(succeedLine("Saved results"), " Saved results"))
	require.True(t, strings.HasSuffix(failLine("No results to save"), " No results to save"))
	require.Contains(t, succeedLine("x"), "✔")
	require.Contains(t, failLine("x"), "✖")
}

func TestReporterLifecycle(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	r := New(out, "Loading")
	r.Report("Scraping page 1 of 1")
	r.Succeed("Scraped 1 pages")
	require.NoError(t, r.Stop())

	r.Fail("printed after stop")
	require.Contains(t, out.String(), "printed after stop")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
