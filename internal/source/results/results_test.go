package results

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

func loadPage(t *testing.T, name string) *Page {
	t.Helper()
	raw, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	page, err := Parse(string(raw))
	require.NoError(t, err)
	return page
}

func TestSummary(t *testing.T) {
	t.Parallel()

	page := loadPage(t, "page1.html")
	summary, err := page.Summary()
	require.NoError(t, err)
	assert.Equal(t, "Search Results: 1 - 10 of 12", summary)

	n, err := plan.ParseResultCount(summary)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestSummaryMissingBanner(t *testing.T) {
	t.Parallel()

	page, err := Parse(`<html><body><p>No plans found.</p></body></html>`)
	require.NoError(t, err)
	_, err = page.Summary()
	require.ErrorIs(t, err, plan.ErrNoResults)

	page, err = Parse(`<table><tr><td class="searchResultsPageText">   </td></tr></table>`)
	require.NoError(t, err)
	_, err = page.Summary()
	require.ErrorIs(t, err, plan.ErrNoResults)
}

func TestRows(t *testing.T) {
	t.Parallel()

	rows := loadPage(t, "page1.html").Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, plan.RawRow{"", "12", "1234", "W-7", "4471", "", "", "Winnipeg", "Plan of Survey", "Road widening east"}, rows[0])
	assert.Equal(t, "DEP-9", rows[1][2])
	assert.Len(t, rows[1], 10)
}

func TestPageLinks(t *testing.T) {
	t.Parallel()

	page := loadPage(t, "page1.html")
	assert.Equal(t, []int{2}, page.PageLinks())
	assert.True(t, page.HasPage(2))
	assert.False(t, page.HasPage(3))
}
