package headless

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

func mustQuery(t *testing.T) plan.Query {
	t.Helper()
	q, err := plan.NewQuery("12", 5, 15)
	require.NoError(t, err)
	return q
}
