package aggregate

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

func deposits(recs []plan.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Deposit
	}
	return out
}

func planNos(recs []plan.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.PlanNo
	}
	return out
}

func TestSortPlanNumbersNumerically(t *testing.T) {
	t.Parallel()

	in := []plan.Record{
		{Deposit: "a", PlanNo: "10"},
		{Deposit: "b", PlanNo: "2"},
		{Deposit: "c", PlanNo: "abc"},
	}
	assert.Equal(t, []string{"2", "10", "abc"}, planNos(Sort(in)))
}

func TestSortDepositsByEmbeddedNumber(t *testing.T) {
	t.Parallel()

	in := []plan.Record{
		{Deposit: "DEP-45"},
		{Deposit: "DEP-3"},
		{Deposit: "12"},
	}
	assert.Equal(t, []string{"DEP-3", "12", "DEP-45"}, deposits(Sort(in)))
}

func TestSortPartitionsPlanBeforeNoPlan(t *testing.T) {
	t.Parallel()

	in := []plan.Record{
		{Deposit: "1"},
		{Deposit: "9", PlanNo: "300"},
		{Deposit: "none"},
		{Deposit: "2", PlanNo: "7"},
		{Deposit: "0003"},
	}
	orig := append([]plan.Record(nil), in...)

	out := Sort(in)
	assert.Equal(t, []string{"7", "300", "", "", ""}, planNos(out))
	assert.Equal(t, []string{"2", "9", "1", "0003", "none"}, deposits(out))
	assert.Equal(t, orig, in, "input must not be reordered")
}

func TestCompareDeposit(t *testing.T) {
	t.Parallel()

	assert.Negative(t, CompareDeposit("2", "10"))
	assert.Negative(t, CompareDeposit("99999999999999999999", "100000000000000000000"))
	assert.Negative(t, CompareDeposit("X7", "abc"))
	assert.Negative(t, CompareDeposit("abc", "abd"))
	assert.Negative(t, CompareDeposit("007", "7"), "equal keys fall back to the raw string")
	assert.Zero(t, CompareDeposit("D-5", "D-5"))
}

func TestComparePlanNo(t *testing.T) {
	t.Parallel()

	assert.Negative(t, ComparePlanNo("2", "10"))
	assert.Negative(t, ComparePlanNo("2.5", "3"))
	assert.Positive(t, ComparePlanNo("NaN", "3"))
	assert.Negative(t, ComparePlanNo("100", "A1"))
	assert.Negative(t, ComparePlanNo("A1", "B1"))
}

func TestSortPartitionsRandomRecords(t *testing.T) {
	t.Parallel()

	planPool := []string{"", " ", "10", "2", "2.5", "007", "abc", "B-7", "-3"}
	depositPool := []string{"12", "0012", "900", "D-3", "A1B2", "x", "y", "", "18446744073709551617"}
	rng := rand.New(rand.NewPCG(11, 3))

	for range 200 {
		in := make([]plan.Record, rng.IntN(25))
		for i := range in {
			in[i] = plan.Record{
				Deposit: depositPool[rng.IntN(len(depositPool))],
				PlanNo:  planPool[rng.IntN(len(planPool))],
			}
		}
		before := slices.Clone(in)

		out := Sort(in)
		require.Equal(t, before, in)
		require.ElementsMatch(t, in, out)

		split := slices.IndexFunc(out, func(r plan.Record) bool { return !r.HasPlan() })
		if split < 0 {
			split = len(out)
		}
		for i, r := range out {
			assert.Equal(t, i < split, r.HasPlan(), "record %d %+v", i, r)
		}
		for i := 1; i < split; i++ {
			assert.LessOrEqual(t, ComparePlanNo(out[i-1].PlanNo, out[i].PlanNo), 0, "plan %v", planNos(out))
		}
		for i := split + 1; i < len(out); i++ {
			assert.LessOrEqual(t, CompareDeposit(out[i-1].Deposit, out[i].Deposit), 0, "deposit %v", deposits(out))
		}
	}
}
