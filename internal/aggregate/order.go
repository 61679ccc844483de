package aggregate

import (
	"cmp"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

var digitRun = regexp.MustCompile(`\d+`)

// Sort returns a new slice in export order: records with a plan number
// first, ordered by plan number, then records without one, ordered by
// deposit. The input is not modified.
func Sort(records []plan.Record) []plan.Record {
	withPlan := make([]plan.Record, 0, len(records))
	var noPlan []plan.Record
	for _, r := range records {
		if r.HasPlan() {
			withPlan = append(withPlan, r)
		} else {
			noPlan = append(noPlan, r)
		}
	}
	slices.SortStableFunc(withPlan, func(a, b plan.Record) int {
		return ComparePlanNo(a.PlanNo, b.PlanNo)
	})
	slices.SortStableFunc(noPlan, func(a, b plan.Record) int {
		return CompareDeposit(a.Deposit, b.Deposit)
	})
	return append(withPlan, noPlan...)
}

// ComparePlanNo orders plan numbers numerically when both parse as numbers.
// A numeric plan number sorts before a non-numeric one; two non-numeric plan
// numbers compare lexicographically.
func ComparePlanNo(a, b string) int {
	na, aok := parseNumber(a)
	nb, bok := parseNumber(b)
	switch {
	case aok && bok:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

// CompareDeposit orders deposits by their numeric key: the whole deposit
// when it is all digits, otherwise its first run of digits. Deposits without
// digits sort after every deposit with digits and compare lexicographically
// among themselves. Equal keys fall back to the raw strings.
func CompareDeposit(a, b string) int {
	ka, aok := depositKey(a)
	kb, bok := depositKey(b)
	switch {
	case aok && bok:
		if c := compareDigits(ka, kb); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	case aok:
		return -1
	case bok:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func depositKey(deposit string) (string, bool) {
	s := strings.TrimSpace(deposit)
	if s != "" && strings.Trim(s, "0123456789") == "" {
		return s, true
	}
	run := digitRun.FindString(s)
	return run, run != ""
}

// compareDigits compares two non-empty digit strings by numeric value
// without overflowing on long deposits.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
