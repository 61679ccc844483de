package aggregate

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// MergePolicy picks the survivor of two records sharing a deposit.
type MergePolicy interface {
	Merge(existing, candidate plan.Record) plan.Record
	Name() string
}

// LongestComments keeps the record with the longer comments, treating it as
// the more complete observation. Ties keep the existing record.
type LongestComments struct{}

// Merge implements MergePolicy.
func (LongestComments) Merge(existing, candidate plan.Record) plan.Record {
	if len(candidate.Comments) > len(existing.Comments) {
		return candidate
	}
	return existing
}

// Name implements MergePolicy.
func (LongestComments) Name() string { return "longest_comments" }

// FirstSeen keeps the first record observed for a deposit.
type FirstSeen struct{}

// Merge implements MergePolicy.
func (FirstSeen) Merge(existing, _ plan.Record) plan.Record { return existing }

// Name implements MergePolicy.
func (FirstSeen) Name() string { return "first_seen" }

// ParseMergePolicy resolves a policy by its configured name. An empty name
// selects LongestComments.
func ParseMergePolicy(name string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LongestComments{}.Name():
		return LongestComments{}, nil
	case FirstSeen{}.Name():
		return FirstSeen{}, nil
	default:
		return nil, fmt.Errorf("unknown merge policy %q", name)
	}
}

// Accumulator maps deposits to the best record seen so far in one run. It
// only grows. It is not safe for concurrent use.
type Accumulator struct {
	policy  MergePolicy
	records map[string]plan.Record
	order   []string
}

// NewAccumulator creates an empty accumulator. A nil policy selects
// LongestComments.
func NewAccumulator(policy MergePolicy) *Accumulator {
	if policy == nil {
		policy = LongestComments{}
	}
	return &Accumulator{
		policy:  policy,
		records: make(map[string]plan.Record),
	}
}

// Fold merges one record into the accumulator and reports whether its
// deposit was new.
func (a *Accumulator) Fold(rec plan.Record) bool {
	existing, ok := a.records[rec.Deposit]
	if !ok {
		a.records[rec.Deposit] = rec
		a.order = append(a.order, rec.Deposit)
		return true
	}
	a.records[rec.Deposit] = a.policy.Merge(existing, rec)
	return false
}

// Get returns the current record for a deposit.
func (a *Accumulator) Get(deposit string) (plan.Record, bool) {
	rec, ok := a.records[deposit]
	return rec, ok
}

// Len is the number of distinct deposits.
func (a *Accumulator) Len() int {
	return len(a.records)
}

// Values returns the current records. Callers must not rely on the order;
// use Sort for export order.
func (a *Accumulator) Values() []plan.Record {
	out := make([]plan.Record, 0, len(a.order))
	for _, deposit := range a.order {
		out = append(out, a.records[deposit])
	}
	return out
}
