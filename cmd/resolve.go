package cmd

import (
	"strconv"
	"strings"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// resolveLotType accepts a lot type id or a case-insensitive name.
func resolveLotType(s string) (plan.LotType, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		return plan.LotTypeByID(id)
	}
	return plan.LotTypeByName(s)
}

// resolveParish accepts a parish id or a case-insensitive name.
func resolveParish(s string) (plan.Parish, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		return plan.ParishByID(id)
	}
	return plan.ParishByName(s)
}

// resolveLotTypes resolves a filter list; empty selects every lot type.
func resolveLotTypes(in []string) ([]plan.LotType, error) {
	if len(in) == 0 {
		return plan.LotTypes(), nil
	}
	out := make([]plan.LotType, 0, len(in))
	for _, s := range in {
		lt, err := resolveLotType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, nil
}

// resolveParishes resolves a filter list; empty selects every parish.
func resolveParishes(in []string) ([]plan.Parish, error) {
	if len(in) == 0 {
		return plan.Parishes(), nil
	}
	out := make([]plan.Parish, 0, len(in))
	for _, s := range in {
		p, err := resolveParish(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
