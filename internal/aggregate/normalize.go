package aggregate

import (
	"strings"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// Normalize maps a raw row positionally onto a Record. Rows carrying extra
// leading cells have them dropped so the trailing fields line up; missing
// trailing cells become empty strings.
func Normalize(row plan.RawRow, withLot bool) plan.Record {
	want := plan.FieldCount(withLot)
	cells := []string(row)
	if len(cells) > want {
		cells = cells[len(cells)-want:]
	}
	at := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}
	offset := 0
	var rec plan.Record
	if withLot {
		rec.Lot = at(0)
		offset = 1
	}
	rec.Deposit = at(offset)
	rec.WNo = at(offset + 1)
	rec.PlanNo = at(offset + 2)
	rec.DosNo = at(offset + 3)
	rec.ClsrNo = at(offset + 4)
	rec.District = at(offset + 5)
	rec.PlanType = at(offset + 6)
	rec.Comments = at(offset + 7)
	return rec
}
