package plan

// Record is one plan entry from the registry search results.
type Record struct {
	// Lot is only populated when the fetch retains the lot column.
	Lot      string `json:"lot,omitempty"`
	Deposit  string `json:"deposit"`
	WNo      string `json:"w_no"`
	PlanNo   string `json:"plan_no"`
	DosNo    string `json:"dos_no"`
	ClsrNo   string `json:"clsr_no"`
	District string `json:"district"`
	PlanType string `json:"plan_type"`
	Comments string `json:"comments"`
}

// HasPlan reports whether the record carries a plan number.
func (r Record) HasPlan() bool {
	return r.PlanNo != ""
}

// RawRow is the ordered list of cell strings for one visible result row.
type RawRow []string

// Column names a record field together with its export header label.
type Column struct {
	ID    string
	Title string
}

// LotColumn precedes Columns in fetch modes that retain the lot.
var LotColumn = Column{ID: "lot", Title: "Lot"}

// Columns is the fixed export column order.
var Columns = []Column{
	{ID: "deposit", Title: "Deposit"},
	{ID: "wNo", Title: "W. No"},
	{ID: "planNo", Title: "Plan No"},
	{ID: "dosNo", Title: "D of S No"},
	{ID: "clsrNo", Title: "CLSR No"},
	{ID: "district", Title: "District"},
	{ID: "planType", Title: "Plan Type"},
	{ID: "comments", Title: "Comments"},
}

// Header returns the export header labels, optionally preceded by Lot.
func Header(withLot bool) []string {
	out := make([]string, 0, len(Columns)+1)
	if withLot {
		out = append(out, LotColumn.Title)
	}
	for _, c := range Columns {
		out = append(out, c.Title)
	}
	return out
}

// Values returns the record's fields in export column order.
func (r Record) Values(withLot bool) []string {
	out := make([]string, 0, len(Columns)+1)
	if withLot {
		out = append(out, r.Lot)
	}
	return append(out,
		r.Deposit,
		r.WNo,
		r.PlanNo,
		r.DosNo,
		r.ClsrNo,
		r.District,
		r.PlanType,
		r.Comments,
	)
}

// FieldCount is the number of positional fields in a row, with or without lot.
func FieldCount(withLot bool) int {
	if withLot {
		return len(Columns) + 1
	}
	return len(Columns)
}
