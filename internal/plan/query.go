package plan

import (
	"fmt"
	"regexp"
	"strings"
)

var lotNumberPattern = regexp.MustCompile(`^\d+((-\d+)?|(,\d+)+)$`)

// LotType is one entry of the registry's lot type list. IDs are 1-based and
// match the values of the search form's lotTypeRefId select.
type LotType struct {
	ID   int
	Name string
}

// Parish is one entry of the registry's parish/settlement list. IDs are
// 1-based and match the values of the search form's parishRefId select.
type Parish struct {
	ID   int
	Name string
}

var lotTypeNames = []string{
	"Group Lot",
	"Lake Lot",
	"Outer Two Mile",
	"Park Lot",
	"River Lot",
	"Settlement Lot",
	"Wood Lot",
	"Indian Reserve",
}

var parishNames = []string{
	"Baie Saint Paul",
	"Big Eddy",
	"Brokenhead",
	"Cross Lake",
	"Duck Bay North",
	"Duck Bay South",
	"Fairford",
	"Fairford Mission",
	"Fisher Bay",
	"Fort Alexander",
	"Grand Rapids",
	"Grande Pointe",
	"Headingley",
	"High Bluff",
	"Kildonan",
	"Lorette",
	"Manigotagan River",
	"Manitoba House",
	"Norway House",
	"Oak Island",
	"Oak Point",
	"Pasquia",
	"Pine Creek",
	"Poplar Point",
	"Portage La Prairie",
	"Rat River",
	"Riding Mountain National Park",
	"Roman Catholic Mission Property",
	"Saint Andrews",
	"Saint Boniface",
	"Saint Charles",
	"Saint Clements",
	"Saint Francois Xavier",
	"Saint James",
	"Saint John",
	"Saint Laurent",
	"Saint Malo",
	"Saint Norbert",
	"Saint Paul",
	"Saint Peter",
	"Saint Vital",
	"Sainte Agathe",
	"Sainte Anne",
	"The Pas",
	"Umfreville",
	"Westbourne",
}

// LotTypes returns every known lot type in form order.
func LotTypes() []LotType {
	out := make([]LotType, len(lotTypeNames))
	for i, name := range lotTypeNames {
		out[i] = LotType{ID: i + 1, Name: name}
	}
	return out
}

// Parishes returns every known parish/settlement in form order.
func Parishes() []Parish {
	out := make([]Parish, len(parishNames))
	for i, name := range parishNames {
		out[i] = Parish{ID: i + 1, Name: name}
	}
	return out
}

// LotTypeByID resolves a lot type from its form value.
func LotTypeByID(id int) (LotType, error) {
	if id < 1 || id > len(lotTypeNames) {
		return LotType{}, fmt.Errorf("lot type %d out of range 1..%d", id, len(lotTypeNames))
	}
	return LotType{ID: id, Name: lotTypeNames[id-1]}, nil
}

// ParishByID resolves a parish from its form value.
func ParishByID(id int) (Parish, error) {
	if id < 1 || id > len(parishNames) {
		return Parish{}, fmt.Errorf("parish %d out of range 1..%d", id, len(parishNames))
	}
	return Parish{ID: id, Name: parishNames[id-1]}, nil
}

// LotTypeByName resolves a lot type by case-insensitive name.
func LotTypeByName(name string) (LotType, error) {
	for i, n := range lotTypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return LotType{ID: i + 1, Name: n}, nil
		}
	}
	return LotType{}, fmt.Errorf("unknown lot type %q", name)
}

// ParishByName resolves a parish by case-insensitive name.
func ParishByName(name string) (Parish, error) {
	for i, n := range parishNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Parish{ID: i + 1, Name: n}, nil
		}
	}
	return Parish{}, fmt.Errorf("unknown parish %q", name)
}

// ValidateLotNumber checks a lot number, range (1-7) or list (3,5,10).
func ValidateLotNumber(lot string) error {
	if !lotNumberPattern.MatchString(lot) {
		return fmt.Errorf("invalid lot number %q: enter a lot number, range or list like 2 or 1-7 or 3,5,10", lot)
	}
	return nil
}

// Query identifies one search against the registry. Construct it with
// NewQuery; the zero value is not a valid query.
type Query struct {
	lotNumber string
	lotType   LotType
	parish    Parish
}

// NewQuery validates the lot number and both dimension ids.
func NewQuery(lotNumber string, lotTypeID, parishID int) (Query, error) {
	if err := ValidateLotNumber(lotNumber); err != nil {
		return Query{}, err
	}
	lt, err := LotTypeByID(lotTypeID)
	if err != nil {
		return Query{}, err
	}
	p, err := ParishByID(parishID)
	if err != nil {
		return Query{}, err
	}
	return Query{lotNumber: lotNumber, lotType: lt, parish: p}, nil
}

// LotNumber returns the lot number expression.
func (q Query) LotNumber() string { return q.lotNumber }

// LotType returns the queried lot type.
func (q Query) LotType() LotType { return q.lotType }

// Parish returns the queried parish.
func (q Query) Parish() Parish { return q.parish }

// String renders the query for logs.
func (q Query) String() string {
	return fmt.Sprintf("lot %s, %s in %s", q.lotNumber, q.lotType.Name, q.parish.Name)
}
