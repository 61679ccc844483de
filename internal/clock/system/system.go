// Package system provides the wall clock used to stamp sweeps and exports.
package system

import (
	"time"

	"github.com/JakeFAU/lto-plan-scraper/internal/aggregate"
)

var _ aggregate.Clock = Clock{}

// Clock implements aggregate.Clock using time.Now in a fixed location.
type Clock struct {
	loc *time.Location
}

// New creates a Clock reporting UTC.
func New() *Clock {
	return &Clock{loc: time.UTC}
}

// NewIn creates a Clock reporting times in loc. Export filenames carry the
// date, so operators can pin the registry's local zone.
func NewIn(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// Now returns the current time.
func (c Clock) Now() time.Time {
	if c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}
