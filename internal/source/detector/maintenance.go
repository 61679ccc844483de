// Package detector decides whether the registry is serving searches.
package detector

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMarkers are lower-case phrases the registry shows while offline.
var DefaultMarkers = []string{
	"scheduled maintenance",
	"site is down",
	"temporarily unavailable",
}

// DefaultSelectors must all match on a healthy search services page.
var DefaultSelectors = []string{
	"a[href='/lto/actions/initializeSearchByParishSettlementLot']",
}

// Maintenance implements a handful of rule-based availability checks.
type Maintenance struct {
	markers   [][]byte
	selectors []string
}

// NewMaintenance creates a detector. Nil markers or selectors select the
// defaults; pass empty slices to disable a rule.
func NewMaintenance(markers, selectors []string) *Maintenance {
	if markers == nil {
		markers = DefaultMarkers
	}
	if selectors == nil {
		selectors = DefaultSelectors
	}
	m := &Maintenance{selectors: selectors}
	for _, mk := range markers {
		if mk == "" {
			continue
		}
		m.markers = append(m.markers, bytes.ToLower([]byte(mk)))
	}
	return m
}

// Down reports whether the response indicates the site cannot serve
// searches, with a short reason when it does.
func (m *Maintenance) Down(status int, body []byte) (bool, string) {
	if status >= http.StatusInternalServerError {
		return true, fmt.Sprintf("status %d", status)
	}
	if status != http.StatusOK {
		return true, fmt.Sprintf("unexpected status %d", status)
	}
	if len(body) == 0 {
		return true, "empty response"
	}
	lower := bytes.ToLower(body)
	for _, mk := range m.markers {
		if bytes.Contains(lower, mk) {
			return true, "maintenance notice: " + string(mk)
		}
	}
	if sel := m.missingSelector(body); sel != "" {
		return true, "search page incomplete: missing " + sel
	}
	return false, ""
}

func (m *Maintenance) missingSelector(body []byte) string {
	if len(m.selectors) == 0 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return m.selectors[0]
	}
	for _, sel := range m.selectors {
		if sel == "" {
			continue
		}
		if doc.Find(sel).Length() == 0 {
			return sel
		}
	}
	return ""
}
