// Package results parses the registry's plan search results markup.
package results

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// Selectors for the search results page.
const (
	BannerSelector = "td.searchResultsPageText"
	RowSelector    = "table#searchResults > tbody > tr:nth-child(even)"
)

var (
	innerWhitespace = regexp.MustCompile(`\s+`)
	submitFormCall  = regexp.MustCompile(`submitform\(\s*'?(\d+)'?\s*\)`)
)

// Page is one parsed results document.
type Page struct {
	doc *goquery.Document
}

// Parse builds a Page from rendered HTML.
func Parse(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results html: %w", err)
	}
	return &Page{doc: doc}, nil
}

// Summary returns the results banner text, or plan.ErrNoResults when the
// page has no banner.
func (p *Page) Summary() (string, error) {
	banner := p.doc.Find(BannerSelector).First()
	if banner.Length() == 0 {
		return "", plan.ErrNoResults
	}
	text := cellText(banner)
	if text == "" {
		return "", plan.ErrNoResults
	}
	return text, nil
}

// Rows returns the cell text of every result row on the page.
func (p *Page) Rows() []plan.RawRow {
	var rows []plan.RawRow
	p.doc.Find(RowSelector).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		row := make(plan.RawRow, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			row = append(row, cellText(td))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	return rows
}

// HasPage reports whether the page links to result page n through the
// registry's submitform pager.
func (p *Page) HasPage(n int) bool {
	return slices.Contains(p.PageLinks(), n)
}

// PageLinks lists the page numbers reachable from the pager, in document
// order and without duplicates.
func (p *Page) PageLinks() []int {
	var out []int
	seen := map[int]bool{}
	p.doc.Find("a[href*='submitform'], a[onclick*='submitform']").Each(func(_ int, a *goquery.Selection) {
		for _, attr := range []string{"href", "onclick"} {
			v, ok := a.Attr(attr)
			if !ok {
				continue
			}
			for _, m := range submitFormCall.FindAllStringSubmatch(v, -1) {
				n, err := strconv.Atoi(m[1])
				if err != nil || seen[n] {
					continue
				}
				seen[n] = true
				out = append(out, n)
			}
		}
	})
	return out
}

func cellText(s *goquery.Selection) string {
	text := strings.ReplaceAll(s.Text(), "\u00a0", " ")
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(text, " "))
}

