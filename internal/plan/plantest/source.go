// Package plantest provides a scripted plan.Source for tests of code that
// drives registry searches.
package plantest

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// Cell scripts the session opened for one lot type and parish. A zero Cell
// reports no results.
type Cell struct {
	Summary string
	Pages   [][]plan.RawRow
	OpenErr error
	RowsErr error
}

// Source serves scripted sessions keyed by "<lot type>/<parish>".
type Source struct {
	mu     sync.Mutex
	cells  map[string]Cell
	opened []string
	closed int
}

// NewSource returns an empty Source; every cell reports no results.
func NewSource() *Source {
	return &Source{cells: make(map[string]Cell)}
}

// Set scripts the cell for lotType and parish names.
func (s *Source) Set(lotType, parish string, c Cell) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[lotType+"/"+parish] = c
	return s
}

// Open implements plan.Source.
func (s *Source) Open(ctx context.Context, q plan.Query) (plan.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := q.LotType().Name + "/" + q.Parish().Name
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, key)
	c := s.cells[key]
	if c.OpenErr != nil {
		return nil, c.OpenErr
	}
	return &session{src: s, cell: c}, nil
}

// Opened lists the cells opened so far, in order.
func (s *Source) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

// Closed reports how many sessions were closed.
func (s *Source) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type session struct {
	src  *Source
	cell Cell
	page int
}

func (s *session) Summary(context.Context) (string, error) {
	if s.cell.Summary == "" {
		return "", plan.ErrNoResults
	}
	return s.cell.Summary, nil
}

func (s *session) Rows(context.Context) ([]plan.RawRow, error) {
	if s.cell.RowsErr != nil {
		return nil, s.cell.RowsErr
	}
	if s.page >= len(s.cell.Pages) {
		return nil, nil
	}
	return s.cell.Pages[s.page], nil
}

func (s *session) Advance(_ context.Context, nextPage int) (bool, error) {
	if nextPage > len(s.cell.Pages) {
		return false, nil
	}
	s.page = nextPage - 1
	return true, nil
}

func (s *session) Close() error {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()
	s.src.closed++
	return nil
}

// Row builds a result row in the registry's column order without the lot
// column.
func Row(deposit, planNo, comments string) plan.RawRow {
	return plan.RawRow{deposit, "W1", planNo, "", "", "Winnipeg", "Plan of Survey", comments}
}

// Paged splits rows into registry-sized pages behind a matching banner.
func Paged(rows ...plan.RawRow) Cell {
	c := Cell{Summary: fmt.Sprintf("Search Results: 1 - %d of %d", min(len(rows), plan.PageSize), len(rows))}
	for start := 0; start < len(rows); start += plan.PageSize {
		c.Pages = append(c.Pages, rows[start:min(start+plan.PageSize, len(rows))])
	}
	return c
}
