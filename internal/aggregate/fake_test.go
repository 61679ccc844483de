package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// script describes how a fake session for one cell behaves.
type script struct {
	summary   string
	noResults bool
	pages     [][]plan.RawRow
	// reachable caps the pages Advance can reach; zero means len(pages).
	reachable  int
	openErr    error
	rowsErr    error
	advanceErr error
}

type fakeSession struct {
	s        *script
	page     int
	reads    []int
	advances []int
	closes   int
}

func (f *fakeSession) Summary(context.Context) (string, error) {
	if f.s.noResults {
		return "", plan.ErrNoResults
	}
	return f.s.summary, nil
}

func (f *fakeSession) Rows(context.Context) ([]plan.RawRow, error) {
	f.reads = append(f.reads, f.page)
	if f.s.rowsErr != nil {
		return nil, f.s.rowsErr
	}
	if f.page-1 < len(f.s.pages) {
		return f.s.pages[f.page-1], nil
	}
	return nil, nil
}

func (f *fakeSession) Advance(_ context.Context, next int) (bool, error) {
	f.advances = append(f.advances, next)
	if f.s.advanceErr != nil {
		return false, f.s.advanceErr
	}
	reach := f.s.reachable
	if reach == 0 {
		reach = len(f.s.pages)
	}
	if next > reach {
		return false, nil
	}
	f.page = next
	return true, nil
}

func (f *fakeSession) Close() error {
	f.closes++
	return nil
}

// fakeSource hands out scripted sessions keyed by "lot type/parish". Cells
// without a script have no results.
type fakeSource struct {
	mu       sync.Mutex
	scripts  map[string]*script
	opened   []plan.Query
	sessions []*fakeSession
}

func newFakeSource() *fakeSource {
	return &fakeSource{scripts: map[string]*script{}}
}

func (f *fakeSource) on(lotType, parish string, s *script) *fakeSource {
	f.scripts[lotType+"/"+parish] = s
	return f
}

func (f *fakeSource) Open(_ context.Context, q plan.Query) (plan.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, q)
	s, ok := f.scripts[q.LotType().Name+"/"+q.Parish().Name]
	if !ok {
		s = &script{noResults: true}
	}
	if s.openErr != nil {
		return nil, s.openErr
	}
	sess := &fakeSession{s: s, page: 1}
	f.sessions = append(f.sessions, sess)
	return sess, nil
}

func (f *fakeSource) cells() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.opened))
	for i, q := range f.opened {
		out[i] = q.LotType().Name + "/" + q.Parish().Name
	}
	return out
}

func row(deposit, planNo, comments string) plan.RawRow {
	return plan.RawRow{deposit, "W1", planNo, "", "", "Winnipeg", "Survey", comments}
}

// pagesOf splits rows into pages of plan.PageSize and builds the matching
// banner.
func pagesOf(rows ...plan.RawRow) *script {
	s := &script{summary: fmt.Sprintf("Search Results: 1 - %d of %d", min(len(rows), plan.PageSize), len(rows))}
	for len(rows) > 0 {
		n := min(len(rows), plan.PageSize)
		s.pages = append(s.pages, rows[:n])
		rows = rows[n:]
	}
	return s
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedIDs struct{ id uuid.UUID }

func (g fixedIDs) NewRawID() (uuid.UUID, error) { return g.id, nil }

func mustQuery(lotType, parish string) plan.Query {
	lt, err := plan.LotTypeByName(lotType)
	if err != nil {
		panic(err)
	}
	p, err := plan.ParishByName(parish)
	if err != nil {
		panic(err)
	}
	q, err := plan.NewQuery("12", lt.ID, p.ID)
	if err != nil {
		panic(err)
	}
	return q
}
