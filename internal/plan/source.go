package plan

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// PageSize is the fixed number of results the registry shows per page.
const PageSize = 10

// Source opens search sessions against the registry.
type Source interface {
	// Open runs the search for q. Implementations release anything they
	// acquired before returning an error.
	Open(ctx context.Context, q Query) (Session, error)
}

// Session is one open search whose result pages can be walked in order.
// Close must be called exactly once after a successful Open.
type Session interface {
	// Summary returns the results banner text, or ErrNoResults when the
	// search page shows no banner.
	Summary(ctx context.Context) (string, error)
	// Rows extracts the raw rows of the current page.
	Rows(ctx context.Context) ([]RawRow, error)
	// Advance navigates to nextPage and reports whether it could. A false
	// result with a nil error means the session cannot move further.
	Advance(ctx context.Context, nextPage int) (bool, error)
	Close() error
}

// ParseResultCount extracts the result count from the last whitespace
// separated token of the banner text.
func ParseResultCount(summary string) (int, error) {
	fields := strings.Fields(summary)
	if len(fields) == 0 {
		return 0, &ParseError{Summary: summary, Err: errors.New("empty summary")}
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0, &ParseError{Summary: summary, Err: err}
	}
	if n < 0 {
		return 0, &ParseError{Summary: summary, Err: errors.New("negative count")}
	}
	return n, nil
}

// PageCount is the number of result pages needed for count results.
func PageCount(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + PageSize - 1) / PageSize
}
