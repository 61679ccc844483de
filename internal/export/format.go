// Package export encodes plan records for saving and names the output files.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// Format is an output encoding.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// ParseFormat resolves a configured format name. Empty selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type used when uploading.
func (f Format) ContentType() string {
	switch f {
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// dateLayout renders dates like "Mar 4 2025".
const dateLayout = "Jan 2 2006"

// SearchFilename names the output of a single query:
// "<parish> - <lot type> - <lot> - <date><ext>".
func SearchFilename(q plan.Query, now time.Time, f Format) string {
	return fmt.Sprintf("%s - %s - %s - %s%s",
		q.Parish().Name, q.LotType().Name, q.LotNumber(), now.Format(dateLayout), f.Extension())
}

// SweepFilename names the output of a full sweep: "<date><ext>".
func SweepFilename(now time.Time, f Format) string {
	return now.Format(dateLayout) + f.Extension()
}
