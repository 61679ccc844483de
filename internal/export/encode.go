package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
)

// Encoder writes records in one format.
type Encoder interface {
	Encode(w io.Writer, records []plan.Record) error
}

// NewEncoder returns the encoder for f. withLot adds the leading Lot column.
func NewEncoder(f Format, withLot bool) (Encoder, error) {
	switch f {
	case FormatCSV:
		return CSVEncoder{WithLot: withLot}, nil
	case FormatParquet:
		return ParquetEncoder{WithLot: withLot}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// CSVEncoder writes a header row followed by one row per record.
type CSVEncoder struct {
	WithLot bool
}

// Encode implements Encoder.
func (e CSVEncoder) Encode(w io.Writer, records []plan.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(plan.Header(e.WithLot)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Values(e.WithLot)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Deposit, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

type parquetRecord struct {
	Deposit  string `parquet:"deposit"`
	WNo      string `parquet:"w_no"`
	PlanNo   string `parquet:"plan_no"`
	DosNo    string `parquet:"dos_no"`
	ClsrNo   string `parquet:"clsr_no"`
	District string `parquet:"district"`
	PlanType string `parquet:"plan_type"`
	Comments string `parquet:"comments"`
}

type parquetLotRecord struct {
	Lot      string `parquet:"lot"`
	Deposit  string `parquet:"deposit"`
	WNo      string `parquet:"w_no"`
	PlanNo   string `parquet:"plan_no"`
	DosNo    string `parquet:"dos_no"`
	ClsrNo   string `parquet:"clsr_no"`
	District string `parquet:"district"`
	PlanType string `parquet:"plan_type"`
	Comments string `parquet:"comments"`
}

func toParquet(r plan.Record) parquetRecord {
	return parquetRecord{
		Deposit:  r.Deposit,
		WNo:      r.WNo,
		PlanNo:   r.PlanNo,
		DosNo:    r.DosNo,
		ClsrNo:   r.ClsrNo,
		District: r.District,
		PlanType: r.PlanType,
		Comments: r.Comments,
	}
}

// ParquetEncoder writes a single Parquet file with one string column per
// record field, in export column order.
type ParquetEncoder struct {
	WithLot bool
}

// Encode implements Encoder.
func (e ParquetEncoder) Encode(w io.Writer, records []plan.Record) error {
	if e.WithLot {
		rows := make([]parquetLotRecord, len(records))
		for i, r := range records {
			rows[i] = parquetLotRecord{
				Lot:      r.Lot,
				Deposit:  r.Deposit,
				WNo:      r.WNo,
				PlanNo:   r.PlanNo,
				DosNo:    r.DosNo,
				ClsrNo:   r.ClsrNo,
				District: r.District,
				PlanType: r.PlanType,
				Comments: r.Comments,
			}
		}
		return writeParquet(w, rows)
	}
	rows := make([]parquetRecord, len(records))
	for i, r := range records {
		rows[i] = toParquet(r)
	}
	return writeParquet(w, rows)
}

func writeParquet[T any](w io.Writer, rows []T) error {
	pw := parquet.NewGenericWriter[T](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
