package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/lto-plan-scraper/internal/hash/sha256"
	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
	"github.com/JakeFAU/lto-plan-scraper/internal/storage"
)

var sample = []plan.Record{
	{Lot: "12", Deposit: "DEP-45", Comments: "no plan"},
	{Lot: "12", Deposit: "900", PlanNo: "10", District: "Winnipeg"},
	{Lot: "12", Deposit: "901", PlanNo: "2", Comments: `says "hi", twice`},
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" Parquet ")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, f)
	assert.Equal(t, ".parquet", f.Extension())

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
}

func TestFilenames(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 4, 15, 0, 0, 0, time.UTC)
	q, err := plan.NewQuery("1-7", 5, 15)
	require.NoError(t, err)

	assert.Equal(t, "Kildonan - River Lot - 1-7 - Mar 4 2025.csv", SearchFilename(q, now, FormatCSV))
	assert.Equal(t, "Mar 4 2025.parquet", SweepFilename(now, FormatParquet))
}

func TestCSVEncoder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, CSVEncoder{}.Encode(&buf, sample[1:]))
	want := "Deposit,W. No,Plan No,D of S No,CLSR No,District,Plan Type,Comments\n" +
		"900,,10,,,Winnipeg,,\n" +
		"901,,2,,,,,\"says \"\"hi\"\", twice\"\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, CSVEncoder{WithLot: true}.Encode(&buf, sample[:1]))
	assert.Equal(t, "Lot,Deposit,W. No,Plan No,D of S No,CLSR No,District,Plan Type,Comments\n"+
		"12,DEP-45,,,,,,,no plan\n", buf.String())
}

func TestParquetEncoder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, ParquetEncoder{}.Encode(&buf, sample))

	rows, err := parquet.Read[parquetRecord](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "DEP-45", rows[0].Deposit)
	assert.Equal(t, "Winnipeg", rows[1].District)

	buf.Reset()
	require.NoError(t, ParquetEncoder{WithLot: true}.Encode(&buf, sample))
	lotRows, err := parquet.Read[parquetLotRecord](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, lotRows, 3)
	assert.Equal(t, "12", lotRows[2].Lot)
}

func TestExporterSaveSortsAndStores(t *testing.T) {
	t.Parallel()

	store := &storage.MockBlobStore{}
	want := "Deposit,W. No,Plan No,D of S No,CLSR No,District,Plan Type,Comments\n" +
		"901,,2,,,,,\"says \"\"hi\"\", twice\"\n" +
		"900,,10,,,Winnipeg,,\n" +
		"DEP-45,,,,,,,no plan\n"
	store.On("PutObject", mock.Anything, "runs/Mar 4 2025.csv", "text/csv; charset=utf-8", []byte(want)).
		Return("file:///tmp/runs/Mar 4 2025.csv", nil)

	core, logs := observer.New(zap.InfoLevel)
	exp, err := NewExporter(store, FormatCSV, false, "/runs/", zap.New(core))
	require.NoError(t, err)

	uri, err := exp.Save(context.Background(), "Mar 4 2025.csv", sample)
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/runs/Mar 4 2025.csv", uri)
	store.AssertExpectations(t)

	saved := logs.FilterMessage("results saved").All()
	require.Len(t, saved, 1)
	fields := saved[0].ContextMap()
	assert.Equal(t, sha256.New().Hash([]byte(want)), fields["sha256"])
	assert.Equal(t, int64(len(want)), fields["bytes"])
}

func TestExporterErrors(t *testing.T) {
	t.Parallel()

	_, err := NewExporter(nil, FormatCSV, false, "", nil)
	require.Error(t, err)

	store := &storage.MockBlobStore{}
	exp, err := NewExporter(store, FormatCSV, false, "", nil)
	require.NoError(t, err)

	_, err = exp.Save(context.Background(), "x.csv", nil)
	require.ErrorIs(t, err, ErrNothingToSave)

	boom := errors.New("disk full")
	store.On("PutObject", mock.Anything, "x.csv", mock.Anything, mock.Anything).Return("", boom)
	_, err = exp.Save(context.Background(), "x.csv", sample)
	require.ErrorIs(t, err, boom)
}
