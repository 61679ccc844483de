package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/lto-plan-scraper/internal/aggregate"
	"github.com/JakeFAU/lto-plan-scraper/internal/hash/sha256"
	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
	"github.com/JakeFAU/lto-plan-scraper/internal/storage"
)

// ErrNothingToSave is returned when there are no records to export.
var ErrNothingToSave = errors.New("no results to save")

// Exporter encodes records and writes them to a BlobStore.
type Exporter struct {
	store   storage.BlobStore
	format  Format
	encoder Encoder
	prefix  string
	hasher  *sha256.Hasher
	logger  *zap.Logger
}

// NewExporter builds an Exporter. prefix is prepended to every object name.
func NewExporter(store storage.BlobStore, format Format, withLot bool, prefix string, logger *zap.Logger) (*Exporter, error) {
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	enc, err := NewEncoder(format, withLot)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		store:   store,
		format:  format,
		encoder: enc,
		prefix:  strings.Trim(prefix, "/"),
		hasher:  sha256.New(),
		logger:  logger,
	}, nil
}

// Format returns the encoding in use.
func (e *Exporter) Format() Format {
	return e.format
}

// Save writes records in export order under name and returns the stored
// object's URI.
func (e *Exporter) Save(ctx context.Context, name string, records []plan.Record) (string, error) {
	if len(records) == 0 {
		return "", ErrNothingToSave
	}
	var buf bytes.Buffer
	if err := e.encoder.Encode(&buf, aggregate.Sort(records)); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	objectPath := name
	if e.prefix != "" {
		objectPath = path.Join(e.prefix, name)
	}
	size := buf.Len()
	digest := e.hasher.Hash(buf.Bytes())
	uri, err := e.store.PutObject(ctx, objectPath, e.format.ContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", objectPath, err)
	}
	e.logger.Info("results saved",
		zap.String("uri", uri),
		zap.Int("records", len(records)),
		zap.Int("bytes", size),
		zap.String("sha256", digest),
	)
	return uri, nil
}
