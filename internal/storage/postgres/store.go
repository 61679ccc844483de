// Package postgres persists sweep runs and plan records in Postgres.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/lto-plan-scraper/internal/aggregate"
	"github.com/JakeFAU/lto-plan-scraper/internal/plan"
	"github.com/JakeFAU/lto-plan-scraper/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

//go:embed schema.sql
var schemaTemplate string

// Default table names.
const (
	DefaultRunsTable    = "sweep_runs"
	DefaultRecordsTable = "plan_records"
)

// Config controls the Postgres connection pool and table names.
type Config struct {
	DSN             string
	RunsTable       string
	RecordsTable    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	// MergePolicy names the aggregate.MergePolicy applied when a run
	// rewrites a deposit it already stored. Empty means longest_comments.
	MergePolicy string
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Store implements store.RunRepository and store.RecordRepository.
type Store struct {
	pool    pool
	runs    string
	records string
	policy  aggregate.MergePolicy
}

// Option customizes a Store.
type Option func(*Store) error

// WithMergePolicy selects how repeated writes of a deposit within one run
// are resolved. Writes from a different run always replace the row.
func WithMergePolicy(name string) Option {
	return func(s *Store) error {
		policy, err := aggregate.ParseMergePolicy(name)
		if err != nil {
			return err
		}
		s.policy = policy
		return nil
	}
}

var (
	_ store.RunRepository    = (*Store)(nil)
	_ store.RecordRepository = (*Store)(nil)
)

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewWithPool(p, cfg.RunsTable, cfg.RecordsTable, WithMergePolicy(cfg.MergePolicy))
	if err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, runsTable, recordsTable string, opts ...Option) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if runsTable == "" {
		runsTable = DefaultRunsTable
	}
	if recordsTable == "" {
		recordsTable = DefaultRecordsTable
	}
	for _, name := range []string{runsTable, recordsTable} {
		if !validTableName.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	s := &Store{pool: p, runs: runsTable, records: recordsTable, policy: aggregate.LongestComments{}}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the run and record tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := strings.NewReplacer("{{runs}}", s.runs, "{{records}}", s.records).Replace(schemaTemplate)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// StartRun inserts a running sweep row. Repeated starts are ignored.
func (s *Store) StartRun(ctx context.Context, runID uuid.UUID, lotNumber string, startedAt time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, lot_number, started_at, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING;
	`, s.runs)
	if _, err := s.pool.Exec(ctx, query, runID, lotNumber, startedAt, store.RunRunning); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun marks a sweep as finished with a status and optional error message.
func (s *Store) FinishRun(
	ctx context.Context,
	runID uuid.UUID,
	finishedAt time.Time,
	status store.RunStatus,
	records int,
	errMsg *string,
) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET finished_at = $1, status = $2, records = $3, error_message = $4
		WHERE id = $5;
	`, s.runs)
	res, err := s.pool.Exec(ctx, query, finishedAt, status, records, errMsg, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if res.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetRun retrieves a single sweep run by its ID.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (store.Run, error) {
	query := fmt.Sprintf(`
		SELECT id, lot_number, started_at, finished_at, status, records, error_message
		FROM %s
		WHERE id = $1;
	`, s.runs)
	var run store.Run
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID,
		&run.LotNumber,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.Records,
		&run.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Run{}, store.ErrNotFound
		}
		return store.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// UpsertRecords writes records keyed by deposit in one transaction and
// returns the number of rows inserted or updated. The run row is created in
// the same transaction when it does not exist yet, so records never wait on
// asynchronous run bookkeeping.
func (s *Store) UpsertRecords(ctx context.Context, run store.RunRef, records []plan.Record) (n int, err error) {
	if len(records) == 0 {
		return 0, nil
	}
	runQuery := fmt.Sprintf(`
		INSERT INTO %s (id, lot_number, started_at, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING;
	`, s.runs)
	query := s.upsertQuery()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if _, err := tx.Exec(ctx, runQuery, run.ID, run.LotNumber, run.StartedAt, store.RunRunning); err != nil {
		return 0, fmt.Errorf("ensure run %s: %w", run.ID, err)
	}
	for _, r := range records {
		tag, execErr := tx.Exec(ctx, query,
			r.Deposit, run.ID, r.Lot, r.WNo, r.PlanNo, r.DosNo, r.ClsrNo, r.District, r.PlanType, r.Comments)
		if execErr != nil {
			return 0, fmt.Errorf("upsert record %s: %w", r.Deposit, execErr)
		}
		n += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return n, nil
}

// upsertQuery builds the record upsert. A newer run replaces the stored row;
// within one run the merge policy decides, mirroring aggregate.Accumulator.
func (s *Store) upsertQuery() string {
	guard := fmt.Sprintf("%s.run_id <> EXCLUDED.run_id", s.records)
	if _, ok := s.policy.(aggregate.LongestComments); ok {
		guard += fmt.Sprintf(" OR octet_length(EXCLUDED.comments) > octet_length(%s.comments)", s.records)
	}
	return fmt.Sprintf(`
		INSERT INTO %[1]s (deposit, run_id, lot, w_no, plan_no, dos_no, clsr_no, district, plan_type, comments, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (deposit) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			lot = EXCLUDED.lot,
			w_no = EXCLUDED.w_no,
			plan_no = EXCLUDED.plan_no,
			dos_no = EXCLUDED.dos_no,
			clsr_no = EXCLUDED.clsr_no,
			district = EXCLUDED.district,
			plan_type = EXCLUDED.plan_type,
			comments = EXCLUDED.comments,
			updated_at = EXCLUDED.updated_at
		WHERE %[2]s;
	`, s.records, guard)
}
