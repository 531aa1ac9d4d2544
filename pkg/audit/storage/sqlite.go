package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/relay/pkg/audit"
)

// Driver names registered with database/sql.
const (
	// DriverModernc is modernc.org/sqlite (pure Go).
	DriverModernc = "sqlite"

	// DriverMattn is github.com/mattn/go-sqlite3 (cgo).
	DriverMattn = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" opens a private
	// in-memory database.
	Path string

	// Driver is DriverModernc or DriverMattn.
	// Default: DriverModernc
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/attempts.db",
		Driver:       DriverModernc,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config SQLiteConfig
	logger *slog.Logger
}

var _ audit.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens the database and initializes the schema.
func NewSQLiteStorage(cfg *SQLiteConfig) (*SQLiteStorage, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	c := *cfg
	if c.Driver == "" {
		c.Driver = DriverModernc
	}
	if c.Driver != DriverModernc && c.Driver != DriverMattn {
		return nil, audit.NewStorageError(BackendSQLite, "open",
			fmt.Errorf("unknown driver %q (valid: %s, %s)", c.Driver, DriverModernc, DriverMattn))
	}
	if c.Path == "" {
		return nil, audit.NewStorageError(BackendSQLite, "open", errors.New("database path is required"))
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open(c.Driver, dsn(c))
	if err != nil {
		return nil, audit.NewStorageError(BackendSQLite, "open", err)
	}

	if isMemoryPath(c.Path) {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(c.MaxOpenConns)
		db.SetMaxIdleConns(c.MaxIdleConns)
	}

	s := &SQLiteStorage{db: db, config: c, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", c.Path,
		"driver", c.Driver,
		"wal_mode", c.WALMode,
		"max_open_conns", c.MaxOpenConns,
	)
	return s, nil
}

// dsn builds a driver-specific DSN carrying the per-connection pragmas.
func dsn(c SQLiteConfig) string {
	busy := c.BusyTimeout.Milliseconds()
	journal := "DELETE"
	if c.WALMode && !isMemoryPath(c.Path) {
		journal = "WAL"
	}

	path := c.Path
	if isMemoryPath(path) {
		path = ":memory:"
	}

	switch c.Driver {
	case DriverMattn:
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=%s&_foreign_keys=1", path, busy, journal)
	default:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(%s)&_pragma=foreign_keys(1)", path, busy, journal)
	}
}

func isMemoryPath(path string) bool {
	return path == ":memory:"
}

// initialize creates the schema and verifies its version.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError(BackendSQLite, "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError(BackendSQLite, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError(BackendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError(BackendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record and its attempts in one transaction.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	if err := validateRecord(record); err != nil {
		return audit.NewStorageError(BackendSQLite, "store", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return audit.NewStorageError(BackendSQLite, "begin", err)
	}
	defer tx.Rollback()

	startedAt := record.StartedAt.UnixNano()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orchestrations (id, request_id, started_at, duration_ns, outcome, served_by, phase, model)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.RequestID, startedAt, int64(record.Duration),
		record.Outcome, nullString(record.ServedBy), record.Phase, nullString(record.Model),
	)
	if err != nil {
		return audit.NewStorageError(BackendSQLite, "store", err)
	}

	for i, a := range record.Attempts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attempts (orchestration_id, seq, provider, pool, outcome, reason, duration_ns, started_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, i, a.Provider, a.Pool, a.Outcome, nullString(a.Reason), int64(a.Duration), startedAt,
		)
		if err != nil {
			return audit.NewStorageError(BackendSQLite, "store_attempt", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return audit.NewStorageError(BackendSQLite, "commit", err)
	}
	return nil
}

const selectOrchestrations = `SELECT o.id, o.request_id, o.started_at, o.duration_ns, o.outcome, o.served_by, o.phase, o.model FROM orchestrations o`

// Get returns one record by ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectOrchestrations+" WHERE o.id = ?", id)
	if err != nil {
		return nil, audit.NewStorageError(BackendSQLite, "get", err)
	}
	records, err := s.collect(ctx, rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", audit.ErrNotFound, id)
	}
	return records[0], nil
}

// Query retrieves records matching q, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.Record, error) {
	query, err := audit.Normalize(q)
	if err != nil {
		return nil, err
	}

	where, args := buildWhereClause(query)
	sqlQuery := selectOrchestrations + where + " ORDER BY o.started_at DESC, o.id LIMIT ? OFFSET ?"
	args = append(args, query.Limit, query.Offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError(BackendSQLite, "query", err)
	}
	return s.collect(ctx, rows)
}

// Count returns the number of records matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	query, err := audit.Normalize(q)
	if err != nil {
		return 0, err
	}

	where, args := buildWhereClause(query)
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orchestrations o"+where, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError(BackendSQLite, "count", err)
	}
	return count, nil
}

// ProviderSummary aggregates attempt outcomes per provider.
func (s *SQLiteStorage) ProviderSummary(ctx context.Context, since time.Time) ([]audit.ProviderSummary, error) {
	sqlQuery := `
		SELECT provider,
		       SUM(CASE WHEN outcome = 'success' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN outcome = 'failure' THEN 1 ELSE 0 END),
		       MAX(started_at)
		FROM attempts`
	var args []any
	if !since.IsZero() {
		sqlQuery += " WHERE started_at >= ?"
		args = append(args, since.UnixNano())
	}
	sqlQuery += " GROUP BY provider ORDER BY provider"

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError(BackendSQLite, "provider_summary", err)
	}
	defer rows.Close()

	var out []audit.ProviderSummary
	for rows.Next() {
		var ps audit.ProviderSummary
		var last int64
		if err := rows.Scan(&ps.Provider, &ps.Successes, &ps.Failures, &last); err != nil {
			return nil, audit.NewStorageError(BackendSQLite, "scan", err)
		}
		ps.LastAttempt = time.Unix(0, last).UTC()
		out = append(out, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(BackendSQLite, "provider_summary", err)
	}
	return out, nil
}

// DeleteBefore removes records started before t.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, audit.NewStorageError(BackendSQLite, "begin", err)
	}
	defer tx.Rollback()

	cutoff := t.UnixNano()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM attempts WHERE orchestration_id IN (SELECT id FROM orchestrations WHERE started_at < ?)", cutoff); err != nil {
		return 0, audit.NewStorageError(BackendSQLite, "delete", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM orchestrations WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, audit.NewStorageError(BackendSQLite, "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(BackendSQLite, "delete", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, audit.NewStorageError(BackendSQLite, "commit", err)
	}
	return deleted, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError(BackendSQLite, "ping", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError(BackendSQLite, "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause builds a WHERE clause (with leading space) from q.
func buildWhereClause(q audit.Query) (string, []any) {
	var conditions []string
	var args []any

	if q.RequestID != "" {
		conditions = append(conditions, "o.request_id = ?")
		args = append(args, q.RequestID)
	}
	if q.Provider != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM attempts a WHERE a.orchestration_id = o.id AND a.provider = ?)")
		args = append(args, q.Provider)
	}
	if q.Outcome != "" {
		conditions = append(conditions, "o.outcome = ?")
		args = append(args, q.Outcome)
	}
	if q.Since != nil {
		conditions = append(conditions, "o.started_at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	if q.Until != nil {
		conditions = append(conditions, "o.started_at <= ?")
		args = append(args, q.Until.UnixNano())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// collect scans orchestration rows and loads their attempts. It closes
// rows.
func (s *SQLiteStorage) collect(ctx context.Context, rows *sql.Rows) ([]*audit.Record, error) {
	records := []*audit.Record{}
	byID := make(map[string]*audit.Record)

	for rows.Next() {
		var (
			r                     audit.Record
			startedAt, durationNS int64
			servedBy, model       sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RequestID, &startedAt, &durationNS, &r.Outcome, &servedBy, &r.Phase, &model); err != nil {
			rows.Close()
			return nil, audit.NewStorageError(BackendSQLite, "scan", err)
		}
		r.StartedAt = time.Unix(0, startedAt).UTC()
		r.Duration = time.Duration(durationNS)
		r.ServedBy = servedBy.String
		r.Model = model.String
		r.Attempts = []audit.AttemptRecord{}

		records = append(records, &r)
		byID[r.ID] = &r
	}
	err := rows.Err()
	rows.Close()
	if err != nil {
		return nil, audit.NewStorageError(BackendSQLite, "query", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	placeholders := make([]string, len(records))
	args := make([]any, len(records))
	for i, r := range records {
		placeholders[i] = "?"
		args[i] = r.ID
	}

	attemptRows, err := s.db.QueryContext(ctx,
		"SELECT orchestration_id, provider, pool, outcome, reason, duration_ns FROM attempts WHERE orchestration_id IN ("+
			strings.Join(placeholders, ",")+") ORDER BY orchestration_id, seq", args...)
	if err != nil {
		return nil, audit.NewStorageError(BackendSQLite, "query_attempts", err)
	}
	defer attemptRows.Close()

	for attemptRows.Next() {
		var (
			id         string
			a          audit.AttemptRecord
			reason     sql.NullString
			durationNS int64
		)
		if err := attemptRows.Scan(&id, &a.Provider, &a.Pool, &a.Outcome, &reason, &durationNS); err != nil {
			return nil, audit.NewStorageError(BackendSQLite, "scan", err)
		}
		a.Reason = reason.String
		a.Duration = time.Duration(durationNS)
		if r, ok := byID[id]; ok {
			r.Attempts = append(r.Attempts, a)
		}
	}
	if err := attemptRows.Err(); err != nil {
		return nil, audit.NewStorageError(BackendSQLite, "query_attempts", err)
	}
	return records, nil
}

func validateRecord(r *audit.Record) error {
	switch {
	case r == nil:
		return errors.New("record is nil")
	case r.ID == "":
		return errors.New("record id is required")
	case r.StartedAt.IsZero():
		return errors.New("record start time is required")
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
