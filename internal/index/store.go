// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index persists normalized paper records in SQLite and serves
// lexical nearest-neighbour queries over them through an FTS5 table.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/pdiddy/evidence-engine/internal/metrics"
	"github.com/pdiddy/evidence-engine/internal/normalize"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	// DBFile is the database file name inside the index directory.
	DBFile = "evidence.db"

	// DefaultDir is used when the configured index directory is empty.
	DefaultDir = "index"

	// UpsertBatchSize bounds the records written per transaction.
	UpsertBatchSize = 100

	// getChunkSize bounds the ids bound into one IN clause.
	getChunkSize = 500
)

// Store manages the semantic index database. It is safe for concurrent use;
// SQLite serializes writers.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records writes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Open opens or creates the index at cfg.Dir/evidence.db and creates the
// schema if it does not exist. Failure is not retried.
func Open(cfg types.IndexConfig, opts ...Option) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	s := &Store{
		db:         db,
		dir:        dir,
		maxResults: maxResults,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			document TEXT NOT NULL,
			metadata TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE records_fts USING fts5(document, content=records, content_rowid=rowid)`,
		`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
			INSERT INTO records_fts(rowid, document) VALUES (new.rowid, new.document);
		END`,
		`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, document) VALUES('delete', old.rowid, old.document);
		END`,
		`CREATE TRIGGER records_au AFTER UPDATE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, document) VALUES('delete', old.rowid, old.document);
			INSERT INTO records_fts(rowid, document) VALUES (new.rowid, new.document);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// Upsert normalizes papers and writes them under topic, replacing any
// existing record with the same id. Papers without an id are skipped.
// Writes go in transactions of UpsertBatchSize records. It returns the
// number of records written.
func (s *Store) Upsert(ctx context.Context, papers []types.Paper, topic string) (int, error) {
	records := make([]types.IndexRecord, 0, len(papers))
	skipped := 0
	for _, p := range papers {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			skipped++
			continue
		}
		records = append(records, normalize.Record(p, topic))
	}
	if skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Msg("skipping papers without id")
	}

	written := 0
	for start := 0; start < len(records); start += UpsertBatchSize {
		end := min(start+UpsertBatchSize, len(records))
		if err := s.writeBatch(ctx, records[start:end]); err != nil {
			s.metrics.ObserveUpserts(written, skipped)
			return written, err
		}
		written += end - start
	}
	s.metrics.ObserveUpserts(written, skipped)
	return written, nil
}

func (s *Store) writeBatch(ctx context.Context, batch []types.IndexRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, document, metadata, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			document=excluded.document, metadata=excluded.metadata, updated_at=excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range batch {
		metaJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Document, string(metaJSON), now); err != nil {
			return fmt.Errorf("upserting record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of records in the index.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// each calls fn for every record in insertion order until fn returns false.
func (s *Store) each(ctx context.Context, fn func(types.IndexRecord) bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document, metadata FROM records ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("scanning records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return err
		}
		if !fn(r) {
			break
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.IndexRecord, error) {
	var (
		r        types.IndexRecord
		metaJSON string
	)
	if err := row.Scan(&r.ID, &r.Document, &metaJSON); err != nil {
		return r, fmt.Errorf("scanning record: %w", err)
	}
	r.Metadata = decodeMetadata(metaJSON)
	return r, nil
}

// decodeMetadata tolerates malformed rows by returning empty metadata.
func decodeMetadata(s string) types.Metadata {
	m := types.Metadata{}
	if s == "" {
		return m
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return types.Metadata{}
	}
	return m
}
