package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/assistdesk/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is its own database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS call_records (
			id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL,
			agent_name TEXT NOT NULL,
			assistant_id TEXT NOT NULL,
			status TEXT NOT NULL,
			pid INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			exit_code INTEGER,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_call_records_created ON call_records(created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateCallRecord inserts a new record.
func (s *SQLiteStore) CreateCallRecord(ctx context.Context, rec *domain.CallRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_records (id, created_at, agent_name, assistant_id, status, pid, duration_ms, exit_code, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UTC(), rec.AgentName, rec.AssistantID, string(rec.Status), rec.PID,
		rec.Duration.Milliseconds(), nullInt(rec.ExitCode), nullTime(rec.EndedAt))
	if err != nil {
		return fmt.Errorf("failed to create call record: %w", err)
	}
	return nil
}

// FinishCallRecord stores the final status, duration and exit code.
func (s *SQLiteStore) FinishCallRecord(ctx context.Context, rec *domain.CallRecord) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE call_records SET status = ?, duration_ms = ?, exit_code = ?, ended_at = ? WHERE id = ?`,
		string(rec.Status), rec.Duration.Milliseconds(), nullInt(rec.ExitCode), nullTime(rec.EndedAt), rec.ID)
	if err != nil {
		return fmt.Errorf("failed to finish call record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const callRecordColumns = `id, created_at, agent_name, assistant_id, status, pid, duration_ms, exit_code, ended_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCallRecord(row scanner) (*domain.CallRecord, error) {
	var rec domain.CallRecord
	var status string
	var durationMs int64
	var exitCode sql.NullInt64
	var endedAt sql.NullTime
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.AgentName, &rec.AssistantID, &status, &rec.PID, &durationMs, &exitCode, &endedAt); err != nil {
		return nil, err
	}
	rec.Status = domain.CallRecordStatus(status)
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	if exitCode.Valid {
		code := int(exitCode.Int64)
		rec.ExitCode = &code
	}
	if endedAt.Valid {
		t := endedAt.Time
		rec.EndedAt = &t
	}
	return &rec, nil
}

// GetCallRecord retrieves a record by ID.
func (s *SQLiteStore) GetCallRecord(ctx context.Context, id string) (*domain.CallRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+callRecordColumns+` FROM call_records WHERE id = ?`, id)
	rec, err := scanCallRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListCallRecords returns records newest first.
func (s *SQLiteStore) ListCallRecords(ctx context.Context, limit int) ([]domain.CallRecord, error) {
	query := `SELECT ` + callRecordColumns + ` FROM call_records ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CallRecord
	for rows.Next() {
		rec, err := scanCallRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}
