package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sigil/internal/config"
)

// Store manages rendition job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the queue database file.
func (s *Store) Path() string {
	return s.path
}

// NewJob describes a rendition job to enqueue.
type NewJob struct {
	SourcePath    string
	SourceName    string
	SourceMime    string
	RenditionPath string
	RenditionName string
	Instructions  map[string]any
}

// Enqueue inserts a pending rendition job and returns the stored record.
func (s *Store) Enqueue(ctx context.Context, job NewJob) (*Job, error) {
	if strings.TrimSpace(job.SourcePath) == "" {
		return nil, errors.New("source path is required")
	}
	if strings.TrimSpace(job.RenditionPath) == "" {
		return nil, errors.New("rendition path is required")
	}

	instructionsJSON := ""
	if len(job.Instructions) > 0 {
		encoded, err := json.Marshal(job.Instructions)
		if err != nil {
			return nil, fmt.Errorf("marshal instructions: %w", err)
		}
		instructionsJSON = string(encoded)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_jobs (
            token, source_path, source_name, source_mime,
            rendition_path, rendition_name, instructions_json,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		job.SourcePath,
		nullableString(job.SourceName),
		nullableString(job.SourceMime),
		job.RenditionPath,
		nullableString(job.RenditionName),
		nullableString(instructionsJSON),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

const jobColumns = "id, token, source_path, source_name, source_mime, rendition_path, rendition_name, instructions_json, status, error_message, created_at, updated_at"

// GetByID fetches a job by its numeric identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM queue_jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return job, err
}

// GetByToken fetches a job by its opaque token.
func (s *Store) GetByToken(ctx context.Context, token string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM queue_jobs WHERE token = ?", token)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: token %s", ErrNotFound, token)
	}
	return job, err
}

// List returns jobs ordered by creation, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := "SELECT " + jobColumns + " FROM queue_jobs"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNext atomically transitions the oldest pending job to processing and
// returns it. It returns (nil, nil) when no pending work exists.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		"SELECT id FROM queue_jobs WHERE status = ? ORDER BY id LIMIT 1", StatusPending)
	var id int64
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select pending job: %w", err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		"UPDATE queue_jobs SET status = ?, updated_at = ? WHERE id = ?",
		StatusProcessing, timestamp, id); err != nil {
		return nil, fmt.Errorf("claim job %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return s.GetByID(ctx, id)
}

// MarkCompleted records a successful rendition job.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, StatusCompleted, "")
}

// MarkFailed records a failed rendition job with a diagnostic message.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	return s.setStatus(ctx, id, StatusFailed, message)
}

func (s *Store) setStatus(ctx context.Context, id int64, status Status, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE queue_jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		status, nullableString(message), timestamp, id)
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// RetryFailed returns a failed job to pending so the daemon picks it up again.
func (s *Store) RetryFailed(ctx context.Context, id int64) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE queue_jobs SET status = ?, error_message = NULL, updated_at = ? WHERE id = ? AND status = ?",
		StatusPending, timestamp, id, StatusFailed)
	if err != nil {
		return fmt.Errorf("retry job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: no failed job with id %d", ErrNotFound, id)
	}
	return nil
}

// ResetProcessing returns jobs stuck in processing to pending. It is called
// on daemon startup to recover from an unclean shutdown.
func (s *Store) ResetProcessing(ctx context.Context) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE queue_jobs SET status = ?, updated_at = ? WHERE status = ?",
		StatusPending, timestamp, StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("reset processing jobs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes completed jobs, or every job when all is true.
func (s *Store) Clear(ctx context.Context, all bool) (int64, error) {
	query := "DELETE FROM queue_jobs WHERE status = ?"
	args := []any{StatusCompleted}
	if all {
		query = "DELETE FROM queue_jobs"
		args = nil
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM queue_jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               int64
		token            string
		sourcePath       string
		sourceName       sql.NullString
		sourceMime       sql.NullString
		renditionPath    string
		renditionName    sql.NullString
		instructionsJSON sql.NullString
		statusStr        string
		errorMessage     sql.NullString
		createdRaw       string
		updatedRaw       string
	)

	if err := scanner.Scan(
		&id,
		&token,
		&sourcePath,
		&sourceName,
		&sourceMime,
		&renditionPath,
		&renditionName,
		&instructionsJSON,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	status, ok := ParseStatus(statusStr)
	if !ok {
		return nil, fmt.Errorf("unknown job status %q", statusStr)
	}

	job := &Job{
		ID:               id,
		Token:            token,
		SourcePath:       sourcePath,
		SourceName:       sourceName.String,
		SourceMime:       sourceMime.String,
		RenditionPath:    renditionPath,
		RenditionName:    renditionName.String,
		InstructionsJSON: instructionsJSON.String,
		Status:           status,
		ErrorMessage:     errorMessage.String,
	}

	var err error
	if job.CreatedAt, err = parseTimestamp(createdRaw); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = parseTimestamp(updatedRaw); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return job, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
