package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"quizsolver-backend/services/solver"
)

// Store persists job outcomes for inspection after the process exits.
// It is write-behind observability only: in-flight jobs are not resumed
// from it.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{db: database}
}

func (s *Store) CreateJob(ctx context.Context, job Job) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, email, url, status, createdat)
		VALUES (?, ?, ?, ?, ?)`,
		job.Id,
		job.Email,
		job.Url,
		string(job.Status),
		job.CreatedAt.Unix(),
	)
	return err
}

func (s *Store) UpdateJob(ctx context.Context, job Job) error {
	result, err := marshalResult(job.Result)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, startedat = ?, endedat = ?, result = ?, panic = ?
		WHERE id = ?`,
		string(job.Status),
		nullUnix(job.StartedAt),
		nullUnix(job.EndedAt),
		result,
		nullString(job.Panic),
		job.Id,
	)
	return err
}

// GetJob returns sql.ErrNoRows when no job has the given id.
func (s *Store) GetJob(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, email, url, status, createdat, startedat, endedat, result, panic
		FROM jobs WHERE id = ?`,
		id,
	)
	return scanJob(row)
}

// ListJobs returns up to limit jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int64) ([]Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, email, url, status, createdat, startedat, endedat, result, panic
		FROM jobs ORDER BY createdat DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var status string
	var createdat int64
	var startedat, endedat sql.NullInt64
	var result, panicValue sql.NullString

	err := row.Scan(
		&job.Id,
		&job.Email,
		&job.Url,
		&status,
		&createdat,
		&startedat,
		&endedat,
		&result,
		&panicValue,
	)
	if err != nil {
		return Job{}, err
	}

	job.Status = Status(status)
	job.CreatedAt = time.Unix(createdat, 0)
	if startedat.Valid {
		t := time.Unix(startedat.Int64, 0)
		job.StartedAt = &t
	}
	if endedat.Valid {
		t := time.Unix(endedat.Int64, 0)
		job.EndedAt = &t
	}
	if result.Valid {
		var r solver.Result
		err := json.Unmarshal([]byte(result.String), &r)
		if err != nil {
			return Job{}, fmt.Errorf("unmarshal job result: %w", err)
		}
		job.Result = &r
	}
	job.Panic = panicValue.String

	return job, nil
}

func marshalResult(result *solver.Result) (sql.NullString, error) {
	if result == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal job result: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
