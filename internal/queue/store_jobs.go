package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewJobParams carries the caller-supplied fields for a new publish job.
type NewJobParams struct {
	OwnerID     string
	MediaRef    string
	Title       string
	Description string
	Tags        []string
	Visibility  Visibility
	RunAt       time.Time
}

// New inserts a pending job and returns the stored record.
func (s *Store) New(ctx context.Context, params NewJobParams) (*Job, error) {
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, errors.New("owner id is required")
	}
	if strings.TrimSpace(params.MediaRef) == "" {
		return nil, errors.New("media ref is required")
	}
	if params.Visibility == "" {
		params.Visibility = VisibilityPrivate
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	tags, err := encodeTags(params.Tags)
	if err != nil {
		return nil, err
	}

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO publish_jobs (
            id, owner_id, media_ref, title, description, tags_json,
            visibility, run_at, status, attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id,
		params.OwnerID,
		params.MediaRef,
		params.Title,
		nullableString(params.Description),
		tags,
		string(params.Visibility),
		params.RunAt.UTC().Format(time.RFC3339Nano),
		StatusPending,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Returns nil without error when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM publish_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists mutable fields of an existing job and bumps updated_at.
// Identity fields (id, owner_id, media_ref, run_at, created_at) are never
// rewritten.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()

	tags, err := encodeTags(job.Tags)
	if err != nil {
		return err
	}

	if _, err := s.execWithRetry(
		ctx,
		`UPDATE publish_jobs
         SET title = ?, description = ?, tags_json = ?, visibility = ?,
             status = ?, last_error = ?, result_ref = ?, attempts = ?, updated_at = ?
         WHERE id = ?`,
		job.Title,
		nullableString(job.Description),
		tags,
		string(job.Visibility),
		string(job.Status),
		nullableString(job.LastError),
		nullableString(job.ResultRef),
		job.Attempts,
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM publish_jobs`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListByOwner returns all jobs belonging to an owner, ordered by creation time.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM publish_jobs WHERE owner_id = ? ORDER BY created_at`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs by owner: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListDue returns pending jobs whose run_at is at or before now, in creation order.
func (s *Store) ListDue(ctx context.Context, now time.Time) ([]*Job, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM publish_jobs WHERE status = ? AND run_at <= ? ORDER BY created_at`,
		StatusPending,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("list due jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM publish_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns job counts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM publish_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health returns aggregate counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Pending:   stats[StatusPending],
		Running:   stats[StatusRunning],
		Uploaded:  stats[StatusUploaded],
		Failed:    stats[StatusFailed],
		Cancelled: stats[StatusCancelled],
	}
	for _, count := range stats {
		summary.Total += count
	}
	return summary, nil
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
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
