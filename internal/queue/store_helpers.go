package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, owner_id, media_ref, title, description, tags_json, visibility, run_at, status, last_error, result_ref, attempts, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id          string
		ownerID     string
		mediaRef    string
		title       string
		description sql.NullString
		tagsJSON    sql.NullString
		visibility  string
		runAtRaw    string
		statusStr   string
		lastError   sql.NullString
		resultRef   sql.NullString
		attempts    sql.NullInt64
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(
		&id,
		&ownerID,
		&mediaRef,
		&title,
		&description,
		&tagsJSON,
		&visibility,
		&runAtRaw,
		&statusStr,
		&lastError,
		&resultRef,
		&attempts,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:          id,
		OwnerID:     ownerID,
		MediaRef:    mediaRef,
		Title:       title,
		Description: description.String,
		Visibility:  Visibility(visibility),
		Status:      Status(statusStr),
		LastError:   lastError.String,
		ResultRef:   resultRef.String,
		Attempts:    int(attempts.Int64),
	}

	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &job.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for job %s: %w", id, err)
		}
	}

	var err error
	if job.RunAt, err = parseTimeString(runAtRaw); err != nil {
		return nil, fmt.Errorf("parse run_at for job %s: %w", id, err)
	}
	if job.CreatedAt, err = parseTimeString(createdRaw); err != nil {
		return nil, fmt.Errorf("parse created_at for job %s: %w", id, err)
	}
	if job.UpdatedAt, err = parseTimeString(updatedRaw); err != nil {
		return nil, fmt.Errorf("parse updated_at for job %s: %w", id, err)
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func encodeTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return string(raw), nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
