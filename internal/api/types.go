package api

import (
	"time"

	"airdate/internal/queue"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a publish job in a transport-friendly format.
type JobView struct {
	ID          string   `json:"id"`
	Owner       string   `json:"owner"`
	MediaRef    string   `json:"mediaRef"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Visibility  string   `json:"visibility"`
	RunAt       string   `json:"runAt"`
	Status      string   `json:"status"`
	Error       string   `json:"error,omitempty"`
	VideoID     string   `json:"videoId,omitempty"`
	Attempts    int      `json:"attempts"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// DaemonStatus aggregates runtime information for API consumers.
type DaemonStatus struct {
	Running     bool           `json:"running"`
	PID         int            `json:"pid"`
	QueueDBPath string         `json:"queueDbPath"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	Credentials CredentialView `json:"credentials"`
}

// CredentialView reports the shared upload credential state.
type CredentialView struct {
	Configured bool   `json:"configured"`
	Expiry     string `json:"expiry,omitempty"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// FromJob converts a queue job into its transport representation.
func FromJob(job *queue.Job) JobView {
	view := JobView{
		ID:          job.ID,
		Owner:       job.OwnerID,
		MediaRef:    job.MediaRef,
		Title:       job.Title,
		Description: job.Description,
		Tags:        job.Tags,
		Visibility:  string(job.Visibility),
		Status:      string(job.Status),
		Error:       job.LastError,
		VideoID:     job.ResultRef,
		Attempts:    job.Attempts,
	}
	if !job.RunAt.IsZero() {
		view.RunAt = job.RunAt.UTC().Format(dateTimeFormat)
	}
	if !job.CreatedAt.IsZero() {
		view.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		view.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return view
}

// FromJobs converts a slice of queue jobs.
func FromJobs(jobs []*queue.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, FromJob(job))
	}
	return views
}

// MergeStats normalizes queue stats into string-keyed counts with every
// status present.
func MergeStats(stats map[queue.Status]int) map[string]int {
	statuses := queue.AllStatuses()
	merged := make(map[string]int, len(statuses))
	for _, status := range statuses {
		merged[string(status)] = stats[status]
	}
	return merged
}

// ScheduleRequest carries the fields needed to enqueue a publish job.
type ScheduleRequest struct {
	Owner       string
	MediaRef    string
	Title       string
	Description string
	Tags        []string
	Visibility  string
	RunAt       time.Time
}
