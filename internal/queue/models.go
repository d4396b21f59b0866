package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a publish job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusUploaded  Status = "uploaded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusUploaded,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Visibility is the privacy setting applied to a published video.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// ParseVisibility converts a string into a known Visibility.
func ParseVisibility(value string) (Visibility, bool) {
	normalized := Visibility(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case VisibilityPrivate, VisibilityUnlisted, VisibilityPublic:
		return normalized, true
	}
	return "", false
}

// Job represents a deferred publish request persisted in SQLite.
//
// ID, OwnerID, MediaRef, RunAt, and CreatedAt are immutable after creation;
// the store's Update never rewrites them. ResultRef is set only when the job
// reaches uploaded, LastError only when it reaches failed.
type Job struct {
	ID          string
	OwnerID     string
	MediaRef    string
	Title       string
	Description string
	Tags        []string
	Visibility  Visibility
	RunAt       time.Time
	Status      Status
	LastError   string
	ResultRef   string
	Attempts    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	Pending   int
	Running   int
	Uploaded  int
	Failed    int
	Cancelled int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusUploaded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Due reports whether the job is eligible for execution at the given instant.
func (j *Job) Due(now time.Time) bool {
	return j.Status == StatusPending && !j.RunAt.After(now)
}

// SetUploaded marks the job successful with the platform-assigned identifier.
func (j *Job) SetUploaded(resultRef string) {
	j.Status = StatusUploaded
	j.ResultRef = resultRef
	j.LastError = ""
}

// SetFailed marks the job failed with the given reason.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.LastError = message
	j.ResultRef = ""
}
