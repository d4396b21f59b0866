package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"airdate/internal/creds"
	"airdate/internal/media"
	"airdate/internal/queue"
	"airdate/internal/services"
)

const component = "api"

// JobStore abstracts queue persistence interactions needed by the service.
type JobStore interface {
	New(ctx context.Context, params queue.NewJobParams) (*queue.Job, error)
	GetByID(ctx context.Context, id string) (*queue.Job, error)
	ListByOwner(ctx context.Context, owner string) ([]*queue.Job, error)
	CancelPending(ctx context.Context, id, owner string) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
}

// JobRunner executes a pending job immediately.
type JobRunner interface {
	RunJob(ctx context.Context, id string) (*queue.Job, error)
}

// JobService implements the job operations behind the HTTP surface.
type JobService struct {
	store  JobStore
	runner JobRunner
	now    func() time.Time
}

// NewJobService constructs a JobService. The runner may be nil when
// immediate execution is not available, such as in read-only tooling.
func NewJobService(store JobStore, runner JobRunner) *JobService {
	return &JobService{store: store, runner: runner, now: time.Now}
}

// Schedule validates a request and enqueues a pending job. The run time must
// be in the future; immediate publishing goes through ExecuteNow instead.
func (s *JobService) Schedule(ctx context.Context, req ScheduleRequest) (*JobView, error) {
	if strings.TrimSpace(req.Owner) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "schedule", "owner is required", nil)
	}
	if strings.TrimSpace(req.MediaRef) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "schedule", "media reference is required", nil)
	}
	if req.RunAt.IsZero() {
		return nil, services.Wrap(services.ErrValidation, component, "schedule", "run time is required", nil)
	}
	if !req.RunAt.After(s.now()) {
		return nil, services.Wrap(services.ErrValidation, component, "schedule",
			fmt.Sprintf("run time %s is not in the future", req.RunAt.Format(time.RFC3339)), nil)
	}
	visibility := queue.VisibilityPrivate
	if req.Visibility != "" {
		parsed, ok := queue.ParseVisibility(req.Visibility)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, component, "schedule",
				fmt.Sprintf("unknown visibility %q", req.Visibility), nil)
		}
		visibility = parsed
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = media.TitleFromRef(req.MediaRef)
	}

	job, err := s.store.New(ctx, queue.NewJobParams{
		OwnerID:     req.Owner,
		MediaRef:    req.MediaRef,
		Title:       title,
		Description: req.Description,
		Tags:        req.Tags,
		Visibility:  visibility,
		RunAt:       req.RunAt,
	})
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// List returns the owner's jobs, newest first per store ordering.
func (s *JobService) List(ctx context.Context, owner string) ([]JobView, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "list", "owner is required", nil)
	}
	jobs, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job the owner can see.
func (s *JobService) Describe(ctx context.Context, id, owner string) (*JobView, error) {
	job, err := s.ownedJob(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// Cancel asks a pending job to stop before it runs. Losing the race against
// the scheduler is an expected outcome, reported as cancelled=false rather
// than an error.
func (s *JobService) Cancel(ctx context.Context, id, owner string) (*JobView, bool, error) {
	if _, err := s.ownedJob(ctx, id, owner); err != nil {
		return nil, false, err
	}
	cancelled, err := s.store.CancelPending(ctx, id, owner)
	if err != nil {
		return nil, false, err
	}
	view, err := s.Describe(ctx, id, owner)
	if err != nil {
		return nil, cancelled, err
	}
	return view, cancelled, nil
}

// ExecuteNow claims and publishes a pending job without waiting for run_at.
func (s *JobService) ExecuteNow(ctx context.Context, id, owner string) (*JobView, error) {
	if s.runner == nil {
		return nil, services.Wrap(services.ErrConfiguration, component, "publish now", "no job runner available", nil)
	}
	if _, err := s.ownedJob(ctx, id, owner); err != nil {
		return nil, err
	}
	job, err := s.runner.RunJob(ctx, id)
	if err != nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// Delete removes a terminal job from the queue. Pending jobs must be
// cancelled first and running jobs cannot be removed at all; both report
// deleted=false without an error.
func (s *JobService) Delete(ctx context.Context, id, owner string) (bool, error) {
	job, err := s.ownedJob(ctx, id, owner)
	if err != nil {
		return false, err
	}
	if !job.Status.IsTerminal() {
		return false, nil
	}
	removed, err := s.store.Remove(ctx, id)
	if err != nil {
		return false, err
	}
	return removed, nil
}

// ownedJob loads a job and enforces owner-scoped visibility. Jobs owned by
// someone else read as absent rather than forbidden.
func (s *JobService) ownedJob(ctx context.Context, id, owner string) (*queue.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "lookup", "job id is required", nil)
	}
	if strings.TrimSpace(owner) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "lookup", "owner is required", nil)
	}
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil || job.OwnerID != owner {
		return nil, services.Wrap(services.ErrNotFound, component, "lookup", "job does not exist", nil)
	}
	return job, nil
}

// SchedulerInfo reports the scheduler state for status aggregation.
type SchedulerInfo interface {
	Running() bool
	LastError() error
}

// StatusService assembles the daemon status payload.
type StatusService struct {
	store     JobStore
	scheduler SchedulerInfo
	creds     *creds.Manager
	dbPath    string
	pid       int
}

// NewStatusService constructs a StatusService.
func NewStatusService(store JobStore, sched SchedulerInfo, manager *creds.Manager, dbPath string, pid int) *StatusService {
	return &StatusService{store: store, scheduler: sched, creds: manager, dbPath: dbPath, pid: pid}
}

// Status reports scheduler, queue, and credential health.
func (s *StatusService) Status(ctx context.Context) (DaemonStatus, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return DaemonStatus{}, err
	}
	status := DaemonStatus{
		Running:     s.scheduler != nil && s.scheduler.Running(),
		PID:         s.pid,
		QueueDBPath: s.dbPath,
		QueueStats:  MergeStats(stats),
	}
	if s.scheduler != nil {
		if lastErr := s.scheduler.LastError(); lastErr != nil {
			status.LastError = lastErr.Error()
		}
	}
	if s.creds != nil {
		credStatus := s.creds.Describe()
		status.Credentials.Configured = credStatus.Configured
		if !credStatus.Expiry.IsZero() {
			status.Credentials.Expiry = credStatus.Expiry.UTC().Format(dateTimeFormat)
		}
	}
	return status, nil
}
