package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"airdate/internal/config"
	"airdate/internal/creds"
	"airdate/internal/logging"
	"airdate/internal/media"
	"airdate/internal/notifications"
	"airdate/internal/queue"
	"airdate/internal/youtube"
)

const component = "scheduler"

// Uploader pushes a resolved media file to the publishing endpoint.
type Uploader interface {
	Upload(ctx context.Context, src *media.Source, meta youtube.Metadata, progress youtube.Progress) (string, error)
}

// Scheduler drains due publish jobs from the queue. One polling goroutine
// claims jobs through compare-and-swap transitions, so an API-triggered
// immediate run can race the loop safely.
type Scheduler struct {
	cfg      *config.Config
	store    *queue.Store
	resolver media.Resolver
	uploader Uploader
	notifier notifications.Service
	logger   *slog.Logger

	pollInterval       time.Duration
	errorRetryInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// Option configures optional Scheduler behavior.
type Option func(*Scheduler)

// WithIntervals overrides the poll and error retry cadence, mainly in tests.
func WithIntervals(poll, errorRetry time.Duration) Option {
	return func(s *Scheduler) {
		if poll > 0 {
			s.pollInterval = poll
		}
		if errorRetry > 0 {
			s.errorRetryInterval = errorRetry
		}
	}
}

// WithNotifier replaces the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Scheduler) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// New constructs a scheduler with the production upload client wired in.
func New(cfg *config.Config, store *queue.Store, manager *creds.Manager, logger *slog.Logger, opts ...Option) *Scheduler {
	uploader := youtube.New(cfg, manager, logger)
	return NewWithDeps(cfg, store, media.NewFileResolver(cfg), uploader, logger, opts...)
}

// NewWithDeps constructs a scheduler with explicit collaborators.
func NewWithDeps(cfg *config.Config, store *queue.Store, resolver media.Resolver, uploader Uploader, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scheduler{
		cfg:                cfg,
		store:              store,
		resolver:           resolver,
		uploader:           uploader,
		notifier:           notifications.NewService(cfg),
		logger:             logging.NewComponentLogger(logger, component),
		pollInterval:       time.Duration(cfg.Workflow.PollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins background processing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	s.surfaceInterrupted(runCtx)

	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()
	return nil
}

// Stop terminates background processing and waits for the in-flight job.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

// Running reports whether the polling loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastError returns the most recent loop-level failure, if any.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Scheduler) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// surfaceInterrupted reports jobs a previous process left in the running
// state. They are not re-queued; the operator decides whether to reschedule,
// since the upload may have partially completed.
func (s *Scheduler) surfaceInterrupted(ctx context.Context) {
	count, err := s.store.CountRunning(ctx)
	if err != nil {
		s.logger.Warn("could not inspect running jobs from a previous run", logging.Error(err))
		return
	}
	if count > 0 {
		s.logger.Warn("jobs interrupted by a previous shutdown remain in the running state",
			logging.Int("count", count),
			logging.String(logging.FieldErrorHint, "reschedule them after confirming they did not publish"))
	}
}
