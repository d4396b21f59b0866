package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"airdate/internal/logging"
	"airdate/internal/media"
	"airdate/internal/queue"
	"airdate/internal/services"
	"airdate/internal/youtube"
)

func (s *Scheduler) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		due, err := s.store.ListDue(ctx, time.Now())
		if err != nil {
			s.setLastError(err)
			s.logger.Error("failed to list due jobs",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"))
			s.sleep(ctx, s.errorRetryInterval)
			continue
		}

		processed := false
		for _, job := range due {
			if ctx.Err() != nil {
				return
			}
			if s.processJob(ctx, job.ID) {
				processed = true
			}
		}
		if !processed {
			s.sleep(ctx, s.pollInterval)
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// RunJob executes a single job immediately, regardless of its run_at time.
// The claim transition decides the winner when the polling loop or another
// caller goes for the same job; losers get a validation error.
func (s *Scheduler) RunJob(ctx context.Context, id string) (*queue.Job, error) {
	claimed, err := s.store.ClaimPending(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		job, getErr := s.store.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if job == nil {
			return nil, services.Wrap(services.ErrNotFound, component, "run job", "job does not exist", nil)
		}
		return nil, services.Wrap(services.ErrValidation, component, "run job",
			fmt.Sprintf("job is %s, only pending jobs can be run", job.Status), nil)
	}

	s.execute(ctx, id)
	return s.store.GetByID(ctx, id)
}

// processJob claims and executes one due job. It returns true when this
// scheduler won the claim and did the work.
func (s *Scheduler) processJob(ctx context.Context, id string) bool {
	claimed, err := s.store.ClaimPending(ctx, id)
	if err != nil {
		s.setLastError(err)
		s.logger.Error("failed to claim job", logging.String(logging.FieldJobID, id), logging.Error(err))
		return false
	}
	if !claimed {
		return false
	}
	s.execute(ctx, id)
	return true
}

// execute runs a claimed job to a terminal state. A canceled context leaves
// the job in the running state on purpose; a partially sent upload must not
// silently rerun, so interrupted jobs are surfaced at the next startup
// instead of re-queued.
func (s *Scheduler) execute(ctx context.Context, id string) {
	logger := s.logger.With(logging.String(logging.FieldJobID, id))

	job, err := s.store.GetByID(ctx, id)
	if err != nil || job == nil {
		s.setLastError(err)
		logger.Error("claimed job disappeared", logging.Error(err))
		return
	}
	job.Attempts++

	logger.Info("publishing job",
		logging.String("title", job.Title),
		logging.String("media_ref", job.MediaRef),
		logging.Int("attempt", job.Attempts))

	videoID, err := s.publish(ctx, logger, job)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("job interrupted by shutdown, leaving it in the running state")
			return
		}
		s.fail(ctx, logger, job, err)
		return
	}

	job.SetUploaded(videoID)
	if err := s.store.Update(ctx, job); err != nil {
		s.setLastError(err)
		logger.Error("upload succeeded but the result could not be persisted",
			logging.String("video_id", videoID),
			logging.Error(err))
		return
	}
	logger.Info("job uploaded", logging.String("video_id", videoID))
	if err := s.notifier.NotifyUploaded(ctx, job.Title, videoID); err != nil {
		logger.Warn("upload notification failed", logging.Error(err))
	}
}

func (s *Scheduler) publish(ctx context.Context, logger *slog.Logger, job *queue.Job) (string, error) {
	src, err := s.resolver.Resolve(ctx, job.MediaRef)
	if err != nil {
		return "", err
	}

	title := job.Title
	if title == "" {
		title = media.TitleFromRef(job.MediaRef)
	}
	meta := youtube.Metadata{
		Title:       title,
		Description: job.Description,
		Tags:        job.Tags,
		Privacy:     string(job.Visibility),
	}

	var lastLogged int64
	progress := func(sent, total int64) {
		// One progress line roughly every quarter of the file.
		if total > 0 && (sent-lastLogged)*4 >= total {
			lastLogged = sent
			logger.Info("upload progress",
				logging.Int64("sent", sent),
				logging.Int64("total", total))
		}
	}
	return s.uploader.Upload(ctx, src, meta, progress)
}

func (s *Scheduler) fail(ctx context.Context, logger *slog.Logger, job *queue.Job, cause error) {
	job.SetFailed(cause.Error())
	if err := s.store.Update(ctx, job); err != nil {
		s.setLastError(err)
		logger.Error("could not persist job failure", logging.Error(err))
		return
	}
	logger.Error("job failed",
		logging.Error(cause),
		logging.Int("attempts", job.Attempts))

	if err := s.notifier.NotifyFailed(ctx, job.Title, cause.Error()); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	if errors.Is(cause, services.ErrConfiguration) {
		if err := s.notifier.NotifyCredentialProblem(ctx, cause.Error()); err != nil {
			logger.Warn("credential notification failed", logging.Error(err))
		}
	}
}
