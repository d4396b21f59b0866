package scheduler_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"airdate/internal/config"
	"airdate/internal/media"
	"airdate/internal/queue"
	"airdate/internal/scheduler"
	"airdate/internal/services"
	"airdate/internal/testsupport"
	"airdate/internal/youtube"
)

type fakeUploader struct {
	mu      sync.Mutex
	calls   int
	err     error
	videoID string

	blockUntilCancel bool
	started          chan struct{}
	startOnce        sync.Once
}

func (f *fakeUploader) Upload(ctx context.Context, src *media.Source, meta youtube.Metadata, progress youtube.Progress) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.started != nil {
		f.startOnce.Do(func() { close(f.started) })
	}
	if f.blockUntilCancel {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	if progress != nil {
		progress(src.Size, src.Size)
	}
	return f.videoID, nil
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu       sync.Mutex
	uploaded int
	failed   int
	creds    int
}

func (f *fakeNotifier) NotifyScheduled(context.Context, string, time.Time) error { return nil }

func (f *fakeNotifier) NotifyUploaded(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded++
	return nil
}

func (f *fakeNotifier) NotifyFailed(context.Context, string, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed++
	return nil
}

func (f *fakeNotifier) NotifyCredentialProblem(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds++
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

func (f *fakeNotifier) counts() (uploaded, failed, creds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploaded, f.failed, f.creds
}

type fixture struct {
	cfg      *config.Config
	store    *queue.Store
	uploader *fakeUploader
	notifier *fakeNotifier
	sched    *scheduler.Scheduler
}

func newFixture(t *testing.T, uploader *fakeUploader) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &fakeNotifier{}
	sched := scheduler.NewWithDeps(cfg, store, media.NewFileResolver(cfg), uploader, nil,
		scheduler.WithIntervals(10*time.Millisecond, 10*time.Millisecond),
		scheduler.WithNotifier(notifier),
	)
	return &fixture{cfg: cfg, store: store, uploader: uploader, notifier: notifier, sched: sched}
}

func (fx *fixture) addJob(t *testing.T, runAt time.Time) *queue.Job {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(fx.cfg.Paths.LibraryDir, "clip.mp4"), 1024)
	job, err := fx.store.New(context.Background(), queue.NewJobParams{
		OwnerID:  "user-1",
		MediaRef: "clip.mp4",
		Title:    "Clip",
		RunAt:    runAt,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return job
}

func waitForStatus(t *testing.T, store *queue.Store, id string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
	return nil
}

func TestSchedulerUploadsDueJob(t *testing.T) {
	uploader := &fakeUploader{videoID: "vid-1"}
	fx := newFixture(t, uploader)
	job := fx.addJob(t, time.Now().Add(-time.Minute))

	if err := fx.sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fx.sched.Stop()

	done := waitForStatus(t, fx.store, job.ID, queue.StatusUploaded)
	if done.ResultRef != "vid-1" {
		t.Fatalf("expected result ref vid-1, got %q", done.ResultRef)
	}
	if done.LastError != "" {
		t.Fatalf("uploaded job must have no last error, got %q", done.LastError)
	}
	if done.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", done.Attempts)
	}
	uploaded, _, _ := fx.notifier.counts()
	if uploaded != 1 {
		t.Fatalf("expected one upload notification, got %d", uploaded)
	}
}

func TestSchedulerLeavesFutureJobAlone(t *testing.T) {
	uploader := &fakeUploader{videoID: "vid-1"}
	fx := newFixture(t, uploader)
	job := fx.addJob(t, time.Now().Add(time.Hour))

	if err := fx.sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	fx.sched.Stop()

	stored, err := fx.store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != queue.StatusPending {
		t.Fatalf("future job must stay pending, got %s", stored.Status)
	}
	if uploader.callCount() != 0 {
		t.Fatalf("uploader must not run, got %d calls", uploader.callCount())
	}
}

func TestCancelledJobNeverRuns(t *testing.T) {
	uploader := &fakeUploader{videoID: "vid-1"}
	fx := newFixture(t, uploader)
	job := fx.addJob(t, time.Now().Add(-time.Minute))

	if ok, err := fx.store.CancelPending(context.Background(), job.ID, "user-1"); err != nil || !ok {
		t.Fatalf("CancelPending = %v, %v", ok, err)
	}

	if err := fx.sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	fx.sched.Stop()

	stored, err := fx.store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", stored.Status)
	}
	if uploader.callCount() != 0 {
		t.Fatalf("cancelled job must not upload, got %d calls", uploader.callCount())
	}
}

func TestExhaustedUploadMarksJobFailed(t *testing.T) {
	cause := services.Wrap(services.ErrTransient, "youtube", "upload chunk", "endpoint failure (status 503)", nil)
	uploader := &fakeUploader{err: cause}
	fx := newFixture(t, uploader)
	job := fx.addJob(t, time.Now().Add(-time.Minute))

	if err := fx.sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fx.sched.Stop()

	failed := waitForStatus(t, fx.store, job.ID, queue.StatusFailed)
	if failed.LastError == "" {
		t.Fatal("failed job must record the cause")
	}
	if failed.ResultRef != "" {
		t.Fatalf("failed job must not carry a result ref, got %q", failed.ResultRef)
	}
	_, failedCount, _ := fx.notifier.counts()
	if failedCount != 1 {
		t.Fatalf("expected one failure notification, got %d", failedCount)
	}
}

func TestCredentialProblemNotifiesOperator(t *testing.T) {
	cause := services.Wrap(services.ErrConfiguration, "creds", "refresh", "refresh token revoked", nil)
	uploader := &fakeUploader{err: cause}
	fx := newFixture(t, uploader)
	job := fx.addJob(t, time.Now().Add(-time.Minute))

	if err := fx.sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fx.sched.Stop()

	waitForStatus(t, fx.store, job.ID, queue.StatusFailed)
	_, _, creds := fx.notifier.counts()
	if creds != 1 {
		t.Fatalf("expected a credential notification, got %d", creds)
	}
}

func TestMissingMediaFailsWithoutUploading(t *testing.T) {
	uploader := &fakeUploader{videoID: "vid-1"}
	fx := newFixture(t, uploader)

	job, err := fx.store.New(context.Background(), queue.NewJobParams{
		OwnerID:  "user-1",
		MediaRef: "ghost.mp4",
		RunAt:    time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := fx.sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer fx.sched.Stop()

	failed := waitForStatus(t, fx.store, job.ID, queue.StatusFailed)
	if failed.LastError == "" {
		t.Fatal("expected resolve failure recorded")
	}
	if uploader.callCount() != 0 {
		t.Fatalf("uploader must not run for unresolved media, got %d calls", uploader.callCount())
	}
}

func TestRunJobExecutesFutureJobNow(t *testing.T) {
	uploader := &fakeUploader{videoID: "vid-now"}
	fx := newFixture(t, uploader)
	job := fx.addJob(t, time.Now().Add(24*time.Hour))

	result, err := fx.sched.RunJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("RunJob failed: %v", err)
	}
	if result.Status != queue.StatusUploaded || result.ResultRef != "vid-now" {
		t.Fatalf("unexpected result: %#v", result)
	}

	if _, err := fx.sched.RunJob(context.Background(), job.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error on rerun, got %v", err)
	}
	if _, err := fx.sched.RunJob(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRunJobRaceHasSingleWinner(t *testing.T) {
	uploader := &fakeUploader{videoID: "vid-race"}
	fx := newFixture(t, uploader)
	job := fx.addJob(t, time.Now().Add(time.Hour))

	const racers = 4
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		go func() {
			_, err := fx.sched.RunJob(context.Background(), job.ID)
			errs <- err
		}()
	}

	winners := 0
	for i := 0; i < racers; i++ {
		if err := <-errs; err == nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if uploader.callCount() != 1 {
		t.Fatalf("expected a single upload, got %d", uploader.callCount())
	}
}

func TestInterruptedJobStaysRunning(t *testing.T) {
	uploader := &fakeUploader{blockUntilCancel: true, started: make(chan struct{})}
	fx := newFixture(t, uploader)
	job := fx.addJob(t, time.Now().Add(-time.Minute))

	if err := fx.sched.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-uploader.started:
	case <-time.After(5 * time.Second):
		t.Fatal("upload never started")
	}
	fx.sched.Stop()

	stored, err := fx.store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != queue.StatusRunning {
		t.Fatalf("interrupted job must remain running, got %s", stored.Status)
	}
}
