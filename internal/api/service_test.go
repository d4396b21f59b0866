package api_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"airdate/internal/api"
	"airdate/internal/queue"
	"airdate/internal/services"
	"airdate/internal/testsupport"
)

type stubRunner struct {
	store *queue.Store
	err   error
}

func (r *stubRunner) RunJob(ctx context.Context, id string) (*queue.Job, error) {
	if r.err != nil {
		return nil, r.err
	}
	if ok, err := r.store.ClaimPending(ctx, id); err != nil || !ok {
		return nil, services.Wrap(services.ErrValidation, "scheduler", "run job", "job is not pending", err)
	}
	job, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	job.SetUploaded("vid-now")
	if err := r.store.Update(ctx, job); err != nil {
		return nil, err
	}
	return r.store.GetByID(ctx, id)
}

func newService(t *testing.T) (*api.JobService, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return api.NewJobService(store, &stubRunner{store: store}), store
}

func scheduleReq(owner string) api.ScheduleRequest {
	return api.ScheduleRequest{
		Owner:    owner,
		MediaRef: "clips/demo.mp4",
		Title:    "Demo",
		RunAt:    time.Now().Add(time.Hour),
	}
}

func TestScheduleCreatesPendingJob(t *testing.T) {
	svc, _ := newService(t)

	view, err := svc.Schedule(context.Background(), scheduleReq("alice"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if view.Status != string(queue.StatusPending) {
		t.Fatalf("expected pending, got %s", view.Status)
	}
	if view.Visibility != string(queue.VisibilityPrivate) {
		t.Fatalf("expected default private visibility, got %s", view.Visibility)
	}
	if view.RunAt == "" || view.ID == "" {
		t.Fatalf("incomplete view: %#v", view)
	}
}

func TestScheduleDerivesTitleFromMediaRef(t *testing.T) {
	svc, _ := newService(t)

	req := scheduleReq("alice")
	req.Title = ""
	req.MediaRef = "clips/road_trip.mp4"
	view, err := svc.Schedule(context.Background(), req)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if view.Title != "Road Trip" {
		t.Fatalf("expected derived title, got %q", view.Title)
	}
}

func TestScheduleValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*api.ScheduleRequest)
	}{
		{"missing owner", func(r *api.ScheduleRequest) { r.Owner = "" }},
		{"missing media ref", func(r *api.ScheduleRequest) { r.MediaRef = "" }},
		{"zero run time", func(r *api.ScheduleRequest) { r.RunAt = time.Time{} }},
		{"past run time", func(r *api.ScheduleRequest) { r.RunAt = time.Now().Add(-time.Minute) }},
		{"bad visibility", func(r *api.ScheduleRequest) { r.Visibility = "secret" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := scheduleReq("alice")
			tc.mutate(&req)
			if _, err := svc.Schedule(ctx, req); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestListAndDescribeAreOwnerScoped(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	mine, err := svc.Schedule(ctx, scheduleReq("alice"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if _, err := svc.Schedule(ctx, scheduleReq("bob")); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	views, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 1 || views[0].Owner != "alice" {
		t.Fatalf("unexpected listing: %#v", views)
	}

	if _, err := svc.Describe(ctx, mine.ID, "bob"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("cross-owner describe must read as absent, got %v", err)
	}
	if _, err := svc.Describe(ctx, mine.ID, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty owner must be rejected, not treated as a wildcard, got %v", err)
	}
	view, err := svc.Describe(ctx, mine.ID, "alice")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if view.ID != mine.ID {
		t.Fatalf("unexpected job: %#v", view)
	}
}

func TestCancelOnlyPendingJobs(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	job, err := svc.Schedule(ctx, scheduleReq("alice"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	view, cancelled, err := svc.Cancel(ctx, job.ID, "alice")
	if err != nil || !cancelled {
		t.Fatalf("Cancel = %v, %v", cancelled, err)
	}
	if view.Status != string(queue.StatusCancelled) {
		t.Fatalf("expected cancelled, got %s", view.Status)
	}

	if _, cancelled, err := svc.Cancel(ctx, job.ID, "alice"); err != nil || cancelled {
		t.Fatalf("repeat cancel must lose quietly, got %v, %v", cancelled, err)
	}

	running, err := svc.Schedule(ctx, scheduleReq("alice"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if ok, claimErr := store.ClaimPending(ctx, running.ID); claimErr != nil || !ok {
		t.Fatalf("ClaimPending = %v, %v", ok, claimErr)
	}
	if _, cancelled, err := svc.Cancel(ctx, running.ID, "alice"); err != nil || cancelled {
		t.Fatalf("cancelling a running job must lose quietly, got %v, %v", cancelled, err)
	}
}

func TestExecuteNowPublishesImmediately(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Schedule(ctx, scheduleReq("alice"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	view, err := svc.ExecuteNow(ctx, job.ID, "alice")
	if err != nil {
		t.Fatalf("ExecuteNow failed: %v", err)
	}
	if view.Status != string(queue.StatusUploaded) || view.VideoID != "vid-now" {
		t.Fatalf("unexpected result: %#v", view)
	}

	if _, err := svc.ExecuteNow(ctx, job.ID, "bob"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("cross-owner publish must read as absent, got %v", err)
	}
}

func TestDeleteRequiresTerminalState(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	job, err := svc.Schedule(ctx, scheduleReq("alice"))
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	if deleted, err := svc.Delete(ctx, job.ID, "alice"); err != nil || deleted {
		t.Fatalf("pending jobs must not be deletable, got %v, %v", deleted, err)
	}

	if _, cancelled, err := svc.Cancel(ctx, job.ID, "alice"); err != nil || !cancelled {
		t.Fatalf("Cancel = %v, %v", cancelled, err)
	}
	if deleted, err := svc.Delete(ctx, job.ID, "alice"); err != nil || !deleted {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}
	if _, err := svc.Describe(ctx, job.ID, "alice"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("deleted job must be absent, got %v", err)
	}
}
