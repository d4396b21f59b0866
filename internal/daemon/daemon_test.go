package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"airdate/internal/api"
	"airdate/internal/config"
	"airdate/internal/creds"
	"airdate/internal/daemon"
	"airdate/internal/media"
	"airdate/internal/queue"
	"airdate/internal/scheduler"
	"airdate/internal/testsupport"
	"airdate/internal/youtube"
)

type instantUploader struct{}

func (instantUploader) Upload(ctx context.Context, src *media.Source, meta youtube.Metadata, progress youtube.Progress) (string, error) {
	return "vid-e2e", nil
}

func startDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, string) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	manager := creds.NewManager(cfg)
	sched := scheduler.NewWithDeps(cfg, store, media.NewFileResolver(cfg), instantUploader{}, nil,
		scheduler.WithIntervals(10*time.Millisecond, 10*time.Millisecond))

	d, err := daemon.New(cfg, store, manager, sched, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	addr := d.Addr()
	if addr == "" {
		t.Fatal("daemon has no API address")
	}
	return d, "http://" + addr
}

func doJSON(t *testing.T, method, url string, headers map[string]string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, buf.Bytes()
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)
	owner := map[string]string{"X-Airdate-Owner": "alice"}

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.LibraryDir, "clip.mp4"), 2048)

	// Schedule far in the future so the loop does not grab it mid-test.
	resp, body := doJSON(t, http.MethodPost, base+"/api/jobs", owner, map[string]any{
		"mediaRef":   "clip.mp4",
		"title":      "Clip",
		"visibility": "unlisted",
		"runAt":      time.Now().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("schedule returned %d: %s", resp.StatusCode, body)
	}
	var created api.JobResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Job.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected job: %#v", created.Job)
	}
	id := created.Job.ID

	resp, body = doJSON(t, http.MethodGet, base+"/api/jobs", owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list returned %d", resp.StatusCode)
	}
	var listing api.JobListResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(listing.Jobs))
	}

	// Another owner sees nothing.
	resp, body = doJSON(t, http.MethodGet, base+"/api/jobs/"+id, map[string]string{"X-Airdate-Owner": "bob"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-owner get returned %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/api/jobs/"+id+"/publish", owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish returned %d: %s", resp.StatusCode, body)
	}
	var published api.JobResponse
	if err := json.Unmarshal(body, &published); err != nil {
		t.Fatal(err)
	}
	if published.Job.Status != string(queue.StatusUploaded) || published.Job.VideoID != "vid-e2e" {
		t.Fatalf("unexpected publish result: %#v", published.Job)
	}

	resp, body = doJSON(t, http.MethodDelete, base+"/api/jobs/"+id, owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete returned %d: %s", resp.StatusCode, body)
	}
}

func TestCancelOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)
	owner := map[string]string{"X-Airdate-Owner": "alice"}

	resp, body := doJSON(t, http.MethodPost, base+"/api/jobs", owner, map[string]any{
		"mediaRef": "clip.mp4",
		"runAt":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("schedule returned %d: %s", resp.StatusCode, body)
	}
	var created api.JobResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/api/jobs/"+created.Job.ID+"/cancel", owner, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel returned %d: %s", resp.StatusCode, body)
	}
	var cancelled api.JobResponse
	if err := json.Unmarshal(body, &cancelled); err != nil {
		t.Fatal(err)
	}
	if cancelled.Job.Status != string(queue.StatusCancelled) {
		t.Fatalf("expected cancelled, got %s", cancelled.Job.Status)
	}

	resp, _ = doJSON(t, http.MethodPost, base+"/api/jobs/"+created.Job.ID+"/cancel", owner, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("repeat cancel returned %d", resp.StatusCode)
	}
}

func TestScheduleNotifiesOperator(t *testing.T) {
	var captured struct {
		title string
		body  string
	}
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.title = r.Header.Get("Title")
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		captured.body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer ntfy.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ntfy.URL
	cfg.Notifications.Uploads = true
	_, base := startDaemon(t, cfg)
	owner := map[string]string{"X-Airdate-Owner": "alice"}

	resp, body := doJSON(t, http.MethodPost, base+"/api/jobs", owner, map[string]any{
		"mediaRef": "clip.mp4",
		"title":    "Launch Recap",
		"runAt":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("schedule returned %d: %s", resp.StatusCode, body)
	}

	if captured.title != "Airdate - Scheduled" {
		t.Fatalf("unexpected notification title %q", captured.title)
	}
	if !strings.Contains(captured.body, "Launch Recap") {
		t.Fatalf("notification body missing job title: %q", captured.body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := doJSON(t, http.MethodGet, base+"/api/status", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status returned %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatal(err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.Credentials.Configured {
		t.Fatal("no credential file was installed")
	}
	if _, ok := status.QueueStats[string(queue.StatusPending)]; !ok {
		t.Fatalf("queue stats missing pending count: %v", status.QueueStats)
	}
}

func TestTokenImportOverHTTP(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := doJSON(t, http.MethodPost, base+"/api/token", nil, map[string]any{
		"token":         "imported",
		"refresh_token": "refresh",
		"token_uri":     "https://oauth2.example/token",
		"client_id":     "cid",
		"client_secret": "secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token import returned %d: %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/api/status", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status returned %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatal(err)
	}
	if !status.Credentials.Configured {
		t.Fatalf("expected configured credentials after import: %s", body)
	}
}

func TestBearerAuthIsEnforced(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret-token"))
	_, base := startDaemon(t, cfg)

	resp, _ := doJSON(t, http.MethodGet, base+"/api/status", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/api/status",
		map[string]string{"Authorization": "Bearer wrong"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/api/status",
		map[string]string{"Authorization": "Bearer secret-token"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", resp.StatusCode)
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := startDaemon(t, cfg)
	_ = d

	store := testsupport.MustOpenStore(t, cfg)
	manager := creds.NewManager(cfg)
	sched := scheduler.NewWithDeps(cfg, store, media.NewFileResolver(cfg), instantUploader{}, nil)
	second, err := daemon.New(cfg, store, manager, sched, nil)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestScheduleRejectsPastRunAt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, base := startDaemon(t, cfg)

	resp, body := doJSON(t, http.MethodPost, base+"/api/jobs", nil, map[string]any{
		"mediaRef": "clip.mp4",
		"runAt":    time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for past runAt, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "future") {
		t.Fatalf("unexpected error body: %s", body)
	}
}
