package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"airdate/internal/api"
	"airdate/internal/config"
	"airdate/internal/logging"
	"airdate/internal/services"
)

// ownerHeader carries the caller identity. Requests without it act as the
// shared default owner, matching single-user deployments.
const ownerHeader = "X-Airdate-Owner"

const defaultOwner = "default"

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

// scheduleBody is the JSON payload accepted by POST /api/jobs.
type scheduleBody struct {
	MediaRef    string   `json:"mediaRef"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
	RunAt       string   `json:"runAt"`
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/jobs", authMiddleware(token, srv.handleJobs))
	mux.HandleFunc("/api/jobs/", authMiddleware(token, srv.handleJob))
	mux.HandleFunc("/api/token", authMiddleware(token, srv.handleToken))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func requestOwner(r *http.Request) string {
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		return defaultOwner
	}
	return owner
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := s.daemon.status.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	owner := requestOwner(r)
	switch r.Method {
	case http.MethodGet:
		jobs, err := s.daemon.jobs.List(r.Context(), owner)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
	case http.MethodPost:
		var body scheduleBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		req := api.ScheduleRequest{
			Owner:       owner,
			MediaRef:    body.MediaRef,
			Title:       body.Title,
			Description: body.Description,
			Tags:        body.Tags,
			Visibility:  body.Visibility,
		}
		if body.RunAt != "" {
			runAt, err := time.Parse(time.RFC3339, body.RunAt)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid runAt %q, expected RFC3339", body.RunAt))
				return
			}
			req.RunAt = runAt
		}
		job, err := s.daemon.jobs.Schedule(r.Context(), req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if err := s.daemon.notifier.NotifyScheduled(r.Context(), job.Title, req.RunAt); err != nil {
			s.log().Warn("schedule notification failed", logging.Error(err))
		}
		s.writeJSON(w, http.StatusCreated, api.JobResponse{Job: *job})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	owner := requestOwner(r)
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		job, err := s.daemon.jobs.Describe(r.Context(), id, owner)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
	case action == "" && r.Method == http.MethodDelete:
		deleted, err := s.daemon.jobs.Delete(r.Context(), id, owner)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if !deleted {
			s.writeError(w, http.StatusConflict, "only finished jobs can be deleted")
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
	case action == "cancel" && r.Method == http.MethodPost:
		job, cancelled, err := s.daemon.jobs.Cancel(r.Context(), id, owner)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if !cancelled {
			s.writeError(w, http.StatusConflict, fmt.Sprintf("job is %s, only pending jobs can be cancelled", job.Status))
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
	case action == "publish" && r.Method == http.MethodPost:
		job, err := s.daemon.jobs.ExecuteNow(r.Context(), id, owner)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.JobResponse{Job: *job})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read token body")
		return
	}
	if err := s.daemon.creds.Import(body); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "token installed"})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConfiguration):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
