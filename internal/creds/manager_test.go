package creds_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"airdate/internal/creds"
	"airdate/internal/services"
	"airdate/internal/testsupport"
)

func writeToken(t *testing.T, path, tokenURI, accessToken string, expiry time.Time) {
	t.Helper()
	payload := map[string]any{
		"token":         accessToken,
		"refresh_token": "refresh-1",
		"token_uri":     tokenURI,
		"client_id":     "client-id",
		"client_secret": "client-secret",
		"scopes":        []string{"https://www.googleapis.com/auth/youtube.upload"},
	}
	if !expiry.IsZero() {
		payload["expiry"] = expiry.UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func tokenEndpoint(t *testing.T, hits *atomic.Int64, accessToken string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenReturnsCachedWhenFresh(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var hits atomic.Int64
	srv := tokenEndpoint(t, &hits, "never-used")
	writeToken(t, cfg.YouTube.TokenPath, srv.URL, "cached-token", time.Now().Add(time.Hour))

	mgr := creds.NewManager(cfg)
	tok, err := mgr.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "cached-token" {
		t.Fatalf("expected cached token, got %q", tok)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no refresh, got %d endpoint hits", hits.Load())
	}
}

func TestTokenRefreshesExpiredAndPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var hits atomic.Int64
	srv := tokenEndpoint(t, &hits, "fresh-token")
	writeToken(t, cfg.YouTube.TokenPath, srv.URL, "stale-token", time.Now().Add(-time.Minute))

	mgr := creds.NewManager(cfg)
	tok, err := mgr.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "fresh-token" {
		t.Fatalf("expected refreshed token, got %q", tok)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one refresh, got %d", hits.Load())
	}

	info, err := os.Stat(cfg.YouTube.TokenPath)
	if err != nil {
		t.Fatalf("stat token file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", perm)
	}
	data, err := os.ReadFile(cfg.YouTube.TokenPath)
	if err != nil {
		t.Fatal(err)
	}
	var persisted map[string]any
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatal(err)
	}
	if persisted["token"] != "fresh-token" {
		t.Fatalf("expected refreshed token persisted, got %v", persisted["token"])
	}
	if persisted["refresh_token"] != "refresh-1" {
		t.Fatalf("refresh token must survive a refresh, got %v", persisted["refresh_token"])
	}
}

func TestConcurrentRefreshHitsEndpointOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var hits atomic.Int64
	srv := tokenEndpoint(t, &hits, "fresh-token")
	writeToken(t, cfg.YouTube.TokenPath, srv.URL, "stale-token", time.Now().Add(-time.Minute))

	mgr := creds.NewManager(cfg)

	const callers = 6
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := mgr.Token(context.Background()); err != nil {
				t.Errorf("Token failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if hits.Load() != 1 {
		t.Fatalf("expected a single refresh across %d callers, got %d", callers, hits.Load())
	}
}

func TestForceRefreshSkipsWhenAlreadyReplaced(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var hits atomic.Int64
	srv := tokenEndpoint(t, &hits, "fresh-token")
	writeToken(t, cfg.YouTube.TokenPath, srv.URL, "stale-token", time.Now().Add(-time.Minute))

	mgr := creds.NewManager(cfg)
	first, err := mgr.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}

	// A caller still holding the old token forces a refresh; the newer token
	// already in the cache satisfies it without another round trip.
	replay, err := mgr.ForceRefresh(context.Background(), "stale-token")
	if err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if replay != first {
		t.Fatalf("expected cached replacement %q, got %q", first, replay)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one refresh total, got %d", hits.Load())
	}

	// Forcing with the current token actually refreshes.
	if _, err := mgr.ForceRefresh(context.Background(), first); err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected second refresh, got %d hits", hits.Load())
	}
}

func TestRefreshInvalidGrantIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer srv.Close()
	writeToken(t, cfg.YouTube.TokenPath, srv.URL, "stale-token", time.Now().Add(-time.Minute))

	mgr := creds.NewManager(cfg)
	_, err := mgr.Token(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("revoked credentials must not be retryable")
	}
}

func TestRefreshServerErrorIsTransient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	writeToken(t, cfg.YouTube.TokenPath, srv.URL, "stale-token", time.Now().Add(-time.Minute))

	mgr := creds.NewManager(cfg)
	_, err := mgr.Token(context.Background())
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestMissingCredentialFileIsNotConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	mgr := creds.NewManager(cfg)
	_, err := mgr.Token(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}

	if st := mgr.Describe(); st.Configured {
		t.Fatal("expected unconfigured status")
	}
}

func TestImportValidatesAndInstalls(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr := creds.NewManager(cfg)

	if err := mgr.Import([]byte(`{"token":"x"}`)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for incomplete token, got %v", err)
	}

	blob := []byte(`{
		"token": "imported-token",
		"refresh_token": "refresh-2",
		"token_uri": "https://oauth2.example/token",
		"client_id": "cid",
		"client_secret": "secret",
		"scopes": ["https://www.googleapis.com/auth/youtube.upload"],
		"expiry": "2027-01-02T15:04:05Z"
	}`)
	if err := mgr.Import(blob); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	st := mgr.Describe()
	if !st.Configured {
		t.Fatal("expected configured status after import")
	}
	if st.Expiry.Year() != 2027 {
		t.Fatalf("unexpected expiry: %v", st.Expiry)
	}

	tok, err := mgr.Token(context.Background())
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if tok != "imported-token" {
		t.Fatalf("expected imported access token, got %q", tok)
	}
}
