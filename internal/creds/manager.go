package creds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"airdate/internal/config"
	"airdate/internal/services"
)

const component = "creds"

// refreshSkew refreshes tokens slightly before their stated expiry so chunk
// uploads started near the boundary do not race the clock.
const refreshSkew = 30 * time.Second

// Manager owns the shared upload credential. All jobs publish through the
// single configured account, so refreshes are serialized behind one mutex
// and the refreshed token is persisted before it is handed out.
type Manager struct {
	path       string
	httpClient *http.Client
	now        func() time.Time

	mu sync.Mutex
	tf *tokenFile
}

// NewManager builds a credential manager for the configured token file.
func NewManager(cfg *config.Config) *Manager {
	timeout := time.Duration(cfg.YouTube.RequestTimeout) * time.Second
	return &Manager{
		path:       cfg.YouTube.TokenPath,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// Token returns a valid access token, silently refreshing when the cached
// one is expired or about to expire.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(); err != nil {
		return "", err
	}
	tok := m.tf.oauthToken()
	if tok.AccessToken != "" && (tok.Expiry.IsZero() || m.now().Add(refreshSkew).Before(tok.Expiry)) {
		return tok.AccessToken, nil
	}
	return m.refreshLocked(ctx)
}

// ForceRefresh discards the access token the caller observed as rejected and
// fetches a fresh one. If another caller already refreshed while this one
// waited on the lock, the newer token is returned without a network call.
func (m *Manager) ForceRefresh(ctx context.Context, staleToken string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(); err != nil {
		return "", err
	}
	if m.tf.AccessToken != "" && m.tf.AccessToken != staleToken {
		return m.tf.AccessToken, nil
	}
	return m.refreshLocked(ctx)
}

// Import validates an externally minted token JSON blob and installs it as
// the shared credential file.
func (m *Manager) Import(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return services.Wrap(services.ErrValidation, component, "import", "parse token JSON", err)
	}
	if tf.RefreshToken == "" || tf.TokenURI == "" || tf.ClientID == "" || tf.ClientSecret == "" {
		return services.Wrap(services.ErrValidation, component, "import",
			"token JSON must include refresh_token, token_uri, client_id, and client_secret", nil)
	}
	if err := writeTokenFile(m.path, &tf); err != nil {
		return services.Wrap(services.ErrConfiguration, component, "import", "persist credential file", err)
	}
	m.tf = &tf
	return nil
}

// Status describes the credential state for health reporting.
type Status struct {
	Configured bool      `json:"configured"`
	Expiry     time.Time `json:"expiry,omitzero"`
}

// Describe reports whether a usable credential is installed.
func (m *Manager) Describe() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadLocked(); err != nil {
		return Status{}
	}
	st := Status{Configured: true}
	if m.tf.Expiry != "" {
		if expiry, err := time.Parse(expiryLayout, m.tf.Expiry); err == nil {
			st.Expiry = expiry
		}
	}
	return st
}

// Path returns the credential file location.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) loadLocked() error {
	if m.tf != nil {
		return nil
	}
	tf, err := readTokenFile(m.path)
	if err != nil {
		return err
	}
	m.tf = tf
	return nil
}

func (m *Manager) refreshLocked(ctx context.Context) (string, error) {
	conf := &oauth2.Config{
		ClientID:     m.tf.ClientID,
		ClientSecret: m.tf.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: m.tf.TokenURI},
		Scopes:       m.tf.Scopes,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: m.tf.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return "", classifyRefreshError(err)
	}

	m.tf.applyToken(tok)
	if err := writeTokenFile(m.path, m.tf); err != nil {
		return "", services.Wrap(services.ErrConfiguration, component, "refresh", "persist refreshed credential", err)
	}
	return tok.AccessToken, nil
}

// classifyRefreshError separates revoked or misconfigured credentials, which
// must fail the job, from transient endpoint trouble, which may be retried.
func classifyRefreshError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		if status >= 400 && status < 500 {
			return services.Wrap(services.ErrConfiguration, component, "refresh",
				fmt.Sprintf("token endpoint rejected refresh (%s)", refreshFailureDetail(retrieveErr)), err)
		}
		return services.Wrap(services.ErrTransient, component, "refresh",
			"token endpoint is unavailable", err)
	}
	return services.Wrap(services.ErrTransient, component, "refresh", "token refresh request failed", err)
}

func refreshFailureDetail(err *oauth2.RetrieveError) string {
	if err.ErrorCode != "" {
		return err.ErrorCode
	}
	if err.Response != nil {
		return err.Response.Status
	}
	return "unknown error"
}
