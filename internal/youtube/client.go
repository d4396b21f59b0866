package youtube

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"airdate/internal/config"
	"airdate/internal/logging"
)

const component = "youtube"

// TokenProvider supplies bearer tokens for upload requests. ForceRefresh is
// called once per upload when the API rejects a token mid-transfer; the
// replacement token is used for a fresh session.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context, stale string) (string, error)
}

// HTTPDoer abstracts the HTTP client so tests can intercept requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Metadata describes the video being published.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	CategoryID  string
	Privacy     string
}

// Progress receives byte counts as chunks are committed by the remote end.
type Progress func(sent, total int64)

// Client drives resumable uploads against the YouTube upload endpoint.
type Client struct {
	uploadURL  string
	categoryID string
	chunkSize  int64
	retries    int
	baseDelay  time.Duration

	httpClient HTTPDoer
	tokens     TokenProvider
	logger     *slog.Logger
}

// New builds an upload client from configuration. The logger may be nil.
func New(cfg *config.Config, tokens TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.YouTube.RequestTimeout) * time.Second
	return &Client{
		uploadURL:  cfg.YouTube.UploadURL,
		categoryID: cfg.YouTube.CategoryID,
		chunkSize:  int64(cfg.YouTube.ChunkSizeMiB) * 1024 * 1024,
		retries:    cfg.YouTube.ChunkRetries,
		baseDelay:  time.Duration(cfg.YouTube.RetryBaseDelay) * time.Millisecond,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logging.NewComponentLogger(logger, component),
	}
}

// SetHTTPClient replaces the transport, primarily for tests.
func (c *Client) SetHTTPClient(doer HTTPDoer) {
	if doer != nil {
		c.httpClient = doer
	}
}
