package youtube

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"airdate/internal/logging"
	"airdate/internal/services"
)

// retryableStatus reports whether an HTTP status indicates transient
// endpoint trouble worth another attempt. Status zero means the request
// never completed (network error), which is treated the same way.
func retryableStatus(status int) bool {
	switch status {
	case 0,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func authStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// withRetries runs one protocol step under the configured retry budget.
// The step reports the HTTP status it observed. Auth rejections surface as
// ErrAuthExpired without further attempts so the caller can refresh and
// restart the transfer; other 4xx responses abort as validation failures.
func (c *Client) withRetries(ctx context.Context, op string, step func() (int, error)) error {
	attempts := c.retries
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.3
	policy.MaxElapsedTime = 0

	operation := func() error {
		status, err := step()
		if err == nil {
			return nil
		}
		switch {
		case authStatus(status):
			return backoff.Permanent(services.Wrap(services.ErrAuthExpired, component, op,
				"access token rejected", err))
		case retryableStatus(status):
			return services.Wrap(services.ErrTransient, component, op,
				fmt.Sprintf("endpoint failure (status %d)", status), err)
		default:
			return backoff.Permanent(services.Wrap(services.ErrValidation, component, op,
				fmt.Sprintf("endpoint rejected request (status %d)", status), err))
		}
	}

	notify := func(err error, delay time.Duration) {
		c.logger.Warn("retrying upload step",
			logging.String("operation", op),
			logging.Duration("backoff", delay),
			logging.Error(err))
	}

	wrapped := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx)
	if err := backoff.RetryNotify(operation, wrapped, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && err == ctxErr {
			return ctxErr
		}
		return err
	}
	return nil
}
