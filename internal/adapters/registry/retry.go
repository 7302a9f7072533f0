package registry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
)

// maxRetries bounds the backoff schedule: one initial attempt plus this many
// retries.
const maxRetries = 3

// retryInitialInterval seeds the backoff schedule. Tests shrink it.
var retryInitialInterval = 500 * time.Millisecond

// retryTransient runs op with exponential backoff, honoring ctx. Credential
// failures and unknown tags are permanent — retrying cannot fix a bad secret
// or a manifest that was never uploaded — while network errors and 5xx
// responses get the full schedule.
func retryTransient(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var terr *transport.Error
		if errors.As(err, &terr) {
			switch terr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
				return backoff.Permanent(err)
			}
		}
		return err
	}, policy)
}
