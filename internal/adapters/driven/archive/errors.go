package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
)

// statusError maps a non-200 response to the domain taxonomy and drains
// the body so the connection can be reused.
func statusError(locator string, resp *http.Response) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound || code == http.StatusGone:
		return &domain.NotFoundError{Locator: locator, StatusCode: code}
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500:
		return &domain.NetworkError{Locator: locator, StatusCode: code, Temporary: true}
	default:
		return &domain.NetworkError{Locator: locator, StatusCode: code}
	}
}

// transportError wraps a failed round trip. Cancellation is returned as is.
func transportError(ctx context.Context, locator string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.NetworkError{Locator: locator, Temporary: true, Err: err}
}

// decodeError reports an archive response that could not be decoded.
func decodeError(locator string, err error) error {
	return &domain.NetworkError{Locator: locator, Err: fmt.Errorf("decode response: %w", err)}
}
