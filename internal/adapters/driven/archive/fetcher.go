package archive

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/core/ports/driven"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/metrics"
)

const (
	// DefaultTimeout bounds a single download.
	DefaultTimeout = 10 * time.Minute

	// DefaultMaxRetries is the number of retries for transient errors.
	DefaultMaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = 500 * time.Millisecond

	// UserAgent is sent with every request.
	UserAgent = "opencefadb-cli"
)

// Options configure a Fetcher.
type Options struct {
	// Client is the HTTP client to use; built from the other options when nil.
	Client *http.Client

	// AccessToken is sent as bearer token.
	AccessToken string

	// Timeout bounds a single download. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxRetries for transient errors. Negative disables retries.
	MaxRetries int

	// RetryDelay is the initial backoff interval.
	RetryDelay time.Duration

	// RequestsPerSecond throttles requests. Zero means DefaultRate.
	RequestsPerSecond float64

	// Force refetches even when the destination is up to date.
	Force bool

	// Metrics records fetch outcomes. May be nil.
	Metrics *metrics.Metrics
}

// Fetcher downloads immutable artifacts over HTTP(S) or from file:// URLs,
// verifying them against the expected checksum.
type Fetcher struct {
	client  *http.Client
	limiter *RateLimiter
	opts    Options
}

// Verify interface compliance.
var _ driven.ArtifactFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = RetryDelay
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = DefaultRate
	}
	return &Fetcher{
		client:  newHTTPClient(opts.Client, opts.AccessToken, opts.Timeout),
		limiter: NewRateLimiter(opts.RequestsPerSecond, DefaultBurst),
		opts:    opts,
	}
}

// newHTTPClient attaches a bearer token source when a token is given.
func newHTTPClient(base *http.Client, token string, timeout time.Duration) *http.Client {
	if base == nil {
		base = &http.Client{Timeout: timeout}
	}
	if token == "" {
		return base
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	c.Timeout = base.Timeout
	return c
}

// Fetch implements driven.ArtifactFetcher.
func (f *Fetcher) Fetch(ctx context.Context, locator string, expected domain.Checksum, dest string) (string, error) {
	start := time.Now()

	if !f.opts.Force {
		fresh, err := upToDate(dest, expected)
		if err != nil {
			return "", err
		}
		if fresh {
			logger.Debug("fetch %s: %s is up to date", locator, dest)
			f.opts.Metrics.ObserveFetch(metrics.FetchCached, 0, 0)
			return dest, nil
		}
	}

	var written int64
	attempt := 0
	op := func() error {
		attempt++
		n, err := f.fetchOnce(ctx, locator, expected, dest)
		written = n
		if err == nil {
			return nil
		}
		if domain.IsTransient(err) {
			logger.Debug("fetch %s: attempt %d failed: %v", locator, attempt, err)
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, f.backOff(ctx))
	f.opts.Metrics.ObserveFetch(metrics.FetchResult(err), written, time.Since(start))
	if err != nil {
		var integrity *domain.IntegrityError
		if errors.As(err, &integrity) {
			// A stale copy must not survive a failed verification.
			_ = os.Remove(dest)
		}
		return "", err
	}
	logger.Debug("fetch %s: %d bytes to %s", locator, written, dest)
	return dest, nil
}

func (f *Fetcher) backOff(ctx context.Context) backoff.BackOffContext {
	return retryPolicy(ctx, f.opts.MaxRetries, f.opts.RetryDelay)
}

// retryPolicy is the exponential backoff shared by downloads and catalog
// requests. maxRetries <= 0 disables retries.
func retryPolicy(ctx context.Context, maxRetries int, delay time.Duration) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay
	b.MaxElapsedTime = 0
	var policy backoff.BackOff = b
	if maxRetries > 0 {
		policy = backoff.WithMaxRetries(b, uint64(maxRetries))
	} else {
		policy = &backoff.StopBackOff{}
	}
	return backoff.WithContext(policy, ctx)
}

// fetchOnce performs a single transfer attempt.
func (f *Fetcher) fetchOnce(ctx context.Context, locator string, expected domain.Checksum, dest string) (int64, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return 0, &domain.NetworkError{Locator: locator, Err: err}
	}

	switch u.Scheme {
	case "file":
		src, err := os.Open(u.Path)
		if errors.Is(err, os.ErrNotExist) {
			return 0, &domain.NotFoundError{Locator: locator}
		}
		if err != nil {
			return 0, &domain.NetworkError{Locator: locator, Err: err}
		}
		defer src.Close()
		return writeVerified(ctx, src, locator, expected, dest, false)

	case "http", "https":
		if err := f.limiter.Wait(ctx); err != nil {
			return 0, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
		if err != nil {
			return 0, &domain.NetworkError{Locator: locator, Err: err}
		}
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Want-Digest", "sha-256;q=1, md5;q=0.5")

		resp, err := f.client.Do(req)
		if err != nil {
			return 0, transportError(ctx, locator, err)
		}
		defer resp.Body.Close()
		f.limiter.UpdateFromResponse(resp)

		if resp.StatusCode != http.StatusOK {
			return 0, statusError(locator, resp)
		}
		if expected.IsZero() {
			if announced := responseDigest(resp.Header); !announced.IsZero() {
				logger.Debug("fetch %s: verifying against announced %s digest", locator, announced.Algorithm)
				expected = announced
			}
		}
		return writeVerified(ctx, resp.Body, locator, expected, dest, true)

	default:
		return 0, &domain.NetworkError{
			Locator: locator,
			Err:     fmt.Errorf("%w: scheme %q", domain.ErrUnsupportedType, u.Scheme),
		}
	}
}

// writeVerified streams body into a temporary file next to dest while
// hashing, then renames it into place once the digest matches. Nothing is
// left behind on failure or cancellation.
func writeVerified(ctx context.Context, body io.Reader, locator string, expected domain.Checksum, dest string, remote bool) (int64, error) {
	var h hash.Hash
	if !expected.IsZero() {
		var err error
		if h, err = expected.NewHash(); err != nil {
			return 0, err
		}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := io.Writer(tmp)
	if h != nil {
		w = io.MultiWriter(tmp, h)
	}
	n, err := io.Copy(w, &contextReader{ctx: ctx, r: body})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return n, ctxErr
		}
		return n, &domain.NetworkError{Locator: locator, Temporary: remote, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}

	if h != nil {
		actual := hex.EncodeToString(h.Sum(nil))
		if !expected.Matches(actual) {
			return n, &domain.IntegrityError{
				Locator:   locator,
				Algorithm: expected.Algorithm,
				Expected:  expected.Value,
				Actual:    actual,
			}
		}
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return n, fmt.Errorf("move into place: %w", err)
	}
	committed = true
	return n, nil
}

// upToDate reports whether dest exists and matches expected. With no
// expected checksum any existing file is accepted.
func upToDate(dest string, expected domain.Checksum) (bool, error) {
	info, err := os.Stat(dest)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", dest, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: destination %s is a directory", domain.ErrInvalidInput, dest)
	}
	if expected.IsZero() {
		return true, nil
	}

	actual, err := HashFile(dest, expected.Algorithm)
	if err != nil {
		return false, err
	}
	if !expected.Matches(actual) {
		logger.Debug("cached %s does not match %s, refetching", dest, expected)
		return false, nil
	}
	return true, nil
}

// HashFile returns the hex digest of a file.
func HashFile(path, algorithm string) (string, error) {
	h, err := domain.NewHash(algorithm)
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// contextReader aborts reads once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
