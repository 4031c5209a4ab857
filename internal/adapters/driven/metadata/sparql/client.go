package sparql

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/opencefadb/opencefadb-cli/internal/core/domain"
	"github.com/opencefadb/opencefadb-cli/internal/logger"
	"github.com/opencefadb/opencefadb-cli/internal/query"
)

const (
	// MediaTypeResults is the SPARQL 1.1 JSON results format.
	MediaTypeResults = "application/sparql-results+json"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the number of retries for transient failures.
	DefaultMaxRetries = 3

	// maxBody caps how much of a response is read.
	maxBody = 64 << 20
)

// Options configure a protocol Client.
type Options struct {
	// Backend names the store in errors ("sparql", "graphdb").
	Backend string

	// QueryEndpoint receives SPARQL queries. Required.
	QueryEndpoint string

	// UpdateEndpoint receives SPARQL updates; defaults to QueryEndpoint.
	UpdateEndpoint string

	// StoreEndpoint is the graph store protocol endpoint.
	StoreEndpoint string

	// DefaultGraph is sent as default-graph-uri with every query.
	DefaultGraph string

	// Username and Password enable basic authentication.
	Username string
	Password string

	// Client overrides the HTTP client.
	Client *http.Client

	// Timeout bounds a request when Client is nil.
	Timeout time.Duration

	// MaxRetries for transient failures. Negative disables retries.
	MaxRetries int

	// RetryDelay is the initial backoff interval.
	RetryDelay time.Duration
}

// Client speaks the SPARQL 1.1 query, update and graph store protocols.
type Client struct {
	opts Options
	http *http.Client
}

// NewClient creates a protocol client.
func NewClient(opts Options) (*Client, error) {
	if opts.QueryEndpoint == "" {
		return nil, fmt.Errorf("%w: sparql query endpoint is required", domain.ErrInvalidInput)
	}
	for _, e := range []string{opts.QueryEndpoint, opts.UpdateEndpoint, opts.StoreEndpoint} {
		if e == "" {
			continue
		}
		if u, err := url.Parse(e); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, fmt.Errorf("%w: endpoint %q", domain.ErrInvalidInput, e)
		}
	}
	if opts.Backend == "" {
		opts.Backend = "sparql"
	}
	if opts.UpdateEndpoint == "" {
		opts.UpdateEndpoint = opts.QueryEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 250 * time.Millisecond
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{opts: opts, http: client}, nil
}

// Backend returns the backend name used in errors.
func (c *Client) Backend() string {
	return c.opts.Backend
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err converts a non-2xx response to a *domain.NetworkError carrying the
// start of the body.
func (r *Response) Err(locator string) error {
	if r.OK() {
		return nil
	}
	msg := strings.TrimSpace(string(r.Body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	var err error
	if msg != "" {
		err = errors.New(msg)
	}
	return &domain.NetworkError{Locator: locator, StatusCode: r.StatusCode, Temporary: retryable(r.StatusCode), Err: err}
}

// Send performs a request with basic auth, retrying transport failures
// and 408/429/5xx responses with exponential backoff. Other statuses are
// returned to the caller unchanged.
func (c *Client) Send(ctx context.Context, method, endpoint string, header http.Header, body []byte) (*Response, error) {
	var out *Response
	attempt := 0
	op := func() error {
		attempt++
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(&domain.NetworkError{Locator: endpoint, Err: err})
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if c.opts.Username != "" {
			req.SetBasicAuth(c.opts.Username, c.opts.Password)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			logger.Debug("%s %s: attempt %d failed: %v", method, endpoint, attempt, err)
			return &domain.NetworkError{Locator: endpoint, Temporary: true, Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return backoff.Permanent(ctxErr)
			}
			return &domain.NetworkError{Locator: endpoint, Temporary: true, Err: err}
		}
		out = &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
		if retryable(resp.StatusCode) {
			logger.Debug("%s %s: attempt %d: HTTP %d", method, endpoint, attempt, resp.StatusCode)
			return out.Err(endpoint)
		}
		return nil
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if c.opts.MaxRetries > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.opts.RetryDelay
		b.MaxElapsedTime = 0
		policy = backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries))
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

func retryable(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// Select runs a SELECT query and decodes the JSON results. A 400 response
// is a syntax error; everything else that fails marks the backend
// unavailable.
func (c *Client) Select(ctx context.Context, text string) ([]domain.Row, error) {
	form := url.Values{"query": {text}}
	if c.opts.DefaultGraph != "" {
		form.Set("default-graph-uri", c.opts.DefaultGraph)
	}
	header := http.Header{
		"Content-Type": {"application/x-www-form-urlencoded"},
		"Accept":       {MediaTypeResults},
	}

	resp, err := c.Send(ctx, http.MethodPost, c.opts.QueryEndpoint, header, []byte(form.Encode()))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.QueryError{Kind: domain.QueryBackendUnavailable, Backend: c.opts.Backend, Err: err}
	}
	switch {
	case resp.OK():
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &domain.QueryError{Kind: domain.QuerySyntax, Backend: c.opts.Backend, Err: resp.Err(c.opts.QueryEndpoint)}
	default:
		return nil, &domain.QueryError{Kind: domain.QueryBackendUnavailable, Backend: c.opts.Backend, Err: resp.Err(c.opts.QueryEndpoint)}
	}

	rows, err := query.ParseSPARQLJSON(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &domain.QueryError{Kind: domain.QueryBackendUnavailable, Backend: c.opts.Backend, Err: err}
	}
	return rows, nil
}

// Update runs a SPARQL update.
func (c *Client) Update(ctx context.Context, text string) error {
	form := url.Values{"update": {text}}
	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
	resp, err := c.Send(ctx, http.MethodPost, c.opts.UpdateEndpoint, header, []byte(form.Encode()))
	if err != nil {
		return err
	}
	return resp.Err(c.opts.UpdateEndpoint)
}

// PostGraph adds statements to a graph through the graph store protocol.
func (c *Client) PostGraph(ctx context.Context, graph string, data []byte, mediaType string) error {
	if c.opts.StoreEndpoint == "" {
		return fmt.Errorf("%w: %s backend has no graph store endpoint", domain.ErrInvalidInput, c.opts.Backend)
	}
	target := c.opts.StoreEndpoint + "?default"
	if graph != "" {
		target = c.opts.StoreEndpoint + "?graph=" + url.QueryEscape(graph)
	}
	resp, err := c.Send(ctx, http.MethodPost, target, http.Header{"Content-Type": {mediaType}}, data)
	if err != nil {
		return err
	}
	return resp.Err(target)
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
