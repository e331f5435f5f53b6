package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dfryer1193/spaceblog/blog/domain"
	"github.com/dfryer1193/spaceblog/internal/metrics"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 10 * time.Second

	// refTTL bounds how long a discovered master ref is reused before it is looked up again.
	refTTL = time.Minute

	searchPath = "documents/search"
	userAgent  = "spaceblog/1.0"
)

// Client is an implementation of domain.ContentSource that reads the Prismic REST API v2.
type Client struct {
	httpClient  *http.Client
	apiURL      *url.URL
	accessToken string
	timeout     time.Duration
	metrics     metrics.Recorder

	refMu      sync.Mutex
	masterRef  string
	refFetched time.Time
}

var _ domain.ContentSource = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithAccessToken(token string) Option {
	return func(cl *Client) {
		cl.accessToken = token
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(cl *Client) {
		if r != nil {
			cl.metrics = r
		}
	}
}

// NewClient creates a client for the repository API at apiURL,
// e.g. https://my-repo.cdn.prismic.io/api/v2.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(apiURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse API URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("API URL must be an absolute http(s) URL, got %q", apiURL)
	}

	c := &Client{
		httpClient: &http.Client{},
		apiURL:     u,
		timeout:    DefaultTimeout,
		metrics:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetByType fetches the first page of documents of the given custom type.
func (c *Client) GetByType(ctx context.Context, typeName string, pageSize int) (domain.Page, error) {
	op := fmt.Sprintf("listing documents of type %s", typeName)
	q := fmt.Sprintf(`[[at(document.type,%s)]]`, strconv.Quote(typeName))

	params := url.Values{}
	params.Set("q", q)
	if pageSize > 0 {
		params.Set("pageSize", strconv.Itoa(pageSize))
	}

	var resp searchResponse
	if err := c.search(ctx, "get_by_type", op, params, &resp); err != nil {
		return domain.Page{}, err
	}
	return resp.toPage(), nil
}

// GetByUID fetches the single document of the given type with the given UID.
func (c *Client) GetByUID(ctx context.Context, typeName string, uid string) (domain.RawPost, error) {
	op := fmt.Sprintf("getting %s %s", typeName, uid)
	q := fmt.Sprintf(`[[at(my.%s.uid,%s)]]`, typeName, strconv.Quote(uid))

	params := url.Values{}
	params.Set("q", q)
	params.Set("pageSize", "1")

	var resp searchResponse
	if err := c.search(ctx, "get_by_uid", op, params, &resp); err != nil {
		return domain.RawPost{}, err
	}
	if len(resp.Results) == 0 {
		return domain.RawPost{}, fmt.Errorf("%s %q: %w", typeName, uid, domain.ErrNotFound)
	}
	return resp.Results[0].toDomain(), nil
}

// FetchPage follows a next_page URL returned by an earlier search.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (domain.Page, error) {
	op := "fetching next page"
	u, err := c.validateCursor(pageURL)
	if err != nil {
		return domain.Page{}, &domain.FetchError{Op: op, URL: pageURL, Err: err}
	}

	var resp searchResponse
	if err := c.get(ctx, "fetch_page", op, u, &resp); err != nil {
		return domain.Page{}, err
	}
	return resp.toPage(), nil
}

// validateCursor only accepts search URLs on the configured API host.
func (c *Client) validateCursor(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}
	if !strings.EqualFold(u.Host, c.apiURL.Host) || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: host %q", domain.ErrInvalidCursor, u.Host)
	}
	if !strings.HasPrefix(u.Path, c.apiURL.Path+"/") {
		return nil, fmt.Errorf("%w: unexpected path %s", domain.ErrInvalidCursor, u.Path)
	}
	if c.accessToken != "" && u.Query().Get("access_token") == "" {
		q := u.Query()
		q.Set("access_token", c.accessToken)
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// MasterRef returns the ref of the live content, discovering it on first use.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	c.refMu.Lock()
	defer c.refMu.Unlock()
	if c.masterRef != "" && time.Since(c.refFetched) < refTTL {
		return c.masterRef, nil
	}

	u := *c.apiURL
	u.RawQuery = c.tokenQuery().Encode()

	var info apiInfo
	if err := c.get(ctx, "api", "discovering master ref", &u, &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			c.masterRef = r.Ref
			c.refFetched = time.Now()
			log.Debug().Str("ref", r.Ref).Msg("Discovered master ref")
			return r.Ref, nil
		}
	}
	return "", handlePrismicError("discovering master ref", &u, 0, errors.New("no master ref in API response"))
}

// InvalidateRef forgets the cached master ref; the next request rediscovers it.
// Called after a publish so searches see the new release.
func (c *Client) InvalidateRef() {
	c.refMu.Lock()
	c.masterRef = ""
	c.refMu.Unlock()
}

func (c *Client) search(ctx context.Context, metricOp, op string, params url.Values, result any) error {
	ref, err := c.MasterRef(ctx)
	if err != nil {
		return err
	}

	u := *c.apiURL
	u.Path = c.apiURL.Path + "/" + searchPath
	for k, v := range c.tokenQuery() {
		params[k] = v
	}
	params.Set("ref", ref)
	u.RawQuery = params.Encode()

	return c.get(ctx, metricOp, op, &u, result)
}

func (c *Client) tokenQuery() url.Values {
	v := url.Values{}
	if c.accessToken != "" {
		v.Set("access_token", c.accessToken)
	}
	return v
}

func (c *Client) get(ctx context.Context, metricOp, op string, u *url.URL, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		c.metrics.ObserveCMSRequest(metricOp, time.Since(start), metrics.ResultFailed)
		return handlePrismicError(op, u, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveCMSRequest(metricOp, time.Since(start), metrics.ResultFailed)
		return handlePrismicError(op, u, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		c.metrics.ObserveCMSRequest(metricOp, time.Since(start), metrics.ResultFailed)
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		bodyStr := strings.ReplaceAll(strings.TrimSpace(string(limitedBody)), "\n", " ")
		return handlePrismicError(op, u, resp.StatusCode, errors.New(bodyStr))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		c.metrics.ObserveCMSRequest(metricOp, time.Since(start), metrics.ResultFailed)
		return handlePrismicError(op, u, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	c.metrics.ObserveCMSRequest(metricOp, time.Since(start), metrics.ResultSuccess)
	return nil
}

// handlePrismicError turns a failed call into a *domain.FetchError that does not leak the access token.
func handlePrismicError(op string, u *url.URL, status int, err error) error {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	return &domain.FetchError{
		Op:         op,
		URL:        redactURL(u),
		StatusCode: status,
		Err:        err,
	}
}

func redactURL(u *url.URL) string {
	redacted := *u
	q := redacted.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		redacted.RawQuery = q.Encode()
	}
	return redacted.String()
}
