package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/rs/dnscache"
)

var (
	ErrRateLimited  = errors.New("rate limited by registry")
	ErrUpstreamDown = errors.New("registry unavailable")
)

// HTTPIndex answers Lookup and Search with the npm registry HTTP API as
// served by Artifactory. Transient failures (429, 5xx) are retried with
// exponential backoff; repeated failures trip a circuit breaker so a dead
// registry fails fast instead of stalling every project.
type HTTPIndex struct {
	baseURL     string
	auth        string
	userAgent   string
	client      *http.Client
	breaker     *circuit.Breaker
	maxRetries  uint64
	baseDelay   time.Duration
	searchLimit int
}

// HTTPOption configures an HTTPIndex.
type HTTPOption func(*HTTPIndex)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPIndex) {
		h.client = c
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n uint64) HTTPOption {
	return func(h *HTTPIndex) {
		h.maxRetries = n
	}
}

// WithBaseDelay sets the initial backoff interval.
func WithBaseDelay(d time.Duration) HTTPOption {
	return func(h *HTTPIndex) {
		h.baseDelay = d
	}
}

// NewHTTPIndex creates an index for the registry at baseURL. base64Token is
// sent as basic auth, matching the _auth entry npm would use.
func NewHTTPIndex(baseURL, base64Token string, opts ...HTTPOption) *HTTPIndex {
	h := &HTTPIndex{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   "fe-release/1.0",
		client:      newCachingClient(),
		breaker:     newBreaker(),
		maxRetries:  3,
		baseDelay:   500 * time.Millisecond,
		searchLimit: 250,
	}
	if base64Token != "" {
		h.auth = "Basic " + base64Token
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func newCachingClient() *http.Client {
	resolver := &dnscache.Resolver{}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Timeout: time.Minute,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, port, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, err
				}
				ips, err := resolver.LookupHost(ctx, host)
				if err != nil {
					return nil, err
				}
				for _, ip := range ips {
					conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
					if err == nil {
						return conn, nil
					}
				}
				return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
			},
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// newBreaker trips after 5 consecutive failures and waits 30s before the
// first half-open probe.
func newBreaker() *circuit.Breaker {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	return circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
}

// Tripped reports whether the circuit breaker is currently open.
func (h *HTTPIndex) Tripped() bool {
	return h.breaker.Tripped()
}

type packument struct {
	Name     string                     `json:"name"`
	Versions map[string]json.RawMessage `json:"versions"`
}

// Lookup fetches the package document of name. A 404 yields
// Lookup{Found: false} and no error.
func (h *HTTPIndex) Lookup(ctx context.Context, name string) (Lookup, error) {
	body, err := h.get(ctx, h.baseURL+"/"+url.PathEscape(name))
	if errors.Is(err, ErrNotFound) {
		return Lookup{Name: name}, nil
	}
	if err != nil {
		return Lookup{}, fmt.Errorf("Lookup %s: %w", name, err)
	}

	var doc packument
	if err := json.Unmarshal(body, &doc); err != nil {
		return Lookup{}, fmt.Errorf("Lookup %s: parse package document: %w", name, err)
	}
	versions := make([]string, 0, len(doc.Versions))
	for v := range doc.Versions {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return Lookup{Name: name, Found: true, Versions: versions}, nil
}

type searchResponse struct {
	Objects []struct {
		Package searchEntry `json:"package"`
	} `json:"objects"`
}

// Search queries the registry search endpoint for scope and returns the
// package names under it, sorted.
func (h *HTTPIndex) Search(ctx context.Context, scope string) ([]string, error) {
	q := url.Values{}
	q.Set("text", scope)
	q.Set("size", fmt.Sprint(h.searchLimit))
	body, err := h.get(ctx, h.baseURL+"/-/v1/search?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("Search %s: %w", scope, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("Search %s: parse response: %w", scope, err)
	}
	entries := make([]searchEntry, 0, len(resp.Objects))
	for _, o := range resp.Objects {
		entries = append(entries, o.Package)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return ParseSearch(data, scope)
}

// get performs a GET through the breaker with retries. Not-found and other
// client errors end the retry loop without counting against the breaker.
func (h *HTTPIndex) get(ctx context.Context, rawURL string) ([]byte, error) {
	if !h.breaker.Ready() {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", h.baseURL, ErrUpstreamDown)
	}

	var body []byte
	var final error
	op := func() error {
		b, err := h.doGet(ctx, rawURL)
		if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamDown) {
			return err
		}
		body, final = b, err
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = h.baseDelay
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, h.maxRetries), ctx)

	err := h.breaker.Call(func() error {
		return backoff.Retry(op, retry)
	}, 0)
	if err != nil {
		return nil, err
	}
	return body, final
}

func (h *HTTPIndex) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "application/json")
	if h.auth != "" {
		req.Header.Set("Authorization", h.auth)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %v: %w", rawURL, err, ErrUpstreamDown)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, ErrUpstreamDown
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(snippet))
	}
}
