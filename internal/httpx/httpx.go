package httpx

import (
	"net"
	"net/http"
	"time"
)

const defaultUserAgent = "cryptoquote/1.0"

// Client is a small wrapper around http.Client with sane defaults.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	Headers   map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent sent when a request has none.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.UserAgent = ua
		}
	}
}

// WithHeaders sets headers added to every request that does not carry them.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.Headers[k] = v
		}
	}
}

// WithRoundTripper wraps the pooled transport, e.g. for instrumentation.
func WithRoundTripper(wrap func(http.RoundTripper) http.RoundTripper) Option {
	return func(c *Client) {
		if wrap != nil {
			c.HTTP.Transport = wrap(c.HTTP.Transport)
		}
	}
}

// New returns a Client backed by a pooled transport. timeout bounds the whole
// exchange including reading the body.
func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		HTTP:      &http.Client{Timeout: timeout, Transport: NewTransport()},
		UserAgent: defaultUserAgent,
		Headers:   map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTransport returns the pooled transport used by New.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          200,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		ForceAttemptHTTP2:     true,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   3 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 5 * time.Second,
	}
}

// Do sends req, filling in the user agent and default headers. Cancellation
// follows req.Context().
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	for k, v := range c.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.HTTP.Do(req)
}
