package coinmarketcap

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// Name identifies the provider in errors, logs and metrics.
	Name = "coinmarketcap"

	defaultBaseURL = "https://pro-api.coinmarketcap.com"

	// apiKeyHeader authenticates every request.
	// https://coinmarketcap.com/api/documentation/v1/#section/Authentication
	apiKeyHeader = "X-CMC_PRO_API_KEY"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coinmarketcap_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the CoinMarketCap pro API.
type Client struct {
	// baseURL is the base URL for the API, without a trailing slash.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	logger *zap.Logger
}

// ClientOption is a configuration option for the CoinMarketCap client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithLogger sets the logger used for upstream diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.Named(Name)
		}
	}
}

// NewClient creates a new CoinMarketCap client. The API key is supplied per
// call, so one client serves every credential.
func NewClient(options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		option(client)
	}

	u, err := url.Parse(client.baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s base url", Name)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("%s base url %q must be absolute", Name, client.baseURL)
	}
	client.baseURL = strings.TrimRight(client.baseURL, "/")

	return client, nil
}
