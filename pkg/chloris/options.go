package chloris

import (
	"net/http"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*Client)

// WithIDToken sets the identity token.
func WithIDToken(token string) Option {
	return func(c *Client) {
		c.session.IdentityToken = token
	}
}

// WithAccessToken sets the access token.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.session.AccessToken = token
	}
}

// WithRefreshToken sets the refresh token.
func WithRefreshToken(token string) Option {
	return func(c *Client) {
		c.session.RefreshToken = token
	}
}

// WithAPIEndpoint sets the API endpoint.
func WithAPIEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.apiEndpoint = endpoint
	}
}

// WithHTTPClient sets the HTTP client used for REST calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBackends sets the external backends directly, bypassing any registered
// backend factory.
func WithBackends(b *Backends) Option {
	return func(c *Client) {
		c.backends = b
	}
}

// WithBackendFactory sets the backend factory for this client only.
func WithBackendFactory(f BackendFactory) Option {
	return func(c *Client) {
		c.backendFactory = f
	}
}
