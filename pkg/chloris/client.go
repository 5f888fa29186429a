package chloris

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Environment variables consulted when the corresponding constructor
// parameter is not supplied. Explicit parameters take precedence.
const (
	EnvOrganizationID = "CHLORIS_ORGANIZATION_ID"
	EnvIDToken        = "CHLORIS_ID_TOKEN"
	EnvAccessToken    = "CHLORIS_ACCESS_TOKEN"
	EnvRefreshToken   = "CHLORIS_REFRESH_TOKEN"
	EnvAPIEndpoint    = "CHLORIS_API_ENDPOINT"
)

// DefaultAPIEndpoint is used when no endpoint is configured.
const DefaultAPIEndpoint = "https://app.chloris.earth/api/"

const pollBudget = 15 * time.Minute

// Client is a client for the Chloris App API. It holds exactly one session.
//
// A Client is not safe for concurrent use: the session tokens and the
// temporary credential cache are mutated in place without synchronization.
// Callers driving concurrent operations must serialize access to one client
// or use one client per goroutine.
type Client struct {
	organizationID string
	apiEndpoint    string
	dataEndpoint   string

	env     *EnvironmentInfo
	session Session

	backends       *Backends
	backendFactory BackendFactory

	// creds caches the delegated storage credentials, invalidated lazily
	// when within the expiry skew window.
	creds *TemporaryCredentials

	httpClient *http.Client
	logger     *zap.Logger

	skew  time.Duration
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a client with the given organization id and options, resolving
// missing parameters from the environment. Construction fetches the discovery
// endpoint and fails fatally on any error; there is no partial client.
//
// At least one of an identity token or a refresh token must be available.
// Tokens already within the expiry skew window are discarded up front and, if
// a refresh token is present, replaced eagerly.
func New(ctx context.Context, organizationID string, opts ...Option) (*Client, error) {
	c := &Client{
		organizationID: organizationID,
		httpClient:     http.DefaultClient,
		logger:         zap.NewNop(),
		skew:           defaultExpirySkew,
		now:            time.Now,
		sleep:          time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.organizationID == "" {
		c.organizationID = os.Getenv(EnvOrganizationID)
	}
	if c.apiEndpoint == "" {
		c.apiEndpoint = os.Getenv(EnvAPIEndpoint)
	}
	if c.apiEndpoint == "" {
		c.apiEndpoint = DefaultAPIEndpoint
	}
	if !strings.HasSuffix(c.apiEndpoint, "/") {
		c.apiEndpoint += "/"
	}
	c.dataEndpoint = strings.Replace(c.apiEndpoint, "/api/", "/data/", 1)

	if c.session.IdentityToken == "" {
		c.session.IdentityToken = os.Getenv(EnvIDToken)
	}
	if c.session.AccessToken == "" {
		c.session.AccessToken = os.Getenv(EnvAccessToken)
	}
	if c.session.RefreshToken == "" {
		c.session.RefreshToken = os.Getenv(EnvRefreshToken)
	}

	// Drop tokens that are expired or about to expire.
	if c.session.IdentityToken != "" && tokenExpiredAt(c.session.IdentityToken, c.now(), c.skew) {
		c.session.IdentityToken = ""
	}
	if c.session.AccessToken != "" && tokenExpiredAt(c.session.AccessToken, c.now(), c.skew) {
		c.session.AccessToken = ""
	}
	if c.session.IdentityToken == "" && c.session.RefreshToken == "" {
		return nil, ErrConfiguration("an identity token or refresh token is required")
	}

	env, err := c.fetchEnvironmentInfo(ctx)
	if err != nil {
		return nil, err
	}
	c.env = env

	if c.backends == nil {
		factory := c.backendFactory
		if factory == nil {
			factory = registeredBackendFactory()
		}
		if factory == nil {
			return nil, ErrConfiguration("no backends configured; import a provider package or use WithBackends")
		}
		backends, err := factory(ctx, c.env)
		if err != nil {
			return nil, err
		}
		c.backends = backends
	}

	if c.session.IdentityToken == "" {
		if err := c.RefreshTokens(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// OrganizationID returns the organization the client operates on.
func (c *Client) OrganizationID() string {
	return c.organizationID
}

// APIEndpoint returns the resolved API endpoint, always slash-terminated.
func (c *Client) APIEndpoint() string {
	return c.apiEndpoint
}

// EnvironmentInfo returns the discovered environment resources.
func (c *Client) EnvironmentInfo() EnvironmentInfo {
	return *c.env
}

// fetchEnvironmentInfo fetches the environment-specific resources from the
// discovery endpoint. The request is unauthenticated.
func (c *Client) fetchEnvironmentInfo(ctx context.Context) (*EnvironmentInfo, error) {
	url := c.apiEndpoint + "info"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, ErrAPI("fetch environment info", 0, "").WithCause(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrAPI("fetch environment info", 0, "").WithCause(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrAPI("fetch environment info", resp.StatusCode, "").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ErrAPI("fetch environment info", resp.StatusCode, string(data))
	}
	var env EnvironmentInfo
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrAPI("fetch environment info", resp.StatusCode, string(data)).WithCause(err)
	}
	c.logger.Debug("fetched environment info",
		zap.String("region", env.Region),
		zap.String("bucket", env.UserFilesBucket))
	return &env, nil
}

// DownloadGeoJSONBoundary downloads a normalized boundary from the user data
// bucket. The path may be an s3://bucket/key URI as returned by the boundary
// upload operations, or a bare object key.
func (c *Client) DownloadGeoJSONBoundary(ctx context.Context, path string) (string, error) {
	key := strings.TrimPrefix(path, fmt.Sprintf("s3://%s/", c.env.UserFilesBucket))
	data, err := c.downloadObject(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
