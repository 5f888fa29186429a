package chloris

import "context"

// TokenRefresher exchanges a refresh token for a fresh identity/access token
// pair via the external identity provider.
type TokenRefresher interface {
	// Refresh performs the refresh token grant against the identity provider.
	Refresh(ctx context.Context, refreshToken, clientID string) (*AuthTokens, error)
}

// CredentialBroker exchanges an identity token for temporary delegated
// storage credentials via the external token-exchange service.
type CredentialBroker interface {
	// LookupIdentity resolves the identity pool identity id for the logins map.
	LookupIdentity(ctx context.Context, identityPoolID string, logins map[string]string) (string, error)

	// CredentialsForIdentity obtains temporary storage credentials for an identity id.
	CredentialsForIdentity(ctx context.Context, identityID string, logins map[string]string) (*TemporaryCredentials, error)
}

// ObjectStore abstracts the delegated object store. Implementations must map
// missing objects (including access-denied responses on keys that are not yet
// visible) to a not_found kind error, expired delegated credentials to an
// expired_credentials kind error, and rate limiting to a rate_limit kind error.
type ObjectStore interface {
	// Put writes body to bucket/key with the given object metadata.
	Put(ctx context.Context, creds *TemporaryCredentials, bucket, key string, body []byte, metadata map[string]string) error

	// PutFile uploads a local file to bucket/key with the given object metadata.
	PutFile(ctx context.Context, creds *TemporaryCredentials, bucket, key, filePath string, metadata map[string]string) error

	// Get reads the object bytes at bucket/key.
	Get(ctx context.Context, creds *TemporaryCredentials, bucket, key string) ([]byte, error)

	// HeadMetadata reads the object metadata map at bucket/key.
	HeadMetadata(ctx context.Context, creds *TemporaryCredentials, bucket, key string) (map[string]string, error)
}

// Backends bundles the external collaborators a client needs.
type Backends struct {
	Refresher TokenRefresher
	Broker    CredentialBroker
	Store     ObjectStore
}

// BackendFactory builds backends for a discovered environment. Factories are
// invoked once per client construction, after the discovery endpoint has been
// fetched.
type BackendFactory func(ctx context.Context, env *EnvironmentInfo) (*Backends, error)
