// Package chloris provides core types for the Chloris App client.
package chloris

import "time"

// EnvironmentInfo holds the environment-specific resources reported by the
// discovery endpoint. It is fetched once at construction and never changes
// for the lifetime of a client.
type EnvironmentInfo struct {
	// Region is the cloud region hosting the identity pools and user bucket.
	Region string `json:"awsRegion"`

	// UserPoolID identifies the user pool the identity provider authenticates against.
	UserPoolID string `json:"awsUserPoolId"`

	// UserPoolClientID is the client id used for the refresh token grant.
	UserPoolClientID string `json:"awsUserPoolWebClientId"`

	// IdentityPoolID identifies the identity pool used for the
	// identity-token-to-storage-credentials exchange.
	IdentityPoolID string `json:"awsCognitoIdentityPoolId"`

	// UserFilesBucket is the bucket holding user boundary uploads.
	UserFilesBucket string `json:"awsUserFilesS3Bucket"`
}

// Session holds the authentication tokens for one client instance.
// Tokens are opaque signed strings with an embedded expiry claim; only the
// refresh operation replaces IdentityToken and AccessToken.
type Session struct {
	IdentityToken string
	AccessToken   string
	RefreshToken  string
}

// AuthTokens is the result of a refresh token grant.
type AuthTokens struct {
	IdentityToken string
	AccessToken   string
}

// TemporaryCredentials are short-lived delegated storage credentials derived
// from the session's identity token.
type TemporaryCredentials struct {
	AccessKeyID  string
	SecretKey    string
	SessionToken string
	IdentityID   string
	Expiration   time.Time
}

// expiresWithin reports whether the credentials are expired or will expire
// within the skew window.
func (c *TemporaryCredentials) expiresWithin(now time.Time, skew time.Duration) bool {
	if c == nil {
		return true
	}
	return !now.Before(c.Expiration.Add(-skew))
}

// ReportingUnit is a semi-structured reporting unit entry. The API treats it
// as an opaque JSON document keyed by reportingUnitId, with known optional
// substructures (stats, layersConfig, downloads) fetched separately.
type ReportingUnit map[string]any

// clone returns a shallow copy of the entry.
func (r ReportingUnit) clone() ReportingUnit {
	cp := make(ReportingUnit, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}
