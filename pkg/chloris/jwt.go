package chloris

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultExpirySkew is the safety margin subtracted from a token's expiry
// before treating it as unusable.
const defaultExpirySkew = 10 * time.Minute

// DecodeJWT decodes a JWT payload without validating the signature and
// returns the claims as a map. This client never verifies signatures; it
// only reads claims embedded by the identity provider.
func DecodeJWT(token string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return map[string]any(claims), nil
}

// IsTokenExpired reports whether a token is expired or will expire within the
// default 10 minute skew window. Undecodable tokens and tokens without an exp
// claim are treated as expired.
func IsTokenExpired(token string) bool {
	return tokenExpiredAt(token, time.Now(), defaultExpirySkew)
}

func tokenExpiredAt(token string, now time.Time, skew time.Duration) bool {
	claims, err := DecodeJWT(token)
	if err != nil {
		return true
	}
	exp, ok := claims["exp"]
	if !ok {
		return true
	}
	var expUnix int64
	switch v := exp.(type) {
	case float64:
		expUnix = int64(v)
	case int64:
		expUnix = v
	default:
		return true
	}
	return !now.Before(time.Unix(expUnix, 0).Add(-skew))
}
