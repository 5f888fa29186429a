package chloris

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// credentialExchangeAttempts is the fixed attempt budget for the
	// rate-limited credential exchange. This is the only attempt-bounded
	// retry loop in the client; polling is time-bounded instead.
	credentialExchangeAttempts = 12

	// quietThrottleAttempts is how many initial throttled attempts are
	// logged at debug level before escalating to warnings.
	quietThrottleAttempts = 6
)

// RefreshTokens refreshes the identity and access tokens using the refresh
// token. On success both tokens are replaced together; on any failure the
// session is left unchanged.
func (c *Client) RefreshTokens(ctx context.Context) error {
	if c.session.RefreshToken == "" {
		return ErrAuthentication("session expired and no refresh token provided")
	}
	tokens, err := c.backends.Refresher.Refresh(ctx, c.session.RefreshToken, c.env.UserPoolClientID)
	if err != nil {
		return ErrAuthentication("failed to refresh session tokens").WithCause(err)
	}
	c.session.IdentityToken = tokens.IdentityToken
	c.session.AccessToken = tokens.AccessToken
	return nil
}

// temporaryCredentials returns cached delegated storage credentials, or
// re-derives them from the identity token when missing or within the expiry
// skew window. Rate-limited exchanges back off 2^attempt seconds per attempt
// within the fixed attempt budget.
func (c *Client) temporaryCredentials(ctx context.Context) (*TemporaryCredentials, error) {
	if c.creds != nil && !c.creds.expiresWithin(c.now(), c.skew) {
		return c.creds, nil
	}
	c.creds = nil

	for attempt := 0; attempt < credentialExchangeAttempts; attempt++ {
		creds, err := c.exchangeCredentials(ctx)
		if err == nil {
			c.creds = creds
			return creds, nil
		}
		if IsKind(err, KindAuthentication) {
			return nil, err
		}
		if !IsKind(err, KindRateLimit) {
			return nil, ErrCredentialExchange("failed to obtain temporary storage credentials").WithCause(err)
		}
		if attempt == credentialExchangeAttempts-1 {
			return nil, ErrThrottled("credential exchange rate limited, please try again later").WithCause(err)
		}
		delay := time.Duration(1<<attempt) * time.Second
		if attempt < quietThrottleAttempts {
			c.logger.Debug("credential exchange throttled, backing off",
				zap.Int("attempt", attempt), zap.Duration("delay", delay))
		} else {
			c.logger.Warn("credential exchange throttled, backing off",
				zap.Int("attempt", attempt), zap.Duration("delay", delay))
		}
		c.sleep(delay)
	}
	// Unreachable: the final attempt returns above.
	return nil, ErrCredentialExchange("failed to obtain temporary storage credentials")
}

// invalidateCredentials drops the cached delegated credentials so the next
// storage operation re-derives them.
func (c *Client) invalidateCredentials() {
	c.creds = nil
}

// exchangeCredentials performs the two-step exchange: identity token to
// identity id, then identity id to temporary storage credentials.
func (c *Client) exchangeCredentials(ctx context.Context) (*TemporaryCredentials, error) {
	idToken, err := c.identityToken(ctx)
	if err != nil {
		return nil, err
	}
	logins := map[string]string{
		fmt.Sprintf("cognito-idp.%s.amazonaws.com/%s", c.env.Region, c.env.UserPoolID): idToken,
	}
	identityID, err := c.backends.Broker.LookupIdentity(ctx, c.env.IdentityPoolID, logins)
	if err != nil {
		return nil, err
	}
	creds, err := c.backends.Broker.CredentialsForIdentity(ctx, identityID, logins)
	if err != nil {
		return nil, err
	}
	creds.IdentityID = identityID
	return creds, nil
}
