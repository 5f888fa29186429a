package chloris

import "context"

// identityToken returns an identity token guaranteed valid for at least the
// skew window, refreshing through the identity provider on demand.
func (c *Client) identityToken(ctx context.Context) (string, error) {
	if c.session.IdentityToken != "" && tokenExpiredAt(c.session.IdentityToken, c.now(), c.skew) {
		c.session.IdentityToken = ""
	}
	if c.session.IdentityToken == "" {
		if err := c.RefreshTokens(ctx); err != nil {
			return "", err
		}
	}
	if c.session.IdentityToken == "" {
		return "", ErrAuthentication("no identity token available after refresh")
	}
	return c.session.IdentityToken, nil
}

// accessToken returns an access token guaranteed valid for at least the skew
// window, refreshing through the identity provider on demand.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.session.AccessToken != "" && tokenExpiredAt(c.session.AccessToken, c.now(), c.skew) {
		c.session.AccessToken = ""
	}
	if c.session.AccessToken == "" {
		if err := c.RefreshTokens(ctx); err != nil {
			return "", err
		}
	}
	if c.session.AccessToken == "" {
		return "", ErrAuthentication("no access token available after refresh")
	}
	return c.session.AccessToken, nil
}
