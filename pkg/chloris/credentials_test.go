package chloris

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTemporaryCredentials(t *testing.T) {
	broker := &fakeBroker{identityID: "us-east-1:abc-123", creds: testCreds()}
	c, _ := newTestClient(t, &Backends{Broker: broker, Store: &fakeStore{}})

	creds, err := c.temporaryCredentials(context.Background())
	if err != nil {
		t.Fatalf("temporaryCredentials() error = %v", err)
	}
	if creds.AccessKeyID != "AKID" {
		t.Errorf("AccessKeyID = %q, want AKID", creds.AccessKeyID)
	}
	if creds.IdentityID != "us-east-1:abc-123" {
		t.Errorf("IdentityID = %q, want us-east-1:abc-123", creds.IdentityID)
	}
	wantLogin := "cognito-idp.us-east-1.amazonaws.com/us-east-1_POOL"
	if broker.logins[wantLogin] != testToken {
		t.Errorf("logins[%q] missing identity token", wantLogin)
	}

	// Second call serves from cache.
	if _, err := c.temporaryCredentials(context.Background()); err != nil {
		t.Fatalf("cached temporaryCredentials() error = %v", err)
	}
	if broker.lookupCalls != 1 {
		t.Errorf("lookupCalls = %d, want 1", broker.lookupCalls)
	}
}

func TestTemporaryCredentialsExpiredCacheRederived(t *testing.T) {
	broker := &fakeBroker{identityID: "id-1", creds: testCreds()}
	c, _ := newTestClient(t, &Backends{Broker: broker, Store: &fakeStore{}})
	c.creds = &TemporaryCredentials{Expiration: testNow.Add(time.Minute)}

	if _, err := c.temporaryCredentials(context.Background()); err != nil {
		t.Fatalf("temporaryCredentials() error = %v", err)
	}
	if broker.lookupCalls != 1 {
		t.Errorf("lookupCalls = %d, want 1 (cache within skew must be discarded)", broker.lookupCalls)
	}
}

func TestTemporaryCredentialsThrottleBackoff(t *testing.T) {
	var throttles []error
	for i := 0; i < 6; i++ {
		throttles = append(throttles, ErrRateLimit("slow down"))
	}
	broker := &fakeBroker{identityID: "id-1", creds: testCreds(), errs: throttles}
	c, slept := newTestClient(t, &Backends{Broker: broker, Store: &fakeStore{}})

	if _, err := c.temporaryCredentials(context.Background()); err != nil {
		t.Fatalf("temporaryCredentials() error = %v", err)
	}
	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 16 * time.Second, 32 * time.Second,
	}
	if len(*slept) != len(want) {
		t.Fatalf("slept %d times, want %d", len(*slept), len(want))
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("delay[%d] = %v, want %v", i, (*slept)[i], d)
		}
	}
	if broker.lookupCalls != 7 {
		t.Errorf("lookupCalls = %d, want 7", broker.lookupCalls)
	}
}

func TestTemporaryCredentialsThrottleExhausted(t *testing.T) {
	var throttles []error
	for i := 0; i < 12; i++ {
		throttles = append(throttles, ErrRateLimit("slow down"))
	}
	broker := &fakeBroker{identityID: "id-1", creds: testCreds(), errs: throttles}
	c, slept := newTestClient(t, &Backends{Broker: broker, Store: &fakeStore{}})

	_, err := c.temporaryCredentials(context.Background())
	if !IsKind(err, KindThrottled) {
		t.Fatalf("temporaryCredentials() error = %v, want throttled kind", err)
	}
	// The final attempt fails without sleeping again.
	if len(*slept) != 11 {
		t.Errorf("slept %d times, want 11", len(*slept))
	}
}

func TestTemporaryCredentialsTerminalError(t *testing.T) {
	broker := &fakeBroker{errs: []error{fmt.Errorf("boom")}}
	c, slept := newTestClient(t, &Backends{Broker: broker, Store: &fakeStore{}})

	_, err := c.temporaryCredentials(context.Background())
	if !IsKind(err, KindCredentialExchange) {
		t.Fatalf("temporaryCredentials() error = %v, want credential_exchange kind", err)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %d times, want 0 on terminal error", len(*slept))
	}
}

func TestTemporaryCredentialsAuthErrorPropagates(t *testing.T) {
	broker := &fakeBroker{errs: []error{ErrAuthentication("bad token")}}
	c, _ := newTestClient(t, &Backends{Broker: broker, Store: &fakeStore{}})

	_, err := c.temporaryCredentials(context.Background())
	if !IsKind(err, KindAuthentication) {
		t.Fatalf("temporaryCredentials() error = %v, want authentication kind", err)
	}
}

func TestRefreshTokens(t *testing.T) {
	refresher := &fakeRefresher{tokens: &AuthTokens{IdentityToken: "new-id", AccessToken: "new-access"}}
	c, _ := newTestClient(t, &Backends{Refresher: refresher, Store: &fakeStore{}})

	if err := c.RefreshTokens(context.Background()); err != nil {
		t.Fatalf("RefreshTokens() error = %v", err)
	}
	if c.session.IdentityToken != "new-id" || c.session.AccessToken != "new-access" {
		t.Errorf("session = %+v, want refreshed tokens", c.session)
	}
	if refresher.clientID != "clientid123" {
		t.Errorf("clientID = %q, want clientid123", refresher.clientID)
	}
}

func TestRefreshTokensNoRefreshToken(t *testing.T) {
	c, _ := newTestClient(t, &Backends{Store: &fakeStore{}})
	c.session.RefreshToken = ""

	err := c.RefreshTokens(context.Background())
	if !IsKind(err, KindAuthentication) {
		t.Fatalf("RefreshTokens() error = %v, want authentication kind", err)
	}
}

func TestRefreshTokensFailureLeavesSession(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("refused")}
	c, _ := newTestClient(t, &Backends{Refresher: refresher, Store: &fakeStore{}})

	err := c.RefreshTokens(context.Background())
	if !IsKind(err, KindAuthentication) {
		t.Fatalf("RefreshTokens() error = %v, want authentication kind", err)
	}
	if c.session.IdentityToken != testToken {
		t.Error("identity token changed on failed refresh")
	}
}
