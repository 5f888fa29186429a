package awsauth

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	citypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentity/types"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	"github.com/chloris-geospatial/chloris-app-sdk-go/pkg/chloris"
)

type fakeAuthAPI struct {
	input  *cognitoidentityprovider.InitiateAuthInput
	output *cognitoidentityprovider.InitiateAuthOutput
	err    error
}

func (f *fakeAuthAPI) InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	f.input = params
	return f.output, f.err
}

func TestCognitoRefresher(t *testing.T) {
	api := &fakeAuthAPI{output: &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &cptypes.AuthenticationResultType{
			IdToken:     aws.String("new-id"),
			AccessToken: aws.String("new-access"),
		},
	}}
	r := NewCognitoRefresher(api)

	tokens, err := r.Refresh(context.Background(), "refresh-1", "client-1")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tokens.IdentityToken != "new-id" || tokens.AccessToken != "new-access" {
		t.Errorf("tokens = %+v", tokens)
	}
	if api.input.AuthFlow != cptypes.AuthFlowTypeRefreshToken {
		t.Errorf("AuthFlow = %v", api.input.AuthFlow)
	}
	if api.input.AuthParameters["REFRESH_TOKEN"] != "refresh-1" {
		t.Errorf("AuthParameters = %v", api.input.AuthParameters)
	}
	if aws.ToString(api.input.ClientId) != "client-1" {
		t.Errorf("ClientId = %v", aws.ToString(api.input.ClientId))
	}
}

func TestCognitoRefresherRejection(t *testing.T) {
	api := &fakeAuthAPI{err: &smithy.GenericAPIError{Code: "NotAuthorizedException", Message: "revoked"}}
	r := NewCognitoRefresher(api)

	_, err := r.Refresh(context.Background(), "refresh-1", "client-1")
	if !chloris.IsKind(err, chloris.KindAuthentication) {
		t.Fatalf("Refresh() error = %v, want authentication kind", err)
	}
}

func TestCognitoRefresherEmptyResult(t *testing.T) {
	api := &fakeAuthAPI{output: &cognitoidentityprovider.InitiateAuthOutput{}}
	r := NewCognitoRefresher(api)

	_, err := r.Refresh(context.Background(), "refresh-1", "client-1")
	if !chloris.IsKind(err, chloris.KindAuthentication) {
		t.Fatalf("Refresh() error = %v, want authentication kind", err)
	}
}

type fakeIdentityAPI struct {
	getIDInput *cognitoidentity.GetIdInput
	credsInput *cognitoidentity.GetCredentialsForIdentityInput
	credsErr   error
}

func (f *fakeIdentityAPI) GetId(ctx context.Context, params *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error) {
	f.getIDInput = params
	return &cognitoidentity.GetIdOutput{IdentityId: aws.String("us-east-1:abc")}, nil
}

func (f *fakeIdentityAPI) GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error) {
	f.credsInput = params
	if f.credsErr != nil {
		return nil, f.credsErr
	}
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &cognitoidentity.GetCredentialsForIdentityOutput{
		IdentityId: params.IdentityId,
		Credentials: &citypes.Credentials{
			AccessKeyId:  aws.String("AKID"),
			SecretKey:    aws.String("SECRET"),
			SessionToken: aws.String("SESSION"),
			Expiration:   &exp,
		},
	}, nil
}

func TestCognitoBroker(t *testing.T) {
	api := &fakeIdentityAPI{}
	b := NewCognitoBroker(api)
	logins := map[string]string{"cognito-idp.us-east-1.amazonaws.com/pool": "token"}

	id, err := b.LookupIdentity(context.Background(), "us-east-1:idpool", logins)
	if err != nil {
		t.Fatalf("LookupIdentity() error = %v", err)
	}
	if id != "us-east-1:abc" {
		t.Errorf("identity = %q", id)
	}
	if aws.ToString(api.getIDInput.IdentityPoolId) != "us-east-1:idpool" {
		t.Errorf("IdentityPoolId = %v", api.getIDInput.IdentityPoolId)
	}

	creds, err := b.CredentialsForIdentity(context.Background(), id, logins)
	if err != nil {
		t.Fatalf("CredentialsForIdentity() error = %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretKey != "SECRET" || creds.SessionToken != "SESSION" {
		t.Errorf("creds = %+v", creds)
	}
	if creds.IdentityID != "us-east-1:abc" {
		t.Errorf("IdentityID = %q", creds.IdentityID)
	}
	if creds.Expiration.IsZero() {
		t.Error("Expiration not set")
	}
}

func TestCognitoBrokerRateLimit(t *testing.T) {
	api := &fakeIdentityAPI{credsErr: &smithy.GenericAPIError{Code: "TooManyRequestsException", Message: "slow down"}}
	b := NewCognitoBroker(api)

	_, err := b.CredentialsForIdentity(context.Background(), "us-east-1:abc", nil)
	if !chloris.IsKind(err, chloris.KindRateLimit) {
		t.Fatalf("CredentialsForIdentity() error = %v, want rate_limit kind", err)
	}
}
