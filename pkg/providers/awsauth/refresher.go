package awsauth

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/chloris-geospatial/chloris-app-sdk-go/pkg/chloris"
)

// CognitoAuthAPI abstracts the Cognito user pool operations used by the
// refresher.
type CognitoAuthAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// CognitoRefresher exchanges a Cognito refresh token for fresh session
// tokens via the user pool's refresh token grant.
type CognitoRefresher struct {
	client CognitoAuthAPI
}

// NewCognitoRefresher returns a refresher backed by the given Cognito user
// pool client.
func NewCognitoRefresher(client CognitoAuthAPI) *CognitoRefresher {
	return &CognitoRefresher{client: client}
}

// Refresh implements chloris.TokenRefresher.
func (r *CognitoRefresher) Refresh(ctx context.Context, refreshToken, clientID string) (*chloris.AuthTokens, error) {
	out, err := r.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshToken,
		ClientId: aws.String(clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return nil, classify(err, "refresh tokens")
	}
	if out.AuthenticationResult == nil {
		return nil, chloris.ErrAuthentication("token refresh returned no authentication result")
	}
	return &chloris.AuthTokens{
		IdentityToken: aws.ToString(out.AuthenticationResult.IdToken),
		AccessToken:   aws.ToString(out.AuthenticationResult.AccessToken),
	}, nil
}
