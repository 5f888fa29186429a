package awsauth

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"

	"github.com/chloris-geospatial/chloris-app-sdk-go/pkg/chloris"
)

// CognitoIdentityAPI abstracts the Cognito identity pool operations used by
// the broker.
type CognitoIdentityAPI interface {
	GetId(ctx context.Context, params *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// CognitoBroker resolves a federated identity and brokers short-lived AWS
// credentials for it through a Cognito identity pool.
type CognitoBroker struct {
	client CognitoIdentityAPI
}

// NewCognitoBroker returns a broker backed by the given Cognito identity
// client.
func NewCognitoBroker(client CognitoIdentityAPI) *CognitoBroker {
	return &CognitoBroker{client: client}
}

// LookupIdentity implements chloris.CredentialBroker.
func (b *CognitoBroker) LookupIdentity(ctx context.Context, identityPoolID string, logins map[string]string) (string, error) {
	out, err := b.client.GetId(ctx, &cognitoidentity.GetIdInput{
		IdentityPoolId: aws.String(identityPoolID),
		Logins:         logins,
	})
	if err != nil {
		return "", classify(err, "lookup identity")
	}
	return aws.ToString(out.IdentityId), nil
}

// CredentialsForIdentity implements chloris.CredentialBroker.
func (b *CognitoBroker) CredentialsForIdentity(ctx context.Context, identityID string, logins map[string]string) (*chloris.TemporaryCredentials, error) {
	out, err := b.client.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
		IdentityId: aws.String(identityID),
		Logins:     logins,
	})
	if err != nil {
		return nil, classify(err, "broker credentials")
	}
	if out.Credentials == nil {
		return nil, chloris.ErrCredentialExchange("credential brokering returned no credentials")
	}
	creds := &chloris.TemporaryCredentials{
		AccessKeyID:  aws.ToString(out.Credentials.AccessKeyId),
		SecretKey:    aws.ToString(out.Credentials.SecretKey),
		SessionToken: aws.ToString(out.Credentials.SessionToken),
		IdentityID:   aws.ToString(out.IdentityId),
	}
	if out.Credentials.Expiration != nil {
		creds.Expiration = *out.Credentials.Expiration
	}
	return creds, nil
}
