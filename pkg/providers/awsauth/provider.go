// Package awsauth provides the AWS-backed identity and storage backends for
// the chloris client.
//
// Importing it for side effects registers a backend factory that builds a
// Cognito token refresher, a Cognito identity credential broker and an S3
// object store from the platform's discovered environment:
//
//	import _ "github.com/chloris-geospatial/chloris-app-sdk-go/pkg/providers/awsauth"
package awsauth

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"

	"github.com/chloris-geospatial/chloris-app-sdk-go/pkg/chloris"
)

func init() {
	chloris.RegisterBackendFactory(NewBackends)
}

// NewBackends builds the AWS-backed chloris backends for a discovered
// platform environment. The Cognito clients are anonymous; the S3 client is
// constructed per call from brokered credentials.
func NewBackends(ctx context.Context, env *chloris.EnvironmentInfo) (*chloris.Backends, error) {
	// Token refresh and identity lookup are unsigned Cognito calls, so no
	// ambient AWS credentials are required.
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(env.Region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, chloris.ErrConfiguration("failed to load aws configuration").WithCause(err)
	}
	return &chloris.Backends{
		Refresher: &CognitoRefresher{client: cognitoidentityprovider.NewFromConfig(cfg)},
		Broker:    &CognitoBroker{client: cognitoidentity.NewFromConfig(cfg)},
		Store:     &S3Store{region: env.Region},
	}, nil
}
