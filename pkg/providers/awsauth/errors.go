package awsauth

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	"github.com/chloris-geospatial/chloris-app-sdk-go/pkg/chloris"
)

// classify maps an AWS SDK error to the error kind the chloris client keys
// its retry behavior on. Rate limiting, expired delegated credentials and
// missing objects each get their own kind; everything else surfaces as a
// storage error. Keys polled before normalization finishes come back as
// AccessDenied rather than NotFound, so 403s map to not_found too.
func classify(err error, operation string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException", "ThrottlingException", "Throttling", "SlowDown":
			return chloris.ErrRateLimit("rate limited by backend").WithOperation(operation).WithCause(err)
		case "NotAuthorizedException", "UserNotFoundException", "PasswordResetRequiredException":
			return chloris.ErrAuthentication("rejected by identity provider").WithOperation(operation).WithCause(err)
		case "ExpiredToken", "ExpiredTokenException":
			return chloris.ErrExpiredCredentials("delegated credentials expired").WithOperation(operation).WithCause(err)
		case "NotFound", "NoSuchKey", "Forbidden", "AccessDenied":
			return chloris.NewError(chloris.KindNotFound, "object not found").WithOperation(operation).WithCause(err)
		}
	}

	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		switch httpErr.HTTPStatusCode() {
		case 403, 404:
			return chloris.NewError(chloris.KindNotFound, "object not found").WithOperation(operation).WithCause(err)
		case 429:
			return chloris.ErrRateLimit("rate limited by backend").WithOperation(operation).WithCause(err)
		}
	}

	return chloris.ErrStorage("backend request failed").WithOperation(operation).WithCause(err)
}
