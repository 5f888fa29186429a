package awsauth

import (
	"bytes"
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/chloris-geospatial/chloris-app-sdk-go/pkg/chloris"
)

// S3Store implements chloris.ObjectStore on S3 using the brokered temporary
// credentials supplied with each call. The credentials rotate between calls,
// so a fresh client is built per operation rather than cached.
type S3Store struct {
	region string
}

// NewS3Store returns a store for buckets in the given region.
func NewS3Store(region string) *S3Store {
	return &S3Store{region: region}
}

func (s *S3Store) clientFor(creds *chloris.TemporaryCredentials) *s3.Client {
	return s3.New(s3.Options{
		Region: s.region,
		Credentials: credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID, creds.SecretKey, creds.SessionToken),
	})
}

// Put implements chloris.ObjectStore.
func (s *S3Store) Put(ctx context.Context, creds *chloris.TemporaryCredentials, bucket, key string, body []byte, metadata map[string]string) error {
	_, err := s.clientFor(creds).PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(body),
		Metadata: metadata,
	})
	if err != nil {
		return classify(err, "put object")
	}
	return nil
}

// PutFile implements chloris.ObjectStore. Large files are uploaded in parts.
func (s *S3Store) PutFile(ctx context.Context, creds *chloris.TemporaryCredentials, bucket, key, filePath string, metadata map[string]string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return chloris.ErrStorage("failed to open file for upload").WithCause(err)
	}
	defer f.Close()

	uploader := manager.NewUploader(s.clientFor(creds))
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     f,
		Metadata: metadata,
	})
	if err != nil {
		return classify(err, "upload file")
	}
	return nil
}

// Get implements chloris.ObjectStore.
func (s *S3Store) Get(ctx context.Context, creds *chloris.TemporaryCredentials, bucket, key string) ([]byte, error) {
	out, err := s.clientFor(creds).GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(err, "get object")
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, chloris.ErrStorage("failed to read object body").WithCause(err)
	}
	return data, nil
}

// HeadMetadata implements chloris.ObjectStore.
func (s *S3Store) HeadMetadata(ctx context.Context, creds *chloris.TemporaryCredentials, bucket, key string) (map[string]string, error) {
	out, err := s.clientFor(creds).HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classify(err, "head object")
	}
	return out.Metadata, nil
}
