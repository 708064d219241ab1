package blobstore

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	goerrors "github.com/goliatone/go-errors"
)

// presignExpiry bounds how long an upload or download URL stays valid.
const presignExpiry = 15 * time.Minute

// Options configures the S3-backed blob store. BaseEndpoint is set when
// talking to MinIO or another S3-compatible server instead of AWS.
type Options struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

// S3Store keeps attachment bytes in an S3 bucket and hands out presigned
// URLs so clients move the content directly, without proxying through the
// API server.
type S3Store struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

// New builds the store and its presign client.
func New(ctx context.Context, opts Options) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load object storage config")
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		bucket:  opts.Bucket,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

// PresignUpload returns a URL a client can PUT the object bytes to.
func (s *S3Store) PresignUpload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to presign upload")
	}
	return req.URL, nil
}

// PresignDownload returns a URL a client can GET the object bytes from.
func (s *S3Store) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to presign download")
	}
	return req.URL, nil
}

// Delete removes the object. Deleting a missing key is not an error; S3
// delete is idempotent.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete object")
	}
	return nil
}
