package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectAPI is the part of *s3.Client the store calls.
type ObjectAPI interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 keeps blobs in a bucket under an optional key prefix.
type S3 struct {
	client ObjectAPI
	bucket string
	prefix string
}

func NewS3(client ObjectAPI, bucket string, prefix string) (*S3, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrInvalidBlobConfig)
	}
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// DialS3 loads the default AWS credential chain. S3BaseURL points at S3-compatible storage.
func DialS3(ctx context.Context, cfg Config) (*S3, error) {
	options := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		options = append(options, awsconfig.WithRegion(cfg.S3Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: aws config: %w", ErrInvalidBlobConfig, err)
	}
	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if cfg.S3BaseURL != "" {
			options.BaseEndpoint = aws.String(cfg.S3BaseURL)
			options.UsePathStyle = true
		}
	})
	return NewS3(client, cfg.S3Bucket, cfg.S3Prefix)
}

func (store *S3) Put(ctx context.Context, key string, contentType string, body []byte) error {
	if err := validateRef(key); err != nil {
		return err
	}
	_, err := store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(store.bucket),
		Key:           aws.String(store.objectKey(key)),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func (store *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateRef(key); err != nil {
		return nil, err
	}
	output, err := store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(store.objectKey(key)),
	})
	var missing *types.NoSuchKey
	if errors.As(err, &missing) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	return output.Body, nil
}

func (store *S3) objectKey(key string) string {
	if store.prefix == "" {
		return key
	}
	return path.Join(store.prefix, key)
}
