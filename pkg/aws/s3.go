package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client creates an S3 client. Path-style addressing is forced when a
// custom endpoint is configured, since LocalStack does not serve virtual hosts.
func NewS3Client(cfg sdkaws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if Endpoint() != "" {
			o.UsePathStyle = true
		}
	})
}

// GeneratePresignedGetURL returns a time-limited GET URL for bucket/key.
func GeneratePresignedGetURL(ctx context.Context, client *s3.Client, bucket, key string, expiry time.Duration) (string, error) {
	presigner := s3.NewPresignClient(client)

	presigned, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return presigned.URL, nil
}
