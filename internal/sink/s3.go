package sink

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Uploader copies a finished download somewhere else and returns where it
// ended up.
type Uploader interface {
	Upload(ctx context.Context, localPath, dest string) (string, error)
}

type objectPutter interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type S3Sink struct {
	putter objectPutter
}

// NewS3 builds a sink from the shared AWS configuration of profile. An
// empty profile uses the default chain.
func NewS3(ctx context.Context, profile string) (*S3Sink, error) {
	opts := []func(*config.LoadOptions) error{config.WithRetryMode(aws.RetryModeAdaptive)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return &S3Sink{putter: manager.NewUploader(s3.NewFromConfig(cfg))}, nil
}

func (s *S3Sink) Upload(ctx context.Context, localPath, dest string) (string, error) {
	bucket, prefix, err := ParseS3URL(dest)
	if err != nil {
		return "", err
	}
	key := objectKey(prefix, localPath)
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer f.Close()
	log.Debug().Str("op", "sink/s3").Msgf("uploading %s to s3://%s/%s", localPath, bucket, key)
	_, err = s.putter.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("error uploading to s3://%s/%s: %w", bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

// ParseS3URL splits "s3://bucket/key" or "bucket/key".
func ParseS3URL(url string) (string, string, error) {
	url = strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(url, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 URL format")
	}
	bucket := parts[0]
	key := ""
	if len(parts) > 1 {
		key = parts[1]
	}
	return bucket, key, nil
}

// objectKey treats an empty key or one ending in "/" as a folder that the
// file goes into.
func objectKey(prefix, localPath string) string {
	base := filepath.Base(localPath)
	if prefix == "" {
		return base
	}
	if strings.HasSuffix(prefix, "/") {
		return path.Join(prefix, base)
	}
	return prefix
}
