package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket, key string
	body        []byte
	err         error
}

func (f *fakePutter) Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(input.Bucket)
	f.key = aws.ToString(input.Key)
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &manager.UploadOutput{}, nil
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in          string
		bucket, key string
		wantErr     bool
	}{
		{in: "s3://bucket/path/file.mp4", bucket: "bucket", key: "path/file.mp4"},
		{in: "bucket/videos/", bucket: "bucket", key: "videos/"},
		{in: "s3://bucket", bucket: "bucket"},
		{in: "s3://", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, key, err := ParseS3URL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "clip.mp4", objectKey("", "/tmp/clip.mp4"))
	assert.Equal(t, "videos/clip.mp4", objectKey("videos/", "/tmp/clip.mp4"))
	assert.Equal(t, "exact/name.mp4", objectKey("exact/name.mp4", "/tmp/clip.mp4"))
}

func TestS3SinkUpload(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(local, []byte("video bytes"), 0644))

	putter := &fakePutter{}
	s := &S3Sink{putter: putter}
	dest, err := s.Upload(context.Background(), local, "s3://media/incoming/")
	require.NoError(t, err)
	assert.Equal(t, "s3://media/incoming/clip.mp4", dest)
	assert.Equal(t, "media", putter.bucket)
	assert.Equal(t, "incoming/clip.mp4", putter.key)
	assert.Equal(t, "video bytes", string(putter.body))
}

func TestS3SinkUploadErrors(t *testing.T) {
	s := &S3Sink{putter: &fakePutter{}}
	_, err := s.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), "s3://media/")
	assert.Error(t, err)

	_, err = s.Upload(context.Background(), "x", "s3://")
	assert.Error(t, err)

	local := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(local, nil, 0644))
	boom := errors.New("access denied")
	s = &S3Sink{putter: &fakePutter{err: boom}}
	_, err = s.Upload(context.Background(), local, "s3://media/")
	assert.ErrorIs(t, err, boom)
}
