package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Store_ObjectKey(t *testing.T) {
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", Bucket: "b", Prefix: "/runs/a/"})
	require.NoError(t, err)
	assert.Equal(t, "runs/a/collatz_conjecture_6.txt", s.objectKey("collatz_conjecture_6"))

	bare, err := NewS3Store(S3Config{Endpoint: "localhost:9000", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "collatz_conjecture_6.txt", bare.objectKey("collatz_conjecture_6"))
}

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNoSuchKey(fmt.Errorf("dial tcp: refused")))
}

// Runs against a live MinIO/S3 endpoint when COLLATZ_TEST_S3_ENDPOINT is set.
func TestS3Store_Live(t *testing.T) {
	endpoint := os.Getenv("COLLATZ_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("COLLATZ_TEST_S3_ENDPOINT not set")
	}

	bucket := os.Getenv("COLLATZ_TEST_S3_BUCKET")
	if bucket == "" {
		bucket = "collatz-test"
	}

	s, err := NewS3Store(S3Config{
		Endpoint:  endpoint,
		Bucket:    bucket,
		AccessKey: os.Getenv("COLLATZ_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("COLLATZ_TEST_S3_SECRET_KEY"),
		Prefix:    fmt.Sprintf("run-%d", time.Now().UnixNano()),
	})
	require.NoError(t, err)

	ctx := context.Background()
	if exists, err := s.client.BucketExists(ctx, bucket); err == nil && !exists {
		require.NoError(t, s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, hit, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, s.Set(ctx, "k", []byte("2\n1")))
	got, hit, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "2\n1", string(got))

	w, err := s.Create(ctx, "streamed")
	require.NoError(t, err)
	_, err = w.Write([]byte("4\n2\n1"))
	require.NoError(t, err)
	require.NoError(t, w.Commit())

	got, hit, err = s.Get(ctx, "streamed")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "4\n2\n1", string(got))

	aborted, err := s.Create(ctx, "aborted")
	require.NoError(t, err)
	_, err = aborted.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, aborted.Abort())

	ok, err = s.Exists(ctx, "aborted")
	require.NoError(t, err)
	assert.False(t, ok)
}
