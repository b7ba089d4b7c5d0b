package cache

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/jmgilman/go/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings of an S3-compatible store.
type S3Config struct {
	// Endpoint is the server address (e.g., "localhost:9000").
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// Prefix namespaces every object key.
	Prefix string

	// Client is an optional pre-configured client; connection fields are
	// ignored when it is set.
	Client *minio.Client
}

func (c *S3Config) validate() error {
	if c.Bucket == "" {
		return errors.New(errors.CodeInvalidConfig, "s3 bucket is required")
	}
	if c.Client == nil && c.Endpoint == "" {
		return errors.New(errors.CodeInvalidConfig, "s3 endpoint is required when client is not provided")
	}
	return nil
}

// S3Store keeps one object per entry in an S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed store. It does not contact the server.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "failed to create s3 client")
		}
	}

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// objectKey joins the store prefix with the entry file name.
func (s *S3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key + EntryExt
	}
	return path.Join(s.prefix, key+EntryExt)
}

func isNoSuchKey(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// Exists reports whether the object for key exists.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.objectKey(key), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, errors.Wrap(err, errors.CodeDatabase, "s3 stat failed")
}

// Get downloads the object for key.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, errors.CodeDatabase, "s3 get failed")
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, errors.CodeDatabase, "s3 read failed")
	}
	return data, true, nil
}

// Set uploads value as the object for key.
func (s *S3Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(key),
		bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "text/plain"},
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabase, "s3 put failed")
	}
	return nil
}

// Create streams an upload for key. The object only appears once the
// upload completes on Commit; Abort fails the upload.
func (s *S3Store) Create(ctx context.Context, key string) (EntryWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(key), pr, -1,
			minio.PutObjectOptions{ContentType: "text/plain"},
		)
		_ = pr.CloseWithError(err)
		done <- err
		close(done)
	}()

	return &s3Entry{pw: pw, done: done, key: key}, nil
}

var errUploadAborted = errors.New(errors.CodeInternal, "upload aborted")

type s3Entry struct {
	pw     *io.PipeWriter
	done   chan error
	key    string
	closed bool
}

func (e *s3Entry) Write(p []byte) (int, error) {
	n, err := e.pw.Write(p)
	if err != nil {
		return n, errors.Wrapf(err, errors.CodeDatabase, "s3 upload of %q failed", e.key)
	}
	return n, nil
}

func (e *s3Entry) Commit() error {
	if e.closed {
		return errors.Newf(errors.CodeInternal, "entry %q already closed", e.key)
	}
	e.closed = true

	_ = e.pw.Close()
	if err := <-e.done; err != nil {
		return errors.Wrapf(err, errors.CodeDatabase, "s3 upload of %q failed", e.key)
	}
	return nil
}

func (e *s3Entry) Abort() error {
	if e.closed {
		return nil
	}
	e.closed = true

	_ = e.pw.CloseWithError(errUploadAborted)
	<-e.done
	return nil
}
