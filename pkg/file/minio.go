package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient defines the subset of *minio.Client used by MinioStorage.
type MinioClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioStorage stores files in any S3-compatible service through the MinIO client.
// Files are streamed with an unknown size as a multipart upload, so nothing is
// spooled locally. Safe for concurrent use.
type MinioStorage struct {
	client        MinioClient
	bucket        string
	baseURL       string
	key           KeyFunc
	partSize      uint64
	uploadTimeout time.Duration
}

// MinioConfig contains configuration for MinioStorage.
type MinioConfig struct {
	Endpoint     string // host:port, without scheme
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	UseSSL       bool
	CreateBucket bool   // Create the bucket on start when missing
	BaseURL      string // Public URL base reported as File.Location
	KeyPrefix    string // Prefix of generated object keys, "uploads/" by default
}

// MinioOption defines a function that configures MinioStorage.
type MinioOption func(*minioOptions)

type minioOptions struct {
	client        MinioClient
	key           KeyFunc
	partSize      uint64
	uploadTimeout time.Duration
}

// WithMinioClient sets a pre-configured client. Useful for testing with mocks.
func WithMinioClient(client MinioClient) MinioOption {
	return func(o *minioOptions) {
		o.client = client
	}
}

// WithMinioKeyFunc overrides object key generation.
func WithMinioKeyFunc(fn KeyFunc) MinioOption {
	return func(o *minioOptions) {
		o.key = fn
	}
}

// WithMinioPartSize sets the multipart chunk size. It bounds the memory used per upload.
func WithMinioPartSize(size uint64) MinioOption {
	return func(o *minioOptions) {
		o.partSize = size
	}
}

// WithMinioUploadTimeout sets the timeout for upload operations.
func WithMinioUploadTimeout(timeout time.Duration) MinioOption {
	return func(o *minioOptions) {
		o.uploadTimeout = timeout
	}
}

const defaultMinioPartSize = 16 << 20

// NewMinioStorage creates a MinioStorage. Unless a client is injected it
// connects to cfg.Endpoint and, with CreateBucket set, creates the bucket.
func NewMinioStorage(ctx context.Context, cfg MinioConfig, opts ...MinioOption) (*MinioStorage, error) {
	if cfg.Bucket == "" || cfg.Endpoint == "" {
		return nil, ErrInvalidConfig
	}

	options := &minioOptions{partSize: defaultMinioPartSize}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		mc, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToInitClient, err)
		}

		if cfg.CreateBucket {
			exists, err := mc.BucketExists(ctx, cfg.Bucket)
			if err != nil {
				return nil, classifyMinioError(err, "check bucket")
			}
			if !exists {
				if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
					return nil, classifyMinioError(err, "create bucket")
				}
			}
		}
		client = mc
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(cfg.Endpoint, "/"), cfg.Bucket)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	key := options.key
	if key == nil {
		prefix := cfg.KeyPrefix
		if prefix == "" {
			prefix = "uploads/"
		}
		key = PrefixedKey(prefix)
	}

	return &MinioStorage{
		client:        client,
		bucket:        cfg.Bucket,
		baseURL:       baseURL,
		key:           key,
		partSize:      options.partSize,
		uploadTimeout: options.uploadTimeout,
	}, nil
}

// classifyMinioError converts MinIO client errors to domain-specific errors.
func classifyMinioError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s operation", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s operation", ErrOperationCanceled, operation)
	}

	switch code := minio.ToErrorResponse(err).Code; code {
	case "":
		return fmt.Errorf("%s operation failed: %w", operation, err)
	case "NoSuchKey":
		return fmt.Errorf("%w: %s", ErrFileNotFound, err)
	case "NoSuchBucket":
		return ErrBucketNotFound
	case "AccessDenied":
		return fmt.Errorf("%w: %s operation", ErrAccessDenied, operation)
	case "RequestTimeout":
		return fmt.Errorf("%w: %s operation", ErrRequestTimeout, operation)
	case "SlowDown", "ServiceUnavailable":
		return fmt.Errorf("%w: %s operation", ErrServiceUnavailable, operation)
	default:
		return fmt.Errorf("%s operation failed (code: %s): %w", operation, code, err)
	}
}

// HandleFile streams the file to the bucket as a multipart upload of unknown size.
func (s *MinioStorage) HandleFile(ctx context.Context, info *Info) (*File, error) {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	if err := validateInfo(info); err != nil {
		return nil, err
	}

	key, err := s.key(ctx, info)
	if err != nil {
		return nil, err
	}
	key = strings.TrimPrefix(key, "/")
	if !validKey(key) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, key)
	}

	contentType := info.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Count bytes ourselves; the stream may end early on a parser error.
	counter := &countingReader{r: info.Stream}
	up, err := s.client.PutObject(ctx, s.bucket, key, counter, -1, minio.PutObjectOptions{
		ContentType: contentType,
		PartSize:    s.partSize,
	})
	if err != nil {
		return nil, classifyMinioError(err, "upload file")
	}

	f := record(info, counter.n)
	f.Bucket = s.bucket
	f.Key = key
	f.Location = s.baseURL + key
	f.ETag = strings.Trim(up.ETag, `"`)
	return f, nil
}

// RemoveFile deletes the object behind f.
func (s *MinioStorage) RemoveFile(ctx context.Context, f *File) error {
	if f == nil {
		return ErrNilFile
	}
	if !validKey(f.Key) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, f.Key)
	}

	bucket := f.Bucket
	if bucket == "" {
		bucket = s.bucket
	}

	if err := s.client.RemoveObject(ctx, bucket, f.Key, minio.RemoveObjectOptions{}); err != nil {
		return classifyMinioError(err, "delete file")
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
