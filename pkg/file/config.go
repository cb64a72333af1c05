package file

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Storage drivers accepted by NewFromConfig.
const (
	DriverMemory = "memory"
	DriverDisk   = "disk"
	DriverS3     = "s3"
	DriverMinio  = "minio"
)

// Config selects and configures a storage engine from the environment.
type Config struct {
	Driver        string        `env:"STORAGE_DRIVER" envDefault:"memory"`     // memory, disk, s3 or minio
	UploadTimeout time.Duration `env:"STORAGE_UPLOAD_TIMEOUT" envDefault:"0s"` // 0 disables the per-file timeout
	KeyPrefix     string        `env:"STORAGE_KEY_PREFIX" envDefault:"uploads/"`

	DiskDir          string `env:"STORAGE_DISK_DIR" envDefault:"./uploads"`
	DiskKeepFilename bool   `env:"STORAGE_DISK_KEEP_FILENAME" envDefault:"false"` // keep sanitized client names instead of random ones

	S3Bucket         string `env:"STORAGE_S3_BUCKET"`
	S3Region         string `env:"STORAGE_S3_REGION" envDefault:"us-east-1"`
	S3AccessKeyID    string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"STORAGE_S3_SECRET_KEY"`
	S3Endpoint       string `env:"STORAGE_S3_ENDPOINT"`
	S3BaseURL        string `env:"STORAGE_S3_BASE_URL"`
	S3ForcePathStyle bool   `env:"STORAGE_S3_FORCE_PATH_STYLE" envDefault:"false"`
	S3TempDir        string `env:"STORAGE_S3_TEMP_DIR"`

	MinioEndpoint     string `env:"STORAGE_MINIO_ENDPOINT" envDefault:"localhost:9000"`
	MinioAccessKey    string `env:"STORAGE_MINIO_ACCESS_KEY"`
	MinioSecretKey    string `env:"STORAGE_MINIO_SECRET_KEY"`
	MinioBucket       string `env:"STORAGE_MINIO_BUCKET"`
	MinioRegion       string `env:"STORAGE_MINIO_REGION"`
	MinioUseSSL       bool   `env:"STORAGE_MINIO_USE_SSL" envDefault:"false"`
	MinioCreateBucket bool   `env:"STORAGE_MINIO_CREATE_BUCKET" envDefault:"false"`
	MinioBaseURL      string `env:"STORAGE_MINIO_BASE_URL"`
	MinioPartSize     uint64 `env:"STORAGE_MINIO_PART_SIZE" envDefault:"16777216"`
}

// NewFromConfig builds the storage engine named by cfg.Driver.
//
// Example:
//
//	var cfg file.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	storage, err := file.NewFromConfig(ctx, cfg)
func NewFromConfig(ctx context.Context, cfg Config) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory, "":
		return NewMemoryStorage(), nil

	case DriverDisk:
		opts := []LocalOption{WithLocalUploadTimeout(cfg.UploadTimeout)}
		if cfg.DiskKeepFilename {
			opts = append(opts, WithFilename(OriginalFilename))
		}
		return NewLocalStorage(cfg.DiskDir, opts...)

	case DriverS3:
		return NewS3Storage(ctx, S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretKey,
			Endpoint:       cfg.S3Endpoint,
			BaseURL:        cfg.S3BaseURL,
			ForcePathStyle: cfg.S3ForcePathStyle,
			KeyPrefix:      cfg.KeyPrefix,
		},
			WithS3TempDir(cfg.S3TempDir),
			WithS3UploadTimeout(cfg.UploadTimeout),
		)

	case DriverMinio:
		return NewMinioStorage(ctx, MinioConfig{
			Endpoint:     cfg.MinioEndpoint,
			AccessKey:    cfg.MinioAccessKey,
			SecretKey:    cfg.MinioSecretKey,
			Bucket:       cfg.MinioBucket,
			Region:       cfg.MinioRegion,
			UseSSL:       cfg.MinioUseSSL,
			CreateBucket: cfg.MinioCreateBucket,
			BaseURL:      cfg.MinioBaseURL,
			KeyPrefix:    cfg.KeyPrefix,
		},
			WithMinioPartSize(cfg.MinioPartSize),
			WithMinioUploadTimeout(cfg.UploadTimeout),
		)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
