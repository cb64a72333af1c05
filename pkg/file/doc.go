// Package file provides the storage contract for uploaded files and the
// storage engines that implement it.
//
// Every engine receives an Info describing one incoming file, consumes its
// non-restartable Stream and returns a File record. The same engine removes
// that record again when an upload has to be rolled back.
//
// # Architecture
//
// The package is built around the Storage interface:
//   - HandleFile: store one incoming stream and describe the result
//   - RemoveFile: undo a previous HandleFile
//
// Four implementations are provided:
//   - MemoryStorage: keeps contents in File.Buffer
//   - LocalStorage: writes into a base directory, confined against path traversal
//   - S3Storage: spools to a temporary file and uploads with aws-sdk-go-v2
//   - MinioStorage: streams a multipart upload of unknown size to any
//     S3-compatible service through minio-go
//
// # Usage
//
// Disk storage with the default random file names:
//
//	import "github.com/dmitrymomot/uploadkit/pkg/file"
//
//	storage, err := file.NewLocalStorage("/var/uploads",
//		file.WithDestination(func(ctx context.Context, info *file.Info) (string, error) {
//			return info.FieldName, nil
//		}),
//	)
//
// Selecting an engine from the environment:
//
//	var cfg file.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	storage, err := file.NewFromConfig(ctx, cfg)
//
// Custom engines implement Storage directly and may report extra properties
// through File.Metadata.
//
// # Error Handling
//
// Errors wrap package sentinels such as ErrInvalidPath, ErrFileNotFound or
// ErrAccessDenied. Object store failures are classified into these sentinels.
//
//	if errors.Is(err, file.ErrBucketNotFound) {
//		// misconfigured bucket
//	}
package file
