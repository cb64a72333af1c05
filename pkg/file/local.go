package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage stores files on the local filesystem.
// All operations are confined to baseDir to prevent path traversal attacks.
// Safe for concurrent use.
type LocalStorage struct {
	baseDir       string        // Absolute path - all files stored within this directory
	destination   KeyFunc       // Directory relative to baseDir
	filename      KeyFunc       // File name inside the destination
	uploadTimeout time.Duration // Optional timeout to prevent hanging uploads
}

// LocalOption defines a function that configures LocalStorage.
type LocalOption func(*LocalStorage)

// WithDestination sets the function choosing the directory, relative to the
// base directory, a file is written to.
func WithDestination(fn KeyFunc) LocalOption {
	return func(s *LocalStorage) {
		s.destination = fn
	}
}

// WithFilename sets the function naming stored files.
// The result is reduced to its base name before use.
func WithFilename(fn KeyFunc) LocalOption {
	return func(s *LocalStorage) {
		s.filename = fn
	}
}

// WithLocalUploadTimeout sets the timeout for upload operations.
// If not set, relies on context deadline from caller.
func WithLocalUploadTimeout(timeout time.Duration) LocalOption {
	return func(s *LocalStorage) {
		s.uploadTimeout = timeout
	}
}

// RandomFilename names files with 32 random hex characters and no extension.
func RandomFilename(context.Context, *Info) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToGenerateName, err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// OriginalFilename keeps the sanitized client file name.
func OriginalFilename(_ context.Context, info *Info) (string, error) {
	return SanitizeFilename(info.OriginalName), nil
}

// NewLocalStorage creates a new local filesystem storage.
// baseDir is resolved to absolute path and created if it doesn't exist.
func NewLocalStorage(baseDir string, opts ...LocalOption) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, ErrInvalidConfig
	}

	absBaseDir, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve base directory: %v", ErrFailedToGetAbsolutePath, err)
	}

	if err := os.MkdirAll(absBaseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	s := &LocalStorage{
		baseDir:  absBaseDir,
		filename: RandomFilename,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// HandleFile streams the file to disk. The partial file is removed when the
// copy fails.
func (s *LocalStorage) HandleFile(ctx context.Context, info *Info) (*File, error) {
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := validateInfo(info); err != nil {
		return nil, err
	}

	dest := ""
	if s.destination != nil {
		var err error
		if dest, err = s.destination(ctx, info); err != nil {
			return nil, err
		}
	}

	name, err := s.filename(ctx, info)
	if err != nil {
		return nil, err
	}
	name = SanitizeFilename(name)

	absPath, err := s.resolvePath(filepath.Join(dest, name))
	if err != nil {
		return nil, err
	}

	fileDir := filepath.Dir(absPath)
	if err := os.MkdirAll(fileDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateDirectory, err)
	}

	dst, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedToCreateFile, err)
	}

	written, err := copyWithContext(ctx, dst, info.Stream)
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("%w: %v", ErrFailedToWriteFile, closeErr)
	}
	if err != nil {
		_ = os.Remove(absPath) // Clean up partial file
		return nil, err
	}

	f := record(info, written)
	f.Destination = fileDir
	f.Filename = name
	f.Path = absPath
	return f, nil
}

// RemoveFile deletes a file previously stored by HandleFile.
func (s *LocalStorage) RemoveFile(ctx context.Context, f *File) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if f == nil {
		return ErrNilFile
	}

	rel, err := filepath.Rel(s.baseDir, f.Path)
	if err != nil || !filepath.IsAbs(f.Path) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, f.Path)
	}
	absPath, err := s.resolvePath(rel)
	if err != nil {
		return err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, f.Path)
		}
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsDirectory, f.Path)
	}

	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToDeleteFile, err)
	}

	return nil
}

// resolvePath validates and resolves a path within the base directory.
// Ensures all resolved paths stay within baseDir bounds using string prefix checking.
func (s *LocalStorage) resolvePath(path string) (string, error) {
	path = filepath.Clean(path)
	absPath := filepath.Join(s.baseDir, path)

	absPath, err := filepath.Abs(absPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFailedToGetAbsolutePath, err)
	}

	if !strings.HasPrefix(absPath, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}

	return absPath, nil
}
