package file

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Info describes an incoming file before it is stored.
// Stream is consumed exactly once and cannot be rewound.
type Info struct {
	FieldName    string
	OriginalName string
	MIMEType     string
	Header       textproto.MIMEHeader
	Stream       io.Reader
}

// File is the record of a stored file. Engines fill the fields that apply to them.
type File struct {
	FieldName    string
	OriginalName string
	MIMEType     string
	Size         int64

	// Disk storage
	Destination string
	Filename    string
	Path        string

	// Memory storage
	Buffer []byte

	// Object stores
	Bucket   string
	Key      string
	Location string
	ETag     string

	// Extra properties reported by custom engines
	Metadata map[string]any
}

// Storage is the contract every storage engine implements.
type Storage interface {
	// HandleFile consumes info.Stream and returns the stored file record.
	HandleFile(ctx context.Context, info *Info) (*File, error)
	// RemoveFile deletes a file previously returned by HandleFile.
	RemoveFile(ctx context.Context, f *File) error
}

// KeyFunc generates an object key or file name for an incoming file.
type KeyFunc func(ctx context.Context, info *Info) (string, error)

// PrefixedKey returns a KeyFunc producing
// "<prefix><unix-ms>-<random>-<sanitized name>". The random part keeps keys
// unique when the same name is uploaded twice within a millisecond.
//
// Example:
//
//	keys := file.PrefixedKey("uploads/") // uploads/1718000000000-9b2f4c1a-report.pdf
func PrefixedKey(prefix string) KeyFunc {
	return func(_ context.Context, info *Info) (string, error) {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		return fmt.Sprintf("%s%d-%s-%s", prefix, time.Now().UnixMilli(), id, SanitizeFilename(info.OriginalName)), nil
	}
}

var (
	imageMIMETypes = map[string]bool{
		"image/jpeg":    true,
		"image/jpg":     true,
		"image/png":     true,
		"image/gif":     true,
		"image/webp":    true,
		"image/svg+xml": true,
		"image/bmp":     true,
		"image/tiff":    true,
		"image/heic":    true,
		"image/heif":    true,
		"image/avif":    true,
		"image/jxl":     true,
	}

	videoMIMETypes = map[string]bool{
		"video/mp4":        true,
		"video/mpeg":       true,
		"video/ogg":        true,
		"video/webm":       true,
		"video/quicktime":  true,
		"video/x-msvideo":  true,
		"video/x-flv":      true,
		"video/3gpp":       true,
		"video/x-matroska": true,
		"video/av1":        true,
	}

	audioMIMETypes = map[string]bool{
		"audio/mpeg":   true,
		"audio/ogg":    true,
		"audio/wav":    true,
		"audio/wave":   true,
		"audio/webm":   true,
		"audio/aac":    true,
		"audio/mp4":    true,
		"audio/x-m4a":  true,
		"audio/m4a":    true,
		"audio/opus":   true,
		"audio/flac":   true,
		"audio/x-flac": true,
		"audio/3gpp":   true,
		"audio/3gpp2":  true,
	}
)

// BaseMIMEType strips parameters from a declared MIME type and lowercases it.
//
// Example:
//
//	file.BaseMIMEType("Image/PNG; charset=binary") // "image/png"
func BaseMIMEType(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsImage reports whether the declared MIME type is an image type.
// The type is the one the client declared; it is not sniffed from content.
func IsImage(mimeType string) bool {
	return imageMIMETypes[BaseMIMEType(mimeType)]
}

// IsVideo reports whether the declared MIME type is a video type.
func IsVideo(mimeType string) bool {
	return videoMIMETypes[BaseMIMEType(mimeType)]
}

// IsAudio reports whether the declared MIME type is an audio type.
func IsAudio(mimeType string) bool {
	return audioMIMETypes[BaseMIMEType(mimeType)]
}

// IsPDF reports whether the declared MIME type is PDF.
func IsPDF(mimeType string) bool {
	return BaseMIMEType(mimeType) == "application/pdf"
}

// SanitizeFilename removes any path components and dangerous characters from a filename
// to prevent path traversal attacks and other security issues.
// Returns "unnamed" for empty or special directory references.
//
// Example:
//
//	safe := file.SanitizeFilename("../../../etc/passwd") // Returns "passwd"
//	safe = file.SanitizeFilename("C:\\Windows\\file.txt") // Returns "file.txt"
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	filename = filepath.Base(filename)
	filename = strings.ReplaceAll(filename, "\x00", "")

	if filename == "." || filename == ".." || filename == "" || filename == "/" {
		filename = "unnamed"
	}

	return filename
}

// copyWithContext copies src into dst, checking for cancellation between chunks.
// Read and write failures are wrapped with the matching sentinel.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	written := int64(0)
	buf := make([]byte, 32*1024) // 32KB balances memory usage and syscall overhead
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)
			if writeErr != nil {
				return written, fmt.Errorf("%w: %v", ErrFailedToWriteFile, writeErr)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("%w: %w", ErrFailedToReadFile, readErr)
		}
	}
}

// validKey rejects empty object keys and keys with parent directory segments.
func validKey(key string) bool {
	if key == "" {
		return false
	}
	for seg := range strings.SplitSeq(key, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

func validateInfo(info *Info) error {
	if info == nil {
		return ErrNilInfo
	}
	if info.Stream == nil {
		return ErrNilStream
	}
	return nil
}

// record builds the engine-independent part of a File.
func record(info *Info, size int64) *File {
	return &File{
		FieldName:    info.FieldName,
		OriginalName: info.OriginalName,
		MIMEType:     info.MIMEType,
		Size:         size,
	}
}
