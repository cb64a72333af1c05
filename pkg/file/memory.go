package file

import (
	"bytes"
	"context"
)

// MemoryStorage keeps file contents in File.Buffer.
// Nothing outlives the returned record, so RemoveFile only releases the buffer.
type MemoryStorage struct{}

// NewMemoryStorage creates an in-memory storage engine.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// HandleFile reads the whole stream into memory.
func (s *MemoryStorage) HandleFile(ctx context.Context, info *Info) (*File, error) {
	if err := validateInfo(info); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	n, err := copyWithContext(ctx, &buf, info.Stream)
	if err != nil {
		return nil, err
	}

	f := record(info, n)
	f.Buffer = buf.Bytes()
	return f, nil
}

// RemoveFile drops the buffer held by f.
func (s *MemoryStorage) RemoveFile(_ context.Context, f *File) error {
	if f == nil {
		return ErrNilFile
	}
	f.Buffer = nil
	return nil
}
