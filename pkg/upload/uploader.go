package upload

import (
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/formdata"
)

// Default limits applied when WithLimits is not used.
// Counts and file sizes stay unbounded; names, field values and header lines
// are capped so a field-only request cannot grow memory without bound.
const (
	DefaultFieldNameSize = 100
	DefaultFieldSize     = 1 << 20
	DefaultHeaderPairs   = 2000
)

// DefaultLimits returns the limits used by an Uploader without WithLimits.
func DefaultLimits() formdata.Limits {
	return formdata.Limits{
		FieldNameSize: DefaultFieldNameSize,
		FieldSize:     DefaultFieldSize,
		HeaderPairs:   DefaultHeaderPairs,
	}
}

// Uploader holds the configuration shared by all handlers it creates.
// It is immutable after New and safe for concurrent use.
type Uploader struct {
	storage         file.Storage
	limits          formdata.Limits
	filter          FileFilter
	preserveContext bool
	logger          *slog.Logger
	errorHandler    ErrorHandler
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithStorage sets the engine receiving accepted files.
func WithStorage(s file.Storage) Option {
	return func(u *Uploader) {
		if s != nil {
			u.storage = s
		}
	}
}

// WithDest stores files on disk under dir with random names.
// Panics when dir cannot be created so misconfiguration fails at startup.
func WithDest(dir string, opts ...file.LocalOption) Option {
	return func(u *Uploader) {
		s, err := file.NewLocalStorage(dir, opts...)
		if err != nil {
			panic(fmt.Errorf("upload: destination %q: %w", dir, err))
		}
		u.storage = s
	}
}

// WithLimits replaces the default limits. Zero dimensions are unbounded.
func WithLimits(l formdata.Limits) Option {
	return func(u *Uploader) {
		u.limits = l
	}
}

// WithFileFilter sets the predicate deciding which files are stored.
func WithFileFilter(f FileFilter) Option {
	return func(u *Uploader) {
		u.filter = f
	}
}

// WithPreserveContext controls whether filters and storage engines see the
// request context values. When disabled they receive a context that is still
// canceled with the request but carries no values. Enabled by default.
func WithPreserveContext(preserve bool) Option {
	return func(u *Uploader) {
		u.preserveContext = preserve
	}
}

// WithLogger sets the logger for rejected requests, stored files and rollback
// failures. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithErrorHandler sets the function Middleware calls when parsing fails.
func WithErrorHandler(h ErrorHandler) Option {
	return func(u *Uploader) {
		if h != nil {
			u.errorHandler = h
		}
	}
}

// New creates an Uploader. Without options files are kept in memory, the
// default limits apply and nothing is logged.
func New(opts ...Option) *Uploader {
	u := &Uploader{
		storage:         file.NewMemoryStorage(),
		limits:          DefaultLimits(),
		preserveContext: true,
		logger:          slog.New(slog.DiscardHandler),
		errorHandler:    DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Field declares a file field accepted by Fields.
// MaxCount <= 0 leaves the field bounded only by Limits.Files.
type Field struct {
	Name     string
	MaxCount int
}

// Single accepts at most one file, under name. The file is reported in Result.File.
func (u *Uploader) Single(name string) *Handler {
	return u.handler(modeSingle, Field{Name: name, MaxCount: 1})
}

// Array accepts up to maxCount files under name, reported in Result.Files in
// stream order. An extra file fails with LIMIT_UNEXPECTED_FILE.
func (u *Uploader) Array(name string, maxCount int) *Handler {
	return u.handler(modeArray, Field{Name: name, MaxCount: maxCount})
}

// Fields accepts files under each declared name, reported in Result.FileFields.
// When a name is declared twice the first declaration applies.
func (u *Uploader) Fields(fields ...Field) *Handler {
	return u.handler(modeFields, fields...)
}

// Any accepts files under every name, reported in Result.Files.
func (u *Uploader) Any() *Handler {
	return u.handler(modeAny)
}

// None accepts text fields only; any file part fails the request.
func (u *Uploader) None() *Handler {
	return u.handler(modeNone)
}

func (u *Uploader) handler(m mode, fields ...Field) *Handler {
	h := &Handler{u: u, mode: m, fields: make(map[string]int, len(fields))}
	for _, f := range fields {
		if _, dup := h.fields[f.Name]; dup {
			continue // first registration wins
		}
		h.fields[f.Name] = max(f.MaxCount, 0)
	}
	return h
}
