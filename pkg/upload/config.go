package upload

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/dmitrymomot/uploadkit/pkg/formdata"
)

// ByteSize is a byte count parsed from human-readable text such as "10MB",
// "512 KiB" or "1048576".
type ByteSize int64

// UnmarshalText implements encoding.TextUnmarshaler so ByteSize can be used
// in env-tagged config structs.
func (b *ByteSize) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*b = 0
		return nil
	}
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return fmt.Errorf("invalid byte size %q: %w", text, err)
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(max(b, 0)))
}

// Config holds upload limits loaded from the environment.
// Zero disables a limit.
type Config struct {
	FieldNameSize ByteSize `env:"UPLOAD_FIELD_NAME_SIZE" envDefault:"100B"`
	FieldSize     ByteSize `env:"UPLOAD_FIELD_SIZE" envDefault:"1MiB"`
	Fields        int64    `env:"UPLOAD_MAX_FIELDS" envDefault:"0"`
	FileSize      ByteSize `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"0"`
	Files         int64    `env:"UPLOAD_MAX_FILES" envDefault:"0"`
	Parts         int64    `env:"UPLOAD_MAX_PARTS" envDefault:"0"`
	HeaderPairs   int64    `env:"UPLOAD_HEADER_PAIRS" envDefault:"2000"`

	// PreserveContext exposes request context values to filters and storage.
	PreserveContext bool `env:"UPLOAD_PRESERVE_CONTEXT" envDefault:"true"`
}

// Limits converts the configuration to parser limits.
func (c Config) Limits() formdata.Limits {
	return formdata.Limits{
		FieldNameSize: int64(c.FieldNameSize),
		FieldSize:     int64(c.FieldSize),
		Fields:        c.Fields,
		FileSize:      int64(c.FileSize),
		Files:         c.Files,
		Parts:         c.Parts,
		HeaderPairs:   c.HeaderPairs,
	}
}

// WithConfig applies limits and context preservation from cfg.
func WithConfig(cfg Config) Option {
	return func(u *Uploader) {
		u.limits = cfg.Limits()
		u.preserveContext = cfg.PreserveContext
	}
}
