package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

// FileFilter decides whether a file is stored. Returning false skips the file
// silently; returning an error fails the whole request.
// info.Stream is nil when the filter runs.
type FileFilter func(ctx context.Context, info *file.Info) (bool, error)

// RejectedError is returned by filters that fail the request instead of
// skipping the file.
type RejectedError struct {
	Field    string
	Filename string
	Reason   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("file %q in field %q rejected: %s", e.Filename, e.Field, e.Reason)
}

// AllowMIMETypes skips files whose declared type is not listed.
// Entries ending in "/*" match a whole family, e.g. "image/*".
func AllowMIMETypes(types ...string) FileFilter {
	allowed := make([]string, 0, len(types))
	for _, t := range types {
		allowed = append(allowed, strings.ToLower(strings.TrimSpace(t)))
	}
	return func(_ context.Context, info *file.Info) (bool, error) {
		mt := file.BaseMIMEType(info.MIMEType)
		for _, t := range allowed {
			if family, ok := strings.CutSuffix(t, "/*"); ok {
				if strings.HasPrefix(mt, family+"/") {
					return true, nil
				}
				continue
			}
			if t == mt {
				return true, nil
			}
		}
		return false, nil
	}
}

// ImagesOnly skips every file not declared as an image.
func ImagesOnly() FileFilter {
	return func(_ context.Context, info *file.Info) (bool, error) {
		return file.IsImage(info.MIMEType), nil
	}
}

// AllowExtensions skips files whose client name has none of exts.
// Matching is case-insensitive and the leading dot is optional.
func AllowExtensions(exts ...string) FileFilter {
	allowed := make([]string, 0, len(exts))
	for _, e := range exts {
		allowed = append(allowed, "."+strings.TrimPrefix(strings.ToLower(e), "."))
	}
	return func(_ context.Context, info *file.Info) (bool, error) {
		return slices.Contains(allowed, strings.ToLower(filepath.Ext(info.OriginalName))), nil
	}
}

// Strict turns a skip into a *RejectedError so the request fails.
func Strict(f FileFilter, reason string) FileFilter {
	return func(ctx context.Context, info *file.Info) (bool, error) {
		ok, err := f(ctx, info)
		if err != nil || ok {
			return ok, err
		}
		return false, &RejectedError{Field: info.FieldName, Filename: info.OriginalName, Reason: reason}
	}
}

// All accepts a file only when every filter does. Filters run in order and
// stop at the first skip or error.
func All(filters ...FileFilter) FileFilter {
	return func(ctx context.Context, info *file.Info) (bool, error) {
		for _, f := range filters {
			ok, err := f(ctx, info)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}
