package upload

import (
	"net/url"

	"github.com/dmitrymomot/uploadkit/pkg/file"
)

// Result is the outcome of a successful parse.
type Result struct {
	// Body holds text fields in stream order; repeated names keep every value.
	Body url.Values
	// File is set by Single when a file was sent.
	File *file.File
	// Files lists files accepted by Array and Any in stream order.
	Files []*file.File
	// FileFields maps field names to files accepted by Fields.
	FileFields map[string][]*file.File
}

func newResult() *Result {
	return &Result{Body: make(url.Values)}
}

func (r *Result) add(m mode, name string, f *file.File) {
	switch m {
	case modeSingle:
		r.File = f
	case modeFields:
		if r.FileFields == nil {
			r.FileFields = make(map[string][]*file.File)
		}
		r.FileFields[name] = append(r.FileFields[name], f)
	default:
		r.Files = append(r.Files, f)
	}
}

// All returns every stored file regardless of the handler that produced the result.
func (r *Result) All() []*file.File {
	all := make([]*file.File, 0, r.count())
	if r.File != nil {
		all = append(all, r.File)
	}
	all = append(all, r.Files...)
	for _, fs := range r.FileFields {
		all = append(all, fs...)
	}
	return all
}

func (r *Result) count() int {
	n := len(r.Files)
	if r.File != nil {
		n++
	}
	for _, fs := range r.FileFields {
		n += len(fs)
	}
	return n
}
