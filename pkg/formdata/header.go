package formdata

import (
	"bytes"
	"errors"
	"net/textproto"
	"strings"
)

// defaultPartContentType is the RFC 7578 default for parts without a Content-Type.
const defaultPartContentType = "text/plain"

// errNoFieldName marks header blocks that cannot be attributed to a form field.
var errNoFieldName = errors.New("part has no field name")

// PartHeader is the parsed header block of a single part.
type PartHeader struct {
	Header      textproto.MIMEHeader
	Name        string
	Filename    string
	HasFilename bool // a filename parameter was present, even if empty
	ContentType string
}

// IsFile reports whether the part carries a file.
func (h *PartHeader) IsFile() bool { return h.HasFilename }

// ParsePartHeaders parses a raw part header block (without the terminating blank line).
// Field and file names keep their bytes verbatim; only quoting, backslash escapes
// and RFC 5987 extended parameters are decoded.
func ParsePartHeaders(raw []byte) (*PartHeader, error) {
	return parsePartHeaders(raw, nil)
}

func parsePartHeaders(raw []byte, onPair func() error) (*PartHeader, error) {
	h, err := parseHeaderBlock(raw, onPair)
	if err != nil {
		return nil, err
	}

	cd := h.Get("Content-Disposition")
	if cd == "" {
		return nil, noFieldName("missing Content-Disposition")
	}

	disposition, params, ok := parseParams(cd)
	if !ok {
		return nil, newErrorf(CodeMalformedHeaders, "unterminated quoted parameter in Content-Disposition")
	}
	if disposition != "form-data" {
		return nil, noFieldName("unsupported disposition " + disposition)
	}

	name, ok := params["name"]
	if !ok {
		return nil, noFieldName("Content-Disposition has no name parameter")
	}

	ph := &PartHeader{
		Header:      h,
		Name:        name,
		ContentType: h.Get("Content-Type"),
	}
	if ph.ContentType == "" {
		ph.ContentType = defaultPartContentType
	}

	if filename, ok := params["filename"]; ok {
		ph.Filename = filename
		ph.HasFilename = true
	}
	if ext, ok := params["filename*"]; ok {
		if decoded, ok := decodeExtValue(ext); ok {
			ph.Filename = decoded
			ph.HasFilename = true
		}
	}

	return ph, nil
}

func noFieldName(msg string) *Error {
	return &Error{Code: CodeMalformedHeaders, Message: msg, Err: errNoFieldName}
}

// parseHeaderBlock splits a header block into canonicalised MIME header pairs.
// onPair, when set, is invoked once per header line before it is stored.
func parseHeaderBlock(raw []byte, onPair func() error) (textproto.MIMEHeader, error) {
	h := make(textproto.MIMEHeader)
	var lastKey string

	for line := range bytes.SplitSeq(raw, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}

		// obsolete line folding
		if line[0] == ' ' || line[0] == '\t' {
			if lastKey == "" {
				return nil, newErrorf(CodeMalformedHeaders, "continuation line without header")
			}
			values := h[lastKey]
			values[len(values)-1] += " " + strings.TrimSpace(string(line))
			continue
		}

		key, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			return nil, newErrorf(CodeMalformedHeaders, "header line without colon")
		}
		name := strings.TrimSpace(string(key))
		if name == "" {
			return nil, newErrorf(CodeMalformedHeaders, "empty header name")
		}

		if onPair != nil {
			if err := onPair(); err != nil {
				return nil, err
			}
		}

		lastKey = textproto.CanonicalMIMEHeaderKey(name)
		h[lastKey] = append(h[lastKey], strings.TrimSpace(string(value)))
	}

	return h, nil
}
