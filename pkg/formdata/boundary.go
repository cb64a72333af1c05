package formdata

import "strings"

// MediaType is the only media type accepted by ExtractBoundary.
const MediaType = "multipart/form-data"

// maxBoundaryLength is the RFC 2046 upper bound for a boundary token.
const maxBoundaryLength = 70

// ExtractBoundary returns the unquoted boundary token declared by a
// Content-Type header value.
//
// Example:
//
//	boundary, err := formdata.ExtractBoundary(r.Header.Get("Content-Type"))
//	if errors.Is(err, formdata.ErrInvalidBoundary) {
//		// no usable boundary parameter
//	}
func ExtractBoundary(contentType string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", newErrorf(CodeInvalidContentType, "missing content type")
	}

	mediaType, params, ok := parseParams(contentType)
	if mediaType != MediaType {
		return "", newErrorf(CodeInvalidContentType, "unsupported media type %q", mediaType)
	}
	if !ok {
		return "", newErrorf(CodeInvalidBoundary, "unterminated quoted parameter")
	}

	boundary := params["boundary"]
	switch {
	case boundary == "":
		return "", NewError(CodeInvalidBoundary, "")
	case len(boundary) > maxBoundaryLength:
		return "", newErrorf(CodeInvalidBoundary, "boundary exceeds %d bytes", maxBoundaryLength)
	}

	return boundary, nil
}
