// Package formdata implements a streaming multipart/form-data parser with
// inline resource limits.
//
// The parser never buffers a whole request body. It keeps a small window of
// input so that a boundary split across reads is still recognised, and it only
// reads from the source while the caller reads the current part.
//
// # Architecture
//
// The package consists of:
//   - ExtractBoundary and ParsePartHeaders: header codec for the request
//     Content-Type and the per-part header block
//   - Reader: a pull-based state machine yielding Part values in stream order
//   - Limits: resource bounds checked while parsing, never after the fact
//   - Error: a typed error with a closed set of machine-readable codes
//
// A part is a file if its Content-Disposition carries a filename parameter,
// even an empty one. Everything else is a field.
//
// # Usage
//
//	boundary, err := formdata.ExtractBoundary(r.Header.Get("Content-Type"))
//	if err != nil {
//		return err
//	}
//
//	mr := formdata.NewReader(r.Body, boundary, formdata.Limits{
//		FileSize: 10 << 20,
//		Files:    5,
//	})
//	for {
//		part, err := mr.NextPart()
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		if err != nil {
//			return err
//		}
//		if part.IsFile() {
//			// stream part somewhere
//			continue
//		}
//		value, err := io.ReadAll(part)
//		...
//	}
//
// # Limits
//
// A zero limit means unbounded. Size breaches deliver exactly the permitted
// bytes and then fail with LIMIT_FILE_SIZE or LIMIT_FIELD_VALUE. Count breaches
// fail on the first occurrence past the limit.
//
// Files are counted when accepted. Reading a file part accepts it implicitly;
// Part.Discard skips a file without counting it, which is how rejected files
// are dropped.
//
// # Error Handling
//
// Every failure is an *Error. Match codes with errors.Is against the exported
// sentinels:
//
//	if errors.Is(err, formdata.ErrLimitFileSize) {
//		// 413
//	}
//
// Errors are sticky: once the Reader fails, all later calls return the same error.
package formdata
