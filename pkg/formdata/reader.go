package formdata

import (
	"bytes"
	"errors"
	"io"
)

type state int

const (
	stateSeekingFirstBoundary state = iota
	stateReadingHeaders
	stateReadingBody
	stateDone
	stateError
)

const (
	defaultBufferSize  = 32 << 10
	maxHeaderBlockSize = 80 << 10
)

var (
	crlf       = []byte("\r\n")
	doubleCRLF = []byte("\r\n\r\n")
)

// Reader is a streaming multipart/form-data parser.
// It pulls from the source only when the current part is read, so a slow
// consumer of a part slows down reading from the source as well.
// Reader is not safe for concurrent use.
type Reader struct {
	src      io.Reader
	store    []byte
	off, end int
	srcEOF   bool

	state        state
	dashBoundary []byte // "--" + boundary
	delimiter    []byte // "\r\n--" + boundary
	enforcer     *enforcer
	current      *Part
	err          error
}

// NewReader returns a Reader for a body framed with boundary, as returned by
// ExtractBoundary, enforcing limits while parsing.
func NewReader(src io.Reader, boundary string, limits Limits) *Reader {
	return &Reader{
		src:          src,
		store:        make([]byte, defaultBufferSize),
		dashBoundary: []byte("--" + boundary),
		delimiter:    []byte("\r\n--" + boundary),
		enforcer:     newEnforcer(limits),
	}
}

// NextPart returns the next part in stream order. Any unread remainder of the
// previous part is discarded. It returns io.EOF after the closing boundary.
// Once an error is returned, every later call returns the same error.
func (r *Reader) NextPart() (*Part, error) {
	if p := r.current; p != nil && !p.eof {
		if err := p.Discard(); err != nil {
			return nil, err
		}
	}
	r.current = nil

	for {
		switch r.state {
		case stateError:
			return nil, r.err
		case stateDone:
			return nil, io.EOF
		case stateSeekingFirstBoundary:
			if err := r.seekFirstBoundary(); err != nil {
				return nil, err
			}
		case stateReadingHeaders:
			p, skip, err := r.readHeaders()
			if err != nil {
				return nil, err
			}
			if skip {
				if err := p.Discard(); err != nil {
					return nil, err
				}
				continue
			}
			return p, nil
		default:
			return nil, r.fail(newErrorf(CodeMalformedBoundary, "parser in unexpected state"))
		}
	}
}

// Err returns the terminal error of the parse, if any.
func (r *Reader) Err() error {
	if r.state == stateError {
		return r.err
	}
	return nil
}

func (r *Reader) pending() []byte { return r.store[r.off:r.end] }

func (r *Reader) consume(n int) {
	r.off += n
	if r.off >= r.end {
		r.off, r.end = 0, 0
	}
}

// fill reads more bytes from the source. It returns io.EOF once the source
// is exhausted and nothing new arrived.
func (r *Reader) fill() error {
	if r.srcEOF {
		return io.EOF
	}

	if r.end == len(r.store) {
		if r.off > 0 {
			r.end = copy(r.store, r.store[r.off:r.end])
			r.off = 0
		} else {
			grown := make([]byte, 2*len(r.store))
			copy(grown, r.store[:r.end])
			r.store = grown
		}
	}

	n, err := r.src.Read(r.store[r.end:])
	r.end += n
	switch {
	case errors.Is(err, io.EOF):
		r.srcEOF = true
		if n == 0 {
			return io.EOF
		}
		return nil
	case err != nil:
		return err
	}
	return nil
}

// fail moves the parser into the terminal error state and drops buffered input.
func (r *Reader) fail(err error) error {
	if r.state == stateError {
		return r.err
	}
	r.state = stateError
	r.err = err
	r.off, r.end = 0, 0
	r.current = nil
	return err
}

func (r *Reader) abort(cause error) error {
	if errors.Is(cause, io.EOF) {
		cause = io.ErrUnexpectedEOF
	}
	var e *Error
	if errors.As(cause, &e) {
		return r.fail(e)
	}
	return r.fail(&Error{Code: CodeStreamAborted, Message: messages[CodeStreamAborted], Err: cause})
}

func (r *Reader) seekFirstBoundary() error {
	for {
		data := r.pending()
		if i := bytes.Index(data, r.dashBoundary); i >= 0 {
			after := i + len(r.dashBoundary)
			if len(data) < after+2 {
				if err := r.fill(); err != nil {
					return r.seekFailed(err)
				}
				continue
			}

			switch {
			case data[after] == '\r' && data[after+1] == '\n':
				r.consume(after + 2)
				r.state = stateReadingHeaders
				return nil
			case data[after] == '-' && data[after+1] == '-':
				r.consume(len(data))
				r.state = stateDone
				return nil
			}

			// preamble text that merely starts like the boundary
			r.consume(i + 1)
			continue
		}

		if keep := len(r.dashBoundary) - 1; len(data) > keep {
			r.consume(len(data) - keep)
		}
		if err := r.fill(); err != nil {
			return r.seekFailed(err)
		}
	}
}

func (r *Reader) seekFailed(err error) error {
	if errors.Is(err, io.EOF) {
		return r.fail(newErrorf(CodeInvalidBoundary, "opening boundary not found"))
	}
	return r.abort(err)
}

// readHeaders parses the next header block and opens a part for it.
// skip is true for parts that carry no field name; they are counted but never emitted.
func (r *Reader) readHeaders() (p *Part, skip bool, err error) {
	r.enforcer.startHeaders()

	for {
		data := r.pending()

		var block []byte
		n := -1
		if bytes.HasPrefix(data, crlf) {
			n = len(crlf)
		} else if i := bytes.Index(data, doubleCRLF); i >= 0 {
			block, n = data[:i], i+len(doubleCRLF)
		}

		if n < 0 {
			if len(data) > maxHeaderBlockSize {
				return nil, false, r.fail(newErrorf(CodeMalformedHeaders, "header block exceeds %d bytes", maxHeaderBlockSize))
			}
			if err := r.fill(); err != nil {
				return nil, false, r.abort(err)
			}
			continue
		}

		if err := r.enforcer.openPart(); err != nil {
			return nil, false, r.fail(err)
		}

		ph, err := parsePartHeaders(block, r.enforcer.headerPair)
		r.consume(n)

		p = &Part{r: r}
		if err != nil {
			if !errors.Is(err, errNoFieldName) {
				return nil, false, r.fail(err)
			}
			p.skip = true
		} else {
			p.PartHeader = *ph
			if err := r.enforcer.fieldName(ph.Name); err != nil {
				return nil, false, r.fail(err)
			}
			if !ph.IsFile() {
				if err := r.enforcer.openField(ph.Name); err != nil {
					return nil, false, r.fail(err)
				}
			}
		}

		r.current = p
		r.state = stateReadingBody
		return p, p.skip, nil
	}
}

// readBody copies body bytes of p into b. Bytes that might belong to a
// delimiter split across reads are retained until they are resolved.
// With account set, the size limits of p are enforced.
func (r *Reader) readBody(p *Part, b []byte, account bool) (int, error) {
	if p.eof {
		return 0, io.EOF
	}
	if r.state == stateError {
		return 0, r.err
	}
	if len(b) == 0 {
		return 0, nil
	}

	for {
		data := r.pending()
		i := bytes.Index(data, r.delimiter)

		if i == 0 {
			end := len(r.delimiter)
			if len(data) < end+2 {
				if err := r.fill(); err != nil {
					return 0, r.abort(err)
				}
				continue
			}

			switch {
			case data[end] == '-' && data[end+1] == '-':
				r.consume(len(data))
				r.state = stateDone
			case data[end] == '\r' && data[end+1] == '\n':
				r.consume(end + 2)
				r.state = stateReadingHeaders
			default:
				return 0, r.fail(NewError(CodeMalformedBoundary, p.Name))
			}

			p.eof = true
			r.current = nil
			return 0, io.EOF
		}

		avail := i
		if i < 0 {
			avail = len(data) - (len(r.delimiter) - 1)
		}
		if avail <= 0 {
			if err := r.fill(); err != nil {
				return 0, r.abort(err)
			}
			continue
		}

		n := min(avail, len(b))
		var limitErr error
		if account {
			if allow := r.enforcer.allowance(p); allow >= 0 && int64(n) > allow {
				n = int(allow)
				limitErr = r.enforcer.sizeError(p)
			}
		}

		copy(b, data[:n])
		p.size += int64(n)
		r.consume(n)

		if limitErr != nil {
			return n, r.fail(limitErr)
		}
		return n, nil
	}
}
