package formdata

import "io"

const discardBufferSize = 8 << 10

// Part is a single part of a multipart body. Read yields exactly the body
// bytes of the part and io.EOF at its closing delimiter.
type Part struct {
	PartHeader

	r        *Reader
	size     int64
	eof      bool
	accepted bool
	skip     bool
}

var _ io.Reader = (*Part)(nil)

// Size returns the number of body bytes read so far.
func (p *Part) Size() int64 { return p.size }

// Accept registers a file part against the file-count limit.
// It is a no-op for fields and for files already accepted.
func (p *Part) Accept() error {
	if !p.IsFile() || p.accepted {
		return nil
	}
	if err := p.r.Err(); err != nil {
		return err
	}
	p.accepted = true
	if err := p.r.enforcer.acceptFile(p.Name); err != nil {
		return p.r.fail(err)
	}
	return nil
}

// Read reads body bytes of the part. Reading a file that was not accepted
// accepts it first. Size limits apply.
func (p *Part) Read(b []byte) (int, error) {
	if err := p.Accept(); err != nil {
		return 0, err
	}
	return p.r.readBody(p, b, true)
}

// Discard drains the remainder of the part without file accounting or size limits.
func (p *Part) Discard() error {
	buf := make([]byte, discardBufferSize)
	for {
		_, err := p.r.readBody(p, buf, false)
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
	}
}
