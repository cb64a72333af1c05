package formdata_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/pkg/formdata"
)

const testBoundary = "X-BOUNDARY-7d8a2c"

type testPart struct {
	name        string
	filename    string
	file        bool
	contentType string
	extra       []string
	body        string
}

func field(name, value string) testPart {
	return testPart{name: name, body: value}
}

func fileField(name, filename, contentType, body string) testPart {
	return testPart{name: name, filename: filename, file: true, contentType: contentType, body: body}
}

// buildBody renders parts into a multipart body framed with boundary.
func buildBody(boundary string, parts ...testPart) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("--" + boundary + "\r\n")
		cd := `Content-Disposition: form-data; name="` + p.name + `"`
		if p.file {
			cd += `; filename="` + p.filename + `"`
		}
		b.WriteString(cd + "\r\n")
		if p.contentType != "" {
			b.WriteString("Content-Type: " + p.contentType + "\r\n")
		}
		for _, h := range p.extra {
			b.WriteString(h + "\r\n")
		}
		b.WriteString("\r\n")
		b.WriteString(p.body)
		b.WriteString("\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return b.String()
}

type collectedPart struct {
	Name        string
	Filename    string
	IsFile      bool
	ContentType string
	Body        string
}

// collect reads every part of src and returns them in order.
func collect(t *testing.T, src io.Reader, limits formdata.Limits) ([]collectedPart, error) {
	t.Helper()

	mr := formdata.NewReader(src, testBoundary, limits)
	var out []collectedPart
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		body, err := io.ReadAll(part)
		out = append(out, collectedPart{
			Name:        part.Name,
			Filename:    part.Filename,
			IsFile:      part.IsFile(),
			ContentType: part.ContentType,
			Body:        string(body),
		})
		if err != nil {
			return out, err
		}
	}
}

// chunkReader returns at most n bytes per Read.
type chunkReader struct {
	r io.Reader
	n int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > c.n {
		p = p[:c.n]
	}
	return c.r.Read(p)
}

// countingReader counts bytes pulled from the underlying reader.
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func requireCode(t *testing.T, err error, code formdata.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, formdata.CodeOf(err), "unexpected error: %v", err)
}
