package upload_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/requestid"
)

type formPart struct {
	name        string
	filename    string
	contentType string
	body        string
	isFile      bool
}

func field(name, value string) formPart {
	return formPart{name: name, body: value}
}

func upFile(name, filename, contentType, body string) formPart {
	return formPart{name: name, filename: filename, contentType: contentType, body: body, isFile: true}
}

// encode builds a multipart body and returns it with its Content-Type.
func encode(t *testing.T, parts ...formPart) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		disposition := fmt.Sprintf(`form-data; name=%q`, p.name)
		if p.isFile {
			disposition += fmt.Sprintf(`; filename=%q`, p.filename)
			if p.contentType != "" {
				h.Set("Content-Type", p.contentType)
			}
		}
		h.Set("Content-Disposition", disposition)

		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(pw, p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func newRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	body, contentType := encode(t, parts...)
	r := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewReader(body))
	r.Header.Set("Content-Type", contentType)
	return r
}

func bufferOf(f *file.File) string {
	if f == nil {
		return ""
	}
	return string(f.Buffer)
}

// spyStorage stores files in memory and records what the handler asked of it.
type spyStorage struct {
	mem *file.MemoryStorage

	mu         sync.Mutex
	handled    []string // field/original name of every HandleFile call
	removed    []*file.File
	removeErrs []error // ctx.Err() observed by each RemoveFile call
	requestIDs []string
	failOn     string // OriginalName that makes HandleFile fail after draining
}

func newSpyStorage() *spyStorage {
	return &spyStorage{mem: file.NewMemoryStorage()}
}

var errStorageFailed = errors.New("storage failed")

func (s *spyStorage) HandleFile(ctx context.Context, info *file.Info) (*file.File, error) {
	s.mu.Lock()
	s.handled = append(s.handled, info.FieldName+"/"+info.OriginalName)
	s.requestIDs = append(s.requestIDs, requestid.FromContext(ctx))
	s.mu.Unlock()

	f, err := s.mem.HandleFile(ctx, info)
	if err != nil {
		return nil, err
	}
	if s.failOn != "" && info.OriginalName == s.failOn {
		return nil, errStorageFailed
	}
	return f, nil
}

func (s *spyStorage) RemoveFile(ctx context.Context, f *file.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, f)
	s.removeErrs = append(s.removeErrs, ctx.Err())
	return nil
}

func (s *spyStorage) removedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.removed))
	for _, f := range s.removed {
		names = append(names, f.OriginalName)
	}
	return names
}

// MockStorage is a testify mock of file.Storage.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) HandleFile(ctx context.Context, info *file.Info) (*file.File, error) {
	args := m.Called(ctx, info)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*file.File), args.Error(1)
}

func (m *MockStorage) RemoveFile(ctx context.Context, f *file.File) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

// drainTo returns a mock Run func that reads the stream and records its size.
func drainTo(t *testing.T, sizes *[]int64) func(mock.Arguments) {
	return func(args mock.Arguments) {
		info := args.Get(1).(*file.Info)
		n, err := io.Copy(io.Discard, info.Stream)
		require.NoError(t, err)
		*sizes = append(*sizes, n)
	}
}

// cancelingReader serves data and then cancels the request context.
type cancelingReader struct {
	data   *strings.Reader
	cancel context.CancelFunc
}

func (r *cancelingReader) Read(b []byte) (int, error) {
	if r.data.Len() > 0 {
		return r.data.Read(b)
	}
	r.cancel()
	return 0, nil
}

// cancelAfterReader cancels the request context once limit bytes were served
// and keeps serving data afterwards, like a body buffered ahead of a disconnect.
type cancelAfterReader struct {
	r      io.Reader
	limit  int
	served int
	cancel context.CancelFunc
}

func (c *cancelAfterReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.served += n
	if c.served >= c.limit {
		c.cancel()
	}
	return n, err
}
