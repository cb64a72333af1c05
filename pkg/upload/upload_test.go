package upload_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/formdata"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/requestid"
	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

func requireCode(t *testing.T, err error, code formdata.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, formdata.CodeOf(err), "unexpected error: %v", err)
}

func TestSingle(t *testing.T) {
	t.Parallel()

	t.Run("file and field", func(t *testing.T) {
		t.Parallel()
		u := upload.New()
		res, err := u.Single("avatar").Parse(newRequest(t,
			field("username", "john_doe"),
			upFile("avatar", "avatar.jpg", "image/jpeg", "jpeg-bytes"),
		))
		require.NoError(t, err)

		require.NotNil(t, res.File)
		assert.Equal(t, "avatar.jpg", res.File.OriginalName)
		assert.Equal(t, "avatar", res.File.FieldName)
		assert.Equal(t, "image/jpeg", res.File.MIMEType)
		assert.Equal(t, int64(10), res.File.Size)
		assert.Equal(t, "jpeg-bytes", bufferOf(res.File))
		assert.Equal(t, "john_doe", res.Body.Get("username"))
		assert.Empty(t, res.Files)
	})

	t.Run("no file is not an error", func(t *testing.T) {
		t.Parallel()
		res, err := upload.New().Single("avatar").Parse(newRequest(t, field("username", "john_doe")))
		require.NoError(t, err)
		assert.Nil(t, res.File)
	})

	t.Run("second file fails", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		_, err := upload.New(upload.WithStorage(spy)).Single("avatar").Parse(newRequest(t,
			upFile("avatar", "a.png", "image/png", "a"),
			upFile("avatar", "b.png", "image/png", "b"),
		))
		requireCode(t, err, formdata.CodeLimitUnexpectedFile)
		assert.Equal(t, []string{"a.png"}, spy.removedNames())
	})

	t.Run("undeclared file fails", func(t *testing.T) {
		t.Parallel()
		_, err := upload.New().Single("avatar").Parse(newRequest(t,
			upFile("document", "cv.pdf", "application/pdf", "%PDF"),
		))
		requireCode(t, err, formdata.CodeLimitUnexpectedFile)

		var ferr *formdata.Error
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "document", ferr.Field)
	})
}

func TestArray(t *testing.T) {
	t.Parallel()

	t.Run("keeps stream order", func(t *testing.T) {
		t.Parallel()
		res, err := upload.New().Array("photos", 5).Parse(newRequest(t,
			upFile("photos", "1.jpg", "image/jpeg", "one"),
			field("caption", "holiday"),
			upFile("photos", "2.jpg", "image/jpeg", "two"),
		))
		require.NoError(t, err)

		require.Len(t, res.Files, 2)
		assert.Equal(t, "1.jpg", res.Files[0].OriginalName)
		assert.Equal(t, "2.jpg", res.Files[1].OriginalName)
		assert.Equal(t, "two", bufferOf(res.Files[1]))
		assert.Equal(t, "holiday", res.Body.Get("caption"))
	})

	t.Run("over max count", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		_, err := upload.New(upload.WithStorage(spy)).Array("photos", 2).Parse(newRequest(t,
			upFile("photos", "1.jpg", "", "1"),
			upFile("photos", "2.jpg", "", "2"),
			upFile("photos", "3.jpg", "", "3"),
		))
		requireCode(t, err, formdata.CodeLimitUnexpectedFile)
		assert.Equal(t, []string{"2.jpg", "1.jpg"}, spy.removedNames(), "rollback runs newest first")
	})

	t.Run("zero max count is bounded by global limit only", func(t *testing.T) {
		t.Parallel()
		u := upload.New(upload.WithLimits(formdata.Limits{Files: 3}))
		parts := []formPart{
			upFile("photos", "1.jpg", "", "1"),
			upFile("photos", "2.jpg", "", "2"),
			upFile("photos", "3.jpg", "", "3"),
		}
		res, err := u.Array("photos", 0).Parse(newRequest(t, parts...))
		require.NoError(t, err)
		assert.Len(t, res.Files, 3)

		parts = append(parts, upFile("photos", "4.jpg", "", "4"))
		_, err = u.Array("photos", 0).Parse(newRequest(t, parts...))
		requireCode(t, err, formdata.CodeLimitFileCount)
	})
}

func TestFields(t *testing.T) {
	t.Parallel()

	h := upload.New().Fields(
		upload.Field{Name: "avatar", MaxCount: 1},
		upload.Field{Name: "gallery", MaxCount: 8},
	)

	t.Run("groups files by field", func(t *testing.T) {
		t.Parallel()
		res, err := h.Parse(newRequest(t,
			upFile("gallery", "g1.png", "image/png", "g1"),
			upFile("avatar", "me.png", "image/png", "me"),
			upFile("gallery", "g2.png", "image/png", "g2"),
		))
		require.NoError(t, err)

		require.Len(t, res.FileFields["avatar"], 1)
		require.Len(t, res.FileFields["gallery"], 2)
		assert.Equal(t, "g1.png", res.FileFields["gallery"][0].OriginalName)
		assert.Equal(t, "g2.png", res.FileFields["gallery"][1].OriginalName)
		assert.Len(t, res.All(), 3)
	})

	t.Run("per field max count", func(t *testing.T) {
		t.Parallel()
		_, err := h.Parse(newRequest(t,
			upFile("avatar", "a.png", "image/png", "a"),
			upFile("avatar", "b.png", "image/png", "b"),
		))
		requireCode(t, err, formdata.CodeLimitUnexpectedFile)
	})

	t.Run("undeclared field", func(t *testing.T) {
		t.Parallel()
		_, err := h.Parse(newRequest(t, upFile("banner", "b.png", "image/png", "b")))
		requireCode(t, err, formdata.CodeLimitUnexpectedFile)
	})

	t.Run("first declaration of a name wins", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		dup := upload.New(upload.WithStorage(spy)).Fields(
			upload.Field{Name: "doc", MaxCount: 1},
			upload.Field{Name: "doc", MaxCount: 5},
		)
		_, err := dup.Parse(newRequest(t,
			upFile("doc", "a.pdf", "application/pdf", "a"),
			upFile("doc", "b.pdf", "application/pdf", "b"),
		))
		requireCode(t, err, formdata.CodeLimitUnexpectedFile)
		assert.Equal(t, []string{"a.pdf"}, spy.removedNames())
	})
}

func TestAnyAndNone(t *testing.T) {
	t.Parallel()

	t.Run("any accepts every name", func(t *testing.T) {
		t.Parallel()
		res, err := upload.New().Any().Parse(newRequest(t,
			upFile("a", "a.txt", "text/plain", "a"),
			upFile("b", "b.txt", "text/plain", "b"),
			field("note", "x"),
		))
		require.NoError(t, err)
		require.Len(t, res.Files, 2)
		assert.Equal(t, "b", res.Files[1].FieldName)
		assert.Equal(t, "x", res.Body.Get("note"))
	})

	t.Run("none accumulates fields", func(t *testing.T) {
		t.Parallel()
		res, err := upload.New().None().Parse(newRequest(t,
			field("tag", "go"),
			field("tag", "http"),
			field("title", "hello"),
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "http"}, res.Body["tag"])
		assert.Equal(t, "hello", res.Body.Get("title"))
		assert.Empty(t, res.All())
	})

	t.Run("none rejects files", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		_, err := upload.New(upload.WithStorage(spy)).None().Parse(newRequest(t,
			field("title", "hello"),
			upFile("doc", "doc.txt", "text/plain", "x"),
		))
		requireCode(t, err, formdata.CodeLimitUnexpectedFile)
		assert.Empty(t, spy.handled)
	})
}

func TestParse_RequestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		code        formdata.Code
	}{
		{name: "no boundary", contentType: "multipart/form-data", body: "anything", code: formdata.CodeInvalidBoundary},
		{name: "no boundary with garbage", contentType: "multipart/form-data; charset=utf-8", body: "--x\r\n", code: formdata.CodeInvalidBoundary},
		{name: "json", contentType: "application/json", body: "{}", code: formdata.CodeInvalidContentType},
		{name: "missing content type", contentType: "", body: "", code: formdata.CodeInvalidContentType},
		{name: "empty body", contentType: "multipart/form-data; boundary=xyz", body: "", code: formdata.CodeInvalidBoundary},
		{name: "truncated", contentType: "multipart/form-data; boundary=xyz", body: "--xyz\r\nContent-Disposition: form-data; name=\"a\"\r\n\r\nval", code: formdata.CodeStreamAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			res, err := upload.New().Any().Parse(r)
			requireCode(t, err, tt.code)
			assert.Nil(t, res)
		})
	}
}

func TestFileFilter(t *testing.T) {
	t.Parallel()

	t.Run("skipped file leaves no trace", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		u := upload.New(
			upload.WithStorage(spy),
			upload.WithFileFilter(upload.ImagesOnly()),
			upload.WithLimits(formdata.Limits{Files: 1}),
		)
		res, err := u.Any().Parse(newRequest(t,
			upFile("doc", "notes.txt", "text/plain", "skip me"),
			field("title", "trip"),
			upFile("photo", "beach.png", "image/png", "png"),
		))
		require.NoError(t, err, "skipped files do not count against Limits.Files")

		require.Len(t, res.Files, 1)
		assert.Equal(t, "beach.png", res.Files[0].OriginalName)
		assert.Equal(t, "trip", res.Body.Get("title"))
		assert.NotContains(t, res.Body, "doc")
		assert.Equal(t, []string{"photo/beach.png"}, spy.handled)
	})

	t.Run("skipped file does not use per field count", func(t *testing.T) {
		t.Parallel()
		u := upload.New(upload.WithFileFilter(upload.AllowExtensions("png")))
		res, err := u.Single("avatar").Parse(newRequest(t,
			upFile("avatar", "me.gif", "image/gif", "gif"),
			upFile("avatar", "me.png", "image/png", "png"),
		))
		require.NoError(t, err)
		assert.Equal(t, "me.png", res.File.OriginalName)
	})

	t.Run("skipped file still counts as a part", func(t *testing.T) {
		t.Parallel()
		u := upload.New(
			upload.WithFileFilter(upload.ImagesOnly()),
			upload.WithLimits(formdata.Limits{Parts: 1}),
		)
		_, err := u.Any().Parse(newRequest(t,
			upFile("doc", "notes.txt", "text/plain", "x"),
			field("title", "trip"),
		))
		requireCode(t, err, formdata.CodeLimitPartCount)
	})

	t.Run("filter sees metadata only", func(t *testing.T) {
		t.Parallel()
		var seen *file.Info
		u := upload.New(upload.WithFileFilter(func(_ context.Context, info *file.Info) (bool, error) {
			seen = info
			assert.Nil(t, info.Stream)
			return true, nil
		}))
		_, err := u.Any().Parse(newRequest(t, upFile("doc", "a.csv", "text/csv", "a,b")))
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, "doc", seen.FieldName)
		assert.Equal(t, "a.csv", seen.OriginalName)
		assert.Equal(t, "text/csv", seen.MIMEType)
		assert.Equal(t, "text/csv", seen.Header.Get("Content-Type"))
	})

	t.Run("filter error aborts and rolls back", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		u := upload.New(
			upload.WithStorage(spy),
			upload.WithFileFilter(upload.Strict(upload.ImagesOnly(), "images only")),
		)
		_, err := u.Any().Parse(newRequest(t,
			upFile("photo", "ok.png", "image/png", "png"),
			upFile("doc", "bad.exe", "application/octet-stream", "MZ"),
		))
		var rejected *upload.RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, "doc", rejected.Field)
		assert.Equal(t, "bad.exe", rejected.Filename)
		assert.Equal(t, []string{"ok.png"}, spy.removedNames())
		assert.Equal(t, http.StatusUnprocessableEntity, upload.StatusCode(err))
	})
}

func TestRollback(t *testing.T) {
	t.Parallel()

	t.Run("partially written file is removed", func(t *testing.T) {
		t.Parallel()
		storage := new(MockStorage)
		var sizes []int64
		partial := &file.File{FieldName: "avatar", OriginalName: "big.bin", Size: 1024}

		storage.On("HandleFile", mock.Anything, mock.MatchedBy(func(info *file.Info) bool {
			return info.OriginalName == "big.bin"
		})).Run(drainTo(t, &sizes)).Return(partial, nil).Once()
		storage.On("RemoveFile", mock.Anything, partial).Return(nil).Once()

		u := upload.New(upload.WithStorage(storage), upload.WithLimits(formdata.Limits{FileSize: 1024}))
		_, err := u.Single("avatar").Parse(newRequest(t,
			upFile("avatar", "big.bin", "application/octet-stream", strings.Repeat("x", 2048)),
		))
		requireCode(t, err, formdata.CodeLimitFileSize)
		assert.Equal(t, []int64{1024}, sizes, "engine receives exactly the allowed bytes")
		storage.AssertExpectations(t)
	})

	t.Run("storage error removes earlier files", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		spy.failOn = "b.txt"
		_, err := upload.New(upload.WithStorage(spy)).Any().Parse(newRequest(t,
			upFile("f", "a.txt", "", "a"),
			upFile("f", "b.txt", "", "b"),
			upFile("f", "c.txt", "", "c"),
		))
		require.ErrorIs(t, err, errStorageFailed)
		assert.Equal(t, []string{"a.txt"}, spy.removedNames())
		assert.Equal(t, []string{"f/a.txt", "f/b.txt"}, spy.handled)
		assert.Equal(t, http.StatusInternalServerError, upload.StatusCode(err))
	})

	t.Run("remove failures are logged not returned", func(t *testing.T) {
		t.Parallel()
		storage := new(MockStorage)
		var sizes []int64
		stored := &file.File{FieldName: "f", OriginalName: "a.txt"}
		storage.On("HandleFile", mock.Anything, mock.Anything).Run(drainTo(t, &sizes)).Return(stored, nil).Once()
		storage.On("RemoveFile", mock.Anything, stored).Return(errors.New("disk gone")).Once()

		buf := &bytes.Buffer{}
		u := upload.New(
			upload.WithStorage(storage),
			upload.WithLogger(logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelDebug))),
		)
		_, err := u.Single("f").Parse(newRequest(t,
			upFile("f", "a.txt", "", "a"),
			upFile("other", "b.txt", "", "b"),
		))
		requireCode(t, err, formdata.CodeLimitUnexpectedFile)
		assert.Contains(t, buf.String(), "failed to remove stored file")
		assert.Contains(t, buf.String(), "disk gone")
		storage.AssertExpectations(t)
	})

	t.Run("disk storage leaves no files behind", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		u := upload.New(
			upload.WithDest(dir),
			upload.WithLimits(formdata.Limits{FileSize: 16}),
		)
		_, err := u.Array("docs", 3).Parse(newRequest(t,
			upFile("docs", "small.txt", "text/plain", "fits"),
			upFile("docs", "large.txt", "text/plain", strings.Repeat("y", 64)),
		))
		requireCode(t, err, formdata.CodeLimitFileSize)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("disk storage keeps files on success", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		res, err := upload.New(upload.WithDest(dir)).Single("doc").Parse(newRequest(t,
			upFile("doc", "report.txt", "text/plain", "quarterly"),
		))
		require.NoError(t, err)

		assert.Equal(t, dir, filepath.Dir(res.File.Path))
		data, err := os.ReadFile(res.File.Path)
		require.NoError(t, err)
		assert.Equal(t, "quarterly", string(data))
	})
}

func TestContextPropagation(t *testing.T) {
	t.Parallel()

	newReq := func(t *testing.T) *http.Request {
		r := newRequest(t, upFile("f", "a.txt", "", "a"))
		return r.WithContext(requestid.WithContext(r.Context(), "req-42"))
	}

	t.Run("preserved by default", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		var filterID string
		u := upload.New(
			upload.WithStorage(spy),
			upload.WithFileFilter(func(ctx context.Context, _ *file.Info) (bool, error) {
				filterID = requestid.FromContext(ctx)
				return true, nil
			}),
		)
		_, err := u.Any().Parse(newReq(t))
		require.NoError(t, err)
		assert.Equal(t, "req-42", filterID)
		assert.Equal(t, []string{"req-42"}, spy.requestIDs)
	})

	t.Run("detached when disabled", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStorage()
		u := upload.New(upload.WithStorage(spy), upload.WithPreserveContext(false))
		_, err := u.Any().Parse(newReq(t))
		require.NoError(t, err)
		assert.Equal(t, []string{""}, spy.requestIDs)
	})
}

func TestCancellation(t *testing.T) {
	t.Parallel()

	body, contentType := encode(t,
		upFile("f", "first.txt", "text/plain", "complete"),
		upFile("f", "second.txt", "text/plain", "never read"),
	)
	cut := bytes.Index(body, []byte("second.txt"))
	require.Positive(t, cut)

	for _, preserve := range []bool{true, false} {
		t.Run(fmt.Sprintf("preserve=%t", preserve), func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			r := httptest.NewRequestWithContext(ctx, http.MethodPost, "/upload",
				&cancelingReader{data: strings.NewReader(string(body[:cut])), cancel: cancel})
			r.Header.Set("Content-Type", contentType)

			spy := newSpyStorage()
			_, err := upload.New(upload.WithStorage(spy), upload.WithPreserveContext(preserve)).Any().Parse(r)
			requireCode(t, err, formdata.CodeStreamAborted)
			assert.ErrorIs(t, err, context.Canceled)

			assert.Equal(t, []string{"first.txt"}, spy.removedNames())
			assert.Equal(t, []error{nil}, spy.removeErrs, "rollback context must not be canceled")
		})
	}
}

func TestCancellation_DuringFileBody(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", 200_000)
	body, contentType := encode(t,
		upFile("f", "small.txt", "text/plain", "complete"),
		upFile("f", "big.bin", "application/octet-stream", big),
	)
	start := bytes.Index(body, []byte(big[:64]))
	require.Positive(t, start)

	for _, preserve := range []bool{true, false} {
		t.Run(fmt.Sprintf("preserve=%t", preserve), func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			r := httptest.NewRequestWithContext(ctx, http.MethodPost, "/upload",
				&cancelAfterReader{r: bytes.NewReader(body), limit: start + 50_000, cancel: cancel})
			r.Header.Set("Content-Type", contentType)

			spy := newSpyStorage()
			_, err := upload.New(upload.WithStorage(spy), upload.WithPreserveContext(preserve)).Any().Parse(r)
			requireCode(t, err, formdata.CodeStreamAborted)
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, http.StatusBadRequest, upload.StatusCode(err))

			assert.Equal(t, []string{"f/small.txt", "f/big.bin"}, spy.handled)
			// A partial big.bin is removed too when the engine returned a record.
			removed := spy.removedNames()
			require.NotEmpty(t, removed)
			assert.Equal(t, "small.txt", removed[len(removed)-1])
			for _, err := range spy.removeErrs {
				assert.NoError(t, err, "rollback context must not be canceled")
			}
		})
	}
}

func TestLogging(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithContextExtractors(requestid.LogExtractor()),
	)
	u := upload.New(upload.WithLogger(log), upload.WithLimits(formdata.Limits{FileSize: 2}))

	r := newRequest(t, upFile("f", "a.txt", "", "abc"))
	r = r.WithContext(requestid.WithContext(r.Context(), "req-7"))
	_, err := u.Any().Parse(r)
	requireCode(t, err, formdata.CodeLimitFileSize)

	out := buf.String()
	assert.Contains(t, out, `"msg":"upload rejected"`)
	assert.Contains(t, out, `"level":"WARN"`)
	assert.Contains(t, out, `"error_code":"LIMIT_FILE_SIZE"`)
	assert.Contains(t, out, `"request_id":"req-7"`)
}

func TestConcurrentRequests(t *testing.T) {
	t.Parallel()

	h := upload.New(upload.WithLimits(formdata.Limits{FileSize: 1 << 20})).Fields(
		upload.Field{Name: "doc", MaxCount: 2},
	)

	const n = 32
	reqs := make([]*http.Request, n)
	payloads := make([]string, n)
	for i := range n {
		payloads[i] = strings.Repeat(fmt.Sprintf("%02d", i), 4096)
		reqs[i] = newRequest(t,
			field("id", fmt.Sprint(i)),
			upFile("doc", fmt.Sprintf("%d.bin", i), "", payloads[i]),
		)
	}

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			res, err := h.Parse(reqs[i])
			if err != nil {
				return err
			}
			if got := res.Body.Get("id"); got != fmt.Sprint(i) {
				return fmt.Errorf("request %d: got id %q", i, got)
			}
			docs := res.FileFields["doc"]
			if len(docs) != 1 || string(docs[0].Buffer) != payloads[i] {
				return fmt.Errorf("request %d: payload mismatch", i)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestParse_LargeFileStreams(t *testing.T) {
	t.Parallel()

	const size = 4 << 20
	payload := bytes.Repeat([]byte{0x00, 0xff, '\r', '\n', '-'}, size/5)

	storage := new(MockStorage)
	var sizes []int64
	storage.On("HandleFile", mock.Anything, mock.Anything).
		Run(drainTo(t, &sizes)).
		Return(&file.File{Size: int64(len(payload))}, nil)

	res, err := upload.New(upload.WithStorage(storage)).Single("blob").Parse(newRequest(t,
		upFile("blob", "blob.bin", "application/octet-stream", string(payload)),
	))
	require.NoError(t, err)
	assert.Equal(t, []int64{int64(len(payload))}, sizes)
	assert.Equal(t, "blob", res.File.FieldName, "missing descriptor fields are filled from the part")
	assert.Equal(t, "blob.bin", res.File.OriginalName)
}

func TestParse_EngineLeavesBytesUnread(t *testing.T) {
	t.Parallel()

	storage := new(MockStorage)
	stored := &file.File{FieldName: "f", OriginalName: "a.txt"}
	storage.On("HandleFile", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		info := args.Get(1).(*file.Info)
		_, _ = io.ReadFull(info.Stream, make([]byte, 4))
	}).Return(stored, nil).Once()
	storage.On("RemoveFile", mock.Anything, stored).Return(nil).Once()

	u := upload.New(upload.WithStorage(storage), upload.WithLimits(formdata.Limits{FileSize: 8}))
	_, err := u.Any().Parse(newRequest(t, upFile("f", "a.txt", "", strings.Repeat("z", 32))))
	requireCode(t, err, formdata.CodeLimitFileSize)
	storage.AssertExpectations(t)
}
