package upload_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/uploadkit/pkg/formdata"
	"github.com/dmitrymomot/uploadkit/pkg/requestid"
	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

func profileRequest(t *testing.T, parts ...formPart) *http.Request {
	t.Helper()
	r := newRequest(t, parts...)
	r.URL.Path = "/profile"
	return r
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	newRouter := func(u *upload.Uploader, calls *int) chi.Router {
		r := chi.NewRouter()
		r.Use(requestid.Middleware)
		r.With(u.Single("avatar").Middleware).Post("/profile", func(w http.ResponseWriter, r *http.Request) {
			*calls++
			res, ok := upload.FromContext(r.Context())
			if !ok {
				http.Error(w, "no result", http.StatusInternalServerError)
				return
			}
			w.Header().Set("X-Username", r.PostForm.Get("username"))
			w.Header().Set("X-Lang", r.FormValue("lang"))
			w.Header().Set("X-Request-Seen", requestid.FromContext(r.Context()))
			_, _ = w.Write(res.File.Buffer)
		})
		return r
	}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		var calls int
		router := newRouter(upload.New(), &calls)

		req := profileRequest(t,
			field("username", "john_doe"),
			upFile("avatar", "avatar.jpg", "image/jpeg", "jpeg"),
		)
		req.URL.RawQuery = "lang=en"
		req.Header.Set(requestid.Header, "abc-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, 1, calls)
		assert.Equal(t, "john_doe", rec.Header().Get("X-Username"))
		assert.Equal(t, "en", rec.Header().Get("X-Lang"))
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Seen"))
		assert.Equal(t, "jpeg", rec.Body.String())
	})

	t.Run("limit breach", func(t *testing.T) {
		t.Parallel()
		var calls int
		router := newRouter(upload.New(upload.WithLimits(formdata.Limits{FileSize: 2})), &calls)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, profileRequest(t, upFile("avatar", "avatar.jpg", "image/jpeg", "jpeg")))

		assert.Equal(t, 0, calls)
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

		var resp upload.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "LIMIT_FILE_SIZE", resp.Error.Code)
		assert.Equal(t, "File too large", resp.Error.Message)
		assert.Equal(t, "avatar", resp.Error.Field)
	})

	t.Run("custom error handler", func(t *testing.T) {
		t.Parallel()
		var calls, handled int
		u := upload.New(upload.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
			handled++
			assert.ErrorIs(t, err, formdata.ErrInvalidContentType)
			w.WriteHeader(http.StatusTeapot)
		}))
		router := newRouter(u, &calls)

		req := httptest.NewRequest(http.MethodPost, "/profile", nil)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, 1, handled)
		assert.Equal(t, 0, calls)
	})
}

func TestHandle(t *testing.T) {
	t.Parallel()

	t.Run("done called once on success", func(t *testing.T) {
		t.Parallel()
		var calls int
		upload.New().Array("photos", 3).Handle(httptest.NewRecorder(),
			newRequest(t, upFile("photos", "1.jpg", "", "1"), field("album", "summer")),
			func(_ http.ResponseWriter, r *http.Request, res *upload.Result, err error) {
				calls++
				require.NoError(t, err)
				require.Len(t, res.Files, 1)

				fromCtx, ok := upload.FromContext(r.Context())
				require.True(t, ok)
				assert.Same(t, res, fromCtx)
				assert.Equal(t, "summer", r.PostForm.Get("album"))
			})
		assert.Equal(t, 1, calls)
	})

	t.Run("done called once on error", func(t *testing.T) {
		t.Parallel()
		var calls int
		upload.New().None().Handle(httptest.NewRecorder(),
			newRequest(t, upFile("photos", "1.jpg", "", "1")),
			func(_ http.ResponseWriter, r *http.Request, res *upload.Result, err error) {
				calls++
				requireCode(t, err, formdata.CodeLimitUnexpectedFile)
				assert.Nil(t, res)
				_, ok := upload.FromContext(r.Context())
				assert.False(t, ok)
			})
		assert.Equal(t, 1, calls)
	})
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{err: nil, want: http.StatusOK},
		{err: formdata.NewError(formdata.CodeLimitFileSize, "f"), want: http.StatusRequestEntityTooLarge},
		{err: formdata.NewError(formdata.CodeLimitFileCount, "f"), want: http.StatusRequestEntityTooLarge},
		{err: formdata.NewError(formdata.CodeLimitFieldKey, ""), want: http.StatusRequestEntityTooLarge},
		{err: formdata.NewError(formdata.CodeLimitFieldValue, "f"), want: http.StatusRequestEntityTooLarge},
		{err: formdata.NewError(formdata.CodeLimitFieldCount, "f"), want: http.StatusRequestEntityTooLarge},
		{err: formdata.NewError(formdata.CodeLimitPartCount, ""), want: http.StatusRequestEntityTooLarge},
		{err: formdata.NewError(formdata.CodeInvalidContentType, ""), want: http.StatusUnsupportedMediaType},
		{err: formdata.NewError(formdata.CodeInvalidBoundary, ""), want: http.StatusBadRequest},
		{err: formdata.NewError(formdata.CodeMalformedHeaders, ""), want: http.StatusBadRequest},
		{err: formdata.NewError(formdata.CodeMalformedBoundary, ""), want: http.StatusBadRequest},
		{err: formdata.NewError(formdata.CodeLimitUnexpectedFile, "f"), want: http.StatusBadRequest},
		{err: formdata.NewError(formdata.CodeStreamAborted, ""), want: http.StatusBadRequest},
		{err: &upload.RejectedError{Field: "f"}, want: http.StatusUnprocessableEntity},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, upload.StatusCode(tt.err))
		})
	}
}

func TestDefaultErrorHandler_HidesInternalErrors(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	upload.DefaultErrorHandler(rec, httptest.NewRequest(http.MethodPost, "/", nil), errors.New("s3: secret bucket name"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")

	var resp upload.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, "Internal Server Error", resp.Error.Message)
}
