package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/uploadkit/pkg/clientip"
	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/httpserver"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/requestid"
	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

type fileResponse struct {
	Field        string `json:"field"`
	OriginalName string `json:"original_name"`
	MIMEType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	Path         string `json:"path,omitempty"`
	Key          string `json:"key,omitempty"`
	Location     string `json:"location,omitempty"`
}

type uploadResponse struct {
	RequestID string              `json:"request_id,omitempty"`
	Fields    map[string][]string `json:"fields"`
	Files     []fileResponse      `json:"files"`
}

func newRouter(u *upload.Uploader, log *slog.Logger, checks []httpserver.Check) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware, clientip.Middleware)

	r.Get("/healthz", httpserver.HealthHandler(log))
	r.Get("/readyz", httpserver.HealthHandler(log, checks...))

	respond := uploaded(log)
	r.With(u.Single("avatar").Middleware).Post("/avatar", respond)
	r.With(u.Array("photos", 10).Middleware).Post("/photos", respond)
	r.With(u.Fields(
		upload.Field{Name: "avatar", MaxCount: 1},
		upload.Field{Name: "gallery", MaxCount: 8},
	).Middleware).Post("/profile", respond)
	r.With(u.Any().Middleware).Post("/files", respond)
	r.With(u.None().Middleware).Post("/form", respond)

	return r
}

func uploaded(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := upload.FromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		resp := uploadResponse{
			RequestID: requestid.FromContext(r.Context()),
			Fields:    res.Body,
			Files:     make([]fileResponse, 0, len(res.All())),
		}
		for _, f := range res.All() {
			resp.Files = append(resp.Files, describe(f))
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.ErrorContext(r.Context(), "failed to write response", logger.Error(err))
		}
	}
}

func describe(f *file.File) fileResponse {
	return fileResponse{
		Field:        f.FieldName,
		OriginalName: f.OriginalName,
		MIMEType:     f.MIMEType,
		Size:         f.Size,
		Path:         f.Path,
		Key:          f.Key,
		Location:     f.Location,
	}
}
