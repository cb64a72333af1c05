// Package upload turns multipart/form-data requests into text fields and
// stored files.
//
// An Uploader carries the shared configuration: the storage engine, the
// parser limits, an optional file filter and a logger. Its constructors
// return reusable handlers that differ only in which file parts they accept:
//
//	Single(name)         one file under name             -> Result.File
//	Array(name, max)     up to max files under name      -> Result.Files
//	Fields(fields...)    files under each declared name  -> Result.FileFields
//	Any()                files under any name            -> Result.Files
//	None()               no files at all
//
// Text fields are always collected into Result.Body.
//
// # Usage
//
//	u := upload.New(
//	    upload.WithStorage(storage),
//	    upload.WithLimits(formdata.Limits{FileSize: 10 << 20, Files: 5}),
//	    upload.WithFileFilter(upload.ImagesOnly()),
//	    upload.WithLogger(log),
//	)
//
//	r := chi.NewRouter()
//	r.With(u.Single("avatar").Middleware).Post("/profile", func(w http.ResponseWriter, r *http.Request) {
//	    res, _ := upload.FromContext(r.Context())
//	    username := r.PostForm.Get("username")
//	    _ = res.File // nil when no avatar was sent
//	})
//
// Handlers can also be driven directly with Parse, which returns either a
// populated *Result or an error, never both.
//
// # Processing order
//
// Parts are handled one at a time in stream order. For each file part the
// handler checks the field name against its policy, runs the file filter,
// enforces the per-field count, registers the file against Limits.Files and
// finally passes the part stream to Storage.HandleFile. Files are written
// sequentially; the next part is not read until the storage engine returns.
//
// # Errors and rollback
//
// Parser failures are *formdata.Error values carrying a code such as
// LIMIT_FILE_SIZE. Any failure, including one raised by a filter or a storage
// engine, removes every file already stored for the request before Parse
// returns. A file whose stream was cut short by a limit is removed as well.
// Removal failures are logged and never replace the original error.
//
// StatusCode maps errors to HTTP statuses and DefaultErrorHandler writes them
// as JSON:
//
//	{"error":{"code":"LIMIT_FILE_SIZE","message":"File too large","field":"avatar"}}
//
// # Context
//
// Filters and storage engines receive the request context, so request-scoped
// values such as the request ID stay visible to them. WithPreserveContext(false)
// hands them a context that is still canceled with the request but carries no
// values. When the request context is canceled parsing stops with
// STREAM_ABORTED and the rollback runs with a non-cancelable context.
package upload
