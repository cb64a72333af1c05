package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/formdata"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
)

type mode int

const (
	modeSingle mode = iota
	modeArray
	modeFields
	modeAny
	modeNone
)

// Handler parses requests according to one file policy.
// It holds no per-request state and may serve concurrent requests.
type Handler struct {
	u      *Uploader
	mode   mode
	fields map[string]int // declared name -> max files, 0 = unbounded
}

// DoneFunc receives the outcome of Handle. On success r carries the Result in
// its context and err is nil; on failure res is nil.
type DoneFunc func(w http.ResponseWriter, r *http.Request, res *Result, err error)

// Parse reads the multipart body of r, stores accepted files and returns the
// populated Result. On error every file stored during the call has been
// removed and the Result is nil.
func (h *Handler) Parse(r *http.Request) (*Result, error) {
	ctx := r.Context()
	start := time.Now()

	res, err := h.parse(ctx, r)
	if err != nil {
		h.u.logger.Log(ctx, logLevel(err), "upload rejected",
			logger.Component("upload"),
			logger.ErrorCode(formdata.CodeOf(err)),
			logger.Error(err),
			logger.Duration(time.Since(start)),
		)
		return nil, err
	}

	h.u.logger.DebugContext(ctx, "upload parsed",
		logger.Component("upload"),
		logger.Count(res.count()),
		logger.Duration(time.Since(start)),
	)
	return res, nil
}

// Handle parses r and calls done exactly once with the outcome.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request, done DoneFunc) {
	res, err := h.Parse(r)
	if err != nil {
		done(w, r, nil, err)
		return
	}
	done(w, withForm(r, res), res, nil)
}

// Middleware parses the request before next runs. The Result is available
// through FromContext and the text fields through r.PostForm and r.Form.
// On failure the uploader's error handler responds and next is not called.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Handle(w, r, func(w http.ResponseWriter, r *http.Request, _ *Result, err error) {
			if err != nil {
				h.u.errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
}

func withForm(r *http.Request, res *Result) *http.Request {
	r = r.WithContext(WithResult(r.Context(), res))

	form := make(url.Values, len(res.Body))
	for k, vs := range res.Body {
		form[k] = append(form[k], vs...)
	}
	for k, vs := range r.URL.Query() {
		form[k] = append(form[k], vs...)
	}
	r.PostForm = res.Body
	r.Form = form
	return r
}

func (h *Handler) parse(ctx context.Context, r *http.Request) (*Result, error) {
	boundary, err := formdata.ExtractBoundary(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	body := r.Body
	if body == nil {
		body = http.NoBody
	}
	// Closing the body on cancellation makes later reads fail fast.
	stop := context.AfterFunc(ctx, func() { _ = body.Close() })
	defer stop()

	p := &parser{
		h:      h,
		ctx:    ctx,
		sctx:   h.u.storageContext(ctx),
		res:    newResult(),
		counts: make(map[string]int),
	}

	mr := formdata.NewReader(&ctxReader{ctx: ctx, r: body}, boundary, h.u.limits)
	if err := p.run(mr); err != nil {
		p.rollback()
		return nil, err
	}
	return p.res, nil
}

// parser holds the state of one request.
type parser struct {
	h      *Handler
	ctx    context.Context // request context, used for logging
	sctx   context.Context // context handed to filters and storage
	res    *Result
	counts map[string]int
	stored []*file.File
}

func (p *parser) run(mr *formdata.Reader) error {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if !part.IsFile() {
			value, err := io.ReadAll(part)
			if err != nil {
				return err
			}
			p.res.Body.Add(part.Name, string(value))
			continue
		}

		if err := p.file(part); err != nil {
			return err
		}
	}
}

func (p *parser) file(part *formdata.Part) error {
	name := part.Name
	limit, declared := p.h.fields[name]
	switch p.h.mode {
	case modeNone:
		return formdata.NewError(formdata.CodeLimitUnexpectedFile, name)
	case modeSingle, modeArray, modeFields:
		if !declared {
			return formdata.NewError(formdata.CodeLimitUnexpectedFile, name)
		}
	}

	info := &file.Info{
		FieldName:    name,
		OriginalName: part.Filename,
		MIMEType:     part.ContentType,
		Header:       part.Header,
	}

	if filter := p.h.u.filter; filter != nil {
		ok, err := filter(p.sctx, info)
		if err != nil {
			return err
		}
		if !ok {
			p.h.u.logger.DebugContext(p.ctx, "file skipped by filter",
				logger.Field(name),
				logger.Filename(part.Filename),
			)
			return part.Discard()
		}
	}

	if limit > 0 && p.counts[name] >= limit {
		return formdata.NewError(formdata.CodeLimitUnexpectedFile, name)
	}
	p.counts[name]++

	if err := part.Accept(); err != nil {
		return err
	}

	stream := &fileStream{part: part}
	info.Stream = stream

	f, err := p.h.u.storage.HandleFile(p.sctx, info)
	if f != nil {
		p.stored = append(p.stored, f)
	}
	if err == nil {
		// Bytes an engine left unread still count against the size limit.
		_, err = io.Copy(io.Discard, stream)
	}
	if stream.err != nil {
		return stream.err
	}
	if err != nil {
		return p.abortedOr(name, err)
	}
	if f == nil {
		return file.ErrNilFile
	}
	mergeInfo(f, info)

	p.h.u.logger.DebugContext(p.ctx, "file stored",
		logger.Field(name),
		logger.Filename(f.OriginalName),
		logger.Size(f.Size),
	)
	p.res.add(p.h.mode, name, f)
	return nil
}

// abortedOr reports an engine failure caused by request cancellation as
// STREAM_ABORTED, the same code the parser uses for a canceled read.
func (p *parser) abortedOr(field string, err error) error {
	if cause := context.Cause(p.ctx); cause != nil {
		e := formdata.NewError(formdata.CodeStreamAborted, field)
		e.Err = errors.Join(cause, err)
		return e
	}
	return err
}

// mergeInfo fills descriptor fields a custom engine left empty.
func mergeInfo(f *file.File, info *file.Info) {
	if f.FieldName == "" {
		f.FieldName = info.FieldName
	}
	if f.OriginalName == "" {
		f.OriginalName = info.OriginalName
	}
	if f.MIMEType == "" {
		f.MIMEType = info.MIMEType
	}
}

// rollback removes every stored file, newest first. Removal runs even when
// the request was canceled, and its failures are logged only.
func (p *parser) rollback() {
	if len(p.stored) == 0 {
		return
	}
	ctx := context.WithoutCancel(p.sctx)

	var failed int
	for i := len(p.stored) - 1; i >= 0; i-- {
		f := p.stored[i]
		if err := p.h.u.storage.RemoveFile(ctx, f); err != nil {
			failed++
			p.h.u.logger.ErrorContext(p.ctx, "failed to remove stored file",
				logger.Field(f.FieldName),
				logger.Filename(f.OriginalName),
				logger.Error(err),
			)
		}
	}
	p.stored = nil

	if failed == 0 {
		p.h.u.logger.DebugContext(p.ctx, "stored files removed", logger.Component("upload"))
	}
}

// fileStream is the reader handed to storage engines. A parser failure ends
// the stream with io.EOF so the engine returns its record, which is then
// rolled back; the failure itself is kept in err.
type fileStream struct {
	part *formdata.Part
	err  error
}

func (s *fileStream) Read(b []byte) (int, error) {
	if s.err != nil {
		return 0, io.EOF
	}
	n, err := s.part.Read(b)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
		return n, io.EOF
	}
	return n, err
}

// ctxReader fails reads once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(b []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(b)
}

func logLevel(err error) slog.Level {
	if StatusCode(err) < http.StatusInternalServerError {
		return slog.LevelWarn
	}
	return slog.LevelError
}
