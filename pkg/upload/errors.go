package upload

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/uploadkit/pkg/formdata"
)

// ErrorHandler writes the response for a failed upload.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// StatusCode maps an upload error to an HTTP status.
// Limit breaches map to 413, an unsupported media type to 415, other
// client-side stream problems to 400 and everything else to 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if formdata.IsLimit(err) {
		return http.StatusRequestEntityTooLarge
	}
	switch formdata.CodeOf(err) {
	case formdata.CodeInvalidContentType:
		return http.StatusUnsupportedMediaType
	case formdata.CodeInvalidBoundary, formdata.CodeMalformedHeaders, formdata.CodeMalformedBoundary,
		formdata.CodeLimitUnexpectedFile, formdata.CodeStreamAborted:
		return http.StatusBadRequest
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// DefaultErrorHandler responds with a JSON ErrorResponse and the status from
// StatusCode. Details of server-side failures are not exposed.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusCode(err)
	body := ErrorBody{
		Code:    "INTERNAL_ERROR",
		Message: http.StatusText(status),
	}

	var ferr *formdata.Error
	var rejected *RejectedError
	switch {
	case errors.As(err, &ferr):
		body.Code = string(ferr.Code)
		body.Message = ferr.Message
		body.Field = ferr.Field
		if body.Message == "" {
			body.Message = formdata.NewError(ferr.Code, "").Message
		}
	case errors.As(err, &rejected):
		body.Code = "FILE_REJECTED"
		body.Message = rejected.Reason
		body.Field = rejected.Field
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: body})
}
