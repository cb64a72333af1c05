// Package requestid attaches a correlation ID to every HTTP request.
//
// Middleware accepts a client-supplied X-Request-ID made of letters, digits,
// '-' and '_' (at most 128 characters) and otherwise generates a UUID. The ID
// is echoed in the response header and stored in the request context, where
// FromContext reads it back. LogExtractor plugs it into pkg/logger:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LogExtractor()))
//	r.Use(requestid.Middleware)
//
// Upload handlers run with a detached context unless context preservation is
// enabled, in which case the request ID remains visible to storage engines.
package requestid
