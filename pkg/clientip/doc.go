// Package clientip resolves the address of the client behind an upload
// request and attaches it to the request context, so rejected or rolled back
// uploads can be traced to their source in the logs.
//
//	r.Use(clientip.Middleware)
//	log := logger.New(logger.WithContextExtractors(clientip.LogExtractor()))
//
// Proxy headers are trusted as sent. Behind a proxy that does not overwrite
// them, use Resolver() with no headers to log the connection address only.
package clientip
