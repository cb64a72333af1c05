// Package httpserver runs an HTTP handler with upload-friendly timeouts and
// graceful shutdown.
//
// Run blocks until its context is canceled or the process receives SIGINT or
// SIGTERM. In-flight requests then get ShutdownTimeout to finish, which lets
// running uploads complete instead of being cut and rolled back.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// HealthHandler serves liveness and readiness probes.
package httpserver
