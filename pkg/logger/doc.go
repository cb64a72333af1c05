// Package logger builds *slog.Logger instances for uploadkit services and
// provides attribute helpers that keep key names consistent across packages.
//
// New assembles a text or JSON handler from functional options and wraps it
// in LogHandlerDecorator, which appends attributes pulled from the record's
// context (for example the request ID set by the requestid middleware).
//
// # Usage
//
//	log := logger.New(
//	    logger.WithConfig(cfg.Log),
//	    logger.WithContextExtractors(requestid.LogExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "file stored",
//	    logger.Field("avatar"),
//	    logger.Filename("me.png"),
//	    logger.Size(f.Size),
//	)
//
// # Configuration
//
// Config is meant to be loaded with pkg/config. APP_ENV selects the defaults
// (text at debug level for development, JSON at info level for staging and
// production); LOG_LEVEL and LOG_FORMAT override them.
//
// # Attributes
//
// Error, Errors and ErrorCode return an empty slog.Attr for nil or empty
// input, so they can be passed unconditionally:
//
//	log.Warn("rollback finished", logger.Error(err))
package logger
