// Command uploadserver accepts multipart uploads over HTTP and stores the files
// with the engine selected by STORAGE_DRIVER.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dmitrymomot/uploadkit/pkg/clientip"
	"github.com/dmitrymomot/uploadkit/pkg/config"
	"github.com/dmitrymomot/uploadkit/pkg/file"
	"github.com/dmitrymomot/uploadkit/pkg/httpserver"
	"github.com/dmitrymomot/uploadkit/pkg/logger"
	"github.com/dmitrymomot/uploadkit/pkg/requestid"
	"github.com/dmitrymomot/uploadkit/pkg/upload"
)

type appConfig struct {
	Log     logger.Config
	HTTP    httpserver.Config
	Storage file.Config
	Upload  upload.Config
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithConfig(cfg.Log),
		logger.WithContextExtractors(requestid.LogExtractor(), clientip.LogExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("uploadserver stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	storage, err := file.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	log.Info("storage ready", slog.String("driver", cfg.Storage.Driver))

	u := upload.New(
		upload.WithStorage(storage),
		upload.WithConfig(cfg.Upload),
		upload.WithLogger(log),
	)

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, newRouter(u, log, storageCheck(cfg.Storage)))
}

// storageCheck returns readiness checks for drivers that depend on local state.
func storageCheck(cfg file.Config) []httpserver.Check {
	if cfg.Driver != file.DriverDisk {
		return nil
	}
	return []httpserver.Check{func(context.Context) error {
		_, err := os.Stat(cfg.DiskDir)
		return err
	}}
}
