// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv for .env files with
// github.com/caarlos0/env/v11 for tag-driven parsing, and caches each parsed
// struct type so repeated Load calls are cheap and consistent.
//
// # Usage
//
//	type Config struct {
//	    Addr    string        `env:"HTTP_ADDR" envDefault:":8080"`
//	    Timeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Nested structs are supported, which lets an application compose the configs
// exported by other packages (logger.Config, file.Config, upload.Config):
//
//	type AppConfig struct {
//	    Log     logger.Config
//	    Storage file.Config
//	    Upload  upload.Config
//	}
//
// # Testing
//
// Reload re-parses a type after the environment changes and ResetCache clears
// every cached type.
package config
