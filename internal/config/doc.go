// Package config provides the application configuration of the backoff
// calculator service.
//
// This package defines the configuration model, YAML loading with
// environment variable substitution, environment overrides, validation,
// and file watching for hot-reload support.
//
// # Configuration Loading
//
// Load configuration from a YAML file; an empty path yields defaults:
//
//	cfg, err := config.Load("avabackoff.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// String values may reference the environment with ${VAR} or
// ${VAR:-default}. After parsing, AVABACKOFF_LISTEN_ADDR,
// AVABACKOFF_LOG_LEVEL, AVABACKOFF_LOG_FORMAT and AVABACKOFF_LOCALE
// override the matching fields.
//
// # File Watching
//
// Watch for configuration changes:
//
//	watcher, err := config.NewWatcher("avabackoff.yaml", func(cfg *config.Config) {
//	    hub.Publish(cfg.Policy)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := watcher.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer watcher.Stop()
package config
