// Package app wires the configuration, logging router, catalog resolver, and
// adapter session behind the crmgen command.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"crmgen/adapterws"
	"crmgen/catalog"
	"crmgen/config"
	"crmgen/logging"
	loggingSinks "crmgen/logging/sinks"
)

// Options selects what the command does. SchemaOut short-circuits everything
// else; Probe additionally dials the adapter after the catalog validates.
// CatalogPaths, when set, overrides the configured catalog files.
type Options struct {
	ConfigPath   string
	SchemaOut    string
	CatalogPaths []string
	Probe        bool
	Logger       *log.Logger
}

// Run executes the command.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	if opts.SchemaOut != "" {
		return writeSchema(opts.SchemaOut)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	logCfg, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	router, err := logging.NewRouter(nil, logCfg, buildSinks(logCfg))
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	paths := cfg.Catalog.Paths
	if len(opts.CatalogPaths) > 0 {
		paths = opts.CatalogPaths
	}
	resolver, err := catalog.Load(paths...)
	if err != nil {
		return err
	}
	entries := resolver.Entries()
	types := make([]string, 0, len(entries))
	for entityType := range entries {
		types = append(types, entityType)
	}
	sort.Strings(types)
	logger.Printf("catalog valid: %d entity definitions", len(types))
	for _, entityType := range types {
		def := entries[entityType]
		logger.Printf("  %s: %d mappings, %d required", entityType, len(def.Mappings), len(def.RequiredFields))
	}

	if !opts.Probe {
		return nil
	}

	client, err := adapterws.Dial(ctx, adapterws.ClientConfig{
		URL:         cfg.Adapter.URL,
		DialTimeout: cfg.Adapter.DialTimeout.Std(),
		CallTimeout: cfg.Adapter.CallTimeout.Std(),
		Logger:      logger,
		Publisher:   router,
	})
	if err != nil {
		return err
	}
	defer client.Close()
	logger.Printf("adapter reachable at %s", cfg.Adapter.URL)
	return nil
}

func buildSinks(cfg logging.Config) []logging.NamedSink {
	sinks := make([]logging.NamedSink, 0, len(cfg.EnabledSinks))
	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			sinks = append(sinks, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewConsoleSink(os.Stdout, cfg.Console),
			})
		case "json":
			w := os.Stdout
			if cfg.JSON.FilePath != "" {
				if f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
					w = f
				}
			}
			sinks = append(sinks, logging.NamedSink{
				Name: name,
				Sink: loggingSinks.NewJSON(w, cfg.JSON),
			})
		}
	}
	return sinks
}

func writeSchema(outPath string) error {
	schema, err := catalog.Schema()
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')

	if outPath == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
