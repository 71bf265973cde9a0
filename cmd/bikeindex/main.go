// Command bikeindex is a terminal client for Bike Index.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/bikeindex"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/clock"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/storage/keystore"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driven/transfer"
	"github.com/custodia-labs/bikeindex-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/bikeindex-cli/internal/core/services"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("getting home directory: %w", err)
	}
	baseDir := filepath.Join(home, ".bikeindex")

	configStore, err := file.NewConfigStore(baseDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cli.SetVersion(version)

	cfg, err := file.LoadSessionConfig(configStore)
	if err != nil {
		// Commands that need the API report errNotConfigured; version and help still work.
		logger.Warn("invalid config in %s: %v", configStore.Path(), err)
		return cli.Execute()
	}

	secure, err := keystore.Open(keystore.DefaultService, filepath.Join(baseDir, "keystore"))
	if err != nil {
		return fmt.Errorf("opening keystore: %w", err)
	}
	store, err := sqlite.NewStore(filepath.Join(baseDir, "data"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	uploadDir := filepath.Join(baseDir, "uploads")
	if err := os.MkdirAll(uploadDir, 0700); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}

	clk := clock.Real{}
	tokens, err := services.NewTokenStore(secure, clk)
	if err != nil {
		return err
	}
	client := bikeindex.NewClient(cfg, tokens,
		bikeindex.WithClock(clk),
		bikeindex.WithUserAgent("bikeindex-cli/"+version),
	)
	lifecycle := services.NewLifecycleManager(cfg, tokens, client, clk)

	transport := transfer.New()
	uploader := bikeindex.NewBackgroundUploader(client, transport, store.UploadStore(), store.BikeStore(),
		bikeindex.WithTempDir(uploadDir),
		bikeindex.WithProgress(cli.ReportProgress),
	)

	cli.SetServices(&cli.Services{
		Config:    cfg,
		Session:   lifecycle,
		Client:    client,
		Uploader:  uploader,
		Transfers: transport,
		Bikes:     store.BikeStore(),
		Uploads:   store.UploadStore(),
		Clock:     clk,
	})
	return cli.Execute()
}
