package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/parleyagent/parley/capability"
	"github.com/parleyagent/parley/config"
	"github.com/parleyagent/parley/gateway"
	"github.com/parleyagent/parley/modelroute"
	"github.com/parleyagent/parley/turnloop"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the conversation gateway server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = os.Getenv("PARLEY_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logger := newLogger(cfg.Log)

	client := modelroute.NewClientFromEnv()
	if p := cfg.Model.Provider; p != "" {
		opts := []modelroute.GollmAdapterOption{}
		if cfg.Model.Name != "" {
			opts = append(opts, modelroute.WithModel(cfg.Model.Name))
		}
		adapter, err := modelroute.NewGollmAdapter(p, "", opts...)
		if err != nil {
			return fmt.Errorf("provider %s unavailable: %w", p, err)
		}
		client.RegisterProvider(p, adapter)
	}

	ws, err := capability.NewWorkspace(cfg.Workspace.Path)
	if err != nil {
		return err
	}
	registry := capability.NewRegistry()
	if err := capability.RegisterLocalSkills(registry, ws); err != nil {
		return err
	}

	turnCfg := turnloop.DefaultConfig()
	turnCfg.Model = cfg.Model.Name
	turnCfg.Provider = cfg.Model.Provider
	turnCfg.WorkspacePath = ws.Root()
	turnCfg.AutoExecute = cfg.Turn.AutoExecute
	turnCfg.CallTimeout = time.Duration(cfg.Turn.CallTimeoutMS) * time.Millisecond
	if cfg.Turn.OutputLimit > 0 {
		turnCfg.OutputLimit = cfg.Turn.OutputLimit
	}
	turnCfg.EnableRepetitionWarning = cfg.Turn.RepetitionWarning
	turnCfg.RepetitionWindow = cfg.Turn.RepetitionWindow

	manager := gateway.NewManager(client, registry, turnloop.NewLocalTaskRunner(registry, "local"), turnCfg)
	defer manager.Close()

	srv := gateway.NewServer(gateway.Options{
		Manager:  manager,
		Registry: registry,
		Logger:   logger,
		APIKey:   cfg.Server.APIKey,
		Version:  version,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No write timeout: event streams stay open until the client leaves.
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	logger.Info("gateway listening",
		"addr", cfg.Server.Addr,
		"workspace", ws.Root(),
		"version", version,
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen failed: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
		logger.Info("shutdown signal received, draining requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("gateway shutdown complete")
	return <-errCh
}

// newLogger builds the process logger. Unknown levels fall back to info,
// unknown formats to text.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
