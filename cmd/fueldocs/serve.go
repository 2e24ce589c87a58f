package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pumpside/fueldocs/internal/config"
	"github.com/pumpside/fueldocs/internal/docindex"
	"github.com/pumpside/fueldocs/internal/httpapi"
	"github.com/pumpside/fueldocs/internal/mcpserver"
	"github.com/pumpside/fueldocs/internal/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query pipeline over HTTP (POST /query)",
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the query pipeline as MCP tools over stdio",
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger()
	engine, store, err := buildEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(engine, logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving http", "addr", cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger()
	engine, store, err := buildEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := docindex.Open(cfg.DocumentIndexDir)
	if err != nil {
		return fmt.Errorf("open document index: %w", err)
	}
	defer docs.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	server := mcpserver.NewServer(&mcpserver.Config{
		Engine: engine,
		Store:  store,
		Docs:   docs,
		State:  state.NewStore(cfg.StateFilePath, logger),
	})

	logger.Info("serving mcp over stdio")
	return server.Run(ctx)
}
