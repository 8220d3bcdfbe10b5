// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperscout/internal/memory"
	"github.com/pdiddy/paperscout/internal/metrics"
	"github.com/pdiddy/paperscout/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rankings and the corpus memory over HTTP",
	Long: `Serve exposes the ranking pipeline over HTTP. POST /rank runs a ranking
and replaces the corpus memory; GET /corpus, /corpus/top, /corpus/papers/{id}
and /corpus/context read it. /healthz checks the default embedding model and
/metrics exports prometheus metrics.

With --corpus, the memory starts from a saved corpus file.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8088)")
	serveCmd.Flags().String("corpus", "", "preload the memory from a corpus file")
	_ = viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stopTracing, err := startTracing(cfg.Tracing)
	if err != nil {
		return err
	}
	defer stopTracing()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := buildPipeline(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer p.Close()

	holder := &memory.Holder{}
	if path, _ := cmd.Flags().GetString("corpus"); path != "" {
		mem, err := memory.Load(path)
		if err != nil {
			return err
		}
		holder.Replace(mem)
		m.SetCorpusSize(mem.Len())
		logger.Info("corpus preloaded", "path", path, "run_id", mem.RunID(), "entries", mem.Len())
	}

	srv := server.New(server.Options{
		Ranker:    p.engine,
		Memory:    holder,
		Models:    p.registry,
		Gatherer:  reg,
		Metrics:   m,
		Logger:    logger,
		Ranking:   cfg.Ranking,
		FeedLimit: cfg.Feed.Limit,
		Model:     cfg.Embedding.Model,
	})

	httpServer := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Serve.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
