package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/raglab/arxrag/internal/api"
	"github.com/raglab/arxrag/internal/queryengine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent, index, and ingestion HTTP services",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	fmt.Fprintf(os.Stderr, "arxrag version %s\n", version)

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	agentRunner, err := a.buildAgent()
	if err != nil {
		return err
	}

	agentHandler := api.NewAgentHandler(api.AgentDeps{
		Agent: agentRunner,
		Store: a.store,
		Cfg:   a.cfg,
	})
	indexHandler := api.NewIndexHandler(api.IndexDeps{
		Engine: queryengine.New(a.chat, a.embedder, a.store),
		Store:  a.store,
	})
	ingestHandler := api.NewIngestHandler(api.IngestDeps{
		Pipeline: a.pipeline(),
		Cfg:      a.cfg.Arxiv,
	})

	svc := a.cfg.Services
	servers := []*http.Server{
		{Addr: fmt.Sprintf("%s:%d", svc.AgentHost, svc.AgentPort), Handler: agentHandler},
		{Addr: fmt.Sprintf("%s:%d", svc.IndexHost, svc.IndexPort), Handler: indexHandler},
		{Addr: fmt.Sprintf("%s:%d", svc.IngestionHost, svc.IngestionPort), Handler: ingestHandler},
	}
	names := []string{"agent", "index", "ingestion"}

	g, gCtx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		g.Go(func() error {
			printStep("%s service listening on %s", names[i], srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("%s server: %w", names[i], err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				printError("shutdown: %v", err)
			}
		}
		return nil
	})

	return g.Wait()
}
