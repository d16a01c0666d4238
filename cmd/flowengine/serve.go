package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/flowengine"
	"github.com/aretw0/flowengine/internal/cli"
	"github.com/aretw0/flowengine/internal/presentation/tui"
	httpAdapter "github.com/aretw0/flowengine/pkg/adapters/http"
	"github.com/aretw0/flowengine/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the engine in server mode, exposing graph creation and execution as a JSON API over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			port, _ := cmd.Flags().GetString("port")
			cfg.Server.Addr = ":" + port
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := observability.NewMetrics(reg)

		engine, err := cli.NewEngine(cmd.Context(), cfg, logger, flowengine.WithLifecycleHooks(metrics.Hooks()))
		if err != nil {
			return fmt.Errorf("error initializing engine: %w", err)
		}
		defer engine.Close()
		observability.RegisterPoolGauge(reg, engine.ActiveHandlers)

		handler := httpAdapter.NewHandler(engine.Service(),
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		)

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(os.Stderr, strings.TrimSpace(flowengine.Version))
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting flowengine server", "address", srv.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "error", err)
				}
			}
			logger.Info("flowengine server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on (overrides server.addr)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
