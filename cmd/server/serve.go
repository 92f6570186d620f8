package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apigw-local/internal/config"
	"apigw-local/pkg/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE:  runServe,
	}

	flags := cmd.Flags()
	flags.String("host", "localhost", "listen host")
	flags.IntP("port", "P", 3000, "gateway port")
	flags.Int("admin-port", 3001, "port of the /__local/ admin surface, 0 disables it")
	flags.String("journal", "", "sqlite file recording every invocation, empty disables it")
	flags.Bool("metrics", true, "expose Prometheus metrics on the admin surface")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	if cfg.Log.Level != "debug" && cfg.Log.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	container, err := server.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	logger := container.Logger
	if err := container.BuildErrors(); err != nil {
		logger.WithError(err).Error("Some routes could not be mounted")
	}

	servers := []*http.Server{{
		Addr:              cfg.Address(),
		Handler:           container.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if addr := cfg.AdminAddress(); addr != "" {
		servers = append(servers, &http.Server{
			Addr:              addr,
			Handler:           container.Admin,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	logger.Infof("apigw-local listening on http://%s", cfg.Address())
	if addr := cfg.AdminAddress(); addr != "" {
		logger.Infof("Admin surface on http://%s/__local/", addr)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case serveErr = <-errCh:
		logger.WithError(serveErr).Error("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server forced to shutdown")
		}
	}

	logger.Info("Server exited")
	return serveErr
}
