package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/affordability-cli/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the affordability HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		// The API answers 503 until a reload succeeds.
		if err := env.Pipeline.Reload(ctx); err != nil {
			zap.L().Error("initial dataset load failed", zap.Error(err))
		}

		enricher, err := env.initEnricher(ctx)
		if err != nil {
			return err
		}

		api := server.New(env.Pipeline, enricher, server.Options{
			CORSOrigins: cfg.Server.CORSOrigins,
			ColorPolicy: cfg.Color.Policy,
			ClipMax:     cfg.Color.ClipMax,
		})

		if cfg.Server.ReloadMinutes > 0 {
			rl, err := server.NewReloader(env.Pipeline, time.Duration(cfg.Server.ReloadMinutes)*time.Minute)
			if err != nil {
				return err
			}
			rl.Start()
			defer rl.Stop()
			zap.L().Info("scheduled dataset reload", zap.Int("minutes", cfg.Server.ReloadMinutes))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrapf(err, "listen on port %d", port)
		}
		srv := &http.Server{
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		zap.L().Info("starting server", zap.Int("port", port))
		return runServer(ctx, srv, ln, 15*time.Second)
	},
}

// runServer serves on ln until ctx is done, then gives in-flight requests up
// to drain to finish.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener, drain time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server shutdown")
		}
		return nil
	})
	return g.Wait()
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
