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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/prism-engine/internal/engine"
	"github.com/danielpatrickdp/prism-engine/internal/metrics"
	"github.com/danielpatrickdp/prism-engine/internal/rpc"
)

// #region serve
func newServeCommand(a *app) *cobra.Command {
	var grpcAddr, metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gRPC scoring API and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if grpcAddr == "" {
				grpcAddr = a.cfg.GRPCAddr
			}
			if metricsAddr == "" {
				metricsAddr = a.cfg.MetricsAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := rpc.NewServer(a.engine("rpc"), a.store, engine.Version, a.logger)
			gs := grpc.NewServer(grpc.UnaryInterceptor(srv.UnaryInterceptor))
			rpc.RegisterScoringServer(gs, srv)

			lis, err := net.Listen("tcp", grpcAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", grpcAddr, err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("grpc listening", zap.String("addr", lis.Addr().String()))
				return gs.Serve(lis)
			})
			var hs *http.Server
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				hs = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				g.Go(func() error {
					a.logger.Info("metrics listening", zap.String("addr", metricsAddr))
					if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
			}
			g.Go(func() error {
				<-gctx.Done()
				a.logger.Info("shutting down")
				gs.GracefulStop()
				if hs != nil {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return hs.Shutdown(shutdownCtx)
				}
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address (overrides config)")
	return cmd
}

// #endregion serve
