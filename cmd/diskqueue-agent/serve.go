package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/yanet-platform/diskqueue/admin"
	"github.com/yanet-platform/diskqueue/manager"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ring's admin/introspection gRPC server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	config, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	mgr, err := manager.New(config.Directory, config.Params(), manager.WithLogger(log))
	if err != nil {
		return fmt.Errorf("serve: open ring %s: %w", config.Directory, err)
	}
	defer mgr.Close()

	if config.MaxPages > 0 {
		mgr.SetMaxDataPages(config.MaxPages)
	}

	lis, err := net.Listen("tcp", config.Admin.Endpoint)
	if err != nil {
		return fmt.Errorf("serve: listen on %s: %w", config.Admin.Endpoint, err)
	}

	grpcServer := grpc.NewServer()
	svc := admin.NewService(mgr, log)
	admin.RegisterServer(grpcServer, svc)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return mgr.Run(ctx)
	})
	wg.Go(func() error {
		log.Infow("serving admin endpoint", "endpoint", config.Admin.Endpoint, "directory", config.Directory)
		return grpcServer.Serve(lis)
	})
	wg.Go(func() error {
		err := waitForShutdown(ctx)
		log.Infow("shutting down", "reason", err)
		grpcServer.GracefulStop()
		return err
	})

	return wg.Wait()
}
