/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	ggrpc "google.golang.org/grpc"

	"github.com/carverauto/fleetwatch/pkg/grpc"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

const (
	MaxRecvSize     = 4 * 1024 * 1024 // 4MB
	MaxSendSize     = 4 * 1024 * 1024 // 4MB
	ShutdownTimeout = 10 * time.Second
)

var errServiceStop = errors.New("service stop failed")

// Service defines the interface every long-running component driven by
// RunServer must implement.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// GRPCServiceRegistrar registers one gRPC service on the underlying server.
type GRPCServiceRegistrar func(*ggrpc.Server) error

// ServerOptions holds configuration for creating a server.
type ServerOptions struct {
	ListenAddr           string
	ServiceName          string
	Service              Service
	RegisterGRPCServices []GRPCServiceRegistrar
	EnableHealthCheck    bool
	LoggerConfig         *logger.Config
	Logger               logger.Logger
}

// RunServer starts the gRPC listener and the Service, then blocks until a
// shutdown signal, a fatal error, or context cancellation.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := opts.Logger
	if log == nil {
		createdLogger, err := CreateComponentLogger(opts.ServiceName, opts.LoggerConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		log = createdLogger
	}

	grpcServer := grpc.NewServer(opts.ListenAddr, log)

	underlying := grpcServer.GetGRPCServer()

	for _, register := range opts.RegisterGRPCServices {
		if err := register(underlying); err != nil {
			return fmt.Errorf("failed to register gRPC service: %w", err)
		}
	}

	errChan := make(chan error, 2)

	go func() {
		if err := opts.Service.Start(ctx); err != nil {
			errChan <- fmt.Errorf("service start failed: %w", err)
		}
	}()

	go func() {
		log.Info().Str("address", opts.ListenAddr).Msg("starting gRPC server")

		if err := grpcServer.Start(); err != nil {
			errChan <- fmt.Errorf("gRPC server failed: %w", err)
		}
	}()

	return handleShutdown(ctx, cancel, grpcServer, opts.Service, errChan, log)
}

func handleShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	grpcServer *grpc.Server,
	svc Service,
	errChan chan error,
	log logger.Logger,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received signal, initiating shutdown")
	case err := <-errChan:
		log.Error().Err(err).Msg("received error, initiating shutdown")

		return err
	case <-ctx.Done():
		log.Info().Msg("context canceled, initiating shutdown")

		return ctx.Err()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	grpcServer.Stop(shutdownCtx)

	if err := svc.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("%w: %w", errServiceStop, err)
	}

	return nil
}
