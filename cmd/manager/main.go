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

// Command manager runs the host-fleet telemetry Manager: the ingest
// pipeline, historical store, and query engine behind a JSON/HTTP
// surface, plus a companion gRPC listener carrying only health and
// reflection.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/fleetwatch/internal/manager"
	"github.com/carverauto/fleetwatch/internal/query"
	"github.com/carverauto/fleetwatch/internal/scorer"
	"github.com/carverauto/fleetwatch/internal/store"
	"github.com/carverauto/fleetwatch/pkg/config"
	"github.com/carverauto/fleetwatch/pkg/lifecycle"
	"github.com/carverauto/fleetwatch/pkg/logger"
	"github.com/carverauto/fleetwatch/pkg/transport/httpapi"
)

const serviceName = "fleetwatch-manager"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to manager config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// A positional listen address wins over both the file and environment.
	if flag.NArg() > 0 {
		cfg.ListenAddr = flag.Arg(0)
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	liveness := time.Duration(cfg.LivenessSeconds) * time.Second

	writer, queryEngine, err := buildStore(ctx, cfg, liveness, log)
	if err != nil {
		log.Warn().Err(err).Msg("historical store unavailable at startup, queries disabled, ingest continues")

		writer = store.NoopWriter{}
		queryEngine = nil
	}

	weights := scorer.Weights{
		CPU:  cfg.Weights.CPU,
		Mem:  cfg.Weights.Mem,
		Load: cfg.Weights.Load,
		Disk: cfg.Weights.Disk,
		Net:  cfg.Weights.Net,
	}

	mgr := manager.New(cfg.ShardCount, writer, queryEngine, weights, liveness, log)

	httpServer := &http.Server{
		Addr:    cfg.HTTPListenAddr,
		Handler: httpapi.CommonMiddleware(httpapi.New(mgr.Ingest, mgr.Query, log).Handler(), httpapi.CORSOptions{AllowedOrigins: []string{"*"}}),
	}

	svc := &managedService{mgr: mgr, httpServer: httpServer, log: log}

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ListenAddr:        cfg.ListenAddr,
		ServiceName:       serviceName,
		Service:           svc,
		EnableHealthCheck: true,
		LoggerConfig:      cfg.Logging,
		Logger:            log,
	})
}

// managedService adapts the ingest/query pipeline and its companion HTTP
// listener into the single lifecycle.Service RunServer drives alongside
// the gRPC health/reflection listener it owns.
type managedService struct {
	mgr        *manager.Manager
	httpServer *http.Server
	log        logger.Logger
}

func (s *managedService) Start(ctx context.Context) error {
	if err := s.mgr.Start(ctx); err != nil {
		return fmt.Errorf("start manager: %w", err)
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP ingest/query listener")

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *managedService) Stop(ctx context.Context) error {
	_ = s.httpServer.Shutdown(ctx)

	return s.mgr.Stop(ctx)
}

func buildStore(ctx context.Context, cfg *config.Config, liveness time.Duration, log logger.Logger) (store.Writer, *query.Engine, error) {
	pg, err := store.NewPG(ctx, store.PGConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	return pg, query.NewEngine(pg.Pool(), liveness, log), nil
}
