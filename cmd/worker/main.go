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

// Command worker periodically samples local host metrics and pushes them
// to a Manager. The real kernel/proc probes (the worker-side monitor
// implementations) are out of this module's scope; this binary carries a
// minimal synthetic sampler so the ingest pipeline has a real producer to
// drive against.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/carverauto/fleetwatch/internal/telemetry"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

const defaultIntervalSeconds = 10

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: %s <manager_address> [interval_seconds]", os.Args[0])
	}

	managerAddr := os.Args[1]

	interval := defaultIntervalSeconds * time.Second
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			return fmt.Errorf("invalid interval_seconds %q: %w", os.Args[2], err)
		}

		interval = time.Duration(n) * time.Second
	}

	if err := logger.InitWithDefaults(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log := logger.New()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 5 * time.Second}
	sampler := newSyntheticSampler(hostname)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("manager", managerAddr).Dur("interval", interval).Msg("worker sampling loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker shutting down")
			return nil
		case <-ticker.C:
			info := sampler.next()

			if err := push(ctx, client, managerAddr, info); err != nil {
				log.Error().Err(err).Msg("push failed")
			}
		}
	}
}

func push(ctx context.Context, client *http.Client, managerAddr string, info telemetry.MonitorInfo) error {
	body, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	url := fmt.Sprintf("http://%s/v1/push", managerAddr)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push rejected: status %d", resp.StatusCode)
	}

	return nil
}

// syntheticSampler produces a plausible, slowly-varying MonitorInfo each
// tick in the absence of a real kernel probe.
type syntheticSampler struct {
	hostname string
	tick     int
}

func newSyntheticSampler(hostname string) *syntheticSampler {
	return &syntheticSampler{hostname: hostname}
}

func (s *syntheticSampler) next() telemetry.MonitorInfo {
	s.tick++

	cpu := 20.0 + float64(s.tick%50)

	return telemetry.MonitorInfo{
		HostInfo: &telemetry.HostInfo{Hostname: s.hostname, IPAddress: "127.0.0.1"},
		CPUStats: []telemetry.CPUStat{
			{CPUPercent: cpu, UsrPercent: cpu * 0.6, SystemPercent: cpu * 0.3, IdlePercent: 100 - cpu},
		},
		CPULoad: &telemetry.CPULoad{LoadAvg1: cpu / 50, LoadAvg3: cpu / 55, LoadAvg15: cpu / 60},
		MemInfo: &telemetry.MemInfo{
			Total:       16 * 1024 * 1024 * 1024,
			UsedPercent: 30 + float64(s.tick%20),
		},
		NetInfo: []telemetry.NetInfo{
			{Name: "eth0", RcvRate: float64(1_000_000 + s.tick*1000), SendRate: float64(500_000 + s.tick*500)},
		},
		DiskInfo: []telemetry.DiskInfo{
			{Name: "sda", UtilPercent: float64(10 + s.tick%30)},
		},
		SoftIRQ: []telemetry.SoftIRQ{
			{CPUName: "cpu0", Timer: uint64(1000 + s.tick)},
		},
	}
}
