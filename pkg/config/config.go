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

// Package config loads the Manager's configuration from an optional JSON
// file, then applies environment variable overrides on top — the same
// file-then-env layering the rest of the stack uses for logger.Config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/carverauto/fleetwatch/pkg/logger"
)

// Database holds the connection parameters for the Historical Store.
type Database struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	SSLMode  string `json:"ssl_mode"`
}

// Weights mirrors internal/scorer.Weights so operators can override the
// per-dimension score weights from config/environment without this
// package importing the scorer package back.
type Weights struct {
	CPU  float64 `json:"cpu"`
	Mem  float64 `json:"mem"`
	Load float64 `json:"load"`
	Disk float64 `json:"disk"`
	Net  float64 `json:"net"`
}

// Config is the Manager's full runtime configuration.
type Config struct {
	ListenAddr      string         `json:"listen_addr"`
	HTTPListenAddr  string         `json:"http_listen_addr"`
	ShardCount      int            `json:"shard_count"`
	LivenessSeconds int            `json:"liveness_seconds"`
	Weights         Weights        `json:"weights"`
	Database        Database       `json:"database"`
	Logging         *logger.Config `json:"logging"`
}

// Default returns the configuration used when no file and no environment
// overrides are present: a shard count of 4 (matching the source's
// default thread_count), a 60s liveness threshold, and the scorer's
// default per-dimension weights (cpu 0.35, mem 0.30, load 0.15, disk
// 0.15, net 0.05).
func Default() *Config {
	return &Config{
		ListenAddr:      "0.0.0.0:50051",
		HTTPListenAddr:  "0.0.0.0:50052",
		ShardCount:      4,
		LivenessSeconds: 60,
		Weights:         Weights{CPU: 0.35, Mem: 0.30, Load: 0.15, Disk: 0.15, Net: 0.05},
		Database: Database{
			Host:    "localhost",
			Port:    5432,
			User:    "monitor",
			Name:    "monitor_db",
			SSLMode: "disable",
		},
		Logging: logger.DefaultConfig(),
	}
}

// Load reads path (if non-empty and present) as JSON over the default
// configuration, then applies environment overrides. A missing path is
// not an error: the Manager falls back to defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MANAGER_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if v := os.Getenv("MANAGER_HTTP_LISTEN_ADDR"); v != "" {
		cfg.HTTPListenAddr = v
	}

	if v := os.Getenv("SHARD_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ShardCount = n
		}
	}

	if v := os.Getenv("LIVENESS_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LivenessSeconds = n
		}
	}

	applyWeightEnvOverride("WEIGHT_CPU", &cfg.Weights.CPU)
	applyWeightEnvOverride("WEIGHT_MEM", &cfg.Weights.Mem)
	applyWeightEnvOverride("WEIGHT_LOAD", &cfg.Weights.Load)
	applyWeightEnvOverride("WEIGHT_DISK", &cfg.Weights.Disk)
	applyWeightEnvOverride("WEIGHT_NET", &cfg.Weights.Net)

	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}

	if v := os.Getenv("DB_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = n
		}
	}

	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}

	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}

	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}

	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" && cfg.Logging != nil {
		cfg.Logging.Level = v
	}
}

func applyWeightEnvOverride(envVar string, field *float64) {
	if v := os.Getenv(envVar); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*field = f
		}
	}
}
