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

// Package httpapi exposes the Ingest Endpoint and Query Engine operations
// as JSON-over-HTTP handlers. The wire codec for these RPCs is explicitly
// out of scope for the core pipeline; this adapter is the minimal stand-in
// so the pipeline is independently reachable and testable without a
// generated gRPC/protobuf surface. google.golang.org/grpc's Server (see
// pkg/grpc) is still used alongside this for process bind/health/reflection.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/fleetwatch/internal/ingest"
	"github.com/carverauto/fleetwatch/internal/query"
	"github.com/carverauto/fleetwatch/internal/telemetry"
	"github.com/carverauto/fleetwatch/pkg/logger"
)

// CORSOptions configures which origins CommonMiddleware allows.
type CORSOptions struct {
	AllowedOrigins []string
}

// CommonMiddleware applies CORS handling to every request, mirroring the
// allow-list-or-reject shape used elsewhere in this stack.
func CommonMiddleware(next http.Handler, opts CORSOptions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed := false

		for _, o := range opts.AllowedOrigins {
			if o == origin || o == "*" {
				allowed = true
				w.Header().Set("Access-Control-Allow-Origin", origin)

				break
			}
		}

		if !allowed {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Server bundles the handlers backing the Ingest and Query surfaces.
type Server struct {
	ingest *ingest.Endpoint
	query  *query.Engine
	log    logger.Logger
}

// New builds a Server. queryEngine may be nil when the historical store is
// unavailable at startup — query endpoints then return 503, while ingest
// continues to accept pushes (the configuration-failure error kind never
// disables ingest).
func New(ingestEndpoint *ingest.Endpoint, queryEngine *query.Engine, log logger.Logger) *Server {
	return &Server{ingest: ingestEndpoint, query: queryEngine, log: log}
}

// Handler returns the full routed mux, ready to be wrapped in
// CommonMiddleware and served by an *http.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/push", withRequestID(http.HandlerFunc(s.handlePush)))
	mux.HandleFunc("/v1/sample", s.handleGetSample)
	mux.HandleFunc("/v1/query/performance", s.handleQueryPerformance)
	mux.HandleFunc("/v1/query/trend", s.handleQueryTrend)
	mux.HandleFunc("/v1/query/anomaly", s.handleQueryAnomaly)
	mux.HandleFunc("/v1/query/score-rank", s.handleQueryScoreRank)
	mux.HandleFunc("/v1/query/latest-score", s.handleQueryLatestScore)
	mux.HandleFunc("/v1/query/net-detail", s.handleQueryNetDetail)
	mux.HandleFunc("/v1/query/disk-detail", s.handleQueryDiskDetail)
	mux.HandleFunc("/v1/query/mem-detail", s.handleQueryMemDetail)
	mux.HandleFunc("/v1/query/softirq-detail", s.handleQuerySoftIrqDetail)

	return mux
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var info telemetry.MonitorInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ingest.PushMonitorInfo(r.Context(), info); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetSample(w http.ResponseWriter, r *http.Request) {
	info, ok := s.ingest.GetMonitorInfo(r.Context())
	if !ok {
		http.Error(w, "no samples known", http.StatusNotFound)
		return
	}

	writeJSON(w, info)
}

func (s *Server) queryUnavailable(w http.ResponseWriter) bool {
	if s.query == nil {
		http.Error(w, "query engine unavailable", http.StatusServiceUnavailable)
		return true
	}

	return false
}

func (s *Server) handleQueryPerformance(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	host, t0, t1, page, pageSize := parsePagedRangeParams(r)

	rows, total, err := s.query.QueryPerformance(r.Context(), host, t0, t1, page, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"rows": rows, "total": total})
}

func (s *Server) handleQueryTrend(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	host, t0, t1, _, _ := parsePagedRangeParams(r)
	intervalS, _ := strconv.Atoi(r.URL.Query().Get("interval_s"))

	rows, err := s.query.QueryTrend(r.Context(), host, t0, t1, intervalS)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, rows)
}

func (s *Server) handleQueryAnomaly(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	host, t0, t1, page, pageSize := parsePagedRangeParams(r)

	th := query.AnomalyThresholds{
		CPU:        parseFloat(r, "cpu_threshold", 80),
		Mem:        parseFloat(r, "mem_threshold", 80),
		Disk:       parseFloat(r, "disk_threshold", 80),
		ChangeRate: parseFloat(r, "change_rate_threshold", 1.0),
	}

	records, total, err := s.query.QueryAnomaly(r.Context(), host, t0, t1, th, page, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"records": records, "total": total})
}

func (s *Server) handleQueryScoreRank(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	page, pageSize := parsePageParams(r)
	order := r.URL.Query().Get("order")

	rows, total, err := s.query.QueryScoreRank(r.Context(), order, page, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"rows": rows, "total": total})
}

func (s *Server) handleQueryLatestScore(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	rows, stats, err := s.query.QueryLatestScore(r.Context(), time.Now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"rows": rows, "cluster_stats": stats})
}

func (s *Server) handleQueryNetDetail(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	host, t0, t1, page, pageSize := parsePagedRangeParams(r)

	rows, total, err := s.query.QueryNetDetail(r.Context(), host, t0, t1, page, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"rows": rows, "total": total})
}

func (s *Server) handleQueryDiskDetail(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	host, t0, t1, page, pageSize := parsePagedRangeParams(r)

	rows, total, err := s.query.QueryDiskDetail(r.Context(), host, t0, t1, page, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"rows": rows, "total": total})
}

func (s *Server) handleQueryMemDetail(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	host, t0, t1, page, pageSize := parsePagedRangeParams(r)

	rows, total, err := s.query.QueryMemDetail(r.Context(), host, t0, t1, page, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"rows": rows, "total": total})
}

func (s *Server) handleQuerySoftIrqDetail(w http.ResponseWriter, r *http.Request) {
	if s.queryUnavailable(w) {
		return
	}

	host, t0, t1, page, pageSize := parsePagedRangeParams(r)

	rows, total, err := s.query.QuerySoftIrqDetail(r.Context(), host, t0, t1, page, pageSize)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{"rows": rows, "total": total})
}

func parsePageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))

	return page, pageSize
}

func parsePagedRangeParams(r *http.Request) (host string, t0, t1 time.Time, page, pageSize int) {
	q := r.URL.Query()
	host = q.Get("host")

	t0 = parseTime(q.Get("t0"))
	t1 = parseTime(q.Get("t1"))

	if t1.IsZero() {
		t1 = time.Now()
	}

	page, pageSize = parsePageParams(r)

	return host, t0, t1, page, pageSize
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}

	return t
}

func parseFloat(r *http.Request, key string, fallback float64) float64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}

	return f
}

// withRequestID stamps every push with a correlation ID: the caller's
// X-Request-Id header if present, otherwise a new UUID, echoed back in the
// response header. The ID is not passed to the handler or written to any
// log.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
