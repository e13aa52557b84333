package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/elevenfingers/internal/connection"
	"github.com/rickgao/elevenfingers/internal/metrics"
	"github.com/rickgao/elevenfingers/internal/model"
	"github.com/rickgao/elevenfingers/internal/store"
)

// connectionState is the part of the Connection Manager the status server reads.
type connectionState interface {
	Status() model.ConnectionStatus
	Stats() connection.ManagerStats
}

type healthResponse struct {
	Status              model.ConnectionStatus `json:"status"`
	ConnectAttempts     int64                  `json:"connectAttempts"`
	ReconnectsScheduled int64                  `json:"reconnectsScheduled"`
	SendFailures        int64                  `json:"sendFailures"`
	RetryPending        bool                   `json:"retryPending"`
}

func newStatusHandler(s *store.Session, conn connectionState, metricsPath string, g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		st := conn.Status()
		stats := conn.Stats()

		code := http.StatusOK
		if st != model.StatusConnected {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{
			Status:              st,
			ConnectAttempts:     stats.ConnectAttempts,
			ReconnectsScheduled: stats.ReconnectsScheduled,
			SendFailures:        stats.SendFailures,
			RetryPending:        stats.RetryPending,
		})
	})

	r.Get("/session", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.View())
	})

	r.Method(http.MethodGet, metricsPath, metrics.Handler(g))

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
