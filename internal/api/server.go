package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"HttpSpectra/internal/engine/stats"
	"HttpSpectra/internal/logging"
	"HttpSpectra/internal/model"
	"HttpSpectra/internal/query"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Snapshotter is the read side of the stats engine.
type Snapshotter interface {
	Snapshot() model.Snapshot
}

// SummaryResponse is the body of GET /api/v1/summary.
type SummaryResponse struct {
	TakenAt time.Time `json:"taken_at"`
	Lines   []string  `json:"lines"`
}

// Server serves the live counters over HTTP.
type Server struct {
	source     Snapshotter
	querier    query.Querier
	router     *mux.Router
	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewServer builds the router. querier may be nil, in which case the history
// endpoint answers 501.
func NewServer(addr string, source Snapshotter, querier query.Querier) *Server {
	s := &Server{
		source:   source,
		querier:  querier,
		router:   mux.NewRouter(),
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(NewHostCollector(source))

	s.router.Use(logRequests)
	s.router.HandleFunc("/api/v1/summary", s.summaryHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/hosts", s.hostsHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/hosts/{host}", s.hostHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/hosts/{host}/history", s.historyHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/methods", s.methodsHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/status", s.statusHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/content-types", s.contentTypesHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens in the background. Listener errors other than a clean
// shutdown are logged.
func (s *Server) Start() {
	go func() {
		logging.Infof("API server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Errorf("Could not listen on %s: %v", s.httpServer.Addr, err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("api request")
	})
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := s.source.Snapshot()
	lines := stats.RenderSummary(snapshot, model.EmptySnapshot())
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, SummaryResponse{TakenAt: snapshot.TakenAt, Lines: lines})
}

func (s *Server) hostsHandler(w http.ResponseWriter, r *http.Request) {
	hosts := s.source.Snapshot().HostList()
	if hosts == nil {
		hosts = []model.HostStats{}
	}
	writeJSON(w, http.StatusOK, hosts)
}

func (s *Server) hostHandler(w http.ResponseWriter, r *http.Request) {
	host := mux.Vars(r)["host"]
	snapshot := s.source.Snapshot()
	if !snapshot.HasHost(host) {
		http.Error(w, "unknown host: "+host, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snapshot.Host(host))
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if s.querier == nil {
		http.Error(w, "no history backend configured", http.StatusNotImplemented)
		return
	}
	req := query.HistoryRequest{Host: mux.Vars(r)["host"]}
	params := r.URL.Query()
	var err error
	if v := params.Get("since"); v != "" {
		if req.Since, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "invalid since: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if v := params.Get("until"); v != "" {
		if req.Until, err = time.Parse(time.RFC3339, v); err != nil {
			http.Error(w, "invalid until: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if v := params.Get("limit"); v != "" {
		if req.Limit, err = strconv.Atoi(v); err != nil || req.Limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	points, err := s.querier.HostHistory(r.Context(), req)
	if err != nil {
		http.Error(w, "failed to query history: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []query.HostPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) methodsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Snapshot().Methods)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Snapshot().StatusCodes)
}

func (s *Server) contentTypesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Snapshot().ContentTypes)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warnf("Failed to encode response: %v", err)
	}
}
