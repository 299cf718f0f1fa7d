// Package status serves a read-only JSON view of a running simulation.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/cargoloop/simcore/internal/config"
	"github.com/cargoloop/simcore/internal/sim"
	"github.com/cargoloop/simcore/internal/storage"
	"github.com/cargoloop/simcore/internal/worker"
)

// DefaultTransferLimit caps /api/transfers when no limit is given.
const DefaultTransferLimit = 100

// SnapshotSource provides the world state.
type SnapshotSource interface {
	Snapshot() sim.Snapshot
}

// StatsSource provides recorder counters.
type StatsSource interface {
	Stats() worker.Stats
}

// Dependencies holds what the handlers read from. Transfers and Recorder
// are optional.
type Dependencies struct {
	World     SnapshotSource
	Transfers storage.TransferReader
	Recorder  StatsSource
	Logger    *slog.Logger
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ZonesResponse is the body of GET /api/zones.
type ZonesResponse struct {
	SimTime float64          `json:"simTimeSec"`
	Zones   []sim.ZoneStatus `json:"zones"`
	Count   int              `json:"count"`
}

// VehiclesResponse is the body of GET /api/vehicles.
type VehiclesResponse struct {
	SimTime  float64             `json:"simTimeSec"`
	Vehicles []sim.VehicleStatus `json:"vehicles"`
	Count    int                 `json:"count"`
}

type handler struct {
	deps    Dependencies
	started time.Time
}

// NewRouter builds the chi router with CORS for the given origins.
func NewRouter(deps Dependencies, allowedOrigins []string) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handler{deps: deps, started: time.Now()}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/zones", h.zones)
		r.Get("/zones/{name}", h.zone)
		r.Get("/vehicles", h.vehicles)
		r.Get("/transfers", h.transfers)
		r.Get("/recorder", h.recorder)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	s := h.deps.World.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"simTimeSec": s.SimTime.Seconds(),
		"ticks":      s.Ticks,
		"uptimeSec":  time.Since(h.started).Seconds(),
	})
}

func (h *handler) zones(w http.ResponseWriter, r *http.Request) {
	s := h.deps.World.Snapshot()
	writeJSON(w, http.StatusOK, ZonesResponse{
		SimTime: s.SimTime.Seconds(),
		Zones:   s.Zones,
		Count:   len(s.Zones),
	})
}

func (h *handler) zone(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, z := range h.deps.World.Snapshot().Zones {
		if z.Name == name {
			writeJSON(w, http.StatusOK, z)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "zone not found: " + name})
}

func (h *handler) vehicles(w http.ResponseWriter, r *http.Request) {
	s := h.deps.World.Snapshot()
	writeJSON(w, http.StatusOK, VehiclesResponse{
		SimTime:  s.SimTime.Seconds(),
		Vehicles: s.Vehicles,
		Count:    len(s.Vehicles),
	})
}

func (h *handler) transfers(w http.ResponseWriter, r *http.Request) {
	if h.deps.Transfers == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "storage backend cannot list transfers"})
		return
	}

	limit := DefaultTransferLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	events, err := h.deps.Transfers.Transfers(limit)
	if err != nil {
		h.deps.Logger.Error("Failed to list transfers", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to list transfers"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transfers": events,
		"count":     len(events),
	})
}

func (h *handler) recorder(w http.ResponseWriter, r *http.Request) {
	if h.deps.Recorder == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "recorder not attached"})
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Recorder.Stats())
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// Server runs the status router until Shutdown.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer wires the router to the configured address.
func NewServer(cfg config.StatusConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Address,
			Handler:           NewRouter(deps, cfg.AllowedOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With("component", "status"),
	}
}

// Start listens and serves in the background. The returned address is the
// one actually bound, which matters for ":0".
func (s *Server) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}
	addr := ln.Addr().String()
	s.logger.Info("Status API listening", "address", addr)

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status API stopped", "error", err)
		}
	}()
	return addr, nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
