// Package api serves read-only diagnostics over the live telemetry state:
// current slot values, routing counters and bus interface statistics. It
// snapshots the store before encoding; no slot lock is held across a
// response write.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"eco-dashboard/internal/can"
	"eco-dashboard/internal/catalog"
	"eco-dashboard/internal/pump"
	"eco-dashboard/internal/router"
	"eco-dashboard/internal/store"
)

// StatsSource provides the latest bus interface statistics, if any.
type StatsSource interface {
	Latest() (can.InterfaceStats, bool)
}

// Server is the diagnostics HTTP server.
type Server struct {
	srv   *http.Server
	cat   *catalog.Catalog
	store *store.Store
	rt    *router.Router
	pmp   *pump.Pump
	stats StatsSource
	log   zerolog.Logger
}

// NewServer wires the diagnostics endpoints. stats may be nil when no
// collector runs (non-SocketCAN drivers).
func NewServer(addr string, cat *catalog.Catalog, st *store.Store, rt *router.Router, p *pump.Pump, stats StatsSource, log zerolog.Logger) *Server {
	s := &Server{
		cat:   cat,
		store: st,
		rt:    rt,
		pmp:   p,
		stats: stats,
		log:   log.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	mux.HandleFunc("GET /api/telemetry/{id}", s.handleTelemetryByID)
	mux.HandleFunc("GET /api/router", s.handleRouter)
	mux.HandleFunc("GET /api/bus", s.handleBus)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("diagnostics API listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// slotView is one slot's state in API responses.
type slotView struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Length  uint8   `json:"length"`
	Value   any     `json:"value"`
	AgeMS   *int64  `json:"age_ms"` // nil until the first update
	Updated *string `json:"updated_at"`
}

func (s *Server) slotView(d catalog.Descriptor) slotView {
	v := slotView{
		ID:     fmt.Sprintf("0x%03X", d.ID),
		Name:   d.Name,
		Length: d.Length,
	}
	if rec, ok := s.store.Read(d.ID); ok {
		v.Value = rec
	}
	if ts, ok := s.store.LastUpdate(d.ID); ok && !ts.IsZero() {
		age := time.Since(ts).Milliseconds()
		if age < 0 {
			age = 0
		}
		v.AgeMS = &age
		str := ts.UTC().Format(time.RFC3339Nano)
		v.Updated = &str
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":  "ok",
		"packets": s.cat.Len(),
	})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	descs := s.cat.Descriptors()
	views := make([]slotView, 0, len(descs))
	for _, d := range descs {
		views = append(views, s.slotView(d))
	}
	s.writeJSON(w, views)
}

func (s *Server) handleTelemetryByID(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(strings.ToLower(r.PathValue("id")), "0x")
	id, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		http.Error(w, "invalid identifier", http.StatusBadRequest)
		return
	}
	d, ok := s.cat.Lookup(uint32(id))
	if !ok {
		http.Error(w, "unknown identifier", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.slotView(d))
}

func (s *Server) handleRouter(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"outcomes": s.rt.Counters(),
		"pump":     s.pmp.Metrics(),
	})
}

func (s *Server) handleBus(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "no statistics collector for this driver", http.StatusNotFound)
		return
	}
	stats, ok := s.stats.Latest()
	if !ok {
		http.Error(w, "no statistics collected yet", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, stats)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("failed to encode response")
	}
}
