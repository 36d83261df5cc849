// Package api serves the state of the probes over HTTP.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/piger/ferm-probe/internal/probe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProbeStatus is the JSON view of a probe.
type ProbeStatus struct {
	probe.Identity
	Target      probe.TargetRange `json:"target"`
	Timestamp   time.Time         `json:"timestamp"`
	TempF       *float64          `json:"temp_f"`
	Class       probe.Class       `json:"class"`
	Highest     *float64          `json:"highest_recorded_temp"`
	Lowest      *float64          `json:"lowest_recorded_temp"`
	Percentages probe.Percentages `json:"percent_spent"`
	Readings    int               `json:"readings"`
	Error       string            `json:"error,omitempty"`
}

func newProbeStatus(snap probe.Snapshot) ProbeStatus {
	ps := ProbeStatus{
		Identity:    snap.Identity,
		Target:      snap.Target,
		Timestamp:   snap.Latest.Time,
		Class:       snap.Class,
		Highest:     snap.Highest,
		Lowest:      snap.Lowest,
		Percentages: snap.Percentages,
		Readings:    snap.Count,
	}
	if snap.Latest.OK() {
		v := snap.Latest.Fahrenheit
		ps.TempF = &v
	}
	if snap.Err != nil {
		ps.Error = snap.ErrorLabel()
	}
	return ps
}

type Server struct {
	store *Store
	log   *slog.Logger
}

// NewRouter returns the routes of the API.
func NewRouter(store *Store, log *slog.Logger) *mux.Router {
	s := &Server{store: store, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods("GET")
	r.HandleFunc("/api/v1/probes", s.listProbes).Methods("GET")
	r.HandleFunc("/api/v1/probes/{position:[0-9]+}", s.getProbe).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}

// NewHandler wraps the router with access logging to w and panic recovery.
func NewHandler(store *Store, log *slog.Logger, w io.Writer) http.Handler {
	h := handlers.CombinedLoggingHandler(w, NewRouter(store, log))
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	_, updated := s.store.Latest()
	if updated.IsZero() {
		writeJSON(w, http.StatusOK, map[string]any{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "updated": updated})
}

func (s *Server) listProbes(w http.ResponseWriter, r *http.Request) {
	snaps, _ := s.store.Latest()

	out := make([]ProbeStatus, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, newProbeStatus(snap))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProbe(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(mux.Vars(r)["position"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position")
		return
	}

	snap, ok := s.store.Get(position)
	if !ok {
		writeError(w, http.StatusNotFound, "probe not found")
		return
	}
	writeJSON(w, http.StatusOK, newProbeStatus(snap))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
