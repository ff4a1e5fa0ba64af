// Package httpapi is a thin, optional JSON binding over the Slot
// Manager's control operations. It is a reference HTTP surface, not
// part of the core pipeline.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aes67bridge/core/internal/sap"
	"github.com/aes67bridge/core/internal/slot"
	"github.com/aes67bridge/core/internal/slotmgr"
)

const sourceDiscoveryTimeout = 2 * time.Second

// Server exposes the Slot Manager's control surface over HTTP.
type Server struct {
	log       *slog.Logger
	mgr       *slotmgr.Manager
	announcer *sap.Announcer
}

// New creates a Server bound to mgr. announcer may be nil (e.g. in
// tests that don't care about SAP); when set, handleStop withdraws
// every Live slot's announcement before stopping it.
func New(mgr *slotmgr.Manager, announcer *sap.Announcer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{log: log.With("component", "httpapi"), mgr: mgr, announcer: announcer}
}

// Handler returns the http.Handler implementing every control
// operation the Slot Manager exposes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sources", s.handleListSources)
	mux.HandleFunc("POST /api/sources/refresh", s.handleRefreshSources)
	mux.HandleFunc("GET /api/slots", s.handleGetConfigs)
	mux.HandleFunc("PUT /api/slots/{id}", s.handleSetConfig)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/active-slots", s.handleActiveSlots)
	mux.HandleFunc("GET /api/slots/{id}/sdp", s.handleSlotSDP)
	mux.HandleFunc("GET /api/slots/{id}/debug", s.handleDebugSlot)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeSlotError maps the slot package's sentinel errors to HTTP status
// codes.
func writeSlotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, slot.ErrLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, slot.ErrUnknownSlot):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, slot.ErrSDPUnavailable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, slot.ErrInvalidMulticastAddr), errors.Is(err, slot.ErrPortOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.ListSources())
}

func (s *Server) handleRefreshSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.mgr.RefreshSources(sourceDiscoveryTimeout)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleGetConfigs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.ListConfigs())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	var cfg slot.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := s.mgr.SetConfig(id, cfg)
	if err != nil {
		writeSlotError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	running, message := s.mgr.StartAll()
	writeJSON(w, http.StatusOK, statusResponse{Running: running, Message: message})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mgr.StopAllAnnounced(s.announcer)
	running, message := s.mgr.Status()
	writeJSON(w, http.StatusOK, statusResponse{Running: running, Message: message})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	running, message := s.mgr.Status()
	writeJSON(w, http.StatusOK, statusResponse{Running: running, Message: message})
}

func (s *Server) handleActiveSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.mgr.ActiveSlots())
}

func (s *Server) handleSlotSDP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	flavor := sap.FlavorAES67
	if r.URL.Query().Get("flavor") == "monitor" {
		flavor = sap.FlavorMonitor
	}
	sdp, err := s.mgr.SlotSDP(id, flavor)
	if err != nil {
		writeSlotError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/sdp")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(sdp))
}

func (s *Server) handleDebugSlot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot id")
		return
	}
	status, err := s.mgr.DebugSlot(id)
	if err != nil {
		writeSlotError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type statusResponse struct {
	Running bool   `json:"running"`
	Message string `json:"message"`
}
