package server

import (
	"context"
	"net/http"
	"time"

	"github.com/devicelab-dev/uiharness/pkg/core"
)

const (
	defaultIdleTimeout = 5 * time.Second
	maxIdleTimeout     = time.Minute
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Commands
	mux.HandleFunc("/tap", s.handleTap)
	mux.HandleFunc("/texts", s.handleTexts)
	mux.HandleFunc("/scroll-into", s.handleScrollInto)

	// Inspection
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/elements", s.handleElements)
	mux.HandleFunc("/idle", s.handleIdle)

	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	cmd, err := parseTap(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, s.engine.Apply(r.Context(), cmd))
}

func (s *Server) handleTexts(w http.ResponseWriter, r *http.Request) {
	cmd, err := parseTexts(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	result := s.engine.Apply(r.Context(), cmd)
	if result.Error != nil {
		writeError(w, result.Error)
		return
	}
	writeJSON(w, http.StatusOK, result.Texts)
}

func (s *Server) handleScrollInto(w http.ResponseWriter, r *http.Request) {
	cmd, err := parseScrollInto(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, s.engine.Apply(r.Context(), cmd))
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Settle  string `json:"settle"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Ready:   true,
		Version: s.version,
		Settle:  s.engine.SettleMode(),
	})
}

func (s *Server) handleElements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Elements())
}

func (s *Server) handleIdle(w http.ResponseWriter, r *http.Request) {
	timeout, err := parseTimeout(r.URL.Query(), defaultIdleTimeout, maxIdleTimeout)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	if err := s.engine.WaitIdle(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: core.StatusSuccess, Message: "idle"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Response{
		Status: core.StatusError,
		Code:   "unknown_endpoint",
		Reason: "no such endpoint: " + r.URL.Path,
	})
}
