// Package server exposes the rotation workflow over a small authenticated
// web UI: start a run, stream its progress, fetch the resulting keys.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/rotation"
)

//go:embed index.html
var indexHTML []byte

// Server serves the web UI for one rotation service.
type Server struct {
	svc   *rotation.Service
	prof  config.Profile
	creds Credentials

	upgrader websocket.Upgrader
}

// New wires a server. Credentials must already exist; see SaveCredentials.
func New(svc *rotation.Service, prof config.Profile, creds Credentials) *Server {
	return &Server{
		svc:   svc,
		prof:  prof,
		creds: creds,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.requireAuth(s.handleIndex))
	mux.HandleFunc("POST /start", s.requireAuth(s.handleStart))
	mux.HandleFunc("GET /progress", s.requireAuth(s.handleProgress))
	mux.HandleFunc("GET /ws", s.requireAuth(s.handleWS))
	mux.HandleFunc("GET /keys", s.requireAuth(s.handleKeys))
	mux.HandleFunc("GET /config", s.requireAuth(s.handleConfig))
	return mux
}

// ListenAndServe runs the UI until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

type startRequest struct {
	AccountName string `json:"account_name"`
	URL         string `json:"url"`
	WIFKey      string `json:"wif_key"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{"error", "invalid JSON body"})
		return
	}
	if req.AccountName == "" || req.WIFKey == "" {
		writeJSON(w, http.StatusBadRequest, apiError{"error", "Account name and WIF key are required."})
		return
	}
	_, err := s.svc.Start(context.Background(), rotation.Request{
		AccountName: req.AccountName,
		URL:         req.URL,
		WIF:         req.WIFKey,
	})
	if errors.Is(err, rotation.ErrRunActive) {
		writeJSON(w, http.StatusBadRequest, apiError{"error", "A process is already running."})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, apiError{"error", err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Process started."})
}

// handleProgress streams the current run's feed as server-sent events.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	feed := s.svc.Feed()
	if feed == nil {
		writeJSON(w, http.StatusNotFound, apiError{"error", "no rotation has been started"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	sub := feed.Subscribe()
	defer feed.Unsubscribe(sub)
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", ev.Message)
			flusher.Flush()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	feed := s.svc.Feed()
	if feed == nil {
		writeJSON(w, http.StatusNotFound, apiError{"error", "no rotation has been started"})
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := feed.Subscribe()
	defer feed.Unsubscribe(sub)
	for ev := range sub {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run complete"))
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	last := s.svc.Last()
	if last == nil || !last.KeysIssued() {
		writeJSON(w, http.StatusNotFound, apiError{"error", "No keys available or process was not successful."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"keys": map[string]string{
			"pub_key": last.Keys.PublicKey,
			"wif_key": last.Keys.PrivateKeyWIF,
		},
	})
}

// handleConfig exposes the execution mode only, never paths or endpoints
// an attacker could use.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"config": map[string]any{
			"backend":    s.prof.Backend,
			"local_node": s.prof.LocalNode,
			"configured": true,
		},
	})
}
