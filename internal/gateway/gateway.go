// Package gateway exposes the browser-chat surface: a token-guarded
// REST endpoint and a websocket for interactive chat. The gateway is
// the only network listener; every other component is reached through
// the CLI or not at all.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/model"
	"github.com/phazurlabs/openclaw-fortress/internal/pipeline"
	"github.com/phazurlabs/openclaw-fortress/internal/tokenauth"
)

// Server is the HTTP/websocket gateway.
type Server struct {
	addr    string
	token   string
	auth    *tokenauth.Authenticator
	handler *pipeline.Handler
	log     *audit.Log
	httpSrv *http.Server
}

// New builds a gateway server. token may be empty (open mode; the
// authenticator audits that loudly).
func New(addr, token string, auth *tokenauth.Authenticator, handler *pipeline.Handler, log *audit.Log) *Server {
	s := &Server{
		addr:    addr,
		token:   token,
		auth:    auth,
		handler: handler,
		log:     log,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/messages", s.handleMessage).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "gateway: listening on %s\n", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutCtx)
	case err := <-errCh:
		return fmt.Errorf("gateway: serve: %w", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// authenticate extracts the bearer token and runs the full gateway
// auth check. Writes the error response itself when auth fails.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) bool {
	provided := bearerToken(r)
	res := s.auth.Authenticate(provided, s.token, clientIP(r))
	if !res.OK {
		status := http.StatusUnauthorized
		if res.Reason == "Rate limited" {
			status = http.StatusTooManyRequests
		}
		writeError(w, status, res.Reason)
		return false
	}
	return true
}

// messageRequest is the REST chat request body.
type messageRequest struct {
	ContactID string `json:"contact_id"`
	Text      string `json:"text"`
}

// messageResponse mirrors the gate result. Silent rejections still get
// an HTTP status on this surface; "silent" applies to chat transports
// where an error reply would leak gate internals to a stranger.
type messageResponse struct {
	Reply   string `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if !s.authenticate(w, r) {
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Missing text")
		return
	}
	contact := req.ContactID
	if contact == "" {
		contact = clientIP(r)
	}

	result := s.handler.HandleMessage(r.Context(), model.InboundMessage{
		Channel:   model.ChannelWeb,
		ContactID: contact,
		Text:      req.Text,
		Timestamp: time.Now().UnixMilli(),
	})

	w.Header().Set("Content-Type", "application/json")
	if !result.Allowed {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(messageResponse{Error: result.Reason})
		return
	}
	json.NewEncoder(w).Encode(messageResponse{Reply: result.Reply, TraceID: result.TraceID})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	// Websocket clients cannot set headers from a browser; allow the
	// token as a query parameter on this loopback-only listener.
	return r.URL.Query().Get("token")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(messageResponse{Error: msg})
}
