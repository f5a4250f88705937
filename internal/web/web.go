package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dsipanel/internal/config"
	"dsipanel/internal/host"
	appLog "dsipanel/internal/log"
	"dsipanel/internal/panel"
)

// Controller is the panel surface exposed over HTTP. *host.Host implements
// it.
type Controller interface {
	Status() host.Status
	PowerOn() error
	PowerOff() error
	Diagnose() (*host.Diagnostics, error)
}

// Server provides HTTP APIs for panel status and power control.
type Server struct {
	cfg  *config.Config
	ctrl Controller
	mux  chi.Router
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, ctrl Controller) *Server {
	s := &Server{
		cfg:  cfg,
		ctrl: ctrl,
		mux:  chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password leaves auth disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="panelctl", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is done, then shuts
// the server down gracefully.
func StartServer(ctx context.Context, cfg *config.Config, ctrl Controller) error {
	s := NewServer(cfg, ctrl)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	r := s.mux
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/variants", s.handleVariants)
		r.Route("/panel", func(r chi.Router) {
			r.Get("/", s.handleStatus)
			r.Post("/on", s.handlePowerOn)
			r.Post("/off", s.handlePowerOff)
			r.Post("/diagnostics", s.handleDiagnostics)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleVariants(w http.ResponseWriter, _ *http.Request) {
	type variantsResponse struct {
		Compatibles []string `json:"compatibles"`
		Delays      []string `json:"delays"`
	}
	writeJSON(w, http.StatusOK, variantsResponse{
		Compatibles: panel.Compatibles(),
		Delays:      panel.DelayNames(),
	})
}

func (s *Server) handlePowerOn(w http.ResponseWriter, r *http.Request) {
	appLog.Info("api power on request", "request_id", requestID(r))
	if err := s.ctrl.PowerOn(); err != nil {
		writePanelError(w, "power on failed", err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	appLog.Info("api power off request", "request_id", requestID(r))
	if err := s.ctrl.PowerOff(); err != nil {
		writePanelError(w, "power off failed", err)
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	diag, err := s.ctrl.Diagnose()
	if err != nil {
		writePanelError(w, "diagnostics failed", err)
		return
	}
	writeJSON(w, http.StatusOK, diag)
}

// writePanelError maps lifecycle errors to HTTP status codes. A request
// that is illegal in the current panel state is a conflict; anything that
// reached the hardware and failed is a server error.
func writePanelError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, panel.ErrNotPowered) || errors.Is(err, panel.ErrInvalidTransition) {
		status = http.StatusConflict
	}
	appLog.Error("api: "+msg, err, "status", status)
	writeError(w, status, msg+": "+err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
