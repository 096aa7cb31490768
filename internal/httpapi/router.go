// Package httpapi expone la superficie HTTP del servicio: health, readiness,
// métricas y el snapshot de tenant para debug.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tenantgate/internal/authz"
	"github.com/dropDatabas3/tenantgate/internal/bootstrap"
	"github.com/dropDatabas3/tenantgate/internal/domain"
	"github.com/dropDatabas3/tenantgate/internal/mode"
	"github.com/dropDatabas3/tenantgate/internal/tenantctx"
)

// Config de la superficie HTTP.
type Config struct {
	CORSAllowedOrigins []string
	// ReadyTimeout acota cuánto espera /readyz por el contexto de tenant.
	ReadyTimeout time.Duration
}

// Server agrupa las dependencias de los handlers.
type Server struct {
	cfg     Config
	boot    *bootstrap.Bootstrap
	tenants *tenantctx.Context
	authn   *authz.Engine
	modes   *mode.Selector
	metrics http.Handler
}

func NewServer(cfg Config, boot *bootstrap.Bootstrap, tenants *tenantctx.Context, authn *authz.Engine, modes *mode.Selector, metricsHandler http.Handler) *Server {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 5 * time.Second
	}
	return &Server{cfg: cfg, boot: boot, tenants: tenants, authn: authn, modes: modes, metrics: metricsHandler}
}

// Handler arma el router con la cadena de middlewares estándar.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/debug/tenant", s.handleDebugTenant)

	r.Route("/api/tenant", func(r chi.Router) {
		r.Get("/current", s.handleCurrentTenant)
		r.Post("/switch", s.handleSwitchTenant)
		r.Post("/retry", s.handleRetry)
	})

	if s.authn != nil && s.modes != nil {
		r.Route("/api/session", func(r chi.Router) {
			r.Get("/", s.handleSession)
			r.Post("/mode", s.handleSetMode)
			r.Post("/mode/toggle", s.handleToggleMode)
		})
	}

	var h http.Handler = r
	h = WithLogging(h)
	h = WithRecover(h)
	h = WithRequestID(h)
	h = WithCORS(h, s.cfg.CORSAllowedOrigins)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady espera a que haya un tenant resuelto (o el default instalado).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.tenants.WaitForTenant(r.Context(), s.cfg.ReadyTimeout); err != nil {
		var resErr *domain.ResolutionError
		if errors.As(err, &resErr) {
			WriteResolutionError(w, resErr)
			return
		}
		WriteError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"tenant": s.tenants.TenantSlug(),
	})
}

func (s *Server) handleDebugTenant(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, s.boot.DebugInfo())
}

func (s *Server) handleCurrentTenant(w http.ResponseWriter, r *http.Request) {
	if resErr := s.boot.Error(); resErr != nil && s.boot.State().Terminal() && !s.boot.IsReady() {
		WriteResolutionError(w, resErr)
		return
	}
	cfg := s.tenants.CurrentConfig()
	if cfg == nil {
		WriteError(w, http.StatusServiceUnavailable, "tenant_unresolved", "contexto de tenant sin resolver")
		return
	}
	WriteJSON(w, http.StatusOK, cfg)
}

type switchRequest struct {
	Slug string `json:"slug"`
}

func (s *Server) handleSwitchTenant(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if !readJSON(w, r, &req) {
		return
	}
	req.Slug = strings.TrimSpace(strings.ToLower(req.Slug))
	if req.Slug == "" {
		WriteError(w, http.StatusBadRequest, "invalid_slug", "slug requerido")
		return
	}
	if err := s.boot.SwitchTenant(r.Context(), req.Slug); err != nil {
		writeBootstrapError(w, s.boot, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.boot.Current())
}

// handleRetry reintenta la resolución. Un slug en el body cambia el tenant
// objetivo; sin body reintenta el último intento.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if r.ContentLength != 0 {
		if !readJSON(w, r, &req) {
			return
		}
	}
	if err := s.boot.Retry(r.Context(), strings.TrimSpace(strings.ToLower(req.Slug))); err != nil {
		writeBootstrapError(w, s.boot, err)
		return
	}
	WriteJSON(w, http.StatusOK, s.boot.Current())
}

// handleSession expone el snapshot de autorización y modo del principal.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": s.authn.IsAuthenticated(),
		"role":          s.authn.Role(),
		"superadmin":    s.authn.IsSuperAdmin(),
		"mode":          s.modes.EffectiveMode(),
		"shouldPrompt":  s.modes.ShouldPrompt(),
	})
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if !readJSON(w, r, &req) {
		return
	}
	m := domain.PrincipalMode(strings.TrimSpace(strings.ToLower(req.Mode)))
	if err := s.modes.SetMode(m); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"mode": s.modes.EffectiveMode()})
}

func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	if err := s.modes.Toggle(); err != nil {
		WriteError(w, http.StatusInternalServerError, "mode_toggle_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"mode": s.modes.EffectiveMode()})
}

func writeBootstrapError(w http.ResponseWriter, boot *bootstrap.Bootstrap, err error) {
	var resErr *domain.ResolutionError
	if errors.As(err, &resErr) {
		WriteResolutionError(w, resErr)
		return
	}
	if resErr := boot.Error(); resErr != nil {
		WriteResolutionError(w, resErr)
		return
	}
	WriteError(w, http.StatusInternalServerError, "resolution_failed", err.Error())
}

// readJSON decodifica JSON de forma tolerante (no falla por campos extra) y
// limita el body a 1MB.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if ct != "" && !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido")
		return false
	}
	return true
}
