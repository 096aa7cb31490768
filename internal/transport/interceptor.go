// Package transport implementa el interceptor de requests salientes: adjunta
// identidad y headers de tenant, y maneja centralmente los 401.
package transport

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tenantgate/internal/metrics"
	"github.com/dropDatabas3/tenantgate/internal/observability/logger"
	"github.com/dropDatabas3/tenantgate/internal/resolver"
	"github.com/dropDatabas3/tenantgate/internal/tenantctx"
)

const (
	HeaderTenantSlug = "X-Tenant-Slug"
	HeaderTenantKey  = "X-Tenant-Key"
	HeaderAdminMode  = "X-Admin-Mode"
	HeaderRequestID  = "X-Request-ID"
)

// Navigator redirige la navegación tras un 401. Colaborador de presentación.
type Navigator interface {
	NavigateTo(route string)
}

// NoopNavigator descarta las navegaciones (ejecución headless/tests).
type NoopNavigator struct{}

func (NoopNavigator) NavigateTo(string) {}

// Config del interceptor.
type Config struct {
	// UseTenantHeader habilita globalmente los headers de tenant.
	UseTenantHeader bool
	// APIHost identifica el origen propio: URLs hacia otro host son
	// cross-origin y nunca llevan headers de tenant.
	APIHost string
	// Rutas de login para la redirección en 401.
	TenantLoginRoute   string
	PlatformLoginRoute string
}

// SessionStore es lo que el interceptor necesita del dueño de la sesión.
type SessionStore interface {
	Token() string
	TenantSlugFromClaims() string
	Clear()
}

// Interceptor es un http.RoundTripper que envuelve al transporte base.
type Interceptor struct {
	cfg     Config
	base    http.RoundTripper
	session SessionStore
	tenants *tenantctx.Context
	nav     Navigator
}

// New arma el interceptor. base nil usa http.DefaultTransport; nav nil
// descarta redirecciones.
func New(cfg Config, base http.RoundTripper, session SessionStore, tenants *tenantctx.Context, nav Navigator) *Interceptor {
	if base == nil {
		base = http.DefaultTransport
	}
	if nav == nil {
		nav = NoopNavigator{}
	}
	if cfg.TenantLoginRoute == "" {
		cfg.TenantLoginRoute = "/login"
	}
	if cfg.PlatformLoginRoute == "" {
		cfg.PlatformLoginRoute = "/admin/login"
	}
	return &Interceptor{cfg: cfg, base: base, session: session, tenants: tenants, nav: nav}
}

// Bind asocia el contexto de tenant después de construido (el wiring tiene
// un ciclo: el provider usa este transporte y el contexto depende del
// provider). Debe llamarse antes del primer request concurrente.
func (i *Interceptor) Bind(tenants *tenantctx.Context) { i.tenants = tenants }

// Client retorna un *http.Client que pasa por el interceptor.
func (i *Interceptor) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: i, Timeout: timeout}
}

// RoundTrip aplica la política de headers y la reacción a 401. El request
// original no se muta: se trabaja sobre un clone (contrato de RoundTripper).
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	log := logger.Named("interceptor")
	start := time.Now()

	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}

	// 1. Identidad
	token := ""
	if i.session != nil {
		token = i.session.Token()
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	// 2. Headers de tenant, según la única autoridad de política
	policyPath := i.policyURL(out)
	if i.cfg.UseTenantHeader && i.tenants != nil && i.tenants.ShouldIncludeTenantHeaders(policyPath) {
		if i.tenants.IsGeneralAdminMode() {
			out.Header.Set(HeaderAdminMode, "general")
		}
		h := i.tenants.TenantHeaders()
		if h.Slug == "" {
			// contexto sin resolver todavía: caer al override del query param
			h.Slug = out.URL.Query().Get(resolver.QueryParam)
		}
		if h.Slug != "" {
			out.Header.Set(HeaderTenantSlug, h.Slug)
		}
		if h.Key != "" {
			out.Header.Set(HeaderTenantKey, h.Key)
		}
	}

	resp, err := i.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	// 3. 401: limpiar sesión y redirigir. 403 pasa intacto al caller: la
	// sesión puede seguir siendo válida y el error debe propagarse.
	if resp.StatusCode == http.StatusUnauthorized {
		metrics.ObserveUnauthorized()
		slug := i.knownTenantSlug()
		if i.session != nil {
			i.session.Clear()
		}
		route := i.cfg.PlatformLoginRoute
		if slug != "" {
			route = i.cfg.TenantLoginRoute
		}
		log.Info("401 recibido: sesión invalidada",
			logger.Method(out.Method),
			logger.Path(out.URL.Path),
			logger.TenantSlug(slug),
			logger.Duration(time.Since(start)),
		)
		i.nav.NavigateTo(route)
	}

	return resp, nil
}

// policyURL normaliza la URL para la política: paths same-origin se evalúan
// como relativos; cualquier otro host queda absoluto (cross-origin).
func (i *Interceptor) policyURL(req *http.Request) string {
	host := req.URL.Host
	if host == "" || strings.EqualFold(host, i.cfg.APIHost) {
		return req.URL.Path
	}
	return req.URL.String()
}

// knownTenantSlug busca un tenant conocido: contexto resuelto primero, luego
// el tenant_slug de los claims de la sesión que se está por descartar.
func (i *Interceptor) knownTenantSlug() string {
	if i.tenants != nil {
		if slug := i.tenants.TenantSlug(); slug != "" && slug != "default" {
			return slug
		}
	}
	if i.session != nil {
		return i.session.TenantSlugFromClaims()
	}
	return ""
}
