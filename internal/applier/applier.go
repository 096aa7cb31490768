// Package applier aplica los efectos visibles de una resolución exitosa:
// título del documento, meta tags (description/og/twitter/theme-color),
// variables CSS del theme y favicon.
//
// La aplicación es idempotente por contrato: aplicar dos veces la misma
// configuración produce exactamente el mismo estado, sin nodos duplicados.
package applier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

// Applier recibe la configuración resuelta. Colaborador de presentación.
type Applier interface {
	Apply(cfg *domain.TenantConfig) error
}

// Noop descarta los efectos (ejecución server-side).
type Noop struct{}

func (Noop) Apply(*domain.TenantConfig) error { return nil }

// HeadState es el estado derivado del <head> para un tenant. Se reemplaza
// entero en cada Apply: los tags se identifican por key, nunca se acumulan.
type HeadState struct {
	Title   string
	Metas   map[string]string // key: "name:description", "property:og:title"
	CSSVars map[string]string // --tenant-* variables
	Favicon string
}

// Head materializa HeadState desde configuraciones de tenant y lo renderiza
// como fragmento HTML para inyección server-side.
type Head struct {
	mu    sync.RWMutex
	state HeadState
}

// NewHead crea un applier de head vacío.
func NewHead() *Head { return &Head{} }

// Apply deriva el estado completo desde cfg y lo instala de una pieza.
func (h *Head) Apply(cfg *domain.TenantConfig) error {
	if cfg == nil {
		return fmt.Errorf("applier: configuración nil")
	}

	description := cfg.SEO.Description
	if description == "" {
		description = "Tienda online de " + cfg.Tenant.DisplayName
	}

	metas := map[string]string{
		"name:description":         description,
		"property:og:title":        cfg.Tenant.DisplayName,
		"property:og:description":  description,
		"name:twitter:title":       cfg.Tenant.DisplayName,
		"name:twitter:description": description,
		"name:theme-color":         cfg.Theme.Primary,
	}
	if cfg.Theme.LogoURL != "" {
		metas["property:og:image"] = cfg.Theme.LogoURL
		metas["name:twitter:image"] = cfg.Theme.LogoURL
	}

	vars := map[string]string{
		"--tenant-primary-color": cfg.Theme.Primary,
		"--tenant-accent-color":  cfg.Theme.Accent,
	}
	if cfg.Theme.Background != "" {
		vars["--tenant-background-color"] = cfg.Theme.Background
	}
	if cfg.Theme.TextColor != "" {
		vars["--tenant-text-color"] = cfg.Theme.TextColor
	}
	for k, v := range cfg.Theme.CSSVars {
		vars["--tenant-"+strings.TrimPrefix(k, "--")] = v
	}

	h.mu.Lock()
	h.state = HeadState{
		Title:   cfg.Tenant.DisplayName,
		Metas:   metas,
		CSSVars: vars,
		Favicon: cfg.Theme.FaviconURL,
	}
	h.mu.Unlock()
	return nil
}

// State retorna una copia del estado vigente.
func (h *Head) State() HeadState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := HeadState{Title: h.state.Title, Favicon: h.state.Favicon}
	out.Metas = make(map[string]string, len(h.state.Metas))
	for k, v := range h.state.Metas {
		out.Metas[k] = v
	}
	out.CSSVars = make(map[string]string, len(h.state.CSSVars))
	for k, v := range h.state.CSSVars {
		out.CSSVars[k] = v
	}
	return out
}

// Render emite el fragmento HTML del estado, con orden determinístico.
func (h *Head) Render() string {
	st := h.State()
	var b strings.Builder

	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(st.Title))

	for _, key := range sortedKeys(st.Metas) {
		attr, name, _ := strings.Cut(key, ":")
		fmt.Fprintf(&b, "<meta %s=%q content=%q>\n", attr, name, html.EscapeString(st.Metas[key]))
	}

	if len(st.CSSVars) > 0 {
		b.WriteString("<style>:root{")
		for _, k := range sortedKeys(st.CSSVars) {
			fmt.Fprintf(&b, "%s:%s;", k, st.CSSVars[k])
		}
		b.WriteString("}</style>\n")
	}

	if st.Favicon != "" {
		fmt.Fprintf(&b, "<link rel=\"icon\" href=%q>\n", st.Favicon)
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Recorder registra cada Apply para tests.
type Recorder struct {
	mu      sync.Mutex
	applied []*domain.TenantConfig
}

func (r *Recorder) Apply(cfg *domain.TenantConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, cfg)
	return nil
}

// Applied retorna los configs aplicados en orden.
func (r *Recorder) Applied() []*domain.TenantConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.TenantConfig, len(r.applied))
	copy(out, r.applied)
	return out
}
