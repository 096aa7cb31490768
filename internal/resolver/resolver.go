// Package resolver convierte señales ambiente en un slug de tenant mediante
// una cadena de estrategias priorizadas. Función pura: sin I/O y sin fallas;
// la ausencia de señales degrada al default.
package resolver

import (
	"fmt"
	"strings"

	"github.com/dropDatabas3/tenantgate/internal/domain"
	"github.com/dropDatabas3/tenantgate/internal/env"
)

// QueryParam es el query param de resolución (?tenant=<slug>).
const QueryParam = "tenant"

// Config parametriza la cadena de estrategias.
type Config struct {
	// DefaultSlug gana cuando ninguna otra estrategia produce valor.
	DefaultSlug string
	// HostnameMap mapea hostnames completos (dominios custom) a slugs.
	HostnameMap map[string]string
	// Enabled lista los tipos habilitados; vacío habilita todos.
	Enabled []string
	// ReservedSubdomains que nunca resuelven a un tenant. Vacío usa el
	// denylist estándar.
	ReservedSubdomains []string
}

// Resolver evalúa la cadena en orden fijo de prioridad:
// override > query > subdomain > hostname > default.
type Resolver struct {
	cfg      Config
	reserved map[string]struct{}
	enabled  map[domain.StrategyType]struct{}
}

// New crea un Resolver con la configuración dada.
func New(cfg Config) *Resolver {
	reserved := cfg.ReservedSubdomains
	if len(reserved) == 0 {
		reserved = domain.ReservedSubdomains
	}
	r := &Resolver{
		cfg:      cfg,
		reserved: make(map[string]struct{}, len(reserved)),
		enabled:  make(map[domain.StrategyType]struct{}),
	}
	for _, s := range reserved {
		r.reserved[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range cfg.Enabled {
		r.enabled[domain.StrategyType(strings.ToLower(s))] = struct{}{}
	}
	return r
}

func (r *Resolver) isEnabled(t domain.StrategyType) bool {
	if len(r.enabled) == 0 {
		return true
	}
	_, ok := r.enabled[t]
	return ok
}

// usable descarta valores vacíos o el literal "default".
func usable(v string) bool {
	return v != "" && v != "default"
}

// Resolve evalúa las estrategias contra el ambiente. override (si no es vacío)
// gana incondicionalmente; le sigue la primera estrategia con valor usable; si
// todas se agotan retorna la estrategia default.
func (r *Resolver) Resolve(environ env.Context, override string) domain.ResolutionStrategy {
	// 1. Override explícito en memoria (switch programático de tenant).
	if override = strings.TrimSpace(override); override != "" && r.isEnabled(domain.StrategyOverride) {
		return domain.ResolutionStrategy{
			Type:     domain.StrategyOverride,
			Value:    override,
			Source:   "explicit override",
			Priority: 1,
		}
	}

	hostname := ""
	if environ != nil {
		hostname = strings.ToLower(environ.Hostname())
	}

	// 2. Query param ?tenant=
	if r.isEnabled(domain.StrategyQuery) && environ != nil {
		if q := strings.TrimSpace(environ.QueryParam(QueryParam)); usable(q) {
			return domain.ResolutionStrategy{
				Type:     domain.StrategyQuery,
				Value:    q,
				Source:   fmt.Sprintf("query parameter: ?%s=%s", QueryParam, q),
				Priority: 2,
			}
		}
	}

	// 3. Subdominio, excluyendo los reservados.
	if r.isEnabled(domain.StrategySubdomain) {
		if sub := firstLabel(hostname); usable(sub) {
			if _, res := r.reserved[sub]; !res {
				return domain.ResolutionStrategy{
					Type:     domain.StrategySubdomain,
					Value:    sub,
					Source:   fmt.Sprintf("subdomain: %s", hostname),
					Priority: 3,
				}
			}
		}
	}

	// 4. Mapa estático hostname -> slug (dominios custom).
	if r.isEnabled(domain.StrategyHostname) && hostname != "" {
		if mapped, ok := r.cfg.HostnameMap[hostname]; ok && usable(mapped) {
			return domain.ResolutionStrategy{
				Type:     domain.StrategyHostname,
				Value:    mapped,
				Source:   fmt.Sprintf("hostname mapping: %s -> %s", hostname, mapped),
				Priority: 4,
			}
		}
	}

	// 5. Default configurado.
	return domain.ResolutionStrategy{
		Type:     domain.StrategyDefault,
		Value:    r.cfg.DefaultSlug,
		Source:   "default configuration",
		Priority: 5,
	}
}

// firstLabel retorna el primer label de un hostname con al menos dos labels
// ("acme.example.com" -> "acme"; "localhost" -> "").
func firstLabel(hostname string) string {
	i := strings.IndexByte(hostname, '.')
	if i <= 0 {
		return ""
	}
	return hostname[:i]
}
