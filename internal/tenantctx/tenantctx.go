// Package tenantctx expone la vista de solo lectura del contexto de tenant:
// reconcilia el resultado del bootstrap con la fuente legacy y concentra los
// predicados que consumen interceptor y guards.
package tenantctx

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

// Source es la vista mínima del bootstrap que este paquete necesita.
type Source interface {
	Current() *domain.TenantConfig
	Watch() (<-chan *domain.TenantConfig, func())
}

// LegacySource es la fuente de configuración de respaldo (config service
// previo al bootstrap). Opcional.
type LegacySource interface {
	Config() *domain.TenantConfig
}

// Headers agrupa los valores para X-Tenant-Slug / X-Tenant-Key.
type Headers struct {
	Slug string
	Key  string
}

// Context deriva su estado de las fuentes; no tiene estado propio mutable.
type Context struct {
	source Source
	legacy LegacySource
}

// New crea el contexto. legacy puede ser nil.
func New(source Source, legacy LegacySource) *Context {
	return &Context{source: source, legacy: legacy}
}

// CurrentConfig retorna bootstrap ?? legacy ?? nil.
func (c *Context) CurrentConfig() *domain.TenantConfig {
	if c.source != nil {
		if cfg := c.source.Current(); cfg != nil {
			return cfg
		}
	}
	if c.legacy != nil {
		return c.legacy.Config()
	}
	return nil
}

// ConfigOrDefault retorna la configuración vigente o el default. Útil en
// vistas como login que necesitan branding aunque no haya tenant.
func (c *Context) ConfigOrDefault() *domain.TenantConfig {
	if cfg := c.CurrentConfig(); cfg != nil {
		return cfg
	}
	return domain.DefaultTenantConfig()
}

// IsReady retorna true si hay configuración publicada.
func (c *Context) IsReady() bool { return c.CurrentConfig() != nil }

// TenantSlug retorna el slug vigente, o "".
func (c *Context) TenantSlug() string {
	if cfg := c.CurrentConfig(); cfg != nil {
		return cfg.Tenant.Slug
	}
	return ""
}

// TenantKey retorna el ID/key del tenant para el backend, o "".
func (c *Context) TenantKey() string {
	if cfg := c.CurrentConfig(); cfg != nil {
		return cfg.Tenant.ID
	}
	return ""
}

// TenantHeaders retorna slug y key juntos.
func (c *Context) TenantHeaders() Headers {
	return Headers{Slug: c.TenantSlug(), Key: c.TenantKey()}
}

// Currency retorna la moneda del tenant (default USD).
func (c *Context) Currency() string {
	if cfg := c.CurrentConfig(); cfg != nil && cfg.Currency != "" {
		return cfg.Currency
	}
	return "USD"
}

// Locale retorna el locale del tenant (default en-US).
func (c *Context) Locale() string {
	if cfg := c.CurrentConfig(); cfg != nil && cfg.Locale != "" {
		return cfg.Locale
	}
	return "en-US"
}

// IsGeneralAdminMode: sin tenant resuelto, o slug reservado general-admin.
func (c *Context) IsGeneralAdminMode() bool {
	slug := c.TenantSlug()
	return slug == "" || slug == domain.GeneralAdminSlug
}

// ShouldIncludeTenantHeaders decide si un request saliente lleva headers de
// tenant. Única autoridad para esta política; el interceptor la consulta y
// ningún otro componente la re-implementa.
//
//   - URLs absolutas (cross-origin) nunca llevan headers.
//   - Paths públicos (/api/public/, /api/health) nunca llevan headers.
//   - En modo administrador general, solo los paths /api/admin/.
//   - El resto de los paths /api/ sí llevan.
func (c *Context) ShouldIncludeTenantHeaders(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return false
	}
	if strings.Contains(rawURL, "/api/public/") || strings.Contains(rawURL, "/api/health") {
		return false
	}
	if c.IsGeneralAdminMode() {
		return strings.Contains(rawURL, "/api/admin/")
	}
	return strings.HasPrefix(rawURL, "/api/") || strings.Contains(rawURL, "/api/")
}

// WaitForTenant bloquea hasta que el contexto sea no-nulo o venza el plazo.
// Con timeout retorna un ResolutionError código TIMEOUT; también respeta la
// cancelación del contexto.
func (c *Context) WaitForTenant(ctx context.Context, timeout time.Duration) error {
	if c.IsReady() {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if c.source == nil {
		return domain.NewResolutionError(domain.ErrCodeTimeout, "",
			"timeout esperando el contexto de tenant", 0, true)
	}

	ch, cancel := c.source.Watch()
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case cfg := <-ch:
			if cfg != nil {
				return nil
			}
		case <-timer.C:
			return domain.NewResolutionError(domain.ErrCodeTimeout, "",
				"timeout esperando el contexto de tenant", 0, true)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
