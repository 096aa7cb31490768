// Package domain define los tipos compartidos del motor de resolución de
// tenants y contexto de request.
package domain

import "time"

// TenantIdentity identifica a un tenant (comercio) resuelto. Inmutable una vez
// resuelto; el slug es la clave externa usada en headers y cache.
type TenantIdentity struct {
	ID          string `json:"id" yaml:"id"`
	Slug        string `json:"slug" yaml:"slug"`
	DisplayName string `json:"displayName" yaml:"display_name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Plan        string `json:"plan,omitempty" yaml:"plan,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
}

// Theme agrupa la configuración visual del tenant.
type Theme struct {
	Primary    string            `json:"primary" yaml:"primary"`
	Accent     string            `json:"accent" yaml:"accent"`
	Background string            `json:"background,omitempty" yaml:"background,omitempty"`
	TextColor  string            `json:"textColor,omitempty" yaml:"text_color,omitempty"`
	LogoURL    string            `json:"logoUrl,omitempty" yaml:"logo_url,omitempty"`
	FaviconURL string            `json:"faviconUrl,omitempty" yaml:"favicon_url,omitempty"`
	CSSVars    map[string]string `json:"cssVars,omitempty" yaml:"css_vars,omitempty"`
}

// Limits son los límites operativos del plan del tenant.
type Limits struct {
	Products  int `json:"products" yaml:"products"`
	Admins    int `json:"admins" yaml:"admins"`
	StorageMB int `json:"storageMB" yaml:"storage_mb"`
}

// SEO guarda metadata para meta tags (description, og, twitter).
type SEO struct {
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	OGImage     string `json:"ogImage,omitempty" yaml:"og_image,omitempty"`
}

// TenantConfig es la configuración completa de un tenant. Se reemplaza entera
// en cada resolución exitosa; nunca se muta campo a campo una vez publicada.
type TenantConfig struct {
	Tenant     TenantIdentity  `json:"tenant" yaml:"tenant"`
	Theme      Theme           `json:"theme" yaml:"theme"`
	Features   map[string]bool `json:"features" yaml:"features"`
	Limits     Limits          `json:"limits" yaml:"limits"`
	Locale     string          `json:"locale" yaml:"locale"`
	Currency   string          `json:"currency" yaml:"currency"`
	CDNBaseURL string          `json:"cdnBaseUrl" yaml:"cdn_base_url"`
	SEO        SEO             `json:"seo,omitempty" yaml:"seo,omitempty"`
}

// HasFeature retorna true si la feature está habilitada para el tenant.
func (c *TenantConfig) HasFeature(code string) bool {
	if c == nil || c.Features == nil {
		return false
	}
	return c.Features[code]
}

// Clone devuelve una copia profunda. Los lectores reciben copias para que la
// configuración publicada permanezca inmutable.
func (c *TenantConfig) Clone() *TenantConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Features != nil {
		out.Features = make(map[string]bool, len(c.Features))
		for k, v := range c.Features {
			out.Features[k] = v
		}
	}
	if c.Theme.CSSVars != nil {
		out.Theme.CSSVars = make(map[string]string, len(c.Theme.CSSVars))
		for k, v := range c.Theme.CSSVars {
			out.Theme.CSSVars[k] = v
		}
	}
	return &out
}

// ProviderResponse es el sobre estándar del provider de configuración:
// GET {base}/tenant/resolve?tenant={slug}.
type ProviderResponse struct {
	Success bool          `json:"success"`
	Data    *TenantConfig `json:"data,omitempty"`
	Message string        `json:"message,omitempty"`
}

// CacheEntry es una entrada de cache de configuración, keyed por slug.
// Entradas vencidas se tratan como ausentes.
type CacheEntry struct {
	Config   *TenantConfig `json:"config"`
	CachedAt time.Time     `json:"cachedAt"`
}

// Expired retorna true si la entrada superó el TTL dado.
func (e *CacheEntry) Expired(ttl time.Duration, now time.Time) bool {
	if e == nil || e.Config == nil {
		return true
	}
	return now.Sub(e.CachedAt) > ttl
}
