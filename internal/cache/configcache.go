package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

// ConfigCache tipa el Client genérico para entradas de configuración de
// tenant, keyed por slug. Entradas vencidas se reportan ausentes.
type ConfigCache struct {
	client Client
	ttl    time.Duration
	now    func() time.Time
}

// NewConfigCache envuelve un Client con el TTL configurado.
func NewConfigCache(client Client, ttl time.Duration) *ConfigCache {
	return &ConfigCache{client: client, ttl: ttl, now: time.Now}
}

// Get retorna la configuración cacheada para slug, o (nil, false) si no hay
// entrada vigente. Una entrada corrupta se descarta como ausente.
func (c *ConfigCache) Get(ctx context.Context, slug string) (*domain.TenantConfig, bool) {
	raw, err := c.client.Get(ctx, slug)
	if err != nil {
		return nil, false
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		_ = c.client.Delete(ctx, slug)
		return nil, false
	}
	if entry.Expired(c.ttl, c.now()) {
		_ = c.client.Delete(ctx, slug)
		return nil, false
	}
	return entry.Config, true
}

// Put guarda la configuración con timestamp actual.
func (c *ConfigCache) Put(ctx context.Context, slug string, cfg *domain.TenantConfig) error {
	entry := domain.CacheEntry{Config: cfg, CachedAt: c.now()}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, slug, string(b), c.ttl)
}

// Invalidate borra la entrada del slug.
func (c *ConfigCache) Invalidate(ctx context.Context, slug string) error {
	return c.client.Delete(ctx, slug)
}

// Clear vacía el cache completo.
func (c *ConfigCache) Clear(ctx context.Context) error {
	return c.client.Flush(ctx)
}
