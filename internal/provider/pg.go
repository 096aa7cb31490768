package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

// PGProvider resuelve tenants directamente contra la tabla tenants del
// control plane. Para despliegues colocados con la base de la plataforma,
// evita el hop HTTP.
type PGProvider struct {
	pool *pgxpool.Pool
}

// NewPG abre un pool contra el DSN del control plane.
func NewPG(ctx context.Context, dsn string) (*PGProvider, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("provider: parse dsn: %w", err)
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 5
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("provider: pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("provider: ping: %w", err)
	}
	return &PGProvider{pool: pool}, nil
}

// Close cierra el pool (idempotente).
func (p *PGProvider) Close() {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
}

// tenantRow refleja el JSONB settings de la tabla tenants.
type tenantSettings struct {
	Theme      domain.Theme    `json:"theme"`
	Features   map[string]bool `json:"features"`
	Limits     domain.Limits   `json:"limits"`
	Locale     string          `json:"locale"`
	Currency   string          `json:"currency"`
	CDNBaseURL string          `json:"cdn_base_url"`
	SEO        domain.SEO      `json:"seo"`
}

func (p *PGProvider) Resolve(ctx context.Context, slug string) (*domain.TenantConfig, error) {
	const q = `SELECT id::text, slug, name, COALESCE(plan, ''), COALESCE(status, 'active'), COALESCE(settings, '{}'::jsonb)
FROM tenants WHERE slug = $1`

	var (
		id, gotSlug, name, plan, status string
		rawSettings                     []byte
	)
	row := p.pool.QueryRow(ctx, q, slug)
	if err := row.Scan(&id, &gotSlug, &name, &plan, &status, &rawSettings); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("provider: query tenant %q: %w", slug, err)
	}

	var st tenantSettings
	if len(rawSettings) > 0 {
		if err := json.Unmarshal(rawSettings, &st); err != nil {
			return nil, ErrInvalidPayload
		}
	}

	cfg := &domain.TenantConfig{
		Tenant: domain.TenantIdentity{
			ID:          id,
			Slug:        gotSlug,
			DisplayName: name,
			Plan:        plan,
			Status:      status,
		},
		Theme:      st.Theme,
		Features:   st.Features,
		Limits:     st.Limits,
		Locale:     st.Locale,
		Currency:   st.Currency,
		CDNBaseURL: st.CDNBaseURL,
		SEO:        st.SEO,
	}
	if cfg.Features == nil {
		cfg.Features = map[string]bool{}
	}
	// defaults regionales como en el resto del sistema
	if cfg.Locale == "" {
		cfg.Locale = "es-CO"
	}
	if cfg.Currency == "" {
		cfg.Currency = "COP"
	}
	return cfg, nil
}
