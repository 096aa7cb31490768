package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

// HTTPProvider implementa Provider contra
// GET {base}/tenant/resolve?tenant={slug} con sobre {success, data, message}.
type HTTPProvider struct {
	base   string
	client *http.Client
}

// NewHTTP crea el provider. client es opcional; el timeout fino lo maneja el
// contexto del caller.
func NewHTTP(baseURL string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPProvider{base: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *HTTPProvider) Resolve(ctx context.Context, slug string) (*domain.TenantConfig, error) {
	u := fmt.Sprintf("%s/tenant/resolve?tenant=%s", p.base, url.QueryEscape(slug))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant-Slug", slug)

	resp, err := p.client.Do(req)
	if err != nil {
		// el deadline del contexto se reporta tal cual para el mapeo a TIMEOUT
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("provider: request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Status: resp.StatusCode, Msg: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("provider: read body: %w", err)
	}
	var envelope domain.ProviderResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ErrInvalidPayload
	}
	if !envelope.Success || envelope.Data == nil {
		return nil, ErrInvalidPayload
	}
	cfg := envelope.Data
	if cfg.Tenant.Slug == "" {
		return nil, ErrInvalidPayload
	}
	if cfg.Tenant.ID == "" {
		// algunos backends solo envían slug; usarlo como ID provisorio
		cfg.Tenant.ID = cfg.Tenant.Slug
	}
	if cfg.Features == nil {
		cfg.Features = map[string]bool{}
	}
	return cfg, nil
}
