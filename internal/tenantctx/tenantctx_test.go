package tenantctx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

// fakeSource simula el bootstrap: config fija más un canal de watch.
type fakeSource struct {
	cfg *domain.TenantConfig
	ch  chan *domain.TenantConfig
}

func (f *fakeSource) Current() *domain.TenantConfig { return f.cfg }

func (f *fakeSource) Watch() (<-chan *domain.TenantConfig, func()) {
	if f.ch == nil {
		f.ch = make(chan *domain.TenantConfig, 1)
	}
	return f.ch, func() {}
}

func configFor(slug string) *domain.TenantConfig {
	cfg := domain.DefaultTenantConfig()
	cfg.Tenant.Slug = slug
	cfg.Tenant.ID = "id-" + slug
	return cfg
}

func TestCurrentConfig_PrefiereBootstrapSobreLegacy(t *testing.T) {
	legacy := legacyFunc(func() *domain.TenantConfig { return configFor("viejo") })

	c := New(&fakeSource{cfg: configFor("acme")}, legacy)
	if got := c.TenantSlug(); got != "acme" {
		t.Fatalf("TenantSlug = %q, want acme", got)
	}

	// sin bootstrap cae a la fuente legacy
	c = New(&fakeSource{}, legacy)
	if got := c.TenantSlug(); got != "viejo" {
		t.Fatalf("TenantSlug = %q, want viejo", got)
	}
}

type legacyFunc func() *domain.TenantConfig

func (f legacyFunc) Config() *domain.TenantConfig { return f() }

func TestConfigOrDefault(t *testing.T) {
	c := New(&fakeSource{}, nil)
	if c.IsReady() {
		t.Fatal("IsReady = true sin config")
	}
	cfg := c.ConfigOrDefault()
	if cfg == nil || cfg.Tenant.Slug != "default" {
		t.Fatalf("ConfigOrDefault = %+v", cfg)
	}
}

func TestTenantHeaders(t *testing.T) {
	c := New(&fakeSource{cfg: configFor("acme")}, nil)
	h := c.TenantHeaders()
	if h.Slug != "acme" || h.Key != "id-acme" {
		t.Fatalf("Headers = %+v", h)
	}
}

func TestIsGeneralAdminMode(t *testing.T) {
	if !New(&fakeSource{}, nil).IsGeneralAdminMode() {
		t.Fatal("sin tenant resuelto debe ser modo admin general")
	}
	if !New(&fakeSource{cfg: configFor("general-admin")}, nil).IsGeneralAdminMode() {
		t.Fatal("slug general-admin debe ser modo admin general")
	}
	if New(&fakeSource{cfg: configFor("acme")}, nil).IsGeneralAdminMode() {
		t.Fatal("tenant normal no es modo admin general")
	}
}

func TestShouldIncludeTenantHeaders(t *testing.T) {
	c := New(&fakeSource{cfg: configFor("acme")}, nil)

	cases := []struct {
		url  string
		want bool
	}{
		{"", false},
		{"https://otro-servicio.com/api/products", false},
		{"http://cdn.acme.com/logo.png", false},
		{"/api/public/catalog", false},
		{"/api/health", false},
		{"/api/products", true},
		{"/api/orders/123", true},
		{"/api/admin/users", true},
	}
	for _, tc := range cases {
		if got := c.ShouldIncludeTenantHeaders(tc.url); got != tc.want {
			t.Fatalf("ShouldIncludeTenantHeaders(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestShouldIncludeTenantHeaders_AdminGeneral(t *testing.T) {
	c := New(&fakeSource{cfg: configFor("general-admin")}, nil)

	// en modo admin general solo los paths /api/admin/ llevan headers
	if c.ShouldIncludeTenantHeaders("/api/products") {
		t.Fatal("path no-admin no debe llevar headers en modo admin general")
	}
	if !c.ShouldIncludeTenantHeaders("/api/admin/tenants") {
		t.Fatal("path admin debe llevar headers en modo admin general")
	}
}

func TestWaitForTenant_YaResuelto(t *testing.T) {
	c := New(&fakeSource{cfg: configFor("acme")}, nil)
	if err := c.WaitForTenant(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitForTenant err: %v", err)
	}
}

func TestWaitForTenant_DespiertaConPublicacion(t *testing.T) {
	src := &fakeSource{ch: make(chan *domain.TenantConfig, 1)}
	c := New(src, nil)

	done := make(chan error, 1)
	go func() { done <- c.WaitForTenant(context.Background(), 2*time.Second) }()

	src.ch <- configFor("acme")

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WaitForTenant err: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitForTenant no despertó con la publicación")
	}
}

func TestWaitForTenant_Timeout(t *testing.T) {
	c := New(&fakeSource{}, nil)

	err := c.WaitForTenant(context.Background(), 20*time.Millisecond)
	var resErr *domain.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("err = %v, want ResolutionError", err)
	}
	if resErr.Code != domain.ErrCodeTimeout {
		t.Fatalf("code = %s, want TIMEOUT", resErr.Code)
	}
	if !resErr.Retryable {
		t.Fatal("timeout debe ser retryable")
	}
}

func TestWaitForTenant_Cancelacion(t *testing.T) {
	c := New(&fakeSource{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.WaitForTenant(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
