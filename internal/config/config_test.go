package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsSinArchivo(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if c.App.Env != "dev" || c.App.LogLevel != "info" {
		t.Fatalf("app = %+v", c.App)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", c.Server.Addr)
	}
	if c.Tenant.DefaultSlug != "demo-a" {
		t.Fatalf("default_slug = %q", c.Tenant.DefaultSlug)
	}
	if c.Tenant.ResolutionTimeout != 10*time.Second {
		t.Fatalf("resolution_timeout = %v", c.Tenant.ResolutionTimeout)
	}
	if len(c.Tenant.EnabledStrategies) != 5 {
		t.Fatalf("strategies = %v", c.Tenant.EnabledStrategies)
	}
	if c.Provider.Driver != "http" || c.Provider.BaseURL == "" {
		t.Fatalf("provider = %+v", c.Provider)
	}
	if !c.Cache.Enabled || c.Cache.Kind != "memory" || c.Cache.TTL != 5*time.Minute {
		t.Fatalf("cache = %+v", c.Cache)
	}
	if c.Session.TenantLoginRoute != "/login" || c.Session.PlatformLoginRoute != "/admin/login" {
		t.Fatalf("session = %+v", c.Session)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeYAML(t, `
app:
  env: prod
  log_level: warn
tenant:
  default_slug: acme
  resolution_timeout: 3s
  hostname_map:
    tienda-acme.com: acme
  use_tenant_header: true
provider:
  driver: http
  base_url: https://api.plataforma.com/api
cache:
  enabled: true
  ttl: 90s
  kind: memory
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if c.App.Env != "prod" || c.App.LogLevel != "warn" {
		t.Fatalf("app = %+v", c.App)
	}
	if c.Tenant.DefaultSlug != "acme" || c.Tenant.ResolutionTimeout != 3*time.Second {
		t.Fatalf("tenant = %+v", c.Tenant)
	}
	if c.Tenant.HostnameMap["tienda-acme.com"] != "acme" {
		t.Fatalf("hostname_map = %v", c.Tenant.HostnameMap)
	}
	if !c.Tenant.UseTenantHeader {
		t.Fatal("use_tenant_header = false")
	}
	if c.Cache.TTL != 90*time.Second {
		t.Fatalf("cache.ttl = %v", c.Cache.TTL)
	}
}

func TestLoad_EnvPisaYAML(t *testing.T) {
	path := writeYAML(t, "tenant:\n  default_slug: acme\n")

	t.Setenv("TENANT_DEFAULT_SLUG", "beta")
	t.Setenv("TENANT_RESOLUTION_TIMEOUT", "7s")
	t.Setenv("TENANT_HOSTNAME_MAP", "x.com=equis, y.com=ye")
	t.Setenv("CACHE_KIND", "memory")
	t.Setenv("SERVER_ADDR", ":9999")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if c.Tenant.DefaultSlug != "beta" {
		t.Fatalf("default_slug = %q, el env debe pisar el YAML", c.Tenant.DefaultSlug)
	}
	if c.Tenant.ResolutionTimeout != 7*time.Second {
		t.Fatalf("resolution_timeout = %v", c.Tenant.ResolutionTimeout)
	}
	if c.Tenant.HostnameMap["x.com"] != "equis" || c.Tenant.HostnameMap["y.com"] != "ye" {
		t.Fatalf("hostname_map = %v", c.Tenant.HostnameMap)
	}
	if c.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", c.Server.Addr)
	}
}

func TestLoad_ValidacionDeDriver(t *testing.T) {
	path := writeYAML(t, "provider:\n  driver: carrier-pigeon\n")
	if _, err := Load(path); err == nil {
		t.Fatal("driver desconocido aceptado")
	}

	path = writeYAML(t, "provider:\n  driver: postgres\n")
	if _, err := Load(path); err == nil {
		t.Fatal("postgres sin dsn aceptado")
	}
}

func TestLoad_ArchivoInexistente(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("archivo inexistente aceptado")
	}
}
