// Package config carga la configuración del servicio desde YAML con overrides
// por variables de entorno.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Tenant struct {
		// DefaultSlug se usa cuando ninguna estrategia produce un valor.
		DefaultSlug string `yaml:"default_slug"`
		// ResolutionTimeout limita el fetch remoto de configuración.
		ResolutionTimeout time.Duration `yaml:"resolution_timeout"`
		// EnabledStrategies en orden de prioridad. Vacío habilita todas.
		EnabledStrategies []string `yaml:"enabled_strategies"`
		// HostnameMap mapea hostnames completos (dominios custom) a slugs.
		HostnameMap map[string]string `yaml:"hostname_map"`
		// UseTenantHeader habilita globalmente X-Tenant-Slug/X-Tenant-Key
		// en requests salientes.
		UseTenantHeader bool `yaml:"use_tenant_header"`
	} `yaml:"tenant"`

	Provider struct {
		// Driver: http | postgres
		Driver  string `yaml:"driver"`
		BaseURL string `yaml:"base_url"`
		// DSN del control plane cuando driver=postgres.
		DSN string `yaml:"dsn"`
	} `yaml:"provider"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
		// Kind: memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Session struct {
		// StoragePath del key-value durable (tokens, user_mode).
		StoragePath string `yaml:"storage_path"`
		// EncryptTokens cifra tokens en reposo (requiere master key en env).
		EncryptTokens bool `yaml:"encrypt_tokens"`
		// Rutas de login para la redirección en 401.
		TenantLoginRoute   string `yaml:"tenant_login_route"`
		PlatformLoginRoute string `yaml:"platform_login_route"`
	} `yaml:"session"`
}

// Load lee el YAML en path (opcional: "" usa solo defaults+env), aplica
// defaults sanos y pisa con variables de entorno. Carga .env si existe.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Tenant.DefaultSlug == "" {
		c.Tenant.DefaultSlug = "demo-a"
	}
	if c.Tenant.ResolutionTimeout == 0 {
		c.Tenant.ResolutionTimeout = 10 * time.Second
	}
	if len(c.Tenant.EnabledStrategies) == 0 {
		c.Tenant.EnabledStrategies = []string{"override", "query", "subdomain", "hostname", "default"}
	}
	if c.Provider.Driver == "" {
		c.Provider.Driver = "http"
	}
	if c.Provider.BaseURL == "" && c.Provider.Driver == "http" {
		c.Provider.BaseURL = "http://localhost:5080/api"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if !c.Cache.Enabled && c.Cache.Kind == "memory" && c.Cache.TTL > 0 {
		// enabled por defecto salvo que el YAML lo apague explícitamente
		c.Cache.Enabled = true
	}
	if c.Session.TenantLoginRoute == "" {
		c.Session.TenantLoginRoute = "/login"
	}
	if c.Session.PlatformLoginRoute == "" {
		c.Session.PlatformLoginRoute = "/admin/login"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// getEnvKVList parsea "host1=slug1,host2=slug2".
func getEnvKVList(key string) (map[string]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			k := strings.TrimSpace(kv[0])
			v := strings.TrimSpace(kv[1])
			if k != "" && v != "" {
				out[k] = v
			}
		}
	}
	return out, true
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	if v, ok := getEnvStr("TENANT_DEFAULT_SLUG"); ok {
		c.Tenant.DefaultSlug = v
	}
	if v, ok := getEnvDur("TENANT_RESOLUTION_TIMEOUT"); ok {
		c.Tenant.ResolutionTimeout = v
	}
	if v, ok := getEnvCSV("TENANT_STRATEGIES"); ok {
		c.Tenant.EnabledStrategies = v
	}
	if v, ok := getEnvKVList("TENANT_HOSTNAME_MAP"); ok {
		c.Tenant.HostnameMap = v
	}
	if v, ok := getEnvBool("TENANT_USE_HEADER"); ok {
		c.Tenant.UseTenantHeader = v
	}

	if v, ok := getEnvStr("PROVIDER_DRIVER"); ok {
		c.Provider.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("PROVIDER_BASE_URL"); ok {
		c.Provider.BaseURL = v
	}
	if v, ok := getEnvStr("PROVIDER_DSN"); ok {
		c.Provider.DSN = v
	}

	if v, ok := getEnvBool("CACHE_ENABLED"); ok {
		c.Cache.Enabled = v
	}
	if v, ok := getEnvDur("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CACHE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("CACHE_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvStr("SESSION_STORAGE_PATH"); ok {
		c.Session.StoragePath = v
	}
	if v, ok := getEnvBool("SESSION_ENCRYPT_TOKENS"); ok {
		c.Session.EncryptTokens = v
	}
}

// Validate chequea combinaciones inválidas.
func (c *Config) Validate() error {
	switch c.Provider.Driver {
	case "http":
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("config: provider.base_url requerido con driver http")
		}
	case "postgres":
		if c.Provider.DSN == "" {
			return fmt.Errorf("config: provider.dsn requerido con driver postgres")
		}
	default:
		return fmt.Errorf("config: provider.driver desconocido %q", c.Provider.Driver)
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("config: cache.redis.addr requerido con kind redis")
		}
	default:
		return fmt.Errorf("config: cache.kind desconocido %q", c.Cache.Kind)
	}
	return nil
}
