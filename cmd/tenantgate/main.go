package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/tenantgate/internal/applier"
	"github.com/dropDatabas3/tenantgate/internal/authz"
	"github.com/dropDatabas3/tenantgate/internal/bootstrap"
	"github.com/dropDatabas3/tenantgate/internal/cache"
	"github.com/dropDatabas3/tenantgate/internal/config"
	"github.com/dropDatabas3/tenantgate/internal/env"
	"github.com/dropDatabas3/tenantgate/internal/httpapi"
	"github.com/dropDatabas3/tenantgate/internal/metrics"
	"github.com/dropDatabas3/tenantgate/internal/mode"
	"github.com/dropDatabas3/tenantgate/internal/observability/logger"
	"github.com/dropDatabas3/tenantgate/internal/provider"
	"github.com/dropDatabas3/tenantgate/internal/resolver"
	"github.com/dropDatabas3/tenantgate/internal/security/secretbox"
	"github.com/dropDatabas3/tenantgate/internal/session"
	"github.com/dropDatabas3/tenantgate/internal/tenantctx"
	"github.com/dropDatabas3/tenantgate/internal/transport"
)

// seteado por ldflags en el build de release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "tenantgate",
		Short: "Motor de resolución de tenant y contexto de request para storefronts multi-tenant",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("TENANTGATE_CONFIG", ""), "ruta al YAML de configuración (env TENANTGATE_CONFIG)")

	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(resolveCmd(&cfgPath))
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	var origin string
	var tenantOverride string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servicio: resuelve el tenant y expone health/metrics/debug",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "tenantgate"})
			defer func() { _ = logger.Sync() }()
			log := logger.Named("main")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// storage durable de sesión y modo
			var storage env.Storage = env.NewMemoryStorage()
			if cfg.Session.StoragePath != "" {
				fs, err := env.NewFileStorage(cfg.Session.StoragePath)
				if err != nil {
					return fmt.Errorf("session storage: %w", err)
				}
				storage = fs
			}

			var sealer session.Sealer
			if cfg.Session.EncryptTokens {
				box, err := secretbox.NewFromEnv()
				if err != nil {
					return fmt.Errorf("secretbox: %w", err)
				}
				sealer = box
			}
			sess := session.New(storage, sealer)

			engine := authz.New(sess, nil)
			selector := mode.New(sess, storage)
			// el logout 401 debe borrar también la elección user_mode
			sess.OnLogout(func() { _ = selector.Clear() })

			environ := env.NewStatic(origin, storage, true)

			res := resolver.New(resolver.Config{
				DefaultSlug: cfg.Tenant.DefaultSlug,
				HostnameMap: cfg.Tenant.HostnameMap,
				Enabled:     cfg.Tenant.EnabledStrategies,
			})

			var configCache *cache.ConfigCache
			if cfg.Cache.Enabled {
				client, err := cache.New(cache.Config{
					Kind:       cfg.Cache.Kind,
					Addr:       cfg.Cache.Redis.Addr,
					Password:   cfg.Cache.Redis.Password,
					DB:         cfg.Cache.Redis.DB,
					Prefix:     cfg.Cache.Redis.Prefix,
					DefaultTTL: cfg.Cache.TTL,
				})
				if err != nil {
					return fmt.Errorf("cache: %w", err)
				}
				defer func() { _ = client.Close() }()
				configCache = cache.NewConfigCache(client, cfg.Cache.TTL)
			}

			// El provider HTTP sale por el interceptor, que adjunta identidad y
			// headers de tenant. El contexto se asocia después (Bind) porque el
			// wiring es circular.
			interceptor := transport.New(transport.Config{
				UseTenantHeader:    cfg.Tenant.UseTenantHeader,
				APIHost:            apiHost(cfg.Provider.BaseURL),
				TenantLoginRoute:   cfg.Session.TenantLoginRoute,
				PlatformLoginRoute: cfg.Session.PlatformLoginRoute,
			}, nil, sess, nil, nil)

			prov, cleanup, err := buildProvider(ctx, cfg, interceptor)
			if err != nil {
				return err
			}
			defer cleanup()

			boot := bootstrap.New(bootstrap.Config{
				ResolutionTimeout: cfg.Tenant.ResolutionTimeout,
				EnableCache:       cfg.Cache.Enabled,
			}, res, prov, configCache, applier.NewHead(), environ)

			tenants := tenantctx.New(boot, nil)
			interceptor.Bind(tenants)

			if tenantOverride != "" {
				err = boot.Retry(ctx, tenantOverride)
			} else {
				err = boot.Initialize(ctx)
			}
			if err != nil {
				// la resolución fallida no tumba el servicio: queda instalado el
				// default y el error sigue consultable en /debug/tenant
				log.Warn("resolución inicial fallida", logger.Err(err))
			}

			metricsHandler, err := metrics.Register(prometheus.NewRegistry())
			if err != nil {
				return fmt.Errorf("metrics: %w", err)
			}

			srv := httpapi.NewServer(httpapi.Config{
				CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
				ReadyTimeout:       cfg.Tenant.ResolutionTimeout,
			}, boot, tenants, engine, selector, metricsHandler)

			log.Info("servicio arriba",
				logger.TenantSlug(boot.TenantSlug()),
				logger.State(string(boot.State())),
				logger.Path(cfg.Server.Addr),
			)
			return httpapi.Start(ctx, cfg.Server.Addr, srv.Handler())
		},
	}
	cmd.Flags().StringVar(&origin, "origin", envOr("TENANTGATE_ORIGIN", "http://localhost:8080"), "URL de origen para la resolución por subdominio/hostname")
	cmd.Flags().StringVar(&tenantOverride, "tenant", "", "override explícito del slug de tenant")
	return cmd
}

func resolveCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <slug>",
		Short: "Resuelve la configuración de un tenant contra el provider y la imprime",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, Level: "warn", ServiceName: "tenantgate"})
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Tenant.ResolutionTimeout)
			defer cancel()

			prov, cleanup, err := buildProvider(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer cleanup()

			tc, err := prov.Resolve(ctx, strings.ToLower(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(tc, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tenantgate %s (%s)\n", version, commit)
		},
	}
}

// buildProvider arma el provider según el driver. El cleanup cierra pools.
func buildProvider(ctx context.Context, cfg *config.Config, interceptor *transport.Interceptor) (provider.Provider, func(), error) {
	switch cfg.Provider.Driver {
	case "postgres":
		pg, err := provider.NewPG(ctx, cfg.Provider.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("provider postgres: %w", err)
		}
		return pg, pg.Close, nil
	default:
		if interceptor != nil {
			return provider.NewHTTP(cfg.Provider.BaseURL, interceptor.Client(cfg.Tenant.ResolutionTimeout)), func() {}, nil
		}
		return provider.NewHTTP(cfg.Provider.BaseURL, nil), func() {}, nil
	}
}

// apiHost extrae el host de la base URL del provider para la política
// same-origin del interceptor.
func apiHost(baseURL string) string {
	if i := strings.Index(baseURL, "://"); i >= 0 {
		rest := baseURL[i+3:]
		if j := strings.IndexAny(rest, "/?#"); j >= 0 {
			return rest[:j]
		}
		return rest
	}
	return ""
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
