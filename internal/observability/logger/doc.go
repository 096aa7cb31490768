// Package logger provee un logger Zap singleton con scoping por contexto.
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: cada request puede llevar un logger con campos extra
//     (request_id, tenant_slug) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//
// Inicialización (una vez, en main):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
// En componentes:
//
//	log := logger.Named("bootstrap")
//	log.Info("tenant resuelto", logger.TenantSlug(slug), logger.Strategy(st))
package logger
