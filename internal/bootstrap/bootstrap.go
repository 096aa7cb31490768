// Package bootstrap orquesta la resolución de tenant: estrategia -> cache ->
// fetch remoto -> efectos -> publicación. Dueño único del estado de
// resolución y de su taxonomía de errores.
package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/tenantgate/internal/applier"
	"github.com/dropDatabas3/tenantgate/internal/cache"
	"github.com/dropDatabas3/tenantgate/internal/domain"
	"github.com/dropDatabas3/tenantgate/internal/env"
	"github.com/dropDatabas3/tenantgate/internal/metrics"
	"github.com/dropDatabas3/tenantgate/internal/observability/logger"
	"github.com/dropDatabas3/tenantgate/internal/provider"
	"github.com/dropDatabas3/tenantgate/internal/resolver"
)

// Config parametriza el bootstrap.
type Config struct {
	// ResolutionTimeout limita el fetch remoto. Vencido el plazo el intento
	// cierra en StateTimeout, nunca cuelga.
	ResolutionTimeout time.Duration
	// EnableCache activa el lookup/stash en el cache de configuración.
	EnableCache bool
}

// Bootstrap es el único writer del estado de resolución. Lecturas
// concurrentes ven siempre una configuración completa (reemplazo por valor).
type Bootstrap struct {
	cfg      Config
	resolver *resolver.Resolver
	provider provider.Provider
	cache    *cache.ConfigCache // nil = cache deshabilitado
	applier  applier.Applier
	environ  env.Context

	sf singleflight.Group

	mu         sync.RWMutex
	state      domain.BootstrapState
	current    *domain.TenantConfig
	lastErr    *domain.ResolutionError
	attempted  string
	strategy   *domain.ResolutionStrategy
	override   string
	generation uint64
	watchers   map[chan *domain.TenantConfig]struct{}
}

// New arma un Bootstrap en estado idle.
func New(cfg Config, res *resolver.Resolver, prov provider.Provider, cc *cache.ConfigCache, app applier.Applier, environ env.Context) *Bootstrap {
	if app == nil {
		app = applier.Noop{}
	}
	if cfg.ResolutionTimeout <= 0 {
		cfg.ResolutionTimeout = 10 * time.Second
	}
	return &Bootstrap{
		cfg:      cfg,
		resolver: res,
		provider: prov,
		cache:    cc,
		applier:  app,
		environ:  environ,
		state:    domain.StateIdle,
		watchers: make(map[chan *domain.TenantConfig]struct{}),
	}
}

// Initialize resuelve el tenant y publica la configuración. En ejecución no
// interactiva instala el default sin tocar la red. Llamadas concurrentes para
// el mismo slug comparten un único fetch (single-flight).
func (b *Bootstrap) Initialize(ctx context.Context) error {
	if b.environ != nil && !b.environ.Interactive() {
		logger.Named("bootstrap").Debug("ejecución no interactiva: configuración por defecto")
		b.installDefault(b.currentGeneration())
		return nil
	}

	b.mu.Lock()
	override := b.override
	gen := b.generation
	b.state = domain.StateResolving
	b.lastErr = nil
	b.mu.Unlock()

	strategy := b.resolver.Resolve(b.environ, override)

	b.mu.Lock()
	b.strategy = &strategy
	b.attempted = strategy.Value
	b.mu.Unlock()

	return b.resolveSlug(ctx, strategy, gen)
}

// Retry reintenta la carga. Con newSlug no vacío se trata como override
// explícito y el flujo completo se reinicia; vacío re-ejecuta con las señales
// actuales.
func (b *Bootstrap) Retry(ctx context.Context, newSlug string) error {
	// normalizar acá y no solo en el transporte HTTP: un override con
	// mayúsculas generaría claves de cache y de single-flight distintas
	// para el mismo tenant
	newSlug = strings.ToLower(strings.TrimSpace(newSlug))
	b.mu.Lock()
	if newSlug != "" {
		b.override = newSlug
	}
	// una nueva generación descarta respuestas tardías del intento anterior
	b.generation++
	b.mu.Unlock()
	return b.Initialize(ctx)
}

// SwitchTenant cambia programáticamente de tenant. La resolución en vuelo del
// tenant anterior queda supersedida.
func (b *Bootstrap) SwitchTenant(ctx context.Context, slug string) error {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if b.cache != nil {
		_ = b.cache.Invalidate(ctx, slug)
	}
	return b.Retry(ctx, slug)
}

func (b *Bootstrap) resolveSlug(ctx context.Context, strategy domain.ResolutionStrategy, gen uint64) error {
	log := logger.Named("bootstrap").With(
		logger.TenantSlug(strategy.Value),
		logger.Strategy(string(strategy.Type)),
	)
	start := time.Now()
	slug := strategy.Value

	// 1. Cache
	if b.cfg.EnableCache && b.cache != nil {
		if cfg, ok := b.cache.Get(ctx, slug); ok {
			metrics.ObserveCacheLookup(true)
			log.Info("configuración cargada desde cache", logger.Cached(true))
			b.publish(cfg, strategy, gen)
			metrics.ObserveResolution(string(domain.StateResolved), string(strategy.Type), time.Since(start))
			return nil
		}
		metrics.ObserveCacheLookup(false)
	}

	// 2. Fetch remoto, single-flight por slug
	v, err, _ := b.sf.Do(slug, func() (any, error) {
		fctx, cancel := context.WithTimeout(ctx, b.cfg.ResolutionTimeout)
		defer cancel()
		return b.provider.Resolve(fctx, slug)
	})

	if err != nil {
		resErr, state := classify(err, slug)
		b.fail(state, resErr, gen)
		log.Error("resolución de tenant falló",
			logger.State(string(state)),
			logger.ErrorCode(string(resErr.Code)),
			logger.Duration(time.Since(start)),
			logger.Err(err),
		)
		metrics.ObserveResolution(string(state), string(strategy.Type), time.Since(start))
		return resErr
	}

	cfg := v.(*domain.TenantConfig)

	// 3. Stash en cache
	if b.cfg.EnableCache && b.cache != nil {
		if err := b.cache.Put(ctx, slug, cfg); err != nil {
			log.Warn("no se pudo cachear la configuración", logger.Err(err))
		}
	}

	// 4. Publicar (aplica efectos y notifica watchers)
	b.publish(cfg, strategy, gen)
	log.Info("tenant inicializado",
		logger.TenantID(cfg.Tenant.ID),
		logger.Duration(time.Since(start)),
		logger.Cached(false),
	)
	metrics.ObserveResolution(string(domain.StateResolved), string(strategy.Type), time.Since(start))
	return nil
}

// classify mapea una falla de transporte/status a la taxonomía tipada.
func classify(err error, slug string) (*domain.ResolutionError, domain.BootstrapState) {
	switch {
	case errors.Is(err, provider.ErrNotFound):
		// retryable con un slug distinto
		return domain.NewResolutionError(domain.ErrCodeNotFound, slug,
			"el tenant no fue encontrado en el sistema", 404, true), domain.StateNotFound

	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewResolutionError(domain.ErrCodeTimeout, slug,
			"la resolución excedió el timeout configurado", 0, true), domain.StateTimeout

	case errors.Is(err, provider.ErrUnauthorized):
		return domain.NewResolutionError(domain.ErrCodeUnauthorized, slug,
			"sin permisos para acceder a este tenant", 401, false), domain.StateError

	case errors.Is(err, provider.ErrInvalidPayload):
		return domain.NewResolutionError(domain.ErrCodeInvalidConfig, slug,
			"el provider devolvió una configuración malformada", 0, false), domain.StateError
	}

	var se *provider.StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case 0, 500, 502, 503, 504:
			return domain.NewResolutionError(domain.ErrCodeNetwork, slug,
				"el servidor está experimentando problemas, intente nuevamente", se.Status, true), domain.StateError
		default:
			return domain.NewResolutionError(domain.ErrCodeUnknown, slug,
				se.Msg, se.Status, false), domain.StateError
		}
	}

	// falla de transporte sin status (DNS, conexión rechazada, EOF)
	if isTransport(err) {
		return domain.NewResolutionError(domain.ErrCodeNetwork, slug,
			"no se pudo conectar al provider de configuración", 0, true), domain.StateError
	}

	return domain.NewResolutionError(domain.ErrCodeUnknown, slug, err.Error(), 0, false), domain.StateError
}

func isTransport(err error) bool {
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// publish instala la configuración resuelta y corre los efectos. Si la
// generación cambió (switch/logout durante el vuelo), el resultado se
// descarta.
func (b *Bootstrap) publish(cfg *domain.TenantConfig, strategy domain.ResolutionStrategy, gen uint64) {
	b.mu.Lock()
	if b.generation != gen {
		b.mu.Unlock()
		logger.Named("bootstrap").Debug("resolución supersedida, resultado descartado",
			logger.TenantSlug(strategy.Value))
		return
	}
	b.current = cfg
	b.state = domain.StateResolved
	b.lastErr = nil
	watchers := b.snapshotWatchersLocked()
	b.mu.Unlock()

	if err := b.applier.Apply(cfg); err != nil {
		logger.Named("bootstrap").Warn("aplicación de efectos falló", logger.Err(err))
	}
	b.notify(watchers, cfg)
}

// fail registra el error e instala el default no bloqueante para que la
// aplicación pueda renderizar; el error queda consultable vía Error().
func (b *Bootstrap) fail(state domain.BootstrapState, resErr *domain.ResolutionError, gen uint64) {
	def := domain.DefaultTenantConfig()

	b.mu.Lock()
	if b.generation != gen {
		b.mu.Unlock()
		return
	}
	b.state = state
	b.lastErr = resErr
	b.current = def
	watchers := b.snapshotWatchersLocked()
	b.mu.Unlock()

	if err := b.applier.Apply(def); err != nil {
		logger.Named("bootstrap").Warn("aplicación de efectos falló", logger.Err(err))
	}
	b.notify(watchers, def)
}

func (b *Bootstrap) installDefault(gen uint64) {
	def := domain.DefaultTenantConfig()
	b.mu.Lock()
	if b.generation != gen {
		b.mu.Unlock()
		return
	}
	b.current = def
	b.state = domain.StateResolved
	b.lastErr = nil
	watchers := b.snapshotWatchersLocked()
	b.mu.Unlock()

	_ = b.applier.Apply(def)
	b.notify(watchers, def)
}

func (b *Bootstrap) currentGeneration() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.generation
}

// ===== lectura =====

// State retorna el estado vigente.
func (b *Bootstrap) State() domain.BootstrapState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Current retorna la configuración publicada (nil si nunca se publicó).
func (b *Bootstrap) Current() *domain.TenantConfig {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Error retorna el último error de resolución (nil si no hubo).
func (b *Bootstrap) Error() *domain.ResolutionError {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

// HasError retorna true si el último intento terminó con error.
func (b *Bootstrap) HasError() bool { return b.Error() != nil }

// IsReady retorna true con estado resolved y configuración publicada.
func (b *Bootstrap) IsReady() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state == domain.StateResolved && b.current != nil
}

// AttemptedSlug retorna el slug del último intento.
func (b *Bootstrap) AttemptedSlug() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.attempted
}

// Strategy retorna la estrategia del último intento (nil antes del primero).
func (b *Bootstrap) Strategy() *domain.ResolutionStrategy {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.strategy
}

// TenantSlug retorna el slug del tenant publicado, o "".
func (b *Bootstrap) TenantSlug() string {
	if c := b.Current(); c != nil {
		return c.Tenant.Slug
	}
	return ""
}

// TenantID retorna el ID del tenant publicado, o "".
func (b *Bootstrap) TenantID() string {
	if c := b.Current(); c != nil {
		return c.Tenant.ID
	}
	return ""
}

// ===== watchers =====

// Watch registra un watcher que recibe cada configuración publicada. El
// cancel desregistra el canal sin cerrarlo: notify puede estar operando
// sobre un snapshot tomado antes del cancel y un canal cerrado haría
// entrar en pánico al emisor. El canal desregistrado queda para el GC.
func (b *Bootstrap) Watch() (<-chan *domain.TenantConfig, func()) {
	ch := make(chan *domain.TenantConfig, 1)
	b.mu.Lock()
	b.watchers[ch] = struct{}{}
	// entregar el valor vigente de inmediato para no perder publicaciones
	if b.current != nil {
		ch <- b.current
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.watchers, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Bootstrap) snapshotWatchersLocked() []chan *domain.TenantConfig {
	out := make([]chan *domain.TenantConfig, 0, len(b.watchers))
	for ch := range b.watchers {
		out = append(out, ch)
	}
	return out
}

func (b *Bootstrap) notify(watchers []chan *domain.TenantConfig, cfg *domain.TenantConfig) {
	for _, ch := range watchers {
		select {
		case ch <- cfg:
		default:
			// watcher lento: descartar el valor viejo y dejar el nuevo
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cfg:
			default:
			}
		}
	}
}

// DebugInfo arma un snapshot para el endpoint de debugging.
func (b *Bootstrap) DebugInfo() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	info := map[string]any{
		"state":         b.state,
		"attemptedSlug": b.attempted,
		"isReady":       b.state == domain.StateResolved && b.current != nil,
		"hasError":      b.lastErr != nil,
	}
	if b.strategy != nil {
		info["strategy"] = b.strategy
	}
	if b.lastErr != nil {
		info["error"] = b.lastErr
	}
	if b.current != nil {
		info["tenant"] = b.current.Tenant
	}
	return info
}
