package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantgate/internal/applier"
	"github.com/dropDatabas3/tenantgate/internal/cache"
	"github.com/dropDatabas3/tenantgate/internal/domain"
	"github.com/dropDatabas3/tenantgate/internal/env"
	"github.com/dropDatabas3/tenantgate/internal/provider"
	"github.com/dropDatabas3/tenantgate/internal/resolver"
)

// fakeProvider es un Provider controlable: delay, error fijo o config por slug.
type fakeProvider struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	err   error
}

func (f *fakeProvider) Resolve(ctx context.Context, slug string) (*domain.TenantConfig, error) {
	f.mu.Lock()
	f.calls++
	delay, ferr := f.delay, f.err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if ferr != nil {
		return nil, ferr
	}
	cfg := domain.DefaultTenantConfig()
	cfg.Tenant.Slug = slug
	cfg.Tenant.ID = "id-" + slug
	return cfg, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testResolver() *resolver.Resolver {
	return resolver.New(resolver.Config{DefaultSlug: "fallback"})
}

func interactiveEnv(rawURL string) env.Context {
	return env.NewStatic(rawURL, nil, true)
}

func newBootstrap(prov provider.Provider, cc *cache.ConfigCache, environ env.Context) (*Bootstrap, *applier.Recorder) {
	rec := &applier.Recorder{}
	b := New(Config{
		ResolutionTimeout: 500 * time.Millisecond,
		EnableCache:       cc != nil,
	}, testResolver(), prov, cc, rec, environ)
	return b, rec
}

func TestInitialize_ResuelveYPublica(t *testing.T) {
	prov := &fakeProvider{}
	b, rec := newBootstrap(prov, nil, interactiveEnv("https://acme.example.com/"))

	require.NoError(t, b.Initialize(context.Background()))

	require.Equal(t, domain.StateResolved, b.State())
	require.True(t, b.IsReady())
	require.Nil(t, b.Error())
	require.Equal(t, "acme", b.TenantSlug())
	require.Equal(t, "id-acme", b.TenantID())
	require.Equal(t, "acme", b.AttemptedSlug())

	st := b.Strategy()
	require.NotNil(t, st)
	require.Equal(t, domain.StrategySubdomain, st.Type)

	applied := rec.Applied()
	require.Len(t, applied, 1)
	require.Equal(t, "acme", applied[0].Tenant.Slug)
}

func TestInitialize_NoInteractivoInstalaDefaultSinRed(t *testing.T) {
	prov := &fakeProvider{}
	b, rec := newBootstrap(prov, nil, env.NewStatic("https://acme.example.com/", nil, false))

	require.NoError(t, b.Initialize(context.Background()))

	require.Equal(t, domain.StateResolved, b.State())
	require.Equal(t, 0, prov.callCount(), "modo no interactivo no debe tocar la red")
	require.Len(t, rec.Applied(), 1)
	require.Equal(t, "default", b.TenantSlug())
}

func TestInitialize_NotFoundInstalaDefaultNoBloqueante(t *testing.T) {
	prov := &fakeProvider{err: provider.ErrNotFound}
	b, _ := newBootstrap(prov, nil, interactiveEnv("https://fantasma.example.com/"))

	err := b.Initialize(context.Background())
	require.Error(t, err)

	require.Equal(t, domain.StateNotFound, b.State())
	// el default queda instalado para que la aplicación pueda renderizar
	require.True(t, b.IsReady())
	require.Equal(t, "default", b.TenantSlug())

	resErr := b.Error()
	require.NotNil(t, resErr)
	require.Equal(t, domain.ErrCodeNotFound, resErr.Code)
	require.True(t, resErr.Retryable, "NOT_FOUND es retryable con otro slug")
	require.Equal(t, "fantasma", resErr.Slug)
	require.Equal(t, "fantasma", b.AttemptedSlug())
}

func TestInitialize_TimeoutDeterminista(t *testing.T) {
	prov := &fakeProvider{delay: 5 * time.Second}
	rec := &applier.Recorder{}
	b := New(Config{ResolutionTimeout: 50 * time.Millisecond},
		testResolver(), prov, nil, rec, interactiveEnv("https://lento.example.com/"))

	start := time.Now()
	err := b.Initialize(context.Background())
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second, "el timeout debe cortar el intento")

	require.Equal(t, domain.StateTimeout, b.State())
	resErr := b.Error()
	require.NotNil(t, resErr)
	require.Equal(t, domain.ErrCodeTimeout, resErr.Code)
	require.True(t, resErr.Retryable)
	require.True(t, b.IsReady(), "default no bloqueante tras timeout")
}

func TestInitialize_ClasificacionDeErrores(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		wantCode  domain.ErrorCode
		wantState domain.BootstrapState
		retryable bool
	}{
		{"unauthorized", provider.ErrUnauthorized, domain.ErrCodeUnauthorized, domain.StateError, false},
		{"payload inválido", provider.ErrInvalidPayload, domain.ErrCodeInvalidConfig, domain.StateError, false},
		{"500", &provider.StatusError{Status: 500, Msg: "boom"}, domain.ErrCodeNetwork, domain.StateError, true},
		{"503", &provider.StatusError{Status: 503, Msg: "mantenimiento"}, domain.ErrCodeNetwork, domain.StateError, true},
		{"418", &provider.StatusError{Status: 418, Msg: "tetera"}, domain.ErrCodeUnknown, domain.StateError, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, _ := newBootstrap(&fakeProvider{err: tc.err}, nil, interactiveEnv("https://acme.example.com/"))
			require.Error(t, b.Initialize(context.Background()))
			require.Equal(t, tc.wantState, b.State())
			resErr := b.Error()
			require.NotNil(t, resErr)
			require.Equal(t, tc.wantCode, resErr.Code)
			require.Equal(t, tc.retryable, resErr.Retryable)
		})
	}
}

func TestInitialize_SingleFlightComparteUnFetch(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(150 * time.Millisecond)
		cfg := domain.DefaultTenantConfig()
		cfg.Tenant.Slug = r.URL.Query().Get("tenant")
		cfg.Tenant.ID = "id"
		_ = json.NewEncoder(w).Encode(domain.ProviderResponse{Success: true, Data: cfg})
	}))
	defer srv.Close()

	prov := provider.NewHTTP(srv.URL, nil)
	b := New(Config{ResolutionTimeout: 2 * time.Second},
		testResolver(), prov, nil, &applier.Recorder{}, interactiveEnv("https://acme.example.com/"))

	const n = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = b.Initialize(context.Background())
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(1), calls.Load(), "las llamadas concurrentes deben compartir un único fetch")
	require.Equal(t, domain.StateResolved, b.State())
	require.Equal(t, "acme", b.TenantSlug())
}

func TestInitialize_CacheEvitaElFetch(t *testing.T) {
	client, err := cache.New(cache.Config{Kind: "memory", DefaultTTL: time.Minute})
	require.NoError(t, err)
	cc := cache.NewConfigCache(client, time.Minute)

	prov := &fakeProvider{}
	environ := interactiveEnv("https://acme.example.com/")

	first, _ := newBootstrap(prov, cc, environ)
	require.NoError(t, first.Initialize(context.Background()))
	require.Equal(t, 1, prov.callCount())

	// una segunda instancia sobre el mismo cache resuelve sin red
	second, _ := newBootstrap(prov, cc, environ)
	require.NoError(t, second.Initialize(context.Background()))
	require.Equal(t, 1, prov.callCount(), "el hit de cache no debe tocar el provider")
	require.Equal(t, "acme", second.TenantSlug())
}

func TestSwitchTenant_DescartaResolucionEnVuelo(t *testing.T) {
	prov := &fakeProvider{delay: 200 * time.Millisecond}
	b, _ := newBootstrap(prov, nil, interactiveEnv("https://viejo.example.com/"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Initialize(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	// el switch supersede la resolución de "viejo" que sigue en vuelo
	prov.mu.Lock()
	prov.delay = 0
	prov.mu.Unlock()
	require.NoError(t, b.SwitchTenant(context.Background(), "nuevo"))

	<-done
	require.Equal(t, "nuevo", b.TenantSlug(), "el resultado tardío del tenant anterior debe descartarse")
	require.Equal(t, domain.StateResolved, b.State())
}

func TestRetry_LimpiaElErrorAnterior(t *testing.T) {
	prov := &fakeProvider{err: provider.ErrNotFound}
	b, _ := newBootstrap(prov, nil, interactiveEnv("https://fantasma.example.com/"))

	require.Error(t, b.Initialize(context.Background()))
	require.NotNil(t, b.Error())

	prov.mu.Lock()
	prov.err = nil
	prov.mu.Unlock()

	require.NoError(t, b.Retry(context.Background(), "acme"))
	require.Nil(t, b.Error())
	require.Equal(t, domain.StateResolved, b.State())
	require.Equal(t, "acme", b.TenantSlug())
}

func TestWatch_EntregaConfigActualYPublicaciones(t *testing.T) {
	prov := &fakeProvider{}
	b, _ := newBootstrap(prov, nil, interactiveEnv("https://acme.example.com/"))
	require.NoError(t, b.Initialize(context.Background()))

	ch, cancel := b.Watch()
	defer cancel()

	select {
	case cfg := <-ch:
		require.NotNil(t, cfg)
		require.Equal(t, "acme", cfg.Tenant.Slug)
	case <-time.After(time.Second):
		t.Fatal("el watcher debe recibir la config vigente de inmediato")
	}

	require.NoError(t, b.SwitchTenant(context.Background(), "beta"))

	select {
	case cfg := <-ch:
		require.Equal(t, "beta", cfg.Tenant.Slug)
	case <-time.After(time.Second):
		t.Fatal("el watcher no recibió la nueva publicación")
	}
}

func TestRetry_NormalizaElSlug(t *testing.T) {
	prov := &fakeProvider{}
	client, err := cache.New(cache.Config{Kind: "memory", DefaultTTL: time.Minute})
	require.NoError(t, err)
	cc := cache.NewConfigCache(client, time.Minute)
	b, _ := newBootstrap(prov, cc, interactiveEnv("https://acme.example.com/"))

	require.NoError(t, b.Retry(context.Background(), "  Beta "))
	require.Equal(t, "beta", b.TenantSlug())
	require.Equal(t, 1, prov.callCount())

	// mismo tenant con otra capitalización: debe pegar en la misma clave de
	// cache y no volver al provider
	require.NoError(t, b.SwitchTenant(context.Background(), "BETA"))
	require.Equal(t, "beta", b.TenantSlug())
	require.Equal(t, 2, prov.callCount()) // SwitchTenant invalida la cache

	require.NoError(t, b.Retry(context.Background(), "beta"))
	require.Equal(t, 2, prov.callCount())
}

// hookApplier ejecuta fn en cada Apply; permite interponerse entre el
// snapshot de watchers y el notify de una publicación.
type hookApplier struct{ fn func() }

func (h *hookApplier) Apply(*domain.TenantConfig) error {
	if h.fn != nil {
		h.fn()
	}
	return nil
}

func TestWatch_CancelDuranteUnaPublicacionNoHacePanic(t *testing.T) {
	prov := &fakeProvider{}
	hook := &hookApplier{}
	b := New(Config{ResolutionTimeout: 500 * time.Millisecond},
		testResolver(), prov, nil, hook, interactiveEnv("https://acme.example.com/"))
	require.NoError(t, b.Initialize(context.Background()))

	ch, cancel := b.Watch()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("el watcher debe recibir la config vigente de inmediato")
	}

	// el cancel aterriza justo después del snapshot y antes del envío
	hook.fn = cancel
	require.NoError(t, b.SwitchTenant(context.Background(), "beta"))

	// el canal desregistrado sigue abierto; la publicación en vuelo puede o
	// no haber quedado en el buffer, pero nunca debe haber pánico
	select {
	case cfg := <-ch:
		require.NotNil(t, cfg)
	default:
	}
}

func TestDebugInfo(t *testing.T) {
	prov := &fakeProvider{}
	b, _ := newBootstrap(prov, nil, interactiveEnv("https://acme.example.com/"))
	require.NoError(t, b.Initialize(context.Background()))

	info := b.DebugInfo()
	require.Equal(t, domain.StateResolved, info["state"])
	require.Equal(t, true, info["isReady"])
	require.Equal(t, false, info["hasError"])

	tenant, ok := info["tenant"].(domain.TenantIdentity)
	require.True(t, ok)
	require.Equal(t, "acme", tenant.Slug)
}
