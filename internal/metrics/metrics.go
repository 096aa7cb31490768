// Package metrics expone las métricas Prometheus del motor.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once
	err  error

	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	cacheLookupsTotal  *prometheus.CounterVec
	unauthorizedTotal  prometheus.Counter
)

// Register inicializa las métricas sobre el registry dado (nil usa el
// default) y retorna el handler para /metrics. Idempotente.
func Register(registry *prometheus.Registry) (http.Handler, error) {
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	gatherer := prometheus.DefaultGatherer
	if registry != nil {
		reg = registry
		gatherer = registry
	}

	once.Do(func() {
		resolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantgate_resolutions_total",
			Help: "Resoluciones de tenant por estado terminal y estrategia",
		}, []string{"state", "strategy"})

		resolutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tenantgate_resolution_duration_seconds",
			Help:    "Duración de la resolución de tenant",
			Buckets: prometheus.DefBuckets,
		}, []string{"state"})

		cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantgate_config_cache_lookups_total",
			Help: "Lookups del cache de configuración por resultado (hit|miss)",
		}, []string{"result"})

		unauthorizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantgate_unauthorized_responses_total",
			Help: "Respuestas 401 observadas por el interceptor",
		})

		for _, c := range []prometheus.Collector{
			resolutionsTotal, resolutionDuration, cacheLookupsTotal, unauthorizedTotal,
		} {
			if e := reg.Register(c); e != nil {
				err = e
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}), nil
}

// ObserveResolution registra el cierre de un intento de resolución.
func ObserveResolution(state, strategy string, d time.Duration) {
	if resolutionsTotal == nil {
		return
	}
	resolutionsTotal.WithLabelValues(state, strategy).Inc()
	resolutionDuration.WithLabelValues(state).Observe(d.Seconds())
}

// ObserveCacheLookup registra un hit/miss del cache de configuración.
func ObserveCacheLookup(hit bool) {
	if cacheLookupsTotal == nil {
		return
	}
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		cacheLookupsTotal.WithLabelValues("miss").Inc()
	}
}

// ObserveUnauthorized registra un 401 manejado centralmente.
func ObserveUnauthorized() {
	if unauthorizedTotal != nil {
		unauthorizedTotal.Inc()
	}
}
