// Package env abstrae el estado ambiente del host (URL actual, hostname,
// storage durable) para que el motor sea testeable sin un browser/host real.
package env

import (
	"errors"
	"net/url"
)

// ErrNotFound se retorna cuando una key no existe en el storage.
var ErrNotFound = errors.New("env: key not found")

// Storage es un key-value durable (tokens por tenant, modo de usuario).
// Un solo writer por key lógica; lecturas concurrentes seguras.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	// Keys lista las keys presentes (para debugging/limpieza).
	Keys() ([]string, error)
}

// Context expone las señales ambiente que alimentan la resolución de tenant.
type Context interface {
	// CurrentURL retorna la URL completa del request/navegación actual.
	CurrentURL() *url.URL
	// QueryParam retorna el valor del query param, o "" si no está.
	QueryParam(name string) string
	// Hostname retorna el host sin puerto.
	Hostname() string
	// Storage retorna el key-value durable del ambiente.
	Storage() Storage
	// Interactive distingue ejecución con usuario (browser/edge) de ejecución
	// server-side, donde la resolución no debe tocar la red.
	Interactive() bool
}

// Static es un Context inmutable construido desde una URL fija. Cubre tests y
// el camino server-side, donde las señales llegan con el request.
type Static struct {
	URL       *url.URL
	KV        Storage
	IsBrowser bool
}

// NewStatic parsea rawURL y arma un Context con el storage dado.
// Un rawURL inválido degrada a una URL vacía, nunca falla.
func NewStatic(rawURL string, kv Storage, interactive bool) *Static {
	u, err := url.Parse(rawURL)
	if err != nil {
		u = &url.URL{}
	}
	if kv == nil {
		kv = NewMemoryStorage()
	}
	return &Static{URL: u, KV: kv, IsBrowser: interactive}
}

func (s *Static) CurrentURL() *url.URL { return s.URL }

func (s *Static) QueryParam(name string) string {
	if s.URL == nil {
		return ""
	}
	return s.URL.Query().Get(name)
}

func (s *Static) Hostname() string {
	if s.URL == nil {
		return ""
	}
	return s.URL.Hostname()
}

func (s *Static) Storage() Storage { return s.KV }

func (s *Static) Interactive() bool { return s.IsBrowser }
