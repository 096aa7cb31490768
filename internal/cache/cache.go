// Package cache provee el cache TTL de configuraciones de tenant, con backend
// en memoria (dev/single-node) o Redis (distribuido).
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indica key ausente o vencida.
var ErrNotFound = errors.New("cache: key not found")

// Client define las operaciones mínimas del backend.
type Client interface {
	// Get retorna el valor, o ErrNotFound si no existe o venció.
	Get(ctx context.Context, key string) (string, error)
	// Set guarda con TTL. ttl 0 no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete elimina la key.
	Delete(ctx context.Context, key string) error
	// Flush vacía el cache completo.
	Flush(ctx context.Context) error
	// Close libera recursos del backend.
	Close() error
}

// Config para construir un Client.
type Config struct {
	// Kind: "memory" | "redis"
	Kind     string
	Addr     string
	Password string
	DB       int
	Prefix   string
	// DefaultTTL del backend memoria.
	DefaultTTL time.Duration
}

// New construye el backend según cfg.Kind.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "", "memory":
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	case "redis":
		return NewRedis(cfg)
	}
	return nil, errors.New("cache: kind desconocido " + cfg.Kind)
}
