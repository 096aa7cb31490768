package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar del dominio. Centralizarlos evita divergencia de nombres
// entre componentes.

// TenantSlug crea un campo para el slug del tenant.
func TenantSlug(v string) zap.Field { return zap.String("tenant_slug", v) }

// TenantID crea un campo para el ID/key del tenant.
func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

// Strategy crea un campo para la estrategia de resolución usada.
func Strategy(v string) zap.Field { return zap.String("strategy", v) }

// State crea un campo para el estado del bootstrap.
func State(v string) zap.Field { return zap.String("state", v) }

// ErrorCode crea un campo para el código de error de resolución.
func ErrorCode(v string) zap.Field { return zap.String("error_code", v) }

// Cached indica si la configuración salió del cache.
func Cached(v bool) zap.Field { return zap.Bool("cached", v) }

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path crea un campo para el path del request.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration crea un campo para duraciones.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// Err crea un campo de error estándar.
func Err(err error) zap.Field { return zap.Error(err) }

// Any serializa un valor arbitrario (uso puntual, p.ej. recover de pánicos).
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
