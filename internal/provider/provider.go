// Package provider consulta la configuración de un tenant en el provider
// externo (HTTP) o directamente en el control plane (Postgres).
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

var (
	// ErrNotFound: el slug no existe en el provider.
	ErrNotFound = errors.New("provider: tenant not found")
	// ErrUnauthorized: el provider rechazó las credenciales (401/403).
	ErrUnauthorized = errors.New("provider: unauthorized")
	// ErrInvalidPayload: respuesta 2xx con payload malformado o success=false
	// sin data.
	ErrInvalidPayload = errors.New("provider: invalid payload")
)

// StatusError conserva el status HTTP para el mapeo de la taxonomía de
// errores de resolución.
type StatusError struct {
	Status int
	Msg    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider: status %d: %s", e.Status, e.Msg)
}

// Provider resuelve la configuración completa de un tenant por slug.
// Las implementaciones respetan el deadline del contexto.
type Provider interface {
	Resolve(ctx context.Context, slug string) (*domain.TenantConfig, error)
}
