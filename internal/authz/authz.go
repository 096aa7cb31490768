// Package authz implementa los predicados de rol/permiso/módulo sobre los
// claims vigentes. Todos los predicados son puros respecto de la fuente.
package authz

import (
	"strings"
	"time"

	"github.com/dropDatabas3/tenantgate/internal/claims"
	"github.com/dropDatabas3/tenantgate/internal/domain"
)

// ClaimsSource entrega los claims vigentes (nil = no autenticado).
type ClaimsSource interface {
	Claims() *domain.ClaimsRecord
}

// Engine evalúa autorización sobre una fuente de claims.
type Engine struct {
	source ClaimsSource
	now    func() time.Time
}

// New crea un Engine. now es opcional (default time.Now) y existe para tests.
func New(source ClaimsSource, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{source: source, now: now}
}

func (e *Engine) current() *domain.ClaimsRecord {
	if e.source == nil {
		return nil
	}
	return e.source.Claims()
}

// IsAuthenticated retorna true si hay claims y el token no expiró.
func (e *Engine) IsAuthenticated() bool {
	c := e.current()
	return c != nil && c.Expiry*1000 > e.now().UnixMilli()
}

// HasRole compara role contra el PRIMER rol de la lista, normalizado
// (case-insensitive, sin underscores). El diseño es de rol primario único:
// los roles restantes no se consideran.
func (e *Engine) HasRole(role string) bool {
	c := e.current()
	if c == nil {
		return false
	}
	return claims.NormalizeRole(c.PrimaryRole()) == claims.NormalizeRole(role)
}

// Role retorna el rol primario, o "" si no hay claims.
func (e *Engine) Role() string {
	c := e.current()
	if c == nil {
		return ""
	}
	return c.PrimaryRole()
}

// IsSuperAdmin retorna true para el flag explícito o rol primario superadmin.
func (e *Engine) IsSuperAdmin() bool {
	c := e.current()
	if c == nil {
		return false
	}
	return c.SuperAdmin || claims.NormalizeRole(c.PrimaryRole()) == "superadmin"
}

// HasPermission verifica acceso a un módulo (case-insensitive).
//
// Regla especial: una lista de módulos VACÍA significa "sin restricción
// configurada" y concede todo permiso. La construcción de menús y los guards
// de rutas dependen de esta semántica; no tratarla como "sin acceso".
func (e *Engine) HasPermission(module string) bool {
	c := e.current()
	if c == nil {
		return false
	}
	if len(c.Modules) == 0 {
		return true
	}
	for _, m := range c.Modules {
		if strings.EqualFold(m, module) {
			return true
		}
	}
	return false
}

// HasAllPermissions verifica acceso a todos los módulos dados.
func (e *Engine) HasAllPermissions(modules ...string) bool {
	for _, m := range modules {
		if !e.HasPermission(m) {
			return false
		}
	}
	return true
}

// HasAnyPermission verifica acceso a alguno de los módulos dados.
func (e *Engine) HasAnyPermission(modules ...string) bool {
	for _, m := range modules {
		if e.HasPermission(m) {
			return true
		}
	}
	return false
}

// Permissions retorna la lista de módulos permitidos (vacía = sin restricción).
func (e *Engine) Permissions() []string {
	c := e.current()
	if c == nil {
		return nil
	}
	out := make([]string, len(c.Modules))
	copy(out, c.Modules)
	return out
}
