package domain

import (
	"strings"
	"time"
)

// ClaimsRecord son las aserciones decodificadas del bearer token. Se reemplaza
// atómicamente al recibir un token nuevo y se descarta en logout/401.
type ClaimsRecord struct {
	Subject    string   `json:"sub"`
	Email      string   `json:"email,omitempty"`
	TenantID   string   `json:"tenant_id,omitempty"`
	TenantSlug string   `json:"tenant_slug,omitempty"`
	// Roles es una lista ordenada; por diseño solo la primera entrada define
	// el rol primario del principal.
	Roles []string `json:"roles"`
	// Modules lista los módulos administrativos permitidos. Lista vacía
	// significa "sin restricción configurada": todo permiso se concede.
	Modules    []string `json:"modules"`
	Expiry     int64    `json:"exp"`
	IssuedAt   int64    `json:"iat,omitempty"`
	SuperAdmin bool     `json:"isSuperAdmin,omitempty"`
}

// ExpiresAt retorna el instante de expiración del token.
func (c *ClaimsRecord) ExpiresAt() time.Time {
	return time.Unix(c.Expiry, 0)
}

// PrimaryRole retorna el primer rol de la lista, o "" si no hay.
func (c *ClaimsRecord) PrimaryRole() string {
	if c == nil || len(c.Roles) == 0 {
		return ""
	}
	return c.Roles[0]
}

// HasCustomerRole retorna true si alguno de los roles es "customer"
// (case-insensitive).
func (c *ClaimsRecord) HasCustomerRole() bool {
	if c == nil {
		return false
	}
	for _, r := range c.Roles {
		if strings.EqualFold(r, "customer") {
			return true
		}
	}
	return false
}

// PrincipalMode indica cómo navega un principal con ambas clases de rol.
type PrincipalMode string

const (
	// ModeUndecided fuerza una elección explícita (principal multi-rol).
	ModeUndecided PrincipalMode = ""
	ModeCustomer  PrincipalMode = "customer"
	ModeEmployee  PrincipalMode = "employee"
)

// Valid retorna true para los modos persistibles.
func (m PrincipalMode) Valid() bool {
	return m == ModeCustomer || m == ModeEmployee
}
