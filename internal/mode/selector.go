// Package mode resuelve si un principal con varias clases de rol navega como
// cliente o como empleado. La elección explícita persiste en storage durable.
package mode

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dropDatabas3/tenantgate/internal/authz"
	"github.com/dropDatabas3/tenantgate/internal/domain"
	"github.com/dropDatabas3/tenantgate/internal/env"
	"github.com/dropDatabas3/tenantgate/internal/observability/logger"
)

// StorageKey es la key durable donde persiste la elección.
const StorageKey = "user_mode"

// Selector decide el modo efectivo del principal:
//   - solo rol "customer"           -> customer, permanente
//   - sin rol "customer"            -> employee, permanente
//   - customer + al menos otro rol  -> undecided hasta elección explícita
type Selector struct {
	source  authz.ClaimsSource
	storage env.Storage

	mu       sync.RWMutex
	selected domain.PrincipalMode
}

// New crea un Selector y carga la elección persistida, si existe.
func New(source authz.ClaimsSource, storage env.Storage) *Selector {
	s := &Selector{source: source, storage: storage}
	if storage != nil {
		if v, err := storage.Get(StorageKey); err == nil {
			if m := domain.PrincipalMode(v); m.Valid() {
				s.selected = m
			}
		}
	}
	return s
}

func (s *Selector) claims() *domain.ClaimsRecord {
	if s.source == nil {
		return nil
	}
	return s.source.Claims()
}

// SelectedMode retorna la elección explícita (ModeUndecided si no hay).
func (s *Selector) SelectedMode() domain.PrincipalMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// IsCustomerOnly: exactamente un rol y es "customer".
func (s *Selector) IsCustomerOnly() bool {
	c := s.claims()
	if c == nil || len(c.Roles) != 1 {
		return false
	}
	return strings.EqualFold(c.Roles[0], "customer")
}

// HasMultipleRoles: rol customer más al menos otro rol.
func (s *Selector) HasMultipleRoles() bool {
	c := s.claims()
	if c == nil || len(c.Roles) <= 1 {
		return false
	}
	return c.HasCustomerRole()
}

// ShouldPrompt indica si corresponde pedir la elección al usuario.
func (s *Selector) ShouldPrompt() bool {
	return s.HasMultipleRoles() && s.SelectedMode() == domain.ModeUndecided
}

// EffectiveMode retorna el modo vigente, auto-decidiendo cuando los roles lo
// permiten. ModeUndecided significa que falta la elección explícita.
func (s *Selector) EffectiveMode() domain.PrincipalMode {
	if m := s.SelectedMode(); m != domain.ModeUndecided {
		return m
	}
	if s.IsCustomerOnly() {
		return domain.ModeCustomer
	}
	c := s.claims()
	if c != nil && len(c.Roles) > 0 && !c.HasCustomerRole() {
		return domain.ModeEmployee
	}
	return domain.ModeUndecided
}

// IsCustomerMode retorna true si navega como cliente.
func (s *Selector) IsCustomerMode() bool { return s.EffectiveMode() == domain.ModeCustomer }

// IsEmployeeMode retorna true si navega como empleado.
func (s *Selector) IsEmployeeMode() bool { return s.EffectiveMode() == domain.ModeEmployee }

// SetMode registra la elección explícita y la persiste.
func (s *Selector) SetMode(m domain.PrincipalMode) error {
	if !m.Valid() {
		return fmt.Errorf("mode: modo inválido %q", string(m))
	}
	s.mu.Lock()
	s.selected = m
	s.mu.Unlock()
	if s.storage != nil {
		if err := s.storage.Set(StorageKey, string(m)); err != nil {
			logger.Named("mode").Warn("no se pudo persistir user_mode", logger.Err(err))
			return err
		}
	}
	return nil
}

// Toggle alterna entre customer y employee.
func (s *Selector) Toggle() error {
	if s.EffectiveMode() == domain.ModeCustomer {
		return s.SetMode(domain.ModeEmployee)
	}
	return s.SetMode(domain.ModeCustomer)
}

// Reset borra la elección y fuerza a elegir de nuevo.
func (s *Selector) Reset() error {
	s.mu.Lock()
	s.selected = domain.ModeUndecided
	s.mu.Unlock()
	if s.storage != nil {
		return s.storage.Remove(StorageKey)
	}
	return nil
}

// Clear limpia el modo en logout. Equivalente a Reset; existe por claridad en
// los call sites de sesión.
func (s *Selector) Clear() error { return s.Reset() }
