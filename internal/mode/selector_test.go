package mode

import (
	"testing"

	"github.com/dropDatabas3/tenantgate/internal/domain"
	"github.com/dropDatabas3/tenantgate/internal/env"
	"github.com/dropDatabas3/tenantgate/internal/session"
)

type staticSource struct{ rec *domain.ClaimsRecord }

func (s staticSource) Claims() *domain.ClaimsRecord { return s.rec }

func withRoles(roles ...string) staticSource {
	return staticSource{&domain.ClaimsRecord{Roles: roles}}
}

func TestEffectiveMode_SoloCustomer(t *testing.T) {
	s := New(withRoles("Customer"), env.NewMemoryStorage())

	if got := s.EffectiveMode(); got != domain.ModeCustomer {
		t.Fatalf("EffectiveMode = %q, want customer", got)
	}
	if s.ShouldPrompt() {
		t.Fatal("customer puro no debe requerir elección")
	}
}

func TestEffectiveMode_SoloEmpleado(t *testing.T) {
	s := New(withRoles("Admin"), env.NewMemoryStorage())

	if got := s.EffectiveMode(); got != domain.ModeEmployee {
		t.Fatalf("EffectiveMode = %q, want employee", got)
	}
	if s.ShouldPrompt() {
		t.Fatal("sin rol customer no debe requerir elección")
	}
}

func TestEffectiveMode_RolesMixtosRequiereEleccion(t *testing.T) {
	s := New(withRoles("Admin", "Customer"), env.NewMemoryStorage())

	if got := s.EffectiveMode(); got != domain.ModeUndecided {
		t.Fatalf("EffectiveMode = %q, want undecided", got)
	}
	if !s.ShouldPrompt() {
		t.Fatal("roles mixtos sin elección deben pedir prompt")
	}

	if err := s.SetMode(domain.ModeEmployee); err != nil {
		t.Fatalf("SetMode err: %v", err)
	}
	if s.ShouldPrompt() {
		t.Fatal("con elección hecha no debe pedir prompt")
	}
	if got := s.EffectiveMode(); got != domain.ModeEmployee {
		t.Fatalf("EffectiveMode = %q, want employee", got)
	}
}

func TestSetMode_PersisteYRecarga(t *testing.T) {
	storage := env.NewMemoryStorage()

	s := New(withRoles("Admin", "Customer"), storage)
	if err := s.SetMode(domain.ModeCustomer); err != nil {
		t.Fatalf("SetMode err: %v", err)
	}

	// una instancia nueva sobre el mismo storage ve la elección persistida
	s2 := New(withRoles("Admin", "Customer"), storage)
	if got := s2.SelectedMode(); got != domain.ModeCustomer {
		t.Fatalf("SelectedMode tras recarga = %q, want customer", got)
	}
}

func TestSetMode_Invalido(t *testing.T) {
	s := New(withRoles("Customer"), env.NewMemoryStorage())
	if err := s.SetMode(domain.PrincipalMode("pirata")); err == nil {
		t.Fatal("modo inválido aceptado")
	}
}

func TestToggle(t *testing.T) {
	s := New(withRoles("Admin", "Customer"), env.NewMemoryStorage())

	if err := s.SetMode(domain.ModeCustomer); err != nil {
		t.Fatal(err)
	}
	if err := s.Toggle(); err != nil {
		t.Fatal(err)
	}
	if got := s.EffectiveMode(); got != domain.ModeEmployee {
		t.Fatalf("tras toggle = %q, want employee", got)
	}
	if err := s.Toggle(); err != nil {
		t.Fatal(err)
	}
	if got := s.EffectiveMode(); got != domain.ModeCustomer {
		t.Fatalf("tras doble toggle = %q, want customer", got)
	}
}

// El wiring de producción engancha Clear al hook de logout de la sesión: un
// 401 que limpia la sesión debe borrar también la elección user_mode.
func TestClear_EnganchadoAlLogoutDeSesion(t *testing.T) {
	storage := env.NewMemoryStorage()
	sess := session.New(storage, nil)
	s := New(sess, storage)
	sess.OnLogout(func() { _ = s.Clear() })

	if err := s.SetMode(domain.ModeEmployee); err != nil {
		t.Fatal(err)
	}
	sess.Clear()

	if got := s.SelectedMode(); got != domain.ModeUndecided {
		t.Fatalf("SelectedMode tras logout = %q, want undecided", got)
	}
	if _, err := storage.Get(StorageKey); err != env.ErrNotFound {
		t.Fatalf("user_mode debe desaparecer del storage en logout, err = %v", err)
	}
}

func TestClear_BorraEleccionPersistida(t *testing.T) {
	storage := env.NewMemoryStorage()
	s := New(withRoles("Admin", "Customer"), storage)

	if err := s.SetMode(domain.ModeEmployee); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear err: %v", err)
	}
	if got := s.SelectedMode(); got != domain.ModeUndecided {
		t.Fatalf("SelectedMode tras clear = %q, want undecided", got)
	}
	if _, err := storage.Get(StorageKey); err != env.ErrNotFound {
		t.Fatalf("la key debe desaparecer del storage, err = %v", err)
	}
}
