package authz

import (
	"testing"
	"time"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

type staticSource struct{ rec *domain.ClaimsRecord }

func (s staticSource) Claims() *domain.ClaimsRecord { return s.rec }

func fixedNow() time.Time {
	return time.Unix(1_700_000_000, 0)
}

func engineWith(rec *domain.ClaimsRecord) *Engine {
	return New(staticSource{rec}, fixedNow)
}

func TestIsAuthenticated(t *testing.T) {
	now := fixedNow().Unix()

	cases := []struct {
		name string
		rec  *domain.ClaimsRecord
		want bool
	}{
		{"sin claims", nil, false},
		{"vigente", &domain.ClaimsRecord{Expiry: now + 60}, true},
		{"expirado", &domain.ClaimsRecord{Expiry: now - 1}, false},
		{"exp cero", &domain.ClaimsRecord{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := engineWith(tc.rec).IsAuthenticated(); got != tc.want {
				t.Fatalf("IsAuthenticated = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasRole_SoloRolPrimario(t *testing.T) {
	e := engineWith(&domain.ClaimsRecord{Roles: []string{"Admin", "Customer"}})

	if !e.HasRole("admin") {
		t.Fatal("HasRole(admin) = false, want true")
	}
	// Customer está en la lista pero no es el rol primario
	if e.HasRole("customer") {
		t.Fatal("HasRole(customer) = true, want false (solo cuenta el primario)")
	}
}

func TestHasRole_Normalizacion(t *testing.T) {
	e := engineWith(&domain.ClaimsRecord{Roles: []string{"Super_Admin"}})

	for _, role := range []string{"superadmin", "SUPER_ADMIN", "Super_Admin", "superAdmin"} {
		if !e.HasRole(role) {
			t.Fatalf("HasRole(%q) = false, want true", role)
		}
	}
	if e.HasRole("admin") {
		t.Fatal("HasRole(admin) = true, want false")
	}
}

func TestIsSuperAdmin(t *testing.T) {
	if !engineWith(&domain.ClaimsRecord{SuperAdmin: true}).IsSuperAdmin() {
		t.Fatal("flag explícito ignorado")
	}
	if !engineWith(&domain.ClaimsRecord{Roles: []string{"SUPER_ADMIN"}}).IsSuperAdmin() {
		t.Fatal("rol primario super_admin ignorado")
	}
	if engineWith(&domain.ClaimsRecord{Roles: []string{"admin"}}).IsSuperAdmin() {
		t.Fatal("admin no es superadmin")
	}
}

// Una lista de módulos vacía significa "sin restricción": todo permiso se
// concede. Nunca debe leerse como "sin acceso".
func TestHasPermission_ModulosVaciosConcedeTodo(t *testing.T) {
	e := engineWith(&domain.ClaimsRecord{
		Roles:   []string{"Admin", "Customer"},
		Modules: []string{},
	})

	for _, m := range []string{"products", "orders", "cualquier-cosa"} {
		if !e.HasPermission(m) {
			t.Fatalf("HasPermission(%q) = false, want true con módulos vacíos", m)
		}
	}
	if !e.HasRole("admin") {
		t.Fatal("HasRole(admin) = false, want true")
	}
}

func TestHasPermission_ListaExplicita(t *testing.T) {
	e := engineWith(&domain.ClaimsRecord{Modules: []string{"products", "orders"}})

	if !e.HasPermission("products") || !e.HasPermission("Orders") {
		t.Fatal("módulo listado rechazado (debe ser case-insensitive)")
	}
	if e.HasPermission("billing") {
		t.Fatal("HasPermission(billing) = true, want false")
	}
}

func TestHasPermission_SinClaims(t *testing.T) {
	if engineWith(nil).HasPermission("products") {
		t.Fatal("sin claims no hay permisos")
	}
}

func TestHasAllAnyPermissions(t *testing.T) {
	e := engineWith(&domain.ClaimsRecord{Modules: []string{"products", "orders"}})

	if !e.HasAllPermissions("products", "orders") {
		t.Fatal("HasAllPermissions con todos presentes = false")
	}
	if e.HasAllPermissions("products", "billing") {
		t.Fatal("HasAllPermissions con uno ausente = true")
	}
	if !e.HasAnyPermission("billing", "orders") {
		t.Fatal("HasAnyPermission con uno presente = false")
	}
	if e.HasAnyPermission("billing", "crm") {
		t.Fatal("HasAnyPermission sin presentes = true")
	}
}

func TestPermissions_CopiaDefensiva(t *testing.T) {
	rec := &domain.ClaimsRecord{Modules: []string{"products"}}
	e := engineWith(rec)

	perms := e.Permissions()
	perms[0] = "mutado"
	if rec.Modules[0] != "products" {
		t.Fatal("Permissions retornó el slice interno")
	}
}
