package domain

// GeneralAdminSlug es el slug reservado del modo administrador general
// (plataforma, sin tenant).
const GeneralAdminSlug = "general-admin"

// ReservedSubdomains no resuelven a tenants aunque aparezcan como subdominio.
var ReservedSubdomains = []string{"www", "api", "admin", "app", "staging", "dev", "localhost"}

// DefaultTenantConfig es el fallback que se instala cuando la resolución falla
// o en ejecución no interactiva, para que la aplicación pueda renderizar.
func DefaultTenantConfig() *TenantConfig {
	return &TenantConfig{
		Tenant: TenantIdentity{
			ID:          "default",
			Slug:        "default",
			DisplayName: "PWA eCommerce",
		},
		Theme: Theme{
			Primary:    "#1976d2",
			Accent:     "#dc004e",
			FaviconURL: "/favicon.ico",
		},
		Features: map[string]bool{},
		Limits:   Limits{Products: 1000, Admins: 5, StorageMB: 500},
		Locale:   "es-CO",
		Currency: "COP",
	}
}
