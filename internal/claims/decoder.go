// Package claims decodifica bearer tokens a un ClaimsRecord tipado.
//
// La decodificación es tolerante: cualquier token malformado produce "sin
// claims" (no autenticado) en vez de interrumpir al caller. La verificación de
// firma es responsabilidad del backend; acá solo se lee el payload.
package claims

import (
	"encoding/json"
	"errors"
	"strings"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/tenantgate/internal/domain"
)

// ErrNoClaims indica que el token no produjo claims utilizables.
var ErrNoClaims = errors.New("claims: token sin claims utilizables")

// rawPayload refleja el payload del JWT incluyendo campos legacy.
type rawPayload struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	TenantID   string `json:"tenant_id"`
	TenantSlug string `json:"tenant_slug"`
	// roles puede venir como array o string (tokens viejos).
	Roles   any      `json:"roles"`
	Role    any      `json:"role"`
	Modules []string `json:"modules"`
	Exp     float64  `json:"exp"`
	Iat     float64  `json:"iat"`
	// admin/isSuperAdmin pueden venir como bool o string "true".
	IsSuperAdmin any `json:"isSuperAdmin"`
	Admin        any `json:"admin"`
	// legacy
	TenantIDCamel string `json:"tenantId"`
}

// Decode parsea el payload del bearer token sin verificar firma.
// Retorna (nil, ErrNoClaims) ante cualquier malformación.
func Decode(token string) (*domain.ClaimsRecord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoClaims
	}

	parser := jwtv5.NewParser()
	var mc jwtv5.MapClaims
	if _, _, err := parser.ParseUnverified(token, &mc); err != nil {
		return nil, ErrNoClaims
	}

	// round-trip por JSON para aplicar la forma tipada con tolerancia
	b, err := json.Marshal(map[string]any(mc))
	if err != nil {
		return nil, ErrNoClaims
	}
	var p rawPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, ErrNoClaims
	}

	rec := &domain.ClaimsRecord{
		Subject:    p.Sub,
		Email:      p.Email,
		TenantID:   firstNonEmpty(p.TenantID, p.TenantIDCamel),
		TenantSlug: p.TenantSlug,
		Roles:      toStringList(coalesce(p.Roles, p.Role)),
		Modules:    p.Modules,
		Expiry:     int64(p.Exp),
		IssuedAt:   int64(p.Iat),
	}
	if rec.Modules == nil {
		rec.Modules = []string{}
	}
	rec.SuperAdmin = truthy(p.IsSuperAdmin) || truthy(p.Admin) ||
		NormalizeRole(rec.PrimaryRole()) == "superadmin"

	if rec.Subject == "" && len(rec.Roles) == 0 && rec.Expiry == 0 {
		return nil, ErrNoClaims
	}
	return rec, nil
}

// NormalizeRole baja a minúsculas y quita underscores: "Super_Admin" y
// "superadmin" comparan iguales.
func NormalizeRole(role string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(role)), "_", "")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func coalesce(vals ...any) any {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// toStringList acepta []any, []string o string suelto.
func toStringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, i := range t {
			if s, ok := i.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true")
	}
	return false
}
