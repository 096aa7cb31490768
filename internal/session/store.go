// Package session mantiene el bearer token y los claims vigentes, con
// persistencia por tenant en el storage durable.
//
// Keys durables: mtkn_<tenantSlug> (token por tenant), superadmin_token
// (token de plataforma). El reemplazo de claims es atómico: los lectores
// siempre observan un ClaimsRecord completo o nil.
package session

import (
	"sync"

	"github.com/dropDatabas3/tenantgate/internal/claims"
	"github.com/dropDatabas3/tenantgate/internal/domain"
	"github.com/dropDatabas3/tenantgate/internal/env"
	"github.com/dropDatabas3/tenantgate/internal/observability/logger"
)

const (
	// TokenKeyPrefix arma la key por tenant: mtkn_<slug>.
	TokenKeyPrefix = "mtkn_"
	// SuperAdminTokenKey guarda el token de plataforma.
	SuperAdminTokenKey = "superadmin_token"
)

// Sealer cifra tokens en reposo. Opcional; nil guarda en claro.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(sealed string) (string, error)
}

// Store es el dueño único de token y claims de la sesión.
type Store struct {
	storage env.Storage
	sealer  Sealer

	mu         sync.RWMutex
	token      string
	claims     *domain.ClaimsRecord
	tenantSlug string
	superAdmin bool

	// onLogout corre tras Clear (p.ej. resetear el modo de usuario).
	onLogout []func()
}

// New crea un Store sobre el storage durable dado.
func New(storage env.Storage, sealer Sealer) *Store {
	return &Store{storage: storage, sealer: sealer}
}

// OnLogout registra un hook que corre después de cada Clear.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Init fija el tenant de la sesión y restaura el token persistido, si hay.
func (s *Store) Init(tenantSlug string) {
	s.mu.Lock()
	s.tenantSlug = tenantSlug
	s.superAdmin = false
	s.mu.Unlock()

	if tok := s.load(TokenKeyPrefix + tenantSlug); tok != "" {
		s.SetToken(tok)
	}
}

// InitSuperAdmin entra en modo plataforma y restaura superadmin_token.
func (s *Store) InitSuperAdmin() {
	s.mu.Lock()
	s.tenantSlug = ""
	s.superAdmin = true
	s.mu.Unlock()

	if tok := s.load(SuperAdminTokenKey); tok != "" {
		s.SetToken(tok)
	}
}

// SetToken reemplaza token y claims atómicamente y persiste bajo la key que
// corresponda. Un token indecodificable deja la sesión sin claims pero con el
// token presente (el backend aún puede aceptarlo).
func (s *Store) SetToken(token string) {
	rec, err := claims.Decode(token)
	if err != nil {
		rec = nil
	}

	s.mu.Lock()
	s.token = token
	s.claims = rec
	if rec != nil && rec.SuperAdmin {
		s.superAdmin = true
	}
	superAdmin := s.superAdmin
	tenantSlug := s.tenantSlug
	s.mu.Unlock()

	log := logger.Named("session")
	switch {
	case superAdmin:
		s.persist(SuperAdminTokenKey, token)
		// también bajo el slug del JWT para que el bootstrap lo encuentre
		if rec != nil && rec.TenantSlug != "" {
			s.persist(TokenKeyPrefix+rec.TenantSlug, token)
		}
	case tenantSlug != "":
		s.persist(TokenKeyPrefix+tenantSlug, token)
	default:
		log.Warn("token no persistido: sesión sin tenant y sin superadmin")
	}
}

// Clear descarta token y claims y borra la persistencia de la sesión actual.
// Luego corre los hooks de logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	superAdmin := s.superAdmin
	tenantSlug := s.tenantSlug
	s.superAdmin = false
	hooks := make([]func(), len(s.onLogout))
	copy(hooks, s.onLogout)
	s.mu.Unlock()

	if s.storage != nil {
		if superAdmin {
			_ = s.storage.Remove(SuperAdminTokenKey)
		} else if tenantSlug != "" {
			_ = s.storage.Remove(TokenKeyPrefix + tenantSlug)
		}
	}
	for _, fn := range hooks {
		fn()
	}
}

// Token retorna el bearer token vigente ("" si no hay).
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Claims retorna los claims vigentes (nil = no autenticado). Implementa
// authz.ClaimsSource.
func (s *Store) Claims() *domain.ClaimsRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims
}

// IsSuperAdmin retorna true en modo plataforma.
func (s *Store) IsSuperAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.superAdmin
}

// TenantSlug retorna el tenant de la sesión ("" en modo plataforma).
func (s *Store) TenantSlug() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tenantSlug
}

// TenantSlugFromClaims retorna el tenant_slug de los claims vigentes ("" si
// no hay claims o el token no trae tenant).
func (s *Store) TenantSlugFromClaims() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.TenantSlug
}

func (s *Store) persist(key, token string) {
	if s.storage == nil {
		return
	}
	value := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			logger.Named("session").Warn("no se pudo cifrar token, no se persiste", logger.Err(err))
			return
		}
		value = sealed
	}
	if err := s.storage.Set(key, value); err != nil {
		logger.Named("session").Warn("persistencia de token falló", logger.Err(err))
	}
}

func (s *Store) load(key string) string {
	if s.storage == nil {
		return ""
	}
	v, err := s.storage.Get(key)
	if err != nil {
		return ""
	}
	if s.sealer != nil {
		plain, err := s.sealer.Open(v)
		if err != nil {
			// valor ilegible (clave rotada o corrupción): descartarlo
			_ = s.storage.Remove(key)
			return ""
		}
		return plain
	}
	return v
}
