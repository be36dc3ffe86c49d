// Package facade binds concrete storage backends to the four roles the
// application consumes them through. A Registry is constructed once,
// configured before first use, and passed explicitly to call sites; there
// is no package-level singleton.
package facade

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/driftbase/driftdb/internal/docstore"
)

// Role names one backend slot. Consumers pick a role, never a concrete
// engine, so backends can be swapped without touching call sites.
type Role string

const (
	RolePreferences Role = "preferences"
	RoleSecure      Role = "secure"
	RolePrimary     Role = "primary"
	RoleRealtime    Role = "realtime"
)

var (
	ErrRoleUnknown  = errors.New("unknown backend role")
	ErrRoleBound    = errors.New("role is already bound")
	ErrRoleNotBound = errors.New("role is not bound")
)

func validRole(role Role) bool {
	switch role {
	case RolePreferences, RoleSecure, RolePrimary, RoleRealtime:
		return true
	}
	return false
}

type Registry struct {
	mu       sync.RWMutex
	backends map[Role]docstore.Storage
}

func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[Role]docstore.Storage),
	}
}

// Bind assigns a backend to a role. Each role is bound at most once for the
// lifetime of the registry.
func (r *Registry) Bind(role Role, storage docstore.Storage) error {
	if !validRole(role) {
		return errors.Wrapf(ErrRoleUnknown, "%q", role)
	}
	if storage == nil {
		return errors.New("storage cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[role]; ok {
		return errors.Wrapf(ErrRoleBound, "%q", role)
	}
	r.backends[role] = storage
	log.Infof("bound %q backend", role)
	return nil
}

// Use returns the backend bound to the role.
func (r *Registry) Use(role Role) (docstore.Storage, error) {
	if !validRole(role) {
		return nil, errors.Wrapf(ErrRoleUnknown, "%q", role)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	storage, ok := r.backends[role]
	if !ok {
		return nil, errors.Wrapf(ErrRoleNotBound, "%q", role)
	}
	return storage, nil
}

// Close shuts down every bound backend. A backend bound to several roles is
// closed once.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	closed := make(map[docstore.Storage]bool)
	var firstErr error
	for role, storage := range r.backends {
		if closed[storage] {
			continue
		}
		closed[storage] = true
		if err := storage.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to close %q backend", role)
		}
	}
	r.backends = make(map[Role]docstore.Storage)
	return firstErr
}
