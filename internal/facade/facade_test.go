package facade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftbase/driftdb/internal/docstore/memstore"
)

func TestBindAndUse(t *testing.T) {
	registry := NewRegistry()
	primary := memstore.New(memstore.Options{})
	require.NoError(t, registry.Bind(RolePrimary, primary))

	got, err := registry.Use(RolePrimary)
	require.NoError(t, err)
	assert.Same(t, primary, got)

	_, err = registry.Use(RoleSecure)
	assert.ErrorIs(t, err, ErrRoleNotBound)

	require.NoError(t, registry.Close())
}

func TestBindOnce(t *testing.T) {
	registry := NewRegistry()
	defer registry.Close()

	require.NoError(t, registry.Bind(RoleRealtime, memstore.New(memstore.Options{})))
	err := registry.Bind(RoleRealtime, memstore.New(memstore.Options{}))
	assert.ErrorIs(t, err, ErrRoleBound)
}

func TestUnknownRole(t *testing.T) {
	registry := NewRegistry()
	defer registry.Close()

	err := registry.Bind(Role("cache"), memstore.New(memstore.Options{}))
	assert.ErrorIs(t, err, ErrRoleUnknown)
	_, err = registry.Use(Role("cache"))
	assert.ErrorIs(t, err, ErrRoleUnknown)
}

func TestCloseSharedBackendOnce(t *testing.T) {
	registry := NewRegistry()
	shared := memstore.New(memstore.Options{})
	require.NoError(t, registry.Bind(RolePrimary, shared))
	require.NoError(t, registry.Bind(RoleRealtime, shared))
	// memstore.Close is idempotent anyway; this asserts no error surfaces.
	require.NoError(t, registry.Close())
}
