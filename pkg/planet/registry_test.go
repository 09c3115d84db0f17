package planet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry("odin", []Planet{
		{Name: "odin", ID: "0x100000000000"},
		{Name: "heimdall", ID: "0x100000000001", VaultAddress: "0xVaultOnOdin"},
	})
	require.NoError(t, err)
	return registry
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry("odin", nil)
	require.Error(t, err)

	_, err = NewRegistry("odin", []Planet{{Name: "heimdall", ID: "0x1"}})
	require.Error(t, err)

	_, err = NewRegistry("odin", []Planet{{Name: "odin", ID: "0x1", VaultAddress: "0xVault"}})
	require.Error(t, err)
}

func TestPlanetName(t *testing.T) {
	registry := newTestRegistry(t)

	require.Equal(t, "heimdall", registry.PlanetName("0x1000000000019c09b254b5f84838ffa89136b0bd"))
	require.Equal(t, "odin", registry.PlanetName("0x1000000000009c09b254b5f84838ffa89136b0bd"))
	require.Equal(t, "odin", registry.PlanetName("0x9c09b254b5f84838ffa89136b0bd90e0f22f7489"))
}

func TestResolveDirect(t *testing.T) {
	registry := newTestRegistry(t)

	route := registry.Resolve("0x1000000000009c09b254b5f84838ffa89136b0bd")
	require.Equal(t, "odin", route.Planet)
	require.Equal(t, "0x9c09b254b5f84838ffa89136b0bd", route.Recipient)
	require.Empty(t, route.Memo)
}

func TestResolveThroughVault(t *testing.T) {
	registry := newTestRegistry(t)

	route := registry.Resolve("0x1000000000019c09b254b5f84838ffa89136b0bd")
	require.Equal(t, "heimdall", route.Planet)
	require.Equal(t, "0xVaultOnOdin", route.Recipient)
	require.Equal(t, "0x9c09b254b5f84838ffa89136b0bd", route.Memo)
}

func TestResolveUnprefixedDefaultsToOdin(t *testing.T) {
	registry := newTestRegistry(t)

	route := registry.Resolve("0x9c09b254b5f84838ffa89136b0bd90e0f22f7489")
	require.Equal(t, "odin", route.Planet)
	require.Equal(t, "0x9c09b254b5f84838ffa89136b0bd90e0f22f7489", route.Recipient)
}
