package planet

import (
	"fmt"
	"strings"
)

// Planet describes one logical destination-chain variant. VaultAddress is
// optional: when set, transfers requested for this planet are delivered
// to the vault on the default planet instead of directly, with the real
// recipient carried in the transfer memo.
type Planet struct {
	Name         string
	ID           string
	VaultAddress string
}

// Route is the resolved destination for one transfer.
type Route struct {
	Planet    string
	Recipient string
	// Memo carries the end recipient when the transfer goes through a
	// cross-planet vault; empty otherwise.
	Memo string
}

// Registry maps chain-variant names to their on-chain identifiers and
// vault overrides. Read-only after construction.
type Registry struct {
	defaultPlanet string
	planets       []Planet
}

func NewRegistry(defaultPlanet string, planets []Planet) (*Registry, error) {
	if len(planets) == 0 {
		return nil, fmt.Errorf("planet registry requires at least one planet")
	}
	found := false
	for _, p := range planets {
		if p.Name == "" || p.ID == "" {
			return nil, fmt.Errorf("planet entries require both name and id, got %+v", p)
		}
		if p.Name == defaultPlanet {
			found = true
			if p.VaultAddress != "" {
				return nil, fmt.Errorf("default planet %s must not carry a vault address", p.Name)
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("default planet %s is not registered", defaultPlanet)
	}
	return &Registry{defaultPlanet: defaultPlanet, planets: planets}, nil
}

// PlanetName returns the name of the planet a request recipient targets:
// the planet whose id prefixes the recipient address, or the default
// planet when no prefix matches.
func (r *Registry) PlanetName(recipient string) string {
	lowered := strings.ToLower(recipient)
	for _, p := range r.planets {
		if strings.HasPrefix(lowered, strings.ToLower(p.ID)) {
			return p.Name
		}
	}
	return r.defaultPlanet
}

// Resolve routes a request recipient to its delivery address. Requests
// for a planet with a vault override are redirected to the vault with the
// user's address preserved in the memo.
func (r *Registry) Resolve(recipient string) Route {
	lowered := strings.ToLower(recipient)
	for _, p := range r.planets {
		if !strings.HasPrefix(lowered, strings.ToLower(p.ID)) {
			continue
		}
		userAddress := "0x" + recipient[len(p.ID):]
		if p.VaultAddress != "" {
			return Route{Planet: p.Name, Recipient: p.VaultAddress, Memo: userAddress}
		}
		return Route{Planet: p.Name, Recipient: userAddress}
	}
	return Route{Planet: r.defaultPlanet, Recipient: recipient}
}
