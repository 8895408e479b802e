package zatca

import (
	"fmt"
	"strings"
)

// Environment selects which Fatoora gateway the client talks to.
type Environment int

const (
	// Sandbox is the developer portal, which accepts any well-formed payload.
	Sandbox Environment = iota + 1
	// Simulation mirrors production validation without legal effect.
	Simulation
	// Production is the live core gateway.
	Production
)

const (
	sandboxURL    = "https://gw-fatoora.zatca.gov.sa/e-invoicing/developer-portal/"
	simulationURL = "https://gw-fatoora.zatca.gov.sa/e-invoicing/simulation/"
	productionURL = "https://gw-fatoora.zatca.gov.sa/e-invoicing/core/"
)

// ParseEnvironment resolves a case-insensitive environment name.
// "emulation" is accepted as an alias of "simulation".
func ParseEnvironment(name string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sandbox":
		return Sandbox, nil
	case "simulation", "emulation":
		return Simulation, nil
	case "production":
		return Production, nil
	default:
		return 0, newValidationError(fmt.Sprintf("Invalid environment: %s", name), ErrInvalidEnvironment).
			WithContext(map[string]any{"environment": name})
	}
}

// URL returns the gateway base URL, always ending in a slash.
func (e Environment) URL() string {
	switch e {
	case Sandbox:
		return sandboxURL
	case Simulation:
		return simulationURL
	case Production:
		return productionURL
	default:
		return ""
	}
}

// String returns the canonical environment name.
func (e Environment) String() string {
	switch e {
	case Sandbox:
		return "sandbox"
	case Simulation:
		return "simulation"
	case Production:
		return "production"
	default:
		return fmt.Sprintf("environment(%d)", int(e))
	}
}

// Valid reports whether e is one of the declared environments.
func (e Environment) Valid() bool {
	return e == Sandbox || e == Simulation || e == Production
}

// MarshalText implements encoding.TextMarshaler.
func (e Environment) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, newValidationError(fmt.Sprintf("Invalid environment: %s", e), ErrInvalidEnvironment)
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Environment) UnmarshalText(text []byte) error {
	env, err := ParseEnvironment(string(text))
	if err != nil {
		return err
	}
	*e = env
	return nil
}
