// Package scenario loads the YAML description of a course, its vehicles and
// zones, and turns it into the configs the simulation packages expect.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"github.com/cargoloop/simcore/internal/geo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario wraps every parse and validation failure.
var ErrInvalidScenario = errors.New("invalid scenario")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "x,y,z"
	_ = v.RegisterValidation("vec3", func(fl validator.FieldLevel) bool {
		_, err := geo.Vec3FromString(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads and validates the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	seen := make(map[string]bool, len(s.Zones))
	for _, z := range s.Zones {
		if seen[z.Name] {
			return nil, fmt.Errorf("%w: duplicate zone name %q", ErrInvalidScenario, z.Name)
		}
		seen[z.Name] = true
	}
	return &s, nil
}
