package modelweaver

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the model-weaver processor component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "model-weaver",
		Factory:     NewComponent,
		Schema:      modelWeaverSchema,
		Type:        "processor",
		Protocol:    "xml",
		Domain:      "weave",
		Description: "Weaves vendor model documents into canonical form and resolves their identity bundles",
		Version:     "1.0.0",
	})
}
