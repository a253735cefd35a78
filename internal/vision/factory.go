package vision

import (
	"fmt"

	"motscan/internal/config"
	"motscan/internal/port"
)

// ProviderFactory is a function that creates a VisionModel from a provider config.
type ProviderFactory func(cfg *config.VisionProviderConfig) (port.VisionModel, error)

// registry of vision provider factories, populated explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a vision provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewModel creates a VisionModel from a provider config using the registered factory.
func NewModel(cfg *config.VisionProviderConfig) (port.VisionModel, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown vision provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
