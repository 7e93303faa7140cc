// Package llm routes model identifiers to provider backends and executes
// requests against them with bounded retries and a single tier of model
// fallback.
package llm

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/Jenny-Gump/content-generator/internal/config"
	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/ports"
)

// Factory builds a ChatProvider for a spec once its credential is resolved.
type Factory func(spec config.ProviderConfig, apiKey string) ports.ChatProvider

// Registry maps model identifiers to configured providers. Resolution happens
// once per call; the chosen provider is a typed implementation, never
// re-dispatched by string comparison afterwards.
type Registry struct {
	specs       []config.ProviderConfig
	defaultName string
	factories   map[string]Factory
	logger      *slog.Logger
	lookupEnv   func(string) string

	mu    sync.Mutex
	cache map[string]ports.ChatProvider
}

// NewRegistry builds a registry over the configured provider specs.
func NewRegistry(specs []config.ProviderConfig, defaultName string, logger *slog.Logger) *Registry {
	return &Registry{
		specs:       specs,
		defaultName: defaultName,
		factories:   map[string]Factory{},
		logger:      logger,
		lookupEnv:   os.Getenv,
		cache:       map[string]ports.ChatProvider{},
	}
}

// RegisterFactory wires the constructor for one provider name.
func (r *Registry) RegisterFactory(name string, f Factory) {
	r.factories[name] = f
}

// Resolve returns the provider serving the given model. Explicitly listed
// models win; a "vendor/model" namespaced identifier goes to the provider
// claiming that convention; anything else lands on the default provider with
// a logged notice. Missing credentials fail here, before any network call.
func (r *Registry) Resolve(model string) (ports.ChatProvider, error) {
	if model == "" {
		return nil, domain.NewConfigurationError("empty model name")
	}

	spec, ok := r.findSpec(model)
	if !ok {
		if r.defaultName == "" {
			return nil, domain.NewConfigurationError("no provider serves model %s and no default provider is set", model)
		}
		for _, s := range r.specs {
			if s.Name == r.defaultName {
				spec, ok = s, true
				break
			}
		}
		if !ok {
			return nil, domain.NewConfigurationError("default provider %s is not configured", r.defaultName)
		}
		if r.logger != nil {
			r.logger.Warn("model not claimed by any provider, using default",
				"model", model, "provider", spec.Name)
		}
	}

	return r.bind(spec)
}

func (r *Registry) findSpec(model string) (config.ProviderConfig, bool) {
	for _, spec := range r.specs {
		for _, m := range spec.Models {
			if m == model {
				return spec, true
			}
		}
	}
	if strings.Contains(model, "/") {
		for _, spec := range r.specs {
			if spec.SlashModels {
				return spec, true
			}
		}
	}
	return config.ProviderConfig{}, false
}

func (r *Registry) bind(spec config.ProviderConfig) (ports.ChatProvider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if provider, ok := r.cache[spec.Name]; ok {
		return provider, nil
	}

	apiKey := r.lookupEnv(spec.APIKeyEnv)
	if apiKey == "" {
		return nil, domain.NewConfigurationError("provider %s: %s is not set", spec.Name, spec.APIKeyEnv)
	}

	factory, ok := r.factories[spec.Name]
	if !ok {
		return nil, domain.NewConfigurationError("provider %s has no registered factory", spec.Name)
	}

	provider := factory(spec, apiKey)
	r.cache[spec.Name] = provider
	return provider, nil
}
