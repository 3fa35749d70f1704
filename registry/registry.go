// Package registry maps "provider:model" strings to constructed
// provider.Model instances. Convenience only — no operation in llmkit's
// contract requires it.
//
// Grounded on the teacher's pkg/registry/registry.go (Registry{providers,
// aliases}, RegisterProvider, ResolveLanguageModel's "provider:model"
// parsing), trimmed to language models only.
package registry

import (
	"strings"
	"sync"

	"github.com/llmkit-go/llmkit/llmkiterr"
	"github.com/llmkit-go/llmkit/provider"
)

// Registry resolves "provider:model" strings, or a registered alias, to a
// provider.Model.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]provider.Provider
	aliases   map[string]string
}

func New() *Registry {
	return &Registry{providers: map[string]provider.Provider{}, aliases: map[string]string{}}
}

// RegisterProvider makes p resolvable under p.Name().
func (r *Registry) RegisterProvider(p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// RegisterAlias makes a resolve to ref (a "provider:model" string).
func (r *Registry) RegisterAlias(alias, ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = ref
}

// ResolveLanguageModel resolves ref, which is either a registered alias or
// a "provider:model" string, to a bound provider.Model.
func (r *Registry) ResolveLanguageModel(ref string) (provider.Model, error) {
	r.mu.RLock()
	if target, ok := r.aliases[ref]; ok {
		ref = target
	}
	r.mu.RUnlock()

	providerName, modelID, ok := strings.Cut(ref, ":")
	if !ok {
		return nil, llmkiterr.NewInvalidRequest("model", "expected \"provider:model\", got %q", ref)
	}

	r.mu.RLock()
	p, ok := r.providers[providerName]
	r.mu.RUnlock()
	if !ok {
		return nil, llmkiterr.NewInvalidRequest("model", "no provider registered for %q", providerName)
	}

	return p.LanguageModel(modelID)
}
