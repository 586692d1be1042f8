package llm

import (
	"fmt"
	"sort"

	"MICDataset/internal/ports"
)

// Registry keeps a mapping from backend names to their classifiers.
type Registry struct {
	backends map[string]ports.Classifier
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: map[string]ports.Classifier{}}
}

// Register adds or replaces a backend.
func (r *Registry) Register(classifier ports.Classifier) {
	if r.backends == nil {
		r.backends = map[string]ports.Classifier{}
	}
	r.backends[classifier.Name()] = classifier
}

// Resolve returns a backend by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.Classifier, error) {
	if classifier, ok := r.backends[name]; ok {
		return classifier, nil
	}
	return nil, fmt.Errorf("llm backend %s is not registered (available: %v)", name, r.Names())
}

// Names lists registered backends in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
