package usecases

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
)

// WorkflowTIF is the registry key of the GeoTIFF proximity workflow.
const WorkflowTIF = "tif"

// WorkflowFactory builds a fresh workflow instance.
type WorkflowFactory func() ports.Workflow

// Registry maps short workflow keys to constructors. It is filled once at
// startup and read afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]WorkflowFactory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]WorkflowFactory)}
}

// Register binds key to factory. Registering a key twice panics.
func (r *Registry) Register(key string, factory WorkflowFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[key]; dup {
		panic("usecases: workflow registered twice: " + key)
	}
	r.factories[key] = factory
}

// New returns a new workflow for key.
func (r *Registry) New(key string) (ports.Workflow, error) {
	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, &domain.InvalidInputError{Field: "workflow", Reason: fmt.Sprintf("unknown workflow %q", key)}
	}
	return factory(), nil
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultRegistry registers the built-in workflows over the given raster
// opener and exporters.
func DefaultRegistry(opener ports.RasterOpener, exporters []ports.ResultExporter, backgroundThreshold float64, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register(WorkflowTIF, func() ports.Workflow {
		return NewTIFWorkflow(opener, exporters, backgroundThreshold, logger)
	})
	return r
}
