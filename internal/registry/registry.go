// Package registry maps module type names to constructors.
//
// A new filter type needs only a constructor and a Register call:
//
//	func init() {
//	    registry.RegisterFilter("dedupe", func(cfg cleaning.ModuleConfig, index int) (filter.Module, error) {
//	        return NewDedupeModule(cfg.Config)
//	    })
//	}
//
// The artifact input and output, the four cleaning steps (priceRange,
// minimumNights, lastReviewDate, boundingBox) and the generic range, date,
// condition and script filters are registered at startup by RegisterBuiltins.
package registry

import (
	"sort"
	"sync"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/modules/filter"
	"github.com/canectors/basic-cleaning/internal/modules/input"
	"github.com/canectors/basic-cleaning/internal/modules/output"
	"github.com/canectors/basic-cleaning/internal/tracking"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// Dependencies are the run-scoped services handed to input and output constructors.
type Dependencies struct {
	// Store is the artifact store to fetch from and publish to
	Store artifact.Store
	// Run is the tracked run artifacts are linked to (may be nil)
	Run tracking.Run
}

// InputConstructor creates an input module from configuration.
type InputConstructor func(cfg cleaning.ModuleConfig, deps Dependencies) (input.Module, error)

// FilterConstructor creates a filter module from configuration.
// index is the position of the filter in the chain.
type FilterConstructor func(cfg cleaning.ModuleConfig, index int) (filter.Module, error)

// OutputConstructor creates an output module from configuration.
type OutputConstructor func(cfg cleaning.ModuleConfig, deps Dependencies) (output.Module, error)

// kinds holds the constructors of one module kind.
type kinds[C any] struct {
	mu    sync.RWMutex
	ctors map[string]C
}

func newKinds[C any]() *kinds[C] {
	return &kinds[C]{ctors: make(map[string]C)}
}

func (k *kinds[C]) set(moduleType string, ctor C) {
	k.mu.Lock()
	k.ctors[moduleType] = ctor
	k.mu.Unlock()
}

func (k *kinds[C]) get(moduleType string) C {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.ctors[moduleType]
}

func (k *kinds[C]) types() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	names := make([]string, 0, len(k.ctors))
	for name := range k.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (k *kinds[C]) reset() {
	k.mu.Lock()
	k.ctors = make(map[string]C)
	k.mu.Unlock()
}

var (
	inputs  = newKinds[InputConstructor]()
	filters = newKinds[FilterConstructor]()
	outputs = newKinds[OutputConstructor]()
)

// RegisterInput registers an input constructor. An existing type is replaced.
func RegisterInput(moduleType string, constructor InputConstructor) {
	inputs.set(moduleType, constructor)
}

// RegisterFilter registers a filter constructor. An existing type is replaced.
func RegisterFilter(moduleType string, constructor FilterConstructor) {
	filters.set(moduleType, constructor)
}

// RegisterOutput registers an output constructor. An existing type is replaced.
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputs.set(moduleType, constructor)
}

// GetInputConstructor returns the constructor for moduleType, or nil.
func GetInputConstructor(moduleType string) InputConstructor { return inputs.get(moduleType) }

// GetFilterConstructor returns the constructor for moduleType, or nil.
func GetFilterConstructor(moduleType string) FilterConstructor { return filters.get(moduleType) }

// GetOutputConstructor returns the constructor for moduleType, or nil.
func GetOutputConstructor(moduleType string) OutputConstructor { return outputs.get(moduleType) }

// ListInputTypes returns the registered input types, sorted.
func ListInputTypes() []string { return inputs.types() }

// ListFilterTypes returns the registered filter types, sorted.
func ListFilterTypes() []string { return filters.types() }

// ListOutputTypes returns the registered output types, sorted.
func ListOutputTypes() []string { return outputs.types() }

// ClearRegistries removes every constructor, built-ins included. Tests call
// RegisterBuiltins afterwards to restore them.
func ClearRegistries() {
	inputs.reset()
	filters.reset()
	outputs.reset()
}
