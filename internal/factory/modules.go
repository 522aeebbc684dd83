// Package factory builds the input, filter and output modules of a cleaning
// run from its parameters, using the module registry.
//
// The filter chain always starts with the four cleaning steps derived from
// the command-line parameters, followed by any extra filters from the
// settings file. Unknown module types are configuration errors.
package factory

import (
	"fmt"

	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/modules/filter"
	"github.com/canectors/basic-cleaning/internal/modules/input"
	"github.com/canectors/basic-cleaning/internal/modules/output"
	"github.com/canectors/basic-cleaning/internal/registry"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// PipelineSpec is everything needed to build the modules of one run.
type PipelineSpec struct {
	Params cleaning.Params
	// ExtraFilters run after the core cleaning steps, in order
	ExtraFilters []cleaning.ModuleConfig
	// WorkDir is where the output file is written before publishing
	WorkDir string
	// OutputFile is the local output file name
	OutputFile string
}

// Modules is a built pipeline.
type Modules struct {
	Input   input.Module
	Filters []filter.Module
	Output  output.Module
}

// Close closes the input and output modules. Build calls it when a later
// module fails to build.
func (m *Modules) Close() error {
	var firstErr error
	if m.Input != nil {
		firstErr = m.Input.Close()
	}
	if m.Output != nil {
		if err := m.Output.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build creates every module of spec.
func Build(spec PipelineSpec, deps registry.Dependencies) (*Modules, error) {
	p := spec.Params
	if err := (cleaner.Config{MinPrice: p.MinPrice, MaxPrice: p.MaxPrice, MaxMinimumNights: p.MaxMinimumNights}).Validate(); err != nil {
		return nil, errhandling.NewConfigurationError(err.Error(), err)
	}

	in, err := CreateInputModule(InputConfig(p), deps)
	if err != nil {
		return nil, err
	}
	m := &Modules{Input: in}

	m.Filters, err = CreateFilterModules(append(CoreFilterConfigs(p), spec.ExtraFilters...))
	if err != nil {
		_ = m.Close()
		return nil, err
	}

	m.Output, err = CreateOutputModule(OutputConfig(p, spec.WorkDir, spec.OutputFile), deps)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// InputConfig returns the artifact input configuration for p.
func InputConfig(p cleaning.Params) cleaning.ModuleConfig {
	return cleaning.ModuleConfig{
		Type:   registry.TypeArtifact,
		Config: map[string]interface{}{"reference": p.InputArtifact},
	}
}

// CoreFilterConfigs returns the four cleaning steps for p, in
// cleaner.StepOrder.
func CoreFilterConfigs(p cleaning.Params) []cleaning.ModuleConfig {
	byStep := map[string]cleaning.ModuleConfig{
		cleaner.StepPriceRange:     {Type: registry.TypePriceRange, Config: map[string]interface{}{"min": p.MinPrice, "max": p.MaxPrice}},
		cleaner.StepMinimumNights:  {Type: registry.TypeMinimumNights, Config: map[string]interface{}{"max": p.MaxMinimumNights}},
		cleaner.StepLastReviewDate: {Type: registry.TypeLastReviewDate, Config: map[string]interface{}{}},
		cleaner.StepBoundingBox:    {Type: registry.TypeBoundingBox, Config: map[string]interface{}{}},
	}
	cfgs := make([]cleaning.ModuleConfig, 0, len(cleaner.StepOrder))
	for _, step := range cleaner.StepOrder {
		cfgs = append(cfgs, byStep[step])
	}
	return cfgs
}

// OutputConfig returns the artifact output configuration for p.
func OutputConfig(p cleaning.Params, workDir, outputFile string) cleaning.ModuleConfig {
	return cleaning.ModuleConfig{
		Type: registry.TypeArtifact,
		Config: map[string]interface{}{
			"name":        p.OutputArtifact,
			"type":        p.OutputType,
			"description": p.OutputDescription,
			"workDir":     workDir,
			"fileName":    outputFile,
		},
	}
}

// CreateInputModule creates an input module using the registry.
func CreateInputModule(cfg cleaning.ModuleConfig, deps registry.Dependencies) (input.Module, error) {
	constructor := registry.GetInputConstructor(cfg.Type)
	if constructor == nil {
		return nil, errhandling.NewConfigurationError(fmt.Sprintf("unknown input type %q", cfg.Type), nil)
	}
	m, err := constructor(cfg, deps)
	if err != nil {
		return nil, asConfigurationError(fmt.Sprintf("invalid %s input config", cfg.Type), err)
	}
	return m, nil
}

// CreateFilterModules creates filter modules in order using the registry.
func CreateFilterModules(cfgs []cleaning.ModuleConfig) ([]filter.Module, error) {
	modules := make([]filter.Module, 0, len(cfgs))
	for i, cfg := range cfgs {
		constructor := registry.GetFilterConstructor(cfg.Type)
		if constructor == nil {
			return nil, errhandling.NewConfigurationError(
				fmt.Sprintf("unknown filter type %q at index %d (known: %v)", cfg.Type, i, registry.ListFilterTypes()), nil)
		}
		m, err := constructor(cfg, i)
		if err != nil {
			return nil, asConfigurationError(fmt.Sprintf("invalid %s filter config at index %d", cfg.Type, i), err)
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// CreateOutputModule creates an output module using the registry.
func CreateOutputModule(cfg cleaning.ModuleConfig, deps registry.Dependencies) (output.Module, error) {
	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor == nil {
		return nil, errhandling.NewConfigurationError(fmt.Sprintf("unknown output type %q", cfg.Type), nil)
	}
	m, err := constructor(cfg, deps)
	if err != nil {
		return nil, asConfigurationError(fmt.Sprintf("invalid %s output config", cfg.Type), err)
	}
	return m, nil
}

// asConfigurationError keeps errors constructors already classified and
// marks the rest as configuration errors.
func asConfigurationError(message string, err error) error {
	if errhandling.GetErrorCategory(err) != errhandling.CategoryUnknown {
		return err
	}
	return errhandling.NewConfigurationError(message, err)
}
