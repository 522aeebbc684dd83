package registry

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/modules/filter"
	"github.com/canectors/basic-cleaning/internal/modules/input"
	"github.com/canectors/basic-cleaning/internal/modules/output"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

// Built-in module types.
const (
	TypeArtifact       = "artifact"
	TypePriceRange     = "priceRange"
	TypeMinimumNights  = "minimumNights"
	TypeLastReviewDate = "lastReviewDate"
	TypeBoundingBox    = "boundingBox"
	TypeRange          = "range"
	TypeDate           = "date"
	TypeCondition      = "condition"
	TypeScript         = "script"
)

func init() {
	RegisterBuiltins()
}

// RegisterBuiltins (re)registers every built-in module type.
func RegisterBuiltins() {
	registerBuiltinInputModules()
	registerBuiltinFilterModules()
	registerBuiltinOutputModules()
}

func registerBuiltinInputModules() {
	// config: reference
	RegisterInput(TypeArtifact, func(cfg cleaning.ModuleConfig, deps Dependencies) (input.Module, error) {
		reference, _ := cfg.Config["reference"].(string)
		return input.NewArtifactInput(deps.Store, deps.Run, reference)
	})
}

func registerBuiltinFilterModules() {
	// config: min, max
	RegisterFilter(TypePriceRange, func(cfg cleaning.ModuleConfig, _ int) (filter.Module, error) {
		lo, err := number(cfg.Config, "min")
		if err != nil {
			return nil, fmt.Errorf("priceRange: %w", err)
		}
		hi, err := number(cfg.Config, "max")
		if err != nil {
			return nil, fmt.Errorf("priceRange: %w", err)
		}
		return filter.NewPriceRange(lo, hi), nil
	})

	// config: max
	RegisterFilter(TypeMinimumNights, func(cfg cleaning.ModuleConfig, _ int) (filter.Module, error) {
		v, ok := cfg.Config["max"]
		if !ok {
			return nil, fmt.Errorf("minimumNights: 'max' is required")
		}
		hi, err := cast.ToIntE(v)
		if err != nil {
			return nil, fmt.Errorf("minimumNights: 'max' must be an integer: %w", err)
		}
		if err := (cleaner.Config{MaxMinimumNights: hi}).Validate(); err != nil {
			return nil, err
		}
		return filter.NewMinimumNights(hi), nil
	})

	RegisterFilter(TypeLastReviewDate, func(cleaning.ModuleConfig, int) (filter.Module, error) {
		return filter.NewLastReviewDate(), nil
	})

	RegisterFilter(TypeBoundingBox, func(cfg cleaning.ModuleConfig, _ int) (filter.Module, error) {
		return filter.NewBoundingBoxFromConfig(cfg.Config)
	})

	RegisterFilter(TypeRange, func(cfg cleaning.ModuleConfig, _ int) (filter.Module, error) {
		return filter.NewRangeFromConfig(cfg.Config)
	})

	RegisterFilter(TypeDate, func(cfg cleaning.ModuleConfig, _ int) (filter.Module, error) {
		return filter.NewDateFromConfig(cfg.Config)
	})

	RegisterFilter(TypeCondition, func(cfg cleaning.ModuleConfig, _ int) (filter.Module, error) {
		config, err := filter.ParseConditionConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return filter.NewConditionFromConfig(config)
	})

	RegisterFilter(TypeScript, func(cfg cleaning.ModuleConfig, _ int) (filter.Module, error) {
		config, err := filter.ParseScriptConfig(cfg.Config)
		if err != nil {
			return nil, err
		}
		return filter.NewScriptFromConfig(config)
	})
}

func registerBuiltinOutputModules() {
	// config: name, type, description, workDir, fileName
	RegisterOutput(TypeArtifact, func(cfg cleaning.ModuleConfig, deps Dependencies) (output.Module, error) {
		str := func(key string) string {
			s, _ := cfg.Config[key].(string)
			return s
		}
		return output.NewArtifactOutput(deps.Store, deps.Run, output.ArtifactConfig{
			Name:        str("name"),
			Type:        str("type"),
			Description: str("description"),
			WorkDir:     str("workDir"),
			FileName:    str("fileName"),
		})
	})
}

func number(cfg map[string]interface{}, key string) (float64, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("'%s' is required", key)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("'%s' must be a number: %w", key, err)
	}
	return f, nil
}
