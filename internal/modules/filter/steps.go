package filter

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/table"
)

// RangeModule keeps rows whose column value lies in [Min, Max].
type RangeModule struct {
	name   string
	Column string
	Min    float64
	Max    float64
}

// NewPriceRange creates the price range step.
func NewPriceRange(minPrice, maxPrice float64) *RangeModule {
	return &RangeModule{name: cleaner.StepPriceRange, Column: cleaner.ColumnPrice, Min: minPrice, Max: maxPrice}
}

// NewMinimumNights creates the minimum nights step. The lower bound is always 0.
func NewMinimumNights(maxMinimumNights int) *RangeModule {
	return &RangeModule{
		name:   cleaner.StepMinimumNights,
		Column: cleaner.ColumnMinimumNights,
		Min:    0,
		Max:    float64(maxMinimumNights),
	}
}

// NewRangeFromConfig creates a range step on any numeric column.
// Config keys: column (required), min (required), max (required), name.
func NewRangeFromConfig(cfg map[string]interface{}) (*RangeModule, error) {
	column, ok := cfg["column"].(string)
	if !ok || column == "" {
		return nil, fmt.Errorf("range: 'column' is required")
	}
	lo, err := requiredFloat(cfg, "min")
	if err != nil {
		return nil, fmt.Errorf("range: %w", err)
	}
	hi, err := requiredFloat(cfg, "max")
	if err != nil {
		return nil, fmt.Errorf("range: %w", err)
	}
	name, _ := cfg["name"].(string)
	if name == "" {
		name = column + "_range"
	}
	return &RangeModule{name: name, Column: column, Min: lo, Max: hi}, nil
}

// Name returns the step name.
func (m *RangeModule) Name() string { return m.name }

// Process drops rows outside the range.
func (m *RangeModule) Process(ctx context.Context, t *table.Table) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cleaner.FilterRange(t, m.Column, m.Min, m.Max)
}

// DateModule converts a column to dates, leaving nil for unparseable values.
type DateModule struct {
	name   string
	Column string
}

// NewLastReviewDate creates the last_review conversion step.
func NewLastReviewDate() *DateModule {
	return &DateModule{name: cleaner.StepLastReviewDate, Column: cleaner.ColumnLastReview}
}

// NewDateFromConfig creates a date conversion step. Config keys: column (required), name.
func NewDateFromConfig(cfg map[string]interface{}) (*DateModule, error) {
	column, ok := cfg["column"].(string)
	if !ok || column == "" {
		return nil, fmt.Errorf("date: 'column' is required")
	}
	name, _ := cfg["name"].(string)
	if name == "" {
		name = column + "_date"
	}
	return &DateModule{name: name, Column: column}, nil
}

// Name returns the step name.
func (m *DateModule) Name() string { return m.name }

// Process converts the column.
func (m *DateModule) Process(ctx context.Context, t *table.Table) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cleaner.NormalizeDates(t, m.Column)
}

// BoundingBoxModule keeps rows inside a longitude/latitude box.
type BoundingBoxModule struct {
	Box cleaner.BoundingBox
}

// NewBoundingBox creates the bounding box step.
func NewBoundingBox(box cleaner.BoundingBox) *BoundingBoxModule {
	return &BoundingBoxModule{Box: box}
}

// NewBoundingBoxFromConfig creates a bounding box step. Missing keys
// (minLongitude, maxLongitude, minLatitude, maxLatitude) take the New York City value.
func NewBoundingBoxFromConfig(cfg map[string]interface{}) (*BoundingBoxModule, error) {
	box := cleaner.NYCBoundingBox
	fields := []struct {
		key string
		dst *float64
	}{
		{"minLongitude", &box.MinLongitude},
		{"maxLongitude", &box.MaxLongitude},
		{"minLatitude", &box.MinLatitude},
		{"maxLatitude", &box.MaxLatitude},
	}
	for _, f := range fields {
		v, ok := cfg[f.key]
		if !ok {
			continue
		}
		n, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, fmt.Errorf("boundingBox: '%s' must be a number: %w", f.key, err)
		}
		*f.dst = n
	}
	if box.MinLongitude > box.MaxLongitude || box.MinLatitude > box.MaxLatitude {
		return nil, fmt.Errorf("boundingBox: minimum is greater than maximum")
	}
	return &BoundingBoxModule{Box: box}, nil
}

// Name returns the step name.
func (m *BoundingBoxModule) Name() string { return cleaner.StepBoundingBox }

// Process drops rows outside the box.
func (m *BoundingBoxModule) Process(ctx context.Context, t *table.Table) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cleaner.FilterBoundingBox(t, m.Box)
}

func requiredFloat(cfg map[string]interface{}, key string) (float64, error) {
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

var (
	_ Module = (*RangeModule)(nil)
	_ Module = (*DateModule)(nil)
	_ Module = (*BoundingBoxModule)(nil)
)
