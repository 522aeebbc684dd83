// Package cleaner implements the basic cleaning rules applied to a listings table.
//
// Clean runs four steps in a fixed order:
//
//  1. keep rows whose price lies in [MinPrice, MaxPrice]
//  2. keep rows whose minimum_nights lies in [0, MaxMinimumNights]
//  3. convert last_review to a date, leaving null where it cannot be parsed
//  4. keep rows inside the New York City bounding box
//
// Every step is a pure function of its input table. Row order is kept and
// cells other than last_review are never rewritten.
package cleaner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/canectors/basic-cleaning/internal/logger"
	"github.com/canectors/basic-cleaning/internal/table"
)

// Column names used by the cleaning rules.
const (
	ColumnPrice         = "price"
	ColumnMinimumNights = "minimum_nights"
	ColumnLastReview    = "last_review"
	ColumnLongitude     = "longitude"
	ColumnLatitude      = "latitude"
)

// Step names as they appear in reports, logs and metrics.
const (
	StepPriceRange     = "price_range"
	StepMinimumNights  = "minimum_nights"
	StepLastReviewDate = "last_review_date"
	StepBoundingBox    = "bounding_box"
)

// StepOrder is the order in which the cleaning steps run.
var StepOrder = []string{
	StepPriceRange,
	StepMinimumNights,
	StepLastReviewDate,
	StepBoundingBox,
}

// RequiredColumns lists the columns Clean reads.
var RequiredColumns = []string{
	ColumnPrice,
	ColumnMinimumNights,
	ColumnLastReview,
	ColumnLongitude,
	ColumnLatitude,
}

// ErrInvalidConfig is returned for a configuration Clean cannot apply.
var ErrInvalidConfig = errors.New("invalid cleaning configuration")

// Config holds the run-time bounds of the cleaning rules.
type Config struct {
	MinPrice         float64
	MaxPrice         float64
	MaxMinimumNights int
}

// Validate checks the configuration. MinPrice > MaxPrice is accepted and
// simply removes every row.
func (c Config) Validate() error {
	if c.MaxMinimumNights < 0 {
		return fmt.Errorf("%w: max_minimum_nights must be >= 0, got %d", ErrInvalidConfig, c.MaxMinimumNights)
	}
	return nil
}

// BoundingBox is an inclusive longitude/latitude rectangle.
type BoundingBox struct {
	MinLongitude float64
	MaxLongitude float64
	MinLatitude  float64
	MaxLatitude  float64
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLongitude && lon <= b.MaxLongitude &&
		lat >= b.MinLatitude && lat <= b.MaxLatitude
}

// NYCBoundingBox covers the five boroughs of New York City.
var NYCBoundingBox = BoundingBox{
	MinLongitude: -74.25,
	MaxLongitude: -73.50,
	MinLatitude:  40.5,
	MaxLatitude:  41.2,
}

// StepReport records how one step changed the table.
type StepReport struct {
	Name     string
	RowsIn   int
	RowsOut  int
	Duration time.Duration
}

// Removed returns the number of rows the step dropped.
func (r StepReport) Removed() int {
	return r.RowsIn - r.RowsOut
}

// Clean applies the four cleaning steps and returns the cleaned table.
// The input table is not modified.
func Clean(t *table.Table, cfg Config) (*table.Table, error) {
	out, _, err := CleanWithReport(t, cfg)
	return out, err
}

// CleanWithReport is Clean, also returning one report per step.
func CleanWithReport(t *table.Table, cfg Config) (*table.Table, []StepReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := t.RequireColumns(RequiredColumns...); err != nil {
		return nil, nil, err
	}

	logger.Info("Performing basic cleaning of dataset", slog.Int("rows", t.Len()))

	steps := map[string]func(*table.Table) (*table.Table, error){
		StepPriceRange: func(in *table.Table) (*table.Table, error) {
			return FilterRange(in, ColumnPrice, cfg.MinPrice, cfg.MaxPrice)
		},
		StepMinimumNights: func(in *table.Table) (*table.Table, error) {
			return FilterRange(in, ColumnMinimumNights, 0, float64(cfg.MaxMinimumNights))
		},
		StepLastReviewDate: func(in *table.Table) (*table.Table, error) {
			return NormalizeDates(in, ColumnLastReview)
		},
		StepBoundingBox: func(in *table.Table) (*table.Table, error) {
			return FilterBoundingBox(in, NYCBoundingBox)
		},
	}

	reports := make([]StepReport, 0, len(StepOrder))
	cur := t
	for _, name := range StepOrder {
		start := time.Now()
		next, err := steps[name](cur)
		if err != nil {
			return nil, reports, fmt.Errorf("step %s: %w", name, err)
		}
		rep := StepReport{Name: name, RowsIn: cur.Len(), RowsOut: next.Len(), Duration: time.Since(start)}
		reports = append(reports, rep)
		LogStep(rep)
		cur = next
	}
	return cur, reports, nil
}

// LogStep writes the progress message of a finished step.
func LogStep(rep StepReport) {
	switch rep.Name {
	case StepPriceRange:
		logger.Info(fmt.Sprintf("Removed %d rows from table for being outside of price range. Table now has %d samples.",
			rep.Removed(), rep.RowsOut), slog.String("step", rep.Name))
	case StepMinimumNights:
		logger.Info(fmt.Sprintf("Removed %d rows from table for being outside of minimum_nights range. Table now has %d samples.",
			rep.Removed(), rep.RowsOut), slog.String("step", rep.Name))
	case StepLastReviewDate:
		logger.Info("The last_review feature changed to datetime type", slog.String("step", rep.Name))
	default:
		logger.Debug("cleaning step completed",
			slog.String("step", rep.Name),
			slog.Int("removed", rep.Removed()),
			slog.Int("rows", rep.RowsOut),
		)
	}
}

// FilterRange keeps the rows whose column value lies in [lo, hi].
// Missing values never satisfy the range. Non-numeric values are a *TypeError.
func FilterRange(t *table.Table, column string, lo, hi float64) (*table.Table, error) {
	if err := t.RequireColumns(column); err != nil {
		return nil, err
	}
	return t.Filter(func(i int, row table.Row) (bool, error) {
		v, ok, err := ToNumber(row[column])
		if err != nil {
			return false, &TypeError{Column: column, Row: i, Value: row[column]}
		}
		return ok && v >= lo && v <= hi, nil
	})
}

// NormalizeDates replaces every value of column with a time.Time, or nil
// when the value is missing or cannot be parsed. No row is removed.
func NormalizeDates(t *table.Table, column string) (*table.Table, error) {
	if err := t.RequireColumns(column); err != nil {
		return nil, err
	}
	out := &table.Table{Columns: t.Columns, Rows: make([]table.Row, len(t.Rows))}
	for i, row := range t.Rows {
		r := row.Clone()
		r[column] = toDate(row[column])
		out.Rows[i] = r
	}
	return out, nil
}

// FilterBoundingBox keeps the rows whose longitude and latitude both lie in box.
func FilterBoundingBox(t *table.Table, box BoundingBox) (*table.Table, error) {
	if err := t.RequireColumns(ColumnLongitude, ColumnLatitude); err != nil {
		return nil, err
	}
	return t.Filter(func(i int, row table.Row) (bool, error) {
		lon, lonOK, err := ToNumber(row[ColumnLongitude])
		if err != nil {
			return false, &TypeError{Column: ColumnLongitude, Row: i, Value: row[ColumnLongitude]}
		}
		lat, latOK, err := ToNumber(row[ColumnLatitude])
		if err != nil {
			return false, &TypeError{Column: ColumnLatitude, Row: i, Value: row[ColumnLatitude]}
		}
		return lonOK && latOK && box.Contains(lon, lat), nil
	})
}
