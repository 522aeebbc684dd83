package factory

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/cleaner"
	"github.com/canectors/basic-cleaning/internal/errhandling"
	"github.com/canectors/basic-cleaning/internal/modules/filter"
	"github.com/canectors/basic-cleaning/internal/modules/input"
	"github.com/canectors/basic-cleaning/internal/modules/output"
	"github.com/canectors/basic-cleaning/internal/registry"
	"github.com/canectors/basic-cleaning/internal/table"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

func params() cleaning.Params {
	return cleaning.Params{
		InputArtifact:     "sample.csv:latest",
		OutputArtifact:    "clean_sample.csv",
		OutputType:        "clean_sample",
		OutputDescription: "Data with outliers and null values removed",
		MinPrice:          10,
		MaxPrice:          350,
		MaxMinimumNights:  30,
	}
}

func TestBuild(t *testing.T) {
	deps := registry.Dependencies{Store: artifact.NewFSStore(t.TempDir())}
	spec := PipelineSpec{
		Params: params(),
		ExtraFilters: []cleaning.ModuleConfig{
			{Type: "condition", Config: map[string]interface{}{"expression": "room_type != 'Shared room'"}},
		},
		WorkDir: t.TempDir(),
	}

	m, err := Build(spec, deps)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	assert.IsType(t, &input.ArtifactInput{}, m.Input)
	assert.IsType(t, &output.ArtifactOutput{}, m.Output)

	names := make([]string, 0, len(m.Filters))
	for _, f := range m.Filters {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{
		cleaner.StepPriceRange, cleaner.StepMinimumNights, cleaner.StepLastReviewDate, cleaner.StepBoundingBox, "condition",
	}, names)

	price := m.Filters[0].(*filter.RangeModule)
	assert.Equal(t, 10.0, price.Min)
	assert.Equal(t, 350.0, price.Max)
	nights := m.Filters[1].(*filter.RangeModule)
	assert.Equal(t, 0.0, nights.Min)
	assert.Equal(t, 30.0, nights.Max)

	assert.Equal(t, filepath.Join(spec.WorkDir, output.DefaultFileName), m.Output.(*output.ArtifactOutput).LocalPath())
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	deps := registry.Dependencies{Store: artifact.NewFSStore(t.TempDir())}

	tests := []struct {
		name   string
		mutate func(*PipelineSpec)
	}{
		{"negative max nights", func(s *PipelineSpec) { s.Params.MaxMinimumNights = -1 }},
		{"bad input reference", func(s *PipelineSpec) { s.Params.InputArtifact = "sample.csv:" }},
		{"bad output name", func(s *PipelineSpec) { s.Params.OutputArtifact = "../x" }},
		{"empty output type", func(s *PipelineSpec) { s.Params.OutputType = "" }},
		{"unknown extra filter", func(s *PipelineSpec) {
			s.ExtraFilters = []cleaning.ModuleConfig{{Type: "mapping"}}
		}},
		{"invalid extra filter", func(s *PipelineSpec) {
			s.ExtraFilters = []cleaning.ModuleConfig{{Type: "condition", Config: map[string]interface{}{"expression": "price >"}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := PipelineSpec{Params: params(), WorkDir: t.TempDir()}
			tt.mutate(&spec)
			_, err := Build(spec, deps)
			require.Error(t, err)
			assert.True(t, errhandling.IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestMinPriceAboveMaxPriceIsAccepted(t *testing.T) {
	p := params()
	p.MinPrice, p.MaxPrice = 500, 10
	_, err := Build(PipelineSpec{Params: p}, registry.Dependencies{Store: artifact.NewFSStore(t.TempDir())})
	assert.NoError(t, err)
}

func TestCreateModules_UnknownTypes(t *testing.T) {
	_, err := CreateInputModule(cleaning.ModuleConfig{Type: "httpPolling"}, registry.Dependencies{})
	assert.True(t, errhandling.IsConfigurationError(err))

	_, err = CreateOutputModule(cleaning.ModuleConfig{Type: "httpRequest"}, registry.Dependencies{})
	assert.True(t, errhandling.IsConfigurationError(err))

	mods, err := CreateFilterModules(nil)
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestCoreFilterConfigs_FollowCleanerStepOrder(t *testing.T) {
	filters, err := CreateFilterModules(CoreFilterConfigs(params()))
	require.NoError(t, err)

	names := make([]string, 0, len(filters))
	for _, f := range filters {
		names = append(names, f.Name())
	}
	assert.Equal(t, cleaner.StepOrder, names)

	fixture, err := table.ReadFile(filepath.Join("..", "cleaner", "testdata", "listings.csv"))
	require.NoError(t, err)

	got := fixture
	for _, f := range filters {
		got, err = f.Process(context.Background(), got)
		require.NoError(t, err)
	}
	p := params()
	want, err := cleaner.Clean(fixture, cleaner.Config{MinPrice: p.MinPrice, MaxPrice: p.MaxPrice, MaxMinimumNights: p.MaxMinimumNights})
	require.NoError(t, err)

	var gotCSV, wantCSV bytes.Buffer
	require.NoError(t, got.WriteCSV(&gotCSV))
	require.NoError(t, want.WriteCSV(&wantCSV))
	assert.Equal(t, wantCSV.String(), gotCSV.String())
}

func TestBuild_ClosesInputWhenALaterModuleFails(t *testing.T) {
	stub := input.NewStub(registry.TypeArtifact, nil)
	registry.RegisterInput(registry.TypeArtifact, func(cleaning.ModuleConfig, registry.Dependencies) (input.Module, error) {
		return stub, nil
	})
	t.Cleanup(func() {
		registry.ClearRegistries()
		registry.RegisterBuiltins()
	})

	spec := PipelineSpec{
		Params:       params(),
		ExtraFilters: []cleaning.ModuleConfig{{Type: "mapping"}},
	}
	_, err := Build(spec, registry.Dependencies{})
	require.Error(t, err)
	assert.True(t, stub.Closed)
}
