package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canectors/basic-cleaning/internal/artifact"
	"github.com/canectors/basic-cleaning/internal/modules/filter"
	"github.com/canectors/basic-cleaning/internal/modules/input"
	"github.com/canectors/basic-cleaning/internal/modules/output"
	"github.com/canectors/basic-cleaning/internal/table"
	"github.com/canectors/basic-cleaning/pkg/cleaning"
)

func restoreBuiltins() {
	ClearRegistries()
	RegisterBuiltins()
}

func TestRegisterAndGet(t *testing.T) {
	ClearRegistries()
	defer restoreBuiltins()

	RegisterInput("testInput", func(cleaning.ModuleConfig, Dependencies) (input.Module, error) {
		return input.NewStub("testInput", nil), nil
	})
	RegisterFilter("testFilter", func(_ cleaning.ModuleConfig, index int) (filter.Module, error) {
		return filter.NewStub("testFilter", index), nil
	})
	RegisterOutput("testOutput", func(cleaning.ModuleConfig, Dependencies) (output.Module, error) {
		return output.NewStub("testOutput", "x"), nil
	})

	in, err := GetInputConstructor("testInput")(cleaning.ModuleConfig{}, Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &input.StubModule{}, in)

	f, err := GetFilterConstructor("testFilter")(cleaning.ModuleConfig{}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, f.(*filter.StubModule).Index)

	out, err := GetOutputConstructor("testOutput")(cleaning.ModuleConfig{}, Dependencies{})
	require.NoError(t, err)
	assert.IsType(t, &output.StubModule{}, out)

	assert.Equal(t, []string{"testInput"}, ListInputTypes())
	assert.Equal(t, []string{"testFilter"}, ListFilterTypes())
	assert.Equal(t, []string{"testOutput"}, ListOutputTypes())
}

func TestUnknownTypeReturnsNil(t *testing.T) {
	assert.Nil(t, GetInputConstructor("nope"))
	assert.Nil(t, GetFilterConstructor("nope"))
	assert.Nil(t, GetOutputConstructor("nope"))
}

func TestRegisterOverwrites(t *testing.T) {
	defer restoreBuiltins()

	RegisterFilter(TypeLastReviewDate, func(_ cleaning.ModuleConfig, index int) (filter.Module, error) {
		return filter.NewStub("replaced", index), nil
	})
	f, err := GetFilterConstructor(TypeLastReviewDate)(cleaning.ModuleConfig{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "replaced", f.Name())
}

func TestBuiltinsRegistered(t *testing.T) {
	assert.Equal(t, []string{TypeArtifact}, ListInputTypes())
	assert.Equal(t, []string{TypeArtifact}, ListOutputTypes())
	assert.ElementsMatch(t, []string{
		TypePriceRange, TypeMinimumNights, TypeLastReviewDate, TypeBoundingBox,
		TypeRange, TypeDate, TypeCondition, TypeScript,
	}, ListFilterTypes())
}

func TestBuiltinFilters(t *testing.T) {
	tests := []struct {
		typ     string
		config  map[string]interface{}
		name    string
		wantErr bool
	}{
		{TypePriceRange, map[string]interface{}{"min": 10, "max": "350"}, "price_range", false},
		{TypePriceRange, map[string]interface{}{"min": 10}, "", true},
		{TypeMinimumNights, map[string]interface{}{"max": 30}, "minimum_nights", false},
		{TypeMinimumNights, map[string]interface{}{"max": -1}, "", true},
		{TypeMinimumNights, map[string]interface{}{}, "", true},
		{TypeLastReviewDate, nil, "last_review_date", false},
		{TypeBoundingBox, map[string]interface{}{}, "bounding_box", false},
		{TypeRange, map[string]interface{}{"column": "number_of_reviews", "min": 1, "max": 500}, "number_of_reviews_range", false},
		{TypeDate, map[string]interface{}{"column": "host_since"}, "host_since_date", false},
		{TypeCondition, map[string]interface{}{"expression": "price > 0", "name": "positive"}, "positive", false},
		{TypeCondition, map[string]interface{}{}, "", true},
		{TypeScript, map[string]interface{}{"script": "function transform(r) { return r; }"}, "script", false},
		{TypeScript, map[string]interface{}{"script": "var a;"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			m, err := GetFilterConstructor(tt.typ)(cleaning.ModuleConfig{Type: tt.typ, Config: tt.config}, 0)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, m.Name())
		})
	}
}

func TestBuiltinArtifactModules(t *testing.T) {
	store := artifact.NewFSStore(t.TempDir())
	deps := Dependencies{Store: store}

	out, err := GetOutputConstructor(TypeArtifact)(cleaning.ModuleConfig{Type: TypeArtifact, Config: map[string]interface{}{
		"name": "sample.csv", "type": "raw_data", "workDir": t.TempDir(),
	}}, deps)
	require.NoError(t, err)

	src := table.New("id")
	src.Append(table.Row{"id": "1"})
	_, err = out.Send(context.Background(), src)
	require.NoError(t, err)

	in, err := GetInputConstructor(TypeArtifact)(cleaning.ModuleConfig{Type: TypeArtifact, Config: map[string]interface{}{
		"reference": "sample.csv:v0",
	}}, deps)
	require.NoError(t, err)
	got, err := in.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())

	_, err = GetInputConstructor(TypeArtifact)(cleaning.ModuleConfig{Type: TypeArtifact}, deps)
	assert.Error(t, err)
}
