package partition

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/scopeiq/pkg/types"
)

func TestForProject(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"tower-a", "project_tower-a"},
		{"tower_a", "project_tower_a"},
		{"proj123", "project_proj123"},
	}
	for _, tt := range tests {
		p, err := ForProject(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.Namespace)
		assert.Equal(t, KindProject, p.Kind)
		assert.Equal(t, tt.id, p.Name)
		assert.Equal(t, types.SourceProject, p.Source())
	}

	_, err := ForProject("  ")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestForProject_SanitizedNamesNeverCollide(t *testing.T) {
	ids := []string{"Tower A", "tower_a", "tower a", "TOWER-A", "tower-a", "Tower/A", "日本"}
	seen := map[string]string{}
	for _, id := range ids {
		p, err := ForProject(id)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(p.Namespace, "project_"))
		if prev, ok := seen[p.Namespace]; ok {
			t.Fatalf("%q and %q share namespace %s", prev, id, p.Namespace)
		}
		seen[p.Namespace] = id
	}
}

func TestForProject_Deterministic(t *testing.T) {
	a, err := ForProject("Harbor View / Phase 2")
	require.NoError(t, err)
	b, err := ForProject("Harbor View / Phase 2")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Regexp(t, `^project_harbor_view_phase_2_[0-9a-f]{8}$`, a.Namespace)
}

func TestForProject_LongIDsAreBounded(t *testing.T) {
	p, err := ForProject(strings.Repeat("x", 200))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(p.Namespace), len("project_")+maxNameLength+1+hashSuffixLen)
}

func TestForCategory(t *testing.T) {
	for _, c := range Categories() {
		p, err := ForCategory(c)
		require.NoError(t, err)
		assert.Equal(t, "common_"+string(c), p.Namespace)
		assert.Equal(t, KindCommon, p.Kind)
		assert.Equal(t, types.SourceCommon, p.Source())
	}

	_, err := ForCategory("recipes")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Safety ")
	require.NoError(t, err)
	assert.Equal(t, CategorySafety, c)

	_, err = ParseCategory("weather")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestCommonPartitions(t *testing.T) {
	all, err := CommonPartitions()
	require.NoError(t, err)
	assert.Len(t, all, len(Categories()))

	some, err := CommonPartitions(CategorySafety, CategorySafety, CategoryMaterials)
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "common_safety", some[0].Namespace)
	assert.Equal(t, "common_materials", some[1].Namespace)

	_, err = CommonPartitions("nope")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestCoerceTopK(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"nil uses default", nil, 10},
		{"int", 5, 5},
		{"int64", int64(7), 7},
		{"float truncates", 3.9, 3},
		{"negative clamps to one", -4, 1},
		{"zero clamps to one", 0, 1},
		{"huge clamps to max", 1e9, MaxTopK},
		{"numeric string", " 12 ", 12},
		{"float string", "2.5", 2},
		{"empty string uses default", "", 10},
		{"json number", json.Number("8"), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceTopK(tt.in, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []any{"ten", true, []int{1}, json.Number("x")} {
		_, err := CoerceTopK(bad, 10)
		assert.ErrorIs(t, err, types.ErrValidation, "%v", bad)
	}
}

func TestClampTopK(t *testing.T) {
	assert.Equal(t, 1, ClampTopK(-1))
	assert.Equal(t, 50, ClampTopK(50))
	assert.Equal(t, MaxTopK, ClampTopK(MaxTopK+1))
}
