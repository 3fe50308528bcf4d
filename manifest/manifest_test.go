package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/jeralabs/jera/models"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("full manifest", func(t *testing.T) {
		path := writeFile(t, "build.yaml", `
world:
  width: 10000
  height: 10000
sector_size: 1000
metric: euclidean
index:
  max_assets_per_node: 4
  max_depth: 6
graph:
  macro_cell_size: 2500
  meso_cell_size: 1250
asset_file: assets.json
plan_refs:
  - id: material_blueprint_meadow
  - id: layer_plan_ridge
    region:
      min: {x: 100, y: 100}
      max: {x: 200, y: 200}
`)

		m, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, models.RectFromSize(10000, 10000), m.WorldBounds())
		require.Equal(t, 4, m.IndexOptions().MaxAssetsPerNode)
		require.Equal(t, 2500.0, m.GraphConfig(false).MacroCellSize)
		require.Len(t, m.PlanRefs, 2)
		require.Nil(t, m.PlanRefs[0].Region)
		require.NotNil(t, m.PlanRefs[1].Region)
		require.Equal(t, models.NewRect(100, 100, 200, 200), *m.PlanRefs[1].Region)
	})

	t.Run("unset fields take defaults", func(t *testing.T) {
		path := writeFile(t, "build.yaml", `
world:
  width: 4096
  height: 4096
`)

		m, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 512.0, m.SectorSize)
		require.Equal(t, 1024.0, m.Graph.MacroCellSize)
		require.Equal(t, 256.0, m.Graph.MesoCellSize)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("sector larger than world", func(t *testing.T) {
		m := Default()
		m.World.Width = 1000
		m.World.Height = 1000
		m.SectorSize = 2000

		err := m.Validate()
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeConfig))
	})

	t.Run("meso coarser than macro", func(t *testing.T) {
		m := Default()
		m.Graph.MacroCellSize = 100
		m.Graph.MesoCellSize = 200

		err := m.Validate()
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeConfig))
	})

	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, Default().Validate())
	})
}

func TestLoadAssets(t *testing.T) {
	path := writeFile(t, "assets.json", `[
  {"id": "oak_17", "min": {"x": 10, "y": 20}, "category": "foliage"},
  {"id": "keep", "min": {"x": 100, "y": 100}, "max": {"x": 180, "y": 160}, "category": "building"}
]`)

	assets, err := LoadAssets(path)
	require.NoError(t, err)
	require.Len(t, assets, 2)

	require.Equal(t, "oak_17", assets[0].ID)
	require.Equal(t, assets[0].Footprint.Min, assets[0].Footprint.Max)
	require.Equal(t, models.CategoryFoliage, assets[0].Category)

	require.Equal(t, models.NewRect(100, 100, 180, 160), assets[1].Footprint)
	require.Equal(t, models.CategoryBuilding, assets[1].Category)
}
