package sector

import (
	"fmt"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/jeralabs/jera/models"
	"github.com/jeralabs/jera/spatial"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadConfig(t *testing.T) {
	t.Run("sector size larger than world", func(t *testing.T) {
		_, err := New(models.RectFromSize(1000, 1000), 2000, MetricChebyshev)
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeConfig))
	})

	t.Run("non positive sector size", func(t *testing.T) {
		_, err := New(models.RectFromSize(1000, 1000), 0, MetricChebyshev)
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeConfig))
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := New(models.RectFromSize(1000, 1000), 100, Metric("manhattan"))
		require.Error(t, err)
		require.True(t, errors.IsType(err, models.ErrTypeConfig))
	})

	t.Run("empty metric defaults to chebyshev", func(t *testing.T) {
		st, err := New(models.RectFromSize(1000, 1000), 100, "")
		require.NoError(t, err)
		require.Equal(t, MetricChebyshev, st.metric)
	})
}

func TestGridTilesWorld(t *testing.T) {
	t.Run("exact tiling", func(t *testing.T) {
		st, err := New(models.RectFromSize(10000, 10000), 1000, MetricChebyshev)
		require.NoError(t, err)
		require.Equal(t, 10, st.Rows())
		require.Equal(t, 10, st.Cols())
		require.Equal(t, models.RectFromSize(1000, 1000), st.SectorBounds(models.Sector{Row: 0, Col: 0}))
	})

	t.Run("truncated edge cells", func(t *testing.T) {
		st, err := New(models.RectFromSize(1000, 1000), 300, MetricChebyshev)
		require.NoError(t, err)
		require.Equal(t, 4, st.Rows())
		require.Equal(t, 4, st.Cols())

		edge := st.SectorBounds(models.Sector{Row: 3, Col: 3})
		require.Equal(t, models.NewRect(900, 900, 1000, 1000), edge)

		var total float64
		for row := 0; row < st.Rows(); row++ {
			for col := 0; col < st.Cols(); col++ {
				total += st.SectorBounds(models.Sector{Row: row, Col: col}).Area()
			}
		}
		require.Equal(t, 1000.0*1000.0, total)
	})
}

func TestSectorContentsMatchSectorBounds(t *testing.T) {
	world := models.RectFromSize(10000, 10000)
	st, err := New(world, 1000, MetricChebyshev)
	require.NoError(t, err)

	assets := []models.AssetRef{
		models.PointAsset("origin", models.Vec2{X: 0, Y: 0}, models.CategoryProp),
		models.PointAsset("inside", models.Vec2{X: 999.5, Y: 500}, models.CategoryProp),
		models.PointAsset("next_col", models.Vec2{X: 1000, Y: 500}, models.CategoryProp),
	}
	idx, err := spatial.Build(world, assets, spatial.DefaultOptions())
	require.NoError(t, err)

	got := st.Contents(idx, models.Sector{Row: 0, Col: 0})
	require.Len(t, got, 2)
	require.Equal(t, "inside", got[0].ID)
	require.Equal(t, "origin", got[1].ID)

	got = st.Contents(idx, models.Sector{Row: 0, Col: 1})
	require.Len(t, got, 1)
	require.Equal(t, "next_col", got[0].ID)
}

func TestActiveSectors(t *testing.T) {
	st, err := New(models.RectFromSize(10000, 10000), 1000, MetricChebyshev)
	require.NoError(t, err)

	t.Run("zero radius keeps the containing sector", func(t *testing.T) {
		active := st.ActiveSectors(models.Vec2{X: 5500, Y: 5500}, 0)
		require.Len(t, active, 1)
		require.True(t, active.Contains(models.Sector{Row: 5, Col: 5}))
	})

	t.Run("chebyshev radius keeps the surrounding ring", func(t *testing.T) {
		active := st.ActiveSectors(models.Vec2{X: 5500, Y: 5500}, 600)
		require.Len(t, active, 9)
		for row := 4; row <= 6; row++ {
			for col := 4; col <= 6; col++ {
				require.True(t, active.Contains(models.Sector{Row: row, Col: col}))
			}
		}
	})

	t.Run("euclidean radius drops diagonal corners", func(t *testing.T) {
		eu, err := New(models.RectFromSize(10000, 10000), 1000, MetricEuclidean)
		require.NoError(t, err)

		active := eu.ActiveSectors(models.Vec2{X: 5500, Y: 5500}, 600)
		require.Len(t, active, 5)
		require.True(t, active.Contains(models.Sector{Row: 5, Col: 5}))
		require.True(t, active.Contains(models.Sector{Row: 4, Col: 5}))
		require.True(t, active.Contains(models.Sector{Row: 6, Col: 5}))
		require.True(t, active.Contains(models.Sector{Row: 5, Col: 4}))
		require.True(t, active.Contains(models.Sector{Row: 5, Col: 6}))
	})

	t.Run("grid edges clamp the active set", func(t *testing.T) {
		active := st.ActiveSectors(models.Vec2{X: 100, Y: 100}, 1500)
		for sec := range active {
			require.GreaterOrEqual(t, sec.Row, 0)
			require.GreaterOrEqual(t, sec.Col, 0)
		}
		require.True(t, active.Contains(models.Sector{Row: 0, Col: 0}))
	})

	t.Run("identical inputs yield identical sets", func(t *testing.T) {
		a := st.ActiveSectors(models.Vec2{X: 3210, Y: 7654}, 2345)
		b := st.ActiveSectors(models.Vec2{X: 3210, Y: 7654}, 2345)
		require.Equal(t, a.Sorted(), b.Sorted())
	})
}

func TestActiveSectorsAlongPath(t *testing.T) {
	st, err := New(models.RectFromSize(10000, 10000), 1000, MetricChebyshev)
	require.NoError(t, err)

	path := []models.Vec2{
		{X: 500, Y: 500},
		{X: 2500, Y: 500},
	}

	active := st.ActiveSectorsAlongPath(path, 0)
	require.Len(t, active, 2)
	require.True(t, active.Contains(models.Sector{Row: 0, Col: 0}))
	require.True(t, active.Contains(models.Sector{Row: 0, Col: 2}))
}

func TestDiff(t *testing.T) {
	previous := make(Set)
	previous.Add(models.Sector{Row: 0, Col: 0})
	previous.Add(models.Sector{Row: 0, Col: 1})
	previous.Add(models.Sector{Row: 1, Col: 0})

	current := make(Set)
	current.Add(models.Sector{Row: 0, Col: 1})
	current.Add(models.Sector{Row: 1, Col: 1})
	current.Add(models.Sector{Row: 2, Col: 0})

	toLoad, toUnload := Diff(previous, current)
	require.Equal(t, []models.Sector{{Row: 1, Col: 1}, {Row: 2, Col: 0}}, toLoad)
	require.Equal(t, []models.Sector{{Row: 0, Col: 0}, {Row: 1, Col: 0}}, toUnload)

	t.Run("no movement means no work", func(t *testing.T) {
		toLoad, toUnload := Diff(current, current)
		require.Empty(t, toLoad)
		require.Empty(t, toUnload)
	})
}

func TestGridSectorCount(t *testing.T) {
	st, err := New(models.RectFromSize(10000, 10000), 1000, MetricChebyshev)
	require.NoError(t, err)

	var count int
	for row := 0; row < st.Rows(); row++ {
		for col := 0; col < st.Cols(); col++ {
			require.True(t, st.SectorBounds(models.Sector{Row: row, Col: col}).IsPositive(),
				fmt.Sprintf("sector (%d,%d) has no area", row, col))
			count++
		}
	}
	require.Equal(t, 100, count)
}
