package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryVisibleAt(t *testing.T) {
	t.Run("coarsest level shows only landscape", func(t *testing.T) {
		require.True(t, CategoryLandscape.VisibleAt(0))
		require.False(t, CategoryBuilding.VisibleAt(0))
		require.False(t, CategoryFoliage.VisibleAt(0))
		require.False(t, CategoryDetail.VisibleAt(0))
	})

	t.Run("finer levels are cumulative", func(t *testing.T) {
		require.True(t, CategoryLandscape.VisibleAt(1))
		require.True(t, CategoryBuilding.VisibleAt(1))
		require.True(t, CategoryStructure.VisibleAt(1))
		require.False(t, CategoryProp.VisibleAt(1))

		require.True(t, CategoryFoliage.VisibleAt(2))
		require.True(t, CategoryProp.VisibleAt(2))
		require.False(t, CategoryDetail.VisibleAt(2))

		require.True(t, CategoryDetail.VisibleAt(3))
	})

	t.Run("unknown categories rank as finest detail", func(t *testing.T) {
		require.False(t, Category("hologram").VisibleAt(2))
		require.True(t, Category("hologram").VisibleAt(3))
	})
}

func TestPointAsset(t *testing.T) {
	a := PointAsset("rock_01", Vec2{X: 12, Y: 34}, CategoryProp)
	require.Equal(t, "rock_01", a.ID)
	require.Equal(t, a.Footprint.Min, a.Footprint.Max)
	require.False(t, a.Footprint.IsPositive())
}
