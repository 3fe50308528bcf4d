package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRectContainsFootprint(t *testing.T) {
	r := NewRect(0, 0, 1000, 1000)

	t.Run("fully inside", func(t *testing.T) {
		require.True(t, r.ContainsFootprint(NewRect(10, 10, 20, 20)))
	})

	t.Run("point on max edge is contained", func(t *testing.T) {
		p := Vec2{X: 1000, Y: 500}
		require.True(t, r.ContainsFootprint(Rect{Min: p, Max: p}))
	})

	t.Run("box crossing an edge is not contained", func(t *testing.T) {
		require.False(t, r.ContainsFootprint(NewRect(990, 10, 1010, 20)))
	})

	t.Run("box outside is not contained", func(t *testing.T) {
		require.False(t, r.ContainsFootprint(NewRect(2000, 2000, 2010, 2010)))
	})
}

func TestRectIntersectsFootprint(t *testing.T) {
	r := NewRect(0, 0, 1000, 1000)

	t.Run("point on min edge intersects", func(t *testing.T) {
		p := Vec2{X: 0, Y: 0}
		require.True(t, r.IntersectsFootprint(Rect{Min: p, Max: p}))
	})

	t.Run("point on max edge does not intersect", func(t *testing.T) {
		p := Vec2{X: 1000, Y: 500}
		require.False(t, r.IntersectsFootprint(Rect{Min: p, Max: p}))
	})

	t.Run("box straddling the max edge intersects", func(t *testing.T) {
		require.True(t, r.IntersectsFootprint(NewRect(900, 100, 1100, 200)))
	})

	t.Run("box whose max touches the region min intersects", func(t *testing.T) {
		// the closed box still covers the region's first row of points
		require.True(t, r.IntersectsFootprint(NewRect(-100, -100, 0, 0)))
	})

	t.Run("disjoint box does not intersect", func(t *testing.T) {
		require.False(t, r.IntersectsFootprint(NewRect(1001, 0, 1100, 100)))
	})
}

func TestRectIntersection(t *testing.T) {
	a := NewRect(0, 0, 100, 100)

	clipped := a.Intersection(NewRect(50, 50, 150, 150))
	require.Equal(t, NewRect(50, 50, 100, 100), clipped)
	require.True(t, clipped.IsPositive())

	disjoint := a.Intersection(NewRect(200, 200, 300, 300))
	require.False(t, disjoint.IsPositive())
}

func TestRectDistances(t *testing.T) {
	r := NewRect(0, 0, 100, 100)

	t.Run("inside is zero", func(t *testing.T) {
		require.Equal(t, 0.0, r.DistanceChebyshev(Vec2{X: 50, Y: 50}))
		require.Equal(t, 0.0, r.DistanceEuclidean(Vec2{X: 50, Y: 50}))
	})

	t.Run("axis aligned outside", func(t *testing.T) {
		p := Vec2{X: 150, Y: 50}
		require.Equal(t, 50.0, r.DistanceChebyshev(p))
		require.Equal(t, 50.0, r.DistanceEuclidean(p))
	})

	t.Run("diagonal outside", func(t *testing.T) {
		p := Vec2{X: 130, Y: 140}
		require.Equal(t, 40.0, r.DistanceChebyshev(p))
		require.Equal(t, 50.0, r.DistanceEuclidean(p))
	})
}

func TestRectFromCenter(t *testing.T) {
	r := RectFromCenter(Vec2{X: 10, Y: 20}, 5)
	require.Equal(t, NewRect(5, 15, 15, 25), r)
	require.Equal(t, Vec2{X: 10, Y: 20}, r.Center())
	require.Equal(t, 100.0, r.Area())
}
