package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundaryContains(t *testing.T) {
	b := Boundary{CX: 0, CY: 0, HX: 2, HY: 2}

	require.True(t, b.Contains(0, 0))
	require.True(t, b.Contains(1.9, -1.9))
	require.False(t, b.Contains(2.1, 0))
	require.False(t, b.Contains(0, -2.1))

	// A point sitting exactly on an edge is accepted thanks to the slack,
	// so that at least one of two cells sharing the edge takes it.
	require.True(t, b.Contains(2, 0))
	require.True(t, b.Contains(0, -2))
}

func TestBoundaryNorms(t *testing.T) {
	b := Boundary{CX: 1, CY: -1, HX: 3, HY: 2}
	require.Equal(t, 5.0, b.NormL1())
	require.Equal(t, 2.0, b.NormInfty())
}

func TestBoundaryEdgeIntersections(t *testing.T) {
	b := Boundary{CX: 0, CY: 0, HX: 10, HY: 10}

	x, y := b.InterLeft(-15, 0, -5, 10)
	require.Equal(t, -10.0, x)
	require.Equal(t, 5.0, y)

	x, y = b.InterRight(5, 0, 15, 10)
	require.Equal(t, 10.0, x)
	require.Equal(t, 5.0, y)

	x, y = b.InterBottom(0, -15, 10, -5)
	require.Equal(t, 5.0, x)
	require.Equal(t, -10.0, y)

	x, y = b.InterUp(0, 15, 10, 5)
	require.Equal(t, 5.0, x)
	require.Equal(t, 10.0, y)
}

func TestBoundaryCoveredBy(t *testing.T) {
	b := Boundary{CX: 0, CY: 0, HX: 1, HY: 1}

	full := NewPolygonMask(
		[]float64{-5, 5, 5, -5},
		[]float64{-5, -5, 5, 5},
	)
	require.Equal(t, 4, b.CoveredBy(full))

	// Half-plane style polygon covering only the two eastern corners.
	half := NewPolygonMask(
		[]float64{0.5, 5, 5, 0.5},
		[]float64{-5, -5, 5, 5},
	)
	require.Equal(t, 2, b.CoveredBy(half))

	none := NewPolygonMask(
		[]float64{10, 12, 12, 10},
		[]float64{10, 10, 12, 12},
	)
	require.Equal(t, 0, b.CoveredBy(none))
}
