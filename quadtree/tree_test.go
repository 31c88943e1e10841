package quadtree

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/smartquad/geo"
	"github.com/stretchr/testify/require"
)

type pt struct {
	x, y float64
}

func (p *pt) X() float64 { return p.x }
func (p *pt) Y() float64 { return p.y }

// newScenarioTree builds the reference configuration: a 4x4 root with
// capacity 4 and a size floor that stops subdivision below half-extent 1,
// filled with twelve points that carve an uneven frontier around the
// origin.
func newScenarioTree(t *testing.T) (*Tree[*pt], []*pt) {
	t.Helper()

	tr := New[*pt](0, 0, 4, 4, 4)
	tr.SetSizeFloor(func(b geo.Boundary) bool {
		return b.NormInfty() < 1
	})

	pts := []*pt{
		{1, 1}, {1, 2}, {-2, 1}, {0, 2},
		{0.1, 2}, {1, -1}, {1, 3}, {-2, 2},
		{1.2, 1.3}, {0.1, 0.3}, {0.1, 0.1}, {0.1, 0.2},
	}
	for _, p := range pts {
		require.NoError(t, tr.Insert(p))
	}
	return tr, pts
}

func TestInsertScenarioDeltas(t *testing.T) {
	tr, pts := newScenarioTree(t)
	require.Equal(t, len(pts), tr.Len())

	m := tr.quadrantAt(0x30, 3)
	require.Equal(t, uint64(0x30), m.location)
	require.Equal(t, 3, m.level)

	require.Equal(t, adjacency(-2), m.delta[South])
	require.Equal(t, adjSameLevel, m.delta[North])
	require.Equal(t, adjSameLevel, m.delta[East])
	require.Equal(t, adjacency(-2), m.delta[West])
	require.Equal(t, adjacency(-2), m.delta[SouthWest])

	require.Equal(t, uint64(0x32), m.sameLevel(North).location)
	require.Equal(t, uint64(0x02), m.sameLevel(West).location)
	require.Equal(t, uint64(0x00), m.sameLevel(SouthWest).location)
	require.Equal(t, uint64(0x33), m.sameLevel(NorthEast).location)

	require.Equal(t, adjacency(-1), tr.quadrantAt(0x31, 3).delta[East])
}

func TestInsertRefinesNeighbourDeltas(t *testing.T) {
	tr, _ := newScenarioTree(t)
	m := tr.quadrantAt(0x30, 3)
	require.Equal(t, adjacency(-2), m.delta[West])

	// Two points in the northwest quadrant subdivide it once: the west
	// neighbour of 0x30 is now only one level coarser.
	require.NoError(t, tr.Insert(&pt{-1, 1}))
	require.NoError(t, tr.Insert(&pt{-1.2, 1.3}))
	require.Equal(t, adjacency(-1), m.delta[West])
	require.Equal(t, adjSameLevel, tr.quadrantAt(0xe, 2).delta[West])

	// Three more points push the cell across the origin down to level 3,
	// making the west neighbour of 0x30 a same-level leaf.
	require.NoError(t, tr.Insert(&pt{-0.7, 0.3}))
	require.NoError(t, tr.Insert(&pt{-0.4, 0.3}))
	require.NoError(t, tr.Insert(&pt{-0.1, 0.6}))
	require.Equal(t, adjSameLevel, m.delta[West])

	w := tr.quadrantAt(0x25, 3)
	require.Equal(t, 3, w.level)
	require.Equal(t, adjacency(-2), w.delta[South])
	require.Equal(t, adjSameLevel, w.delta[East])
	require.Equal(t, adjSameLevel, w.delta[North])
	require.Equal(t, adjSameLevel, w.delta[West])
}

func TestReflexiveDeltasOnFrontier(t *testing.T) {
	tr, _ := newScenarioTree(t)

	// Every cardinal link between two leaves must agree from both ends:
	// same level on both, or finer on one side and coarser on the other.
	for l := tr.leafHead; l != nil; l = l.next {
		for dir := East; dir <= SouthEast; dir += 2 {
			if !l.delta[dir].hasNeighbour() {
				continue
			}
			nb := l.sameLevel(dir)
			require.NotNil(t, nb)
			switch d := l.delta[dir]; {
			case d == adjSameLevel:
				require.Equal(t, adjSameLevel, nb.delta[dir.Opposite()],
					"leaf %#x level %d dir %v", l.location, l.level, dir)
			case d < 0:
				require.Equal(t, adjFiner, nb.delta[dir.Opposite()],
					"leaf %#x level %d dir %v", l.location, l.level, dir)
			}
		}
	}
}

func TestInsertOutOfBounds(t *testing.T) {
	tr := New[*pt](0, 0, 4, 4, 4)
	err := tr.Insert(&pt{5, 0})
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeOutOfBounds))
	require.Equal(t, 0, tr.Len())
}

func TestRemove(t *testing.T) {
	tr, pts := newScenarioTree(t)

	require.NoError(t, tr.Remove(pts[0]))
	require.False(t, tr.Contains(pts[0]))
	require.Equal(t, len(pts)-1, tr.Len())

	err := tr.Remove(pts[0])
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeNotIndexed))
}

func TestRoundTripKeepsFrontier(t *testing.T) {
	tr, pts := newScenarioTree(t)
	leaves, depth := tr.Leaves(), tr.Depth()

	for _, p := range pts {
		require.NoError(t, tr.Remove(p))
	}

	require.Equal(t, 0, tr.Len())
	require.Equal(t, 0, tr.MaxLeafSize())

	// Subdivision is never undone.
	require.Equal(t, leaves, tr.Leaves())
	require.Equal(t, depth, tr.Depth())
}

func TestUpdateIdempotence(t *testing.T) {
	tr, pts := newScenarioTree(t)
	p := pts[10] // (0.1, 0.1), well inside the level-3 leaf at 0x30
	leaf := tr.where[p]

	moved, err := tr.Update(p)
	require.NoError(t, err)
	require.False(t, moved)
	require.Same(t, leaf, tr.where[p])

	// A displacement that stays inside the leaf does not re-home the point.
	p.x += 0.05
	p.y += 0.05
	moved, err = tr.Update(p)
	require.NoError(t, err)
	require.False(t, moved)
	require.Same(t, leaf, tr.where[p])
}

func TestUpdateRelocatesAcrossLeaves(t *testing.T) {
	tr, pts := newScenarioTree(t)
	p := pts[0] // (1, 1)
	leaf := tr.where[p]

	p.x = 2.5
	p.y = 2.5
	moved, err := tr.Update(p)
	require.NoError(t, err)
	require.True(t, moved)
	require.NotSame(t, leaf, tr.where[p])
	require.True(t, tr.where[p].boundary.Contains(p.x, p.y))
	require.Equal(t, len(pts), tr.Len())
}

func TestUpdateDropsPointLeavingRoot(t *testing.T) {
	tr, pts := newScenarioTree(t)
	p := pts[0]

	p.x = 100
	moved, err := tr.Update(p)
	require.True(t, moved)
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeNotIndexed))
	require.False(t, tr.Contains(p))
	require.Equal(t, len(pts)-1, tr.Len())
}

func TestUpdateUnknownPoint(t *testing.T) {
	tr, _ := newScenarioTree(t)
	_, err := tr.Update(&pt{1, 1})
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeNotIndexed))
}

func TestSizeFloorHoldsLeavesOverCapacity(t *testing.T) {
	tr := New[*pt](0, 0, 4, 4, 4)
	tr.SetSizeFloor(func(geo.Boundary) bool { return true })

	for i := 0; i < 100; i++ {
		require.NoError(t, tr.Insert(&pt{1, 1}))
	}
	require.Equal(t, 100, tr.Len())
	require.Equal(t, 1, tr.Leaves())
	require.Equal(t, 0, tr.Depth())
	require.Equal(t, 100, tr.MaxLeafSize())
}

func TestSizeFloorInstalledAfterSubdivision(t *testing.T) {
	tr := New[*pt](0, 0, 4, 4, 1)
	require.NoError(t, tr.Insert(&pt{1, 1}))
	require.NoError(t, tr.Insert(&pt{3, 3}))
	require.True(t, tr.root.subdivided())

	// The floor now holds everywhere, the subdivided root included. New
	// points must still descend to a leaf: internal cells hold no points.
	tr.SetSizeFloor(func(b geo.Boundary) bool {
		return b.NormInfty() < 5
	})

	p := &pt{-1, -1}
	require.NoError(t, tr.Insert(p))
	require.Equal(t, 3, tr.Len())
	require.Empty(t, tr.root.points)
	require.False(t, tr.where[p].subdivided())

	visited := 0
	for range tr.Points() {
		visited++
	}
	require.Equal(t, 3, visited)
}

func TestDiagonalRepairedByCornerSubdivision(t *testing.T) {
	tr := New[*pt](0, 0, 4, 4, 1)
	require.NoError(t, tr.Insert(&pt{1, 1}))
	require.NoError(t, tr.Insert(&pt{3, 3}))

	// The northeast quadrant subdivided; its southwest child touches the
	// northwest quadrant only through a corner, so that diagonal chain is
	// broken until a subdivision reaches the corner from the other side.
	c := tr.quadrantAt(0xc, 2)
	require.Equal(t, uint64(0xc), c.location)
	require.Equal(t, adjDiagonalBroken, c.delta[NorthWest])

	require.NoError(t, tr.Insert(&pt{-1, 1}))
	require.NoError(t, tr.Insert(&pt{-3, 3}))

	// Subdividing the northwest quadrant repairs both corners it shares
	// with the finer grid, reflexively on both ends.
	nb := tr.quadrantAt(0xb, 2)
	require.Equal(t, uint64(0xb), nb.location)
	require.Equal(t, adjSameLevel, c.delta[NorthWest])
	require.Same(t, nb, c.sameLevel(NorthWest))
	require.Equal(t, adjSameLevel, nb.delta[SouthEast])

	require.Equal(t, adjSameLevel, tr.quadrantAt(0xe, 2).delta[SouthWest])
	require.Equal(t, adjSameLevel, tr.quadrantAt(0x9, 2).delta[NorthEast])
}

func TestDepthExhaustedWithoutSizeFloor(t *testing.T) {
	tr := New[*pt](0, 0, 4, 4, 1)

	require.NoError(t, tr.Insert(&pt{1, 1}))
	err := tr.Insert(&pt{1, 1})
	require.Error(t, err)
	require.True(t, errors.IsType(err, ErrTypeDepthExhausted))
	require.Equal(t, maxLevel, tr.Depth())
}

func TestLocationAfterAlignsLevels(t *testing.T) {
	// A raw comparison would put the deep code 0x30 (level 3) after the
	// shallow code 0x2 (level 1), yet 0x2 is the northwest quadrant and
	// covers the earlier Morton range.
	require.False(t, locationAfter(0x2, 1, 0x30, 3))
	require.True(t, locationAfter(0x30, 3, 0x2, 1))
	require.True(t, locationAfter(0x31, 3, 0x30, 3))
	require.False(t, locationAfter(0x30, 3, 0x30, 3))
}
