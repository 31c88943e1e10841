package quadtree

// adjacency encodes the level difference between a cell and the nearest
// cell on one of its eight sides. Negative values mean the neighbour is
// that many levels coarser.
type adjacency int8

const (
	// The same-level neighbour exists and is a leaf.
	adjSameLevel adjacency = 0

	// The same-level neighbour is subdivided: finer cells abut this side.
	adjFiner adjacency = 1

	// No neighbour: the cell sits against the root boundary on this side.
	adjOutside adjacency = 2

	// Corner-only contact with a finer grid; the reflexive link is broken
	// until the next subdivision touching that corner repairs it.
	adjDiagonalBroken adjacency = 3
)

// hasNeighbour reports whether a same-level neighbour location can be
// resolved on this side. Both sentinels above adjFiner exclude it.
func (a adjacency) hasNeighbour() bool {
	return a < adjOutside
}

// coarserBy returns the number of levels by which the neighbour is coarser,
// zero for anything that is not a coarser neighbour.
func (a adjacency) coarserBy() int {
	if a < 0 {
		return int(-a)
	}
	return 0
}
