package quadtree

import (
	"fmt"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/smartquad/geo"
)

// Child quadrant indices, also the two bits appended to the parent location
// code. Bit 0 is east/west, bit 1 is north/south.
type quadrant uint8

const (
	quadSW quadrant = 0
	quadSE quadrant = 1
	quadNW quadrant = 2
	quadNE quadrant = 3
)

// diags[q] is the diagonal direction pointing away from the parent center
// for each child quadrant.
var diags = [4]Direction{SouthWest, SouthEast, NorthWest, NorthEast}

// node is one cell of the tree. Points live on leaves only; an internal
// node keeps its children forever (siblings are never merged back).
type node[T Elem] struct {
	tree *Tree[T]

	boundary geo.Boundary
	location uint64
	level    int
	delta    [8]adjacency
	children [4]*node[T]
	points   []T

	// Suppresses double-visitation of points that migrated forward during
	// the current mutating walk.
	already map[T]struct{}

	// Cached size-floor verdict for this boundary.
	limit bool

	// Intrusive links of the Morton-ordered leaf frontier.
	prev, next *node[T]
}

func newChild[T Elem](parent *node[T], q quadrant) *node[T] {
	n := &node[T]{
		tree:     parent.tree,
		location: parent.location<<2 | uint64(q),
		level:    parent.level + 1,
	}

	b := parent.boundary
	if q > 1 {
		b.CY += b.HY / 2
	} else {
		b.CY -= b.HY / 2
	}
	if q&1 == 0 {
		b.CX -= b.HX / 2
	} else {
		b.CX += b.HX / 2
	}
	b.HX /= 2
	b.HY /= 2
	n.boundary = b

	// The child inherits the parent's view of its sides. The three sides
	// facing the other siblings are same-level leaves; the two corners
	// touching siblings only diagonally start out non-reflexive.
	diag := diags[q]
	pd := parent.delta
	if pd[diag] > adjFiner {
		n.delta[diag] = pd[diag]
	} else {
		n.delta[diag] = pd[diag] - 1
	}
	n.delta[(diag+1)&7] = stepDown(pd[(diag+1)&7])
	n.delta[(diag+2)&7] = adjDiagonalBroken
	n.delta[(diag+3)&7] = adjSameLevel
	n.delta[(diag+4)&7] = adjSameLevel
	n.delta[(diag+5)&7] = adjSameLevel
	n.delta[(diag+6)&7] = adjDiagonalBroken
	n.delta[(diag+7)&7] = stepDown(pd[(diag+7)&7])

	if floor := parent.tree.sizeFloor; floor != nil {
		n.limit = floor(n.boundary)
	}
	return n
}

func stepDown(a adjacency) adjacency {
	if a == adjOutside {
		return adjOutside
	}
	return a - 1
}

func (n *node[T]) subdivided() bool {
	return n.children[0] != nil
}

// sameLevel resolves the same-level neighbour in the given direction, or
// the nearest existing ancestor of that cell when the neighbour side is
// coarser. Returns nil when the cell sits against the root boundary.
func (n *node[T]) sameLevel(dir Direction) *node[T] {
	if n.delta[dir] == adjOutside {
		return nil
	}
	loc := n.tree.moves.sameLevel(n.location, dir, n.level)
	return n.tree.quadrantAt(loc, n.level)
}

func (n *node[T]) insert(p T) (bool, error) {
	if !n.boundary.Contains(p.X(), p.Y()) {
		return false, nil
	}

	// Going over capacity is fine when the size floor holds on the cell.
	// Points always descend past a subdivided cell: internal cells hold no
	// points, floor or not.
	if !n.subdivided() && (n.limit || len(n.points) < n.tree.capacity) {
		n.points = append(n.points, p)
		n.tree.where[p] = n
		return true, nil
	}

	if !n.subdivided() {
		if err := n.subdivide(); err != nil {
			return false, err
		}
	}

	for _, c := range n.children {
		if ok, err := c.insert(p); ok || err != nil {
			return ok, err
		}
	}
	return false, nil
}

func (n *node[T]) subdivide() error {
	if n.level >= maxLevel {
		return errors.New("cell is at the maximum subdivision depth").
			WithType(ErrTypeDepthExhausted).
			WithTag("tree_id", n.tree.id).
			WithTag("location", fmt.Sprintf("%#x", n.location)).
			WithTag("level", n.level)
	}

	for q := quadSW; q <= quadNE; q++ {
		n.children[q] = newChild(n, q)
	}
	n.tree.replaceLeaf(n)

	// The new children are one level finer than every existing neighbour:
	// bump the reflexive deltas, repairing broken diagonals on the way, and
	// pick up neighbours that are themselves subdivided.
	for dir := East; dir <= SouthEast; dir++ {
		if !n.delta[dir].hasNeighbour() {
			continue
		}
		if nb := n.sameLevel(dir); nb != nil && nb.incrementDelta(dir.Opposite(), true) {
			n.updateDelta(dir)
		}
	}

	pts := n.points
	n.points = nil
	for _, p := range pts {
		ok, err := n.insert(p)
		if err != nil {
			return err
		}
		if !ok {
			// Containment slack guarantees a child accepts; keep the
			// locator truthful if it ever does not.
			n.points = append(n.points, p)
			n.tree.where[p] = n
			logs.Warn(errors.New("point could not be redistributed to a child cell").
				WithTag("tree_id", n.tree.id).
				WithTag("location", fmt.Sprintf("%#x", n.location)))
		}
	}

	// Re-home in-walk suppression marks onto the children that now own the
	// points; left on this node they would never be consulted again.
	if len(n.already) > 0 {
		for p := range n.already {
			if owner := n.tree.where[p]; owner != nil && owner != n {
				owner.markAlready(p)
			}
		}
		n.already = nil
	}

	instrumentSubdivision(n.tree.id)
	logs.WithTag("tree_id", n.tree.id).
		WithTag("location", fmt.Sprintf("%#x", n.location)).
		WithTag("level", n.level).
		Debug("cell subdivided")
	return nil
}

// incrementDelta records that the cells across direction dir became one
// level finer. It reports whether this node has children, in which case the
// recursion visited the child cells touching that side. repairDiagonals is
// set on the outermost call only: the first subdivision in a cardinal
// direction toward a previously diagonal-only neighbour promotes the broken
// diagonal to its numeric value.
func (n *node[T]) incrementDelta(dir Direction, repairDiagonals bool) bool {
	if !n.subdivided() {
		if n.delta[dir] < adjFiner {
			n.delta[dir]++
		}
		return false
	}

	if repairDiagonals {
		switch dir {
		case West:
			n.children[quadSW].updateDiagonal(NorthWest, dir, 0)
			n.children[quadNW].updateDiagonal(SouthWest, dir, 0)
		case South:
			n.children[quadSW].updateDiagonal(SouthEast, dir, 0)
			n.children[quadSE].updateDiagonal(SouthWest, dir, 0)
		case East:
			n.children[quadSE].updateDiagonal(NorthEast, dir, 0)
			n.children[quadNE].updateDiagonal(SouthEast, dir, 0)
		case North:
			n.children[quadNW].updateDiagonal(NorthEast, dir, 0)
			n.children[quadNE].updateDiagonal(NorthWest, dir, 0)
		}
	}

	// A direction affects only the children whose side-set intersects it.
	if dir < 3 {
		n.children[quadNE].incrementDelta(dir, false)
	}
	if (dir+6)&7 < 3 {
		n.children[quadNW].incrementDelta(dir, false)
	}
	if (dir+4)&7 < 3 {
		n.children[quadSW].incrementDelta(dir, false)
	}
	if (dir+2)&7 < 3 {
		n.children[quadSE].incrementDelta(dir, false)
	}
	return true
}

// updateDiagonal walks down along the cardinal axis dir, decrementing the
// diagonal delta at each level, until a leaf resolves the previously
// non-reflexive corner and restores the reflexive link on the other side.
func (n *node[T]) updateDiagonal(diagdir, dir Direction, d int) {
	if !n.subdivided() {
		n.delta[diagdir] = adjacency(d)
		if nb := n.sameLevel(diagdir); nb != nil {
			if d == 0 {
				nb.delta[diagdir.Opposite()] = adjSameLevel
			} else {
				nb.delta[diagdir.Opposite()] = adjFiner
			}
		}
		return
	}

	switch dir {
	case West:
		if diagdir == NorthWest {
			n.children[quadNW].updateDiagonal(diagdir, dir, d-1)
		} else {
			n.children[quadSW].updateDiagonal(diagdir, dir, d-1)
		}
	case South:
		if diagdir == SouthEast {
			n.children[quadSE].updateDiagonal(diagdir, dir, d-1)
		} else {
			n.children[quadSW].updateDiagonal(diagdir, dir, d-1)
		}
	case East:
		if diagdir == NorthEast {
			n.children[quadNE].updateDiagonal(diagdir, dir, d-1)
		} else {
			n.children[quadSE].updateDiagonal(diagdir, dir, d-1)
		}
	case North:
		if diagdir == NorthEast {
			n.children[quadNE].updateDiagonal(diagdir, dir, d-1)
		} else {
			n.children[quadNW].updateDiagonal(diagdir, dir, d-1)
		}
	}
}

// updateDelta marks the children touching side dir as having a finer
// neighbour when the same-level neighbour across that side has children.
func (n *node[T]) updateDelta(dir Direction) {
	if dir < 3 {
		if nb := n.children[quadNE].sameLevel(dir); nb != nil && nb.subdivided() {
			n.children[quadNE].delta[dir] = adjFiner
		}
	}
	if (dir+6)&7 < 3 {
		if nb := n.children[quadNW].sameLevel(dir); nb != nil && nb.subdivided() {
			n.children[quadNW].delta[dir] = adjFiner
		}
	}
	if (dir+4)&7 < 3 {
		if nb := n.children[quadSW].sameLevel(dir); nb != nil && nb.subdivided() {
			n.children[quadSW].delta[dir] = adjFiner
		}
	}
	if (dir+2)&7 < 3 {
		if nb := n.children[quadSE].sameLevel(dir); nb != nil && nb.subdivided() {
			n.children[quadSE].delta[dir] = adjFiner
		}
	}
}

func (n *node[T]) removePoint(p T) bool {
	for i, q := range n.points {
		if q == p {
			n.removePointAt(i)
			return true
		}
	}
	return false
}

func (n *node[T]) removePointAt(i int) {
	p := n.points[i]
	n.points = append(n.points[:i], n.points[i+1:]...)
	delete(n.already, p)
}

func (n *node[T]) markAlready(p T) {
	if n.already == nil {
		n.already = make(map[T]struct{})
	}
	n.already[p] = struct{}{}
}

func (n *node[T]) refreshLimit() {
	floor := n.tree.sizeFloor
	n.limit = floor != nil && floor(n.boundary)
	if n.subdivided() {
		for _, c := range n.children {
			c.refreshLimit()
		}
	}
}

func (n *node[T]) depth() int {
	if !n.subdivided() {
		return 0
	}
	d := 0
	for _, c := range n.children {
		if cd := c.depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}
