package quadtree

import (
	"iter"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/smartquad/geo"
)

// Cursor walks the points of a tree in leaf-frontier order. The zero number
// of Next calls positions it before the first point:
//
//	c := t.Iter()
//	for c.Next() {
//		p := c.Point()
//	}
//
// The tree must not be modified while a Cursor is live.
type Cursor[T Elem] struct {
	tree *Tree[T]
	mask *geo.PolygonMask

	leaf *node[T]
	idx  int

	// Per-leaf mask state: the mask clipped to the leaf boundary and the
	// number of leaf corners inside the clip. All four corners inside means
	// every point of the leaf passes without a point-in-polygon test.
	clipped geo.PolygonMask
	covered int

	started, done bool

	// Forward-neighbourhood cache, valid while leaf == fwdLeaf.
	fwdLeaf *node[T]
	fwd     []T
}

// Iter returns a cursor over every indexed point.
func (t *Tree[T]) Iter() *Cursor[T] {
	return &Cursor[T]{tree: t}
}

// enterLeaf prepares the per-leaf mask state and reports whether the leaf
// participates in the walk at all.
func (c *Cursor[T]) enterLeaf() bool {
	c.fwdLeaf = nil
	c.fwd = nil
	if c.mask == nil {
		return true
	}
	c.clipped = c.mask.Clip(c.leaf.boundary)
	if c.clipped.Size() < 3 {
		return false
	}
	c.covered = c.leaf.boundary.CoveredBy(c.clipped)
	return true
}

// Next advances to the next point. It returns false when the walk is over.
func (c *Cursor[T]) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		c.leaf = c.tree.leafHead
		c.idx = -1
		if !c.enterLeaf() {
			c.idx = len(c.leaf.points)
		}
	}
	for {
		c.idx++
		for c.leaf != nil && c.idx >= len(c.leaf.points) {
			c.leaf = c.leaf.next
			c.idx = 0
			if c.leaf != nil && !c.enterLeaf() {
				c.idx = len(c.leaf.points)
			}
		}
		if c.leaf == nil {
			c.done = true
			return false
		}
		p := c.leaf.points[c.idx]
		if c.mask != nil && c.covered < 4 && !c.mask.PointInPolygon(p.X(), p.Y()) {
			continue
		}
		return true
	}
}

// Point returns the current point. Valid only after Next returned true.
func (c *Cursor[T]) Point() T {
	return c.leaf.points[c.idx]
}

// Forward returns the points that come strictly after the current one in
// the traversal order and live in the same leaf or in a neighbouring cell.
// Pairing every point with its forward sequence enumerates each unordered
// pair of adjacent points exactly once.
func (c *Cursor[T]) Forward() []T {
	out := make([]T, 0, len(c.leaf.points)-c.idx-1)
	for _, p := range c.leaf.points[c.idx+1:] {
		if c.mask != nil && c.covered < 4 && !c.mask.PointInPolygon(p.X(), p.Y()) {
			continue
		}
		out = append(out, p)
	}
	return append(out, c.forwardNeighbours()...)
}

// forwardNeighbours collects the points of the cells adjacent to the
// current leaf that come after it in the traversal order: for the eastward
// and northward sides any neighbour not finer than the leaf, for the other
// sides only strictly coarser neighbours. The strictness split is what
// keeps each pair of cells on exactly one side of the enumeration.
func (c *Cursor[T]) forwardNeighbours() []T {
	if c.fwdLeaf == c.leaf {
		return c.fwd
	}
	var out []T
	for dir := East; dir <= NorthWest; dir++ {
		if c.leaf.delta[dir] < adjFiner {
			out = c.appendNeighbourPoints(out, c.leaf.sameLevel(dir))
		}
	}
	for dir := West; dir <= SouthEast; dir++ {
		if c.leaf.delta[dir] < adjSameLevel {
			out = c.appendNeighbourPoints(out, c.leaf.sameLevel(dir))
		}
	}
	c.fwdLeaf = c.leaf
	c.fwd = out
	return out
}

func (c *Cursor[T]) appendNeighbourPoints(out []T, nb *node[T]) []T {
	if nb == nil {
		return out
	}
	if c.mask == nil {
		return append(out, nb.points...)
	}
	clipped := c.mask.Clip(nb.boundary)
	if clipped.Size() < 3 {
		return out
	}
	if nb.boundary.CoveredBy(clipped) == 4 {
		return append(out, nb.points...)
	}
	for _, p := range nb.points {
		if c.mask.PointInPolygon(p.X(), p.Y()) {
			out = append(out, p)
		}
	}
	return out
}

// MutCursor walks the tree like Cursor while allowing the visited points to
// move. After the caller changed the current point's coordinates, the next
// call to Next re-homes it if it left its leaf. A point that moved into a
// cell the walk has not reached yet is visited only once; a point that
// moved outside the root boundary is dropped from the index.
type MutCursor[T Elem] struct {
	Cursor[T]
}

// IterMut returns a mutating cursor over every indexed point.
func (t *Tree[T]) IterMut() *MutCursor[T] {
	return &MutCursor[T]{Cursor[T]{tree: t}}
}

// Next re-homes the current point if needed, then advances.
func (c *MutCursor[T]) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		// An abandoned walk leaves its suppression marks behind; a fresh
		// walk must not inherit them or it skips live points.
		for l := c.tree.leafHead; l != nil; l = l.next {
			l.already = nil
		}
		c.leaf = c.tree.leafHead
		c.idx = -1
		if !c.enterLeaf() {
			c.idx = len(c.leaf.points)
		}
	} else if c.idx >= 0 && c.idx < len(c.leaf.points) {
		p := c.leaf.points[c.idx]
		if !c.leaf.boundary.Contains(p.X(), p.Y()) {
			c.relocate(p)
			// The removal shifted the next point into the current slot.
			c.idx--
		}
	}
	for {
		c.idx++
		for c.leaf != nil && c.idx >= len(c.leaf.points) {
			// Suppression marks are scoped to a single walk.
			c.leaf.already = nil
			c.leaf = c.leaf.next
			c.idx = 0
			if c.leaf != nil && !c.enterLeaf() {
				c.idx = len(c.leaf.points)
			}
		}
		if c.leaf == nil {
			c.done = true
			return false
		}
		p := c.leaf.points[c.idx]
		if _, seen := c.leaf.already[p]; seen {
			continue
		}
		if c.mask != nil && c.covered < 4 && !c.mask.PointInPolygon(p.X(), p.Y()) {
			continue
		}
		return true
	}
}

// relocate pulls p out of the current leaf and re-inserts it from the root.
// When the destination cell comes later in the frontier order, p is marked
// there so the walk does not visit it a second time.
func (c *MutCursor[T]) relocate(p T) {
	prev := c.leaf
	prevLoc, prevLevel := prev.location, prev.level
	prev.removePointAt(c.idx)

	ok, err := c.tree.root.insert(p)
	if err != nil || !ok {
		delete(c.tree.where, p)
		if err != nil {
			logs.Warn(errors.New("re-homing a moved point failed").
				WithTag("tree_id", c.tree.id).
				Wrap(err))
		}
		return
	}

	cur := c.tree.where[p]
	if cur != prev && locationAfter(cur.location, cur.level, prevLoc, prevLevel) {
		cur.markAlready(p)
	}
	instrumentRelocation(c.tree.id)
}

// Masked restricts traversals to the points inside a polygon. Leaves whose
// clip against the polygon is empty are skipped wholesale, and point-level
// filtering only runs on leaves the polygon covers partially.
type Masked[T Elem] struct {
	tree *Tree[T]
	mask *geo.PolygonMask
}

// Masked returns a view of the tree restricted to the polygon.
func (t *Tree[T]) Masked(m *geo.PolygonMask) Masked[T] {
	return Masked[T]{tree: t, mask: m}
}

// Iter returns a cursor over the points inside the polygon.
func (m Masked[T]) Iter() *Cursor[T] {
	return &Cursor[T]{tree: m.tree, mask: m.mask}
}

// IterMut returns a mutating cursor over the points inside the polygon.
// Points outside the polygon are neither visited nor re-homed.
func (m Masked[T]) IterMut() *MutCursor[T] {
	return &MutCursor[T]{Cursor[T]{tree: m.tree, mask: m.mask}}
}

// Points yields every indexed point in traversal order.
func (t *Tree[T]) Points() iter.Seq[T] {
	return func(yield func(T) bool) {
		c := t.Iter()
		for c.Next() {
			if !yield(c.Point()) {
				return
			}
		}
	}
}

// Pairs yields each unordered pair of points living in the same or in
// adjacent cells, each pair exactly once.
func (t *Tree[T]) Pairs() iter.Seq2[T, T] {
	return func(yield func(T, T) bool) {
		c := t.Iter()
		for c.Next() {
			p := c.Point()
			for _, q := range c.Forward() {
				if !yield(p, q) {
					return
				}
			}
		}
	}
}

// Points yields the points inside the polygon in traversal order.
func (m Masked[T]) Points() iter.Seq[T] {
	return func(yield func(T) bool) {
		c := m.Iter()
		for c.Next() {
			if !yield(c.Point()) {
				return
			}
		}
	}
}

// Pairs yields each unordered pair of adjacent points inside the polygon.
func (m Masked[T]) Pairs() iter.Seq2[T, T] {
	return func(yield func(T, T) bool) {
		c := m.Iter()
		for c.Next() {
			p := c.Point()
			for _, q := range c.Forward() {
				if !yield(p, q) {
					return
				}
			}
		}
	}
}
