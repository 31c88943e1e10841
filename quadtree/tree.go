package quadtree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/smartquad/geo"
	"github.com/google/uuid"
)

// Coord2D exposes the planar coordinates of an indexed element. Both
// projections must be pure: the index reads them repeatedly.
type Coord2D interface {
	X() float64
	Y() float64
}

// Elem constrains indexed payloads: planar coordinates plus a comparable
// identity for the locator map. Pointer payloads satisfy it naturally.
type Elem interface {
	Coord2D
	comparable
}

// Tree is an adaptive quadtree over a rectangular region. Cells subdivide
// when they exceed the capacity, unless a size floor holds on them, and a
// subdivision is never undone. Same-level neighbours are resolved in
// constant time from location codes, which keeps traversals linear in the
// number of points.
//
// A Tree is not safe for concurrent use.
type Tree[T Elem] struct {
	id        string
	capacity  int
	sizeFloor func(geo.Boundary) bool

	moves moveTable
	where map[T]*node[T]
	root  *node[T]

	leafHead, leafTail *node[T]
	leafCount          int
}

// New returns an empty tree centered on (cx, cy) with half-dimensions hx and
// hy. capacity is the number of points a cell holds before it subdivides.
func New[T Elem](cx, cy, hx, hy float64, capacity int) *Tree[T] {
	t := &Tree[T]{
		id:       uuid.NewString(),
		capacity: capacity,
		where:    make(map[T]*node[T]),
	}
	t.moves.extend(0)
	t.root = &node[T]{
		tree:     t,
		boundary: geo.Boundary{CX: cx, CY: cy, HX: hx, HY: hy},
		delta: [8]adjacency{
			adjOutside, adjOutside, adjOutside, adjOutside,
			adjOutside, adjOutside, adjOutside, adjOutside,
		},
	}
	t.leafHead = t.root
	t.leafTail = t.root
	t.leafCount = 1
	return t
}

// ID returns the identifier used to label this tree's metrics and logs.
func (t *Tree[T]) ID() string {
	return t.id
}

// Bounds returns the root boundary.
func (t *Tree[T]) Bounds() geo.Boundary {
	return t.root.boundary
}

// Capacity returns the per-cell point capacity.
func (t *Tree[T]) Capacity() int {
	return t.capacity
}

// SetSizeFloor installs (or, with nil, clears) the predicate that forbids
// subdividing the cells it holds on. Such cells accept points past the
// capacity. The verdict is recomputed for every existing cell, but cells
// already subdivided stay subdivided.
func (t *Tree[T]) SetSizeFloor(floor func(geo.Boundary) bool) {
	t.sizeFloor = floor
	t.root.refreshLimit()
}

// Insert indexes p. It fails with ErrTypeOutOfBounds when p lies outside
// the root boundary and with ErrTypeDepthExhausted when the insertion would
// subdivide past the maximum depth.
func (t *Tree[T]) Insert(p T) error {
	ok, err := t.root.insert(p)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("point is outside the indexed area").
			WithType(ErrTypeOutOfBounds).
			WithTag("tree_id", t.id).
			WithTag("x", p.X()).
			WithTag("y", p.Y())
	}
	instrumentInsert(t.id)
	return nil
}

// Remove drops p from the index. The leaf frontier keeps its shape.
func (t *Tree[T]) Remove(p T) error {
	n, ok := t.where[p]
	if !ok {
		return errors.New("point is not indexed").
			WithType(ErrTypeNotIndexed).
			WithTag("tree_id", t.id)
	}
	n.removePoint(p)
	delete(t.where, p)
	instrumentRemoval(t.id)
	return nil
}

// Update signals that p's coordinates changed in place. It re-homes p when
// it crossed a leaf boundary and reports whether it did. A point that moved
// outside the root boundary is dropped from the index and the call fails
// with ErrTypeNotIndexed.
func (t *Tree[T]) Update(p T) (bool, error) {
	n, ok := t.where[p]
	if !ok {
		return false, errors.New("point is not indexed").
			WithType(ErrTypeNotIndexed).
			WithTag("tree_id", t.id)
	}
	if n.boundary.Contains(p.X(), p.Y()) {
		return false, nil
	}
	n.removePoint(p)
	moved, err := t.root.insert(p)
	if err != nil {
		delete(t.where, p)
		return true, err
	}
	if !moved {
		delete(t.where, p)
		return true, errors.New("point has left the indexed area").
			WithType(ErrTypeNotIndexed).
			WithTag("tree_id", t.id).
			WithTag("x", p.X()).
			WithTag("y", p.Y())
	}
	instrumentRelocation(t.id)
	return true, nil
}

// Contains reports whether p is currently indexed.
func (t *Tree[T]) Contains(p T) bool {
	_, ok := t.where[p]
	return ok
}

// Len returns the number of indexed points.
func (t *Tree[T]) Len() int {
	return len(t.where)
}

// Leaves returns the number of cells on the leaf frontier.
func (t *Tree[T]) Leaves() int {
	return t.leafCount
}

// Depth returns the depth of the deepest leaf.
func (t *Tree[T]) Depth() int {
	return t.root.depth()
}

// MaxLeafSize returns the point count of the fullest leaf.
func (t *Tree[T]) MaxLeafSize() int {
	max := 0
	for l := t.leafHead; l != nil; l = l.next {
		if len(l.points) > max {
			max = len(l.points)
		}
	}
	return max
}

// quadrantAt descends from the root along the low 2*depth bits of loc and
// returns the cell at that location, or its nearest existing ancestor when
// the descent runs out of children.
func (t *Tree[T]) quadrantAt(loc uint64, depth int) *node[T] {
	var digits [maxLevel]uint8
	for i := 0; i < depth; i++ {
		digits[i] = uint8(loc & 3)
		loc >>= 2
	}
	n := t.root
	for i := depth - 1; i >= 0; i-- {
		c := n.children[digits[i]]
		if c == nil {
			return n
		}
		n = c
	}
	return n
}

// replaceLeaf splices the four fresh children of n into the leaf frontier
// in n's place, preserving the Morton order of the list.
func (t *Tree[T]) replaceLeaf(n *node[T]) {
	for i := 0; i < 3; i++ {
		n.children[i].next = n.children[i+1]
		n.children[i+1].prev = n.children[i]
	}
	first, last := n.children[0], n.children[3]

	first.prev = n.prev
	last.next = n.next
	if n.prev != nil {
		n.prev.next = first
	} else {
		t.leafHead = first
	}
	if n.next != nil {
		n.next.prev = last
	} else {
		t.leafTail = last
	}
	n.prev = nil
	n.next = nil
	t.leafCount += 3
}

// locationAfter reports whether cell (locA, levA) comes after (locB, levB)
// in the Morton order of the leaf frontier. Codes are left-aligned to a
// common depth first; comparing raw codes of different depths mis-orders
// shallow cells against deep ones.
func locationAfter(locA uint64, levA int, locB uint64, levB int) bool {
	if levA < levB {
		locA <<= uint(2 * (levB - levA))
	} else {
		locB <<= uint(2 * (levA - levB))
	}
	return locA > locB
}
