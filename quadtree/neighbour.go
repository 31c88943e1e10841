package quadtree

// Location codes use two bits per level, so a uint64 bounds the tree depth.
const maxLevel = 31

// Canonical move vectors in location-code form for the three directions
// whose value does not depend on the mask width.
const (
	moveEast      = 1
	moveNorth     = 2
	moveNorthEast = 3
)

// moveTable holds the per-tree state of the same-level neighbour
// arithmetic: the x and y digit masks and the derived backward moves,
// extended lazily to the deepest level this tree has ever seen. Keeping it
// on the tree rather than in a process-wide singleton makes independent
// trees safe to use from different goroutines.
type moveTable struct {
	level int

	// x has every base-4 digit set to 1, y to 2, for digits 0..level.
	x, y uint64

	west, south         uint64
	northwest           uint64
	southwest, southeast uint64
}

func (t *moveTable) extend(level int) {
	if t.x == 0 {
		t.x, t.y = 1, 2
	}
	for t.level < level {
		t.level++
		t.x = t.x<<2 | 1
		t.y = t.y<<2 | 2
	}
	t.west = t.x
	t.south = t.y
	t.northwest = moveNorth + t.west
	t.southwest = t.south + t.west
	t.southeast = t.south + moveEast
}

func (t *moveTable) move(dir Direction) uint64 {
	switch dir {
	case East:
		return moveEast
	case NorthEast:
		return moveNorthEast
	case North:
		return moveNorth
	case NorthWest:
		return t.northwest
	case West:
		return t.west
	case SouthWest:
		return t.southwest
	case South:
		return t.south
	default:
		return t.southeast
	}
}

// sameLevel returns the location code of the same-level neighbour of loc in
// the given direction. The two masked additions run one carry-isolated
// increment per axis, so a carry on the x digits never leaks into the y
// digits and vice versa. The result is meaningful only when the caller
// knows a neighbour exists on that side (delta != outside).
func (t *moveTable) sameLevel(loc uint64, dir Direction, level int) uint64 {
	if level > t.level {
		t.extend(level)
	}
	tx, ty := t.x, t.y
	d := t.move(dir)
	return ((loc|ty)+(d&tx))&tx | ((loc|tx)+(d&ty))&ty
}
