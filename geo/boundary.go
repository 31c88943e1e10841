package geo

const (
	// Multiplicative slack on the half-extents for containment, so that a
	// point sitting exactly on a shared cell edge is accepted by at least
	// one sibling.
	containsSlack = 1.00001

	// Absolute tolerance for the clipping outside-tests.
	clipEpsilon = 1e-4
)

// Boundary is an axis-aligned rectangle described by its center and its
// half-extents.
type Boundary struct {
	CX, CY float64
	HX, HY float64
}

// Contains reports whether the coordinates fall inside the rectangle, with
// a small outward tolerance.
func (b Boundary) Contains(x, y float64) bool {
	return x < b.CX+b.HX*containsSlack &&
		x > b.CX-b.HX*containsSlack &&
		y < b.CY+b.HY*containsSlack &&
		y > b.CY-b.HY*containsSlack
}

// NormL1 returns the sum of the half-extents.
func (b Boundary) NormL1() float64 {
	return b.HX + b.HY
}

// NormInfty returns the smallest half-extent.
func (b Boundary) NormInfty() float64 {
	if b.HX < b.HY {
		return b.HX
	}
	return b.HY
}

// LeftOf reports whether the coordinates lie left of the rectangle.
func (b Boundary) LeftOf(x, _ float64) bool {
	return x < b.CX-b.HX-clipEpsilon
}

// RightOf reports whether the coordinates lie right of the rectangle.
func (b Boundary) RightOf(x, _ float64) bool {
	return x > b.CX+b.HX+clipEpsilon
}

// BottomOf reports whether the coordinates lie below the rectangle.
func (b Boundary) BottomOf(_, y float64) bool {
	return y < b.CY-b.HY-clipEpsilon
}

// UpOf reports whether the coordinates lie above the rectangle.
func (b Boundary) UpOf(_, y float64) bool {
	return y > b.CY+b.HY+clipEpsilon
}

// InterLeft returns the intersection of the segment (x1,y1)-(x2,y2) with
// the left edge of the rectangle.
func (b Boundary) InterLeft(x1, y1, x2, y2 float64) (float64, float64) {
	x := b.CX - b.HX
	return x, y1 + (x-x1)/(x2-x1)*(y2-y1)
}

// InterRight returns the intersection with the right edge.
func (b Boundary) InterRight(x1, y1, x2, y2 float64) (float64, float64) {
	x := b.CX + b.HX
	return x, y1 + (x-x1)/(x2-x1)*(y2-y1)
}

// InterBottom returns the intersection with the bottom edge.
func (b Boundary) InterBottom(x1, y1, x2, y2 float64) (float64, float64) {
	y := b.CY - b.HY
	return x1 + (y-y1)/(y2-y1)*(x2-x1), y
}

// InterUp returns the intersection with the top edge.
func (b Boundary) InterUp(x1, y1, x2, y2 float64) (float64, float64) {
	y := b.CY + b.HY
	return x1 + (y-y1)/(y2-y1)*(x2-x1), y
}

// CoveredBy counts how many of the four corners of the rectangle are inside
// the polygon. Four means the rectangle is entirely covered.
func (b Boundary) CoveredBy(m PolygonMask) int {
	n := 0
	if m.PointInPolygon(b.CX+b.HX, b.CY+b.HY) {
		n++
	}
	if m.PointInPolygon(b.CX+b.HX, b.CY-b.HY) {
		n++
	}
	if m.PointInPolygon(b.CX-b.HX, b.CY+b.HY) {
		n++
	}
	if m.PointInPolygon(b.CX-b.HX, b.CY-b.HY) {
		n++
	}
	return n
}
