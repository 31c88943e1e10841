package geo

// PolygonMask is an arbitrary, possibly non-convex 2D polygon used to
// restrict traversals to the points it contains. Construction precomputes
// per-edge coefficients so that the point-in-polygon test stays branch-light
// (see http://alienryderflex.com/polygon/).
type PolygonMask struct {
	x, y               []float64
	constant, multiple []float64
}

// NewPolygonMask returns a mask over the vertices (xs[i], ys[i]). Both
// slices must have the same length.
func NewPolygonMask(xs, ys []float64) PolygonMask {
	m := PolygonMask{
		x:        xs,
		y:        ys,
		constant: make([]float64, len(xs)),
		multiple: make([]float64, len(xs)),
	}

	j := len(xs) - 1
	for i := range xs {
		if ys[j] == ys[i] {
			m.constant[i] = xs[i]
			m.multiple[i] = 0
		} else {
			m.constant[i] = xs[i] -
				(ys[i]*xs[j])/(ys[j]-ys[i]) +
				(ys[i]*xs[i])/(ys[j]-ys[i])
			m.multiple[i] = (xs[j] - xs[i]) / (ys[j] - ys[i])
		}
		j = i
	}
	return m
}

// Size returns the number of vertices.
func (m PolygonMask) Size() int {
	return len(m.x)
}

// Vertex returns the i-th vertex.
func (m PolygonMask) Vertex(i int) (float64, float64) {
	return m.x[i], m.y[i]
}

// PointInPolygon reports whether (x, y) is inside the polygon, using the
// horizontal-ray parity test with the precomputed coefficients.
func (m PolygonMask) PointInPolygon(x, y float64) bool {
	odd := false
	j := len(m.x) - 1
	for i := range m.x {
		if (m.y[i] < y && m.y[j] >= y) || (m.y[j] < y && m.y[i] >= y) {
			if y*m.multiple[i]+m.constant[i] < x {
				odd = !odd
			}
		}
		j = i
	}
	return odd
}

// Clip returns the polygon clipped by the four half-planes of the box,
// one Sutherland-Hodgman pass per edge. A result with fewer than three
// vertices means the intersection is empty.
func (m PolygonMask) Clip(b Boundary) PolygonMask {
	outside := [4]func(float64, float64) bool{
		b.LeftOf, b.RightOf, b.BottomOf, b.UpOf,
	}
	intersect := [4]func(float64, float64, float64, float64) (float64, float64){
		b.InterLeft, b.InterRight, b.InterBottom, b.InterUp,
	}

	xout := append([]float64(nil), m.x...)
	yout := append([]float64(nil), m.y...)

	for i := 0; i < 4; i++ {
		xin, yin := xout, yout
		if len(xin) == 0 {
			break
		}
		xout, yout = nil, nil

		xfrom, yfrom := xin[len(xin)-1], yin[len(yin)-1]
		for k := range xin {
			xp, yp := xin[k], yin[k]
			if !outside[i](xp, yp) {
				if outside[i](xfrom, yfrom) {
					ix, iy := intersect[i](xfrom, yfrom, xp, yp)
					// Skip zero-length edges from polygons tangent to the box.
					if ix != xp || iy != yp {
						xout = append(xout, ix)
						yout = append(yout, iy)
					}
				}
				xout = append(xout, xp)
				yout = append(yout, yp)
			} else if !outside[i](xfrom, yfrom) {
				ix, iy := intersect[i](xfrom, yfrom, xp, yp)
				if ix != xfrom || iy != yfrom {
					xout = append(xout, ix)
					yout = append(yout, iy)
				}
			}
			xfrom, yfrom = xp, yp
		}
	}

	return NewPolygonMask(xout, yout)
}
