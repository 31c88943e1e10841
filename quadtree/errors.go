package quadtree

// Error types attached to the errors returned by Tree operations, for use
// with errors.IsType and errors.Type.
const (
	// ErrTypeOutOfBounds marks an insertion whose coordinates fall outside
	// the root boundary.
	ErrTypeOutOfBounds = "point_out_of_bounds"

	// ErrTypeNotIndexed marks a remove or update on a point the locator
	// does not know, including an update that moved the point out of the
	// indexed area.
	ErrTypeNotIndexed = "point_not_indexed"

	// ErrTypeDepthExhausted marks a subdivision that would exceed the
	// maximum tree depth. Installing a size floor is the supported way to
	// keep pathological distributions away from the ceiling.
	ErrTypeDepthExhausted = "tree_depth_exhausted"
)
