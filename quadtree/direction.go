package quadtree

// Direction is one of the eight compass directions, three bits, counted
// counterclockwise from east.
type Direction uint8

const (
	East Direction = iota
	NorthEast
	North
	NorthWest
	West
	SouthWest
	South
	SouthEast
)

// Opposite returns the direction rotated by half a turn.
func (d Direction) Opposite() Direction {
	return (d + 4) & 7
}

func (d Direction) String() string {
	switch d {
	case East:
		return "east"
	case NorthEast:
		return "northeast"
	case North:
		return "north"
	case NorthWest:
		return "northwest"
	case West:
		return "west"
	case SouthWest:
		return "southwest"
	case South:
		return "south"
	default:
		return "southeast"
	}
}
