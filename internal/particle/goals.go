package particle

// Point is a position or displacement on the [-1,1]² grid.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p shifted by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// goal is one named location on the grid.
type goal struct {
	Name string
	Pos  Point
}

// goals is the fixed table of named locations. Immutable for the
// process lifetime; index order is the sampling order.
var goals = []goal{
	{"top left", Point{-0.5, 0.5}},
	{"top", Point{0, 0.5}},
	{"top right", Point{0.5, 0.5}},
	{"left", Point{-0.5, 0}},
	{"center", Point{0, 0}},
	{"right", Point{0.5, 0}},
	{"bottom left", Point{-0.5, -0.5}},
	{"bottom", Point{0, -0.5}},
	{"bottom right", Point{0.5, -0.5}},
}

// GoalNames returns the names of all grid locations in table order.
func GoalNames() []string {
	names := make([]string, len(goals))
	for i, g := range goals {
		names[i] = g.Name
	}
	return names
}

// GoalPosition returns the coordinates of a named location.
func GoalPosition(name string) (Point, bool) {
	for _, g := range goals {
		if g.Name == name {
			return g.Pos, true
		}
	}
	return Point{}, false
}
