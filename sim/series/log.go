package series

// Kind names what caused a point to be logged.
type Kind string

const (
	KindRequest Kind = "request"
	KindStart   Kind = "start"
	KindRelease Kind = "release"
)

// Point is one raw observation: the metric value at a simulated time.
type Point struct {
	Time  float64
	Value float64
	Kind  Kind
}

// Log is an append-only, chronologically ordered sequence of points.
type Log struct {
	points []Point
}

// Append records value at time t.
func (l *Log) Append(t, value float64, kind Kind) {
	l.points = append(l.points, Point{Time: t, Value: value, Kind: kind})
}

// Len returns the number of recorded points.
func (l *Log) Len() int {
	return len(l.points)
}

// Points returns a copy of the recorded points.
func (l *Log) Points() []Point {
	out := make([]Point, len(l.points))
	copy(out, l.points)
	return out
}

// Ratio divides every value by denom and rounds the result to 2 decimals.
// Used to turn occupancy counts into utilization fractions.
func Ratio(points []Point, denom float64) []Point {
	out := make([]Point, len(points))
	for i, pt := range points {
		out[i] = Point{Time: pt.Time, Value: Round(pt.Value/denom, 2), Kind: pt.Kind}
	}
	return out
}
