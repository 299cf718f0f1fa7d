// Package course holds the closed waypoint loop that vehicles follow and the
// geometric queries used to locate a vehicle on it.
package course

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cargoloop/simcore/internal/geo"
	"github.com/cargoloop/simcore/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
)

var (
	// ErrNoIndex is reported for a waypoint whose name carries no number.
	ErrNoIndex = errors.New("waypoint name has no index")
	// ErrDuplicateIndex is reported when several waypoints share a number.
	ErrDuplicateIndex = errors.New("duplicate waypoint index")
	// ErrNoWaypoints is reported when no usable waypoint remains.
	ErrNoWaypoints = errors.New("no valid waypoints found")
	// ErrNoPath is returned by queries on an empty course.
	ErrNoPath = errors.New("no path available")
)

// WP_000 -> 000
var indexRegex = regexp.MustCompile(`\d+`)

// Course is an immutable, index-ordered loop of waypoints. The last segment
// connects back to the first waypoint.
type Course struct {
	waypoints []core.Waypoint
	issues    []error
}

// Build orders the candidates by the number embedded in their names. Data
// problems are logged and collected in Issues; they never fail the build.
func Build(candidates []core.Waypoint, logger *slog.Logger) *Course {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Course{}

	indexMap := make(map[int][]core.Waypoint)
	for _, wp := range candidates {
		index, ok := ExtractIndex(wp.Name)
		if !ok {
			err := fmt.Errorf("%w: %s", ErrNoIndex, wp.Name)
			logger.Error("Waypoint skipped", "error", err)
			c.issues = append(c.issues, err)
			continue
		}
		indexMap[index] = append(indexMap[index], wp)
	}

	keys := make([]int, 0, len(indexMap))
	for k := range indexMap {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, key := range keys {
		group := indexMap[key]
		if len(group) > 1 {
			names := make([]string, len(group))
			for i, wp := range group {
				names[i] = wp.Name
			}
			err := fmt.Errorf("%w %d: %s", ErrDuplicateIndex, key, strings.Join(names, ", "))
			logger.Error("Duplicate waypoint index, keeping first", "error", err)
			c.issues = append(c.issues, err)
		}
		c.waypoints = append(c.waypoints, group[0])
	}

	if len(c.waypoints) == 0 {
		logger.Error("Course is empty", "error", ErrNoWaypoints)
		c.issues = append(c.issues, ErrNoWaypoints)
	}

	return c
}

// ExtractIndex returns the first run of decimal digits in name.
func ExtractIndex(name string) (int, bool) {
	match := indexRegex.FindString(name)
	if match == "" {
		return 0, false
	}
	index, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return index, true
}

// Issues returns the data errors reported while building.
func (c *Course) Issues() []error {
	return append([]error(nil), c.issues...)
}

// Empty reports whether the course has no waypoints.
func (c *Course) Empty() bool {
	return len(c.waypoints) == 0
}

// Len returns the number of waypoints.
func (c *Course) Len() int {
	return len(c.waypoints)
}

// Waypoints returns a copy of the ordered waypoints.
func (c *Course) Waypoints() []core.Waypoint {
	return append([]core.Waypoint(nil), c.waypoints...)
}

// Waypoint returns the position of waypoint i, wrapping around the loop. An
// empty course yields the zero vector.
func (c *Course) Waypoint(i int) mgl64.Vec3 {
	if c.Empty() {
		return mgl64.Vec3{}
	}
	return c.waypoints[c.wrap(i)].Position
}

// Next steps from index i by dir (+1 or -1), wrapping at both ends. An empty
// course always yields 0.
func (c *Course) Next(i, dir int) int {
	return c.wrap(i + dir)
}

func (c *Course) wrap(i int) int {
	n := len(c.waypoints)
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}

// NearestSegment returns the index i of the segment (i, i+1) closest to p.
// The first index wins ties.
func (c *Course) NearestSegment(p mgl64.Vec3) (int, error) {
	if c.Empty() {
		return 0, ErrNoPath
	}

	minDist := -1.0
	nearest := 0
	for i := range c.waypoints {
		a := c.waypoints[i].Position
		b := c.Waypoint(i + 1)
		closest, _ := geo.ClosestPointOnSegment(a, b, p)
		dist := geo.Distance(p, closest)
		if minDist < 0 || dist < minDist {
			minDist = dist
			nearest = i
		}
	}
	return nearest, nil
}

// NearestIndex returns the index of the waypoint closest to p.
func (c *Course) NearestIndex(p mgl64.Vec3) (int, error) {
	if c.Empty() {
		return 0, ErrNoPath
	}

	minDist := -1.0
	nearest := 0
	for i, wp := range c.waypoints {
		dist := geo.Distance(p, wp.Position)
		if minDist < 0 || dist < minDist {
			minDist = dist
			nearest = i
		}
	}
	return nearest, nil
}

// SegmentDirection is the unit vector from waypoint i to waypoint i+1.
func (c *Course) SegmentDirection(i int) (mgl64.Vec3, error) {
	if c.Empty() {
		return mgl64.Vec3{}, ErrNoPath
	}
	return geo.Direction(c.Waypoint(i), c.Waypoint(i+1)), nil
}

// LineString exports the loop for persistence.
func (c *Course) LineString() geom.LineString {
	points := make([]mgl64.Vec3, len(c.waypoints))
	for i, wp := range c.waypoints {
		points[i] = wp.Position
	}
	return geo.LoopLineString(points)
}
