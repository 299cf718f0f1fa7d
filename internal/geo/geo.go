package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/wroge/wgs84"
)

// Scenario files describe vectors as comma separated strings. World space is
// Y-up with +Z as forward/north, so geo-referenced positions map easting to X,
// elevation to Y and northing to Z.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Vec3FromString parses a string in the format "x,y,z" into a vector.
func Vec3FromString(coords string) (mgl64.Vec3, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 3 {
		return mgl64.Vec3{}, ErrInvalidCoordinates
	}
	var v mgl64.Vec3
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return mgl64.Vec3{}, ErrInvalidCoordinates
		}
		v[i] = f
	}
	return v, nil
}

// LonLatFromString parses a string in the format "long,lat" or "long,lat,elev".
func LonLatFromString(coords string) (lon, lat, elev float64, err error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	if len(parts) == 3 {
		elev, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return 0, 0, 0, ErrInvalidCoordinates
		}
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	return lon, lat, elev, nil
}

// Project3857 converts a WGS84 longitude/latitude into web mercator metres.
func Project3857(longitude, latitude float64) (x, y float64) {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	return x, y
}

// Georeferencer maps WGS84 coordinates into a local world frame whose origin
// is the projection of the first coordinate it saw.
type Georeferencer struct {
	originX, originY float64
	hasOrigin        bool
}

// Local returns the world-space vector for a geographic coordinate.
func (g *Georeferencer) Local(lon, lat, elev float64) mgl64.Vec3 {
	x, y := Project3857(lon, lat)
	if !g.hasOrigin {
		g.originX, g.originY = x, y
		g.hasOrigin = true
	}
	return mgl64.Vec3{x - g.originX, elev, y - g.originY}
}
