package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/tropicly/labeler/pkg/core"
)

// GEO POINTS
// Samples carry WGS84 degrees (EPSG:4326) with y as latitude and x as longitude.
// Persisted positions are Web Mercator (EPSG:3857) in WKB so that SQLite, which has no
// spatial types, can still round-trip them as plain blobs.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// maxMercatorLat is where EPSG:3857 is clipped.
const maxMercatorLat = 85.05112878

// CoordinateOf returns the map coordinate for a sample. The y field is the
// latitude and the x field the longitude.
func CoordinateOf(s core.Sample) core.Coordinate {
	return core.Coordinate{Lat: s.Y, Lng: s.X}
}

// Validate checks that c is a finite WGS84 position.
func Validate(c core.Coordinate) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return ErrInvalidCoordinates
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// CoordinateFromString parses "lat,lng" into a coordinate.
func CoordinateFromString(coords string) (core.Coordinate, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) != 2 {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	c := core.Coordinate{Lat: lat, Lng: lng}
	return c, Validate(c)
}

// Point4326 builds a geometry point in lon/lat order.
func Point4326(c core.Coordinate) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: c.Lng, Y: c.Lat},
			Type: geom.DimXY,
		},
	)
}

// Coords3857From4326 creates a Web Mercator point from a longitude and latitude.
// Latitudes beyond the Mercator limit are clamped.
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if err := Validate(core.Coordinate{Lat: latitude, Lng: longitude}); err != nil {
		return geom.NewEmptyPoint(geom.DimXY), err
	}
	latitude = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, latitude))

	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point = geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
	return point, nil
}

// SampleWKB returns the sample position as Web Mercator WKB.
// Samples outside the WGS84 range yield an empty point.
func SampleWKB(s core.Sample) []byte {
	c := CoordinateOf(s)
	point, err := Coords3857From4326(c.Lng, c.Lat)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY).AsBinary()
	}
	return point.AsBinary()
}

// BBox is the bounding box of a set of samples in degrees.
type BBox struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
	Empty          bool
}

// Bounds returns the bounding box of every sample in the set.
func Bounds(samples []core.Sample) BBox {
	if len(samples) == 0 {
		return BBox{Empty: true}
	}
	b := BBox{
		MinLat: math.Inf(1), MinLng: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLng: math.Inf(-1),
	}
	for _, s := range samples {
		c := CoordinateOf(s)
		b.MinLat = math.Min(b.MinLat, c.Lat)
		b.MaxLat = math.Max(b.MaxLat, c.Lat)
		b.MinLng = math.Min(b.MinLng, c.Lng)
		b.MaxLng = math.Max(b.MaxLng, c.Lng)
	}
	return b
}

// Center returns the midpoint of the box.
func (b BBox) Center() core.Coordinate {
	if b.Empty {
		return core.Coordinate{}
	}
	return core.Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lng: (b.MinLng + b.MaxLng) / 2,
	}
}
