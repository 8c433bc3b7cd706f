package geo

import (
	"errors"
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/tropicly/labeler/pkg/core"
)

func TestCoordinateOf_YIsLatitude(t *testing.T) {
	c := CoordinateOf(core.Sample{X: 13.4, Y: 52.5})

	if c.Lat != 52.5 {
		t.Errorf("expected Lat=52.5, got %f", c.Lat)
	}
	if c.Lng != 13.4 {
		t.Errorf("expected Lng=13.4, got %f", c.Lng)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		coord   core.Coordinate
		wantErr bool
	}{
		{"origin", core.Coordinate{}, false},
		{"corners", core.Coordinate{Lat: -90, Lng: 180}, false},
		{"lat too high", core.Coordinate{Lat: 90.1, Lng: 0}, true},
		{"lng too low", core.Coordinate{Lat: 0, Lng: -180.5}, true},
		{"nan", core.Coordinate{Lat: math.NaN(), Lng: 0}, true},
		{"inf", core.Coordinate{Lat: 0, Lng: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.coord)
			if tt.wantErr && !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCoordinateFromString(t *testing.T) {
	c, err := CoordinateFromString("10.5, -20.25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Lat != 10.5 || c.Lng != -20.25 {
		t.Errorf("unexpected coordinate %+v", c)
	}

	for _, in := range []string{"", "1", "1,2,3", "a,2", "1,b", "91,0"} {
		if _, err := CoordinateFromString(in); !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("input %q: expected ErrInvalidCoordinates, got %v", in, err)
		}
	}
}

func TestPoint4326_LonLatOrder(t *testing.T) {
	p := Point4326(core.Coordinate{Lat: 1, Lng: 2})

	coords, ok := p.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != 2 || coords.Y != 1 {
		t.Errorf("expected X=2 Y=1, got X=%f Y=%f", coords.X, coords.Y)
	}
}

func TestCoords3857From4326_Origin(t *testing.T) {
	p, err := Coords3857From4326(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords, ok := p.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if math.Abs(coords.X) > 1e-6 || math.Abs(coords.Y) > 1e-6 {
		t.Errorf("expected origin, got X=%f Y=%f", coords.X, coords.Y)
	}
}

func TestCoords3857From4326_KnownPoint(t *testing.T) {
	p, err := Coords3857From4326(180, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords, _ := p.Coordinates()
	if math.Abs(coords.X-20037508.34) > 1 {
		t.Errorf("expected X≈20037508.34, got %f", coords.X)
	}
}

func TestCoords3857From4326_ClampsPoles(t *testing.T) {
	p, err := Coords3857From4326(0, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords, _ := p.Coordinates()
	if math.IsInf(coords.Y, 0) || math.IsNaN(coords.Y) {
		t.Errorf("expected finite Y at the pole, got %f", coords.Y)
	}
}

func TestCoords3857From4326_Invalid(t *testing.T) {
	p, err := Coords3857From4326(200, 0)
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
	if !p.IsEmpty() {
		t.Error("expected empty point")
	}
}

func TestSampleWKB_RoundTrip(t *testing.T) {
	wkb := SampleWKB(core.Sample{X: 10, Y: 20})

	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Type() != geom.TypePoint {
		t.Fatalf("expected point, got %s", g.Type())
	}
	coords, ok := g.MustAsPoint().Coordinates()
	if !ok {
		t.Fatal("expected non-empty point")
	}
	if coords.X <= 0 || coords.Y <= 0 {
		t.Errorf("expected positive mercator coords, got %+v", coords.XY)
	}
}

func TestBounds(t *testing.T) {
	b := Bounds([]core.Sample{{X: 10, Y: -5}, {X: -20, Y: 15}, {X: 0, Y: 0}})

	if b.Empty {
		t.Fatal("expected non-empty box")
	}
	if b.MinLng != -20 || b.MaxLng != 10 || b.MinLat != -5 || b.MaxLat != 15 {
		t.Errorf("unexpected box %+v", b)
	}
	c := b.Center()
	if c.Lat != 5 || c.Lng != -5 {
		t.Errorf("unexpected center %+v", c)
	}
}

func TestBounds_Empty(t *testing.T) {
	b := Bounds(nil)
	if !b.Empty {
		t.Error("expected empty box")
	}
	if b.Center() != (core.Coordinate{}) {
		t.Error("expected zero center for empty box")
	}
}
