// pkg/core/marker.go
package core

// Coordinate is a WGS84 position as consumed by the map widget.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Marker is a handle to a marker drawn on the map.
// A zero ID means no marker.
type Marker struct {
	ID       uint64
	Position Coordinate
}

// Drawn reports whether the handle refers to a live marker.
func (m Marker) Drawn() bool {
	return m.ID != 0
}
