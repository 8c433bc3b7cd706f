// Package navigator holds the labeling session state: the loaded samples, the
// cursor into them and the marker currently drawn for the cursor.
//
// The Navigator never talks to a widget directly. Every state change that
// should be visible goes out through the MapView and Display interfaces, so
// the state machine can be driven from HTTP handlers, the CLI or tests alike.
// A Navigator is not safe for concurrent use; callers serialize access.
package navigator

import (
	"log/slog"

	"github.com/tropicly/labeler/internal/geo"
	"github.com/tropicly/labeler/internal/samplecsv"
	"github.com/tropicly/labeler/pkg/core"
)

// Unset is the cursor value before the first sample is shown.
const Unset = -1

// MapView draws the marker for the current sample.
type MapView interface {
	DrawMarkerAt(c core.Coordinate) core.Marker
	ClearMarker(m core.Marker)
	CenterOn(c core.Coordinate)
}

// Display shows the fields of the current sample.
type Display interface {
	ShowLabel(label string)
	ShowValidation(validation string)
	ShowProgress(current, total int)
}

// Dependencies holds the collaborators of a Navigator.
type Dependencies struct {
	Map       MapView
	Display   Display
	Logger    *slog.Logger
	Observers []Observer
}

// Navigator owns the sample set, the cursor and the last drawn marker.
type Navigator struct {
	mapView   MapView
	display   Display
	log       *slog.Logger
	observers []Observer

	set      core.SampleSet
	cursor   int
	marker   core.Marker
	fileName string
}

// New creates a Navigator with nothing loaded.
// Nil collaborators are replaced with no-ops.
func New(deps Dependencies) *Navigator {
	n := &Navigator{
		mapView:   deps.Map,
		display:   deps.Display,
		log:       deps.Logger,
		observers: deps.Observers,
		cursor:    Unset,
	}
	if n.mapView == nil {
		n.mapView = nopMap{}
	}
	if n.display == nil {
		n.display = nopDisplay{}
	}
	if n.log == nil {
		n.log = slog.Default()
	}
	return n
}

// Subscribe adds an observer after construction.
func (n *Navigator) Subscribe(o Observer) {
	n.observers = append(n.observers, o)
}

// Load replaces the sample set and resets the cursor. Nothing is shown until
// the first navigation call.
func (n *Navigator) Load(set core.SampleSet, fileName string) {
	n.clearMarker()
	n.set = set
	n.fileName = fileName
	n.cursor = Unset

	n.log.Debug("Loaded samples", "file", fileName, "samples", set.Len(), "columns", set.Columns)
	n.emit(Event{Kind: EventLoaded})
}

// Next moves to the following sample. It does nothing on the last sample or
// when no samples are loaded.
func (n *Navigator) Next() {
	if n.set.Len() == 0 || n.cursor == n.set.Len()-1 {
		return
	}
	n.clearMarker()
	n.cursor++
	n.refreshDisplay()
	n.emit(Event{Kind: EventMoved})
}

// Previous moves to the preceding sample. It does nothing at or before the
// first sample.
func (n *Navigator) Previous() {
	if n.cursor <= 0 {
		return
	}
	n.clearMarker()
	n.cursor--
	n.refreshDisplay()
	n.emit(Event{Kind: EventMoved})
}

// Jump moves straight to index. Out of range indices and the current index
// are ignored.
func (n *Navigator) Jump(index int) {
	if index < 0 || index >= n.set.Len() || index == n.cursor {
		return
	}
	n.clearMarker()
	n.cursor = index
	n.refreshDisplay()
	n.emit(Event{Kind: EventMoved})
}

// EditCurrentValidation sets the validation of the current sample. It is
// ignored while no sample is shown.
func (n *Navigator) EditCurrentValidation(value string) {
	if !n.hasCurrent() {
		return
	}
	n.set.EnsureColumn(core.ColumnValidation)
	n.set.Samples[n.cursor].Validation = value

	n.log.Debug("Validation edited", "index", n.cursor, "value", value)
	n.emit(Event{Kind: EventValidationEdited, Value: value})
}

// EditCurrentLabel sets the label of the current sample. It is ignored while
// no sample is shown.
func (n *Navigator) EditCurrentLabel(value string) {
	if !n.hasCurrent() {
		return
	}
	n.set.EnsureColumn(core.ColumnLabel)
	n.set.Samples[n.cursor].Label = value

	n.log.Debug("Label edited", "index", n.cursor, "value", value)
	n.emit(Event{Kind: EventLabelEdited, Value: value})
}

// ExportCSV serializes every sample, header included, and returns it with
// the name of the loaded file.
func (n *Navigator) ExportCSV() (data []byte, fileName string, err error) {
	data, err = samplecsv.Marshal(n.set)
	if err != nil {
		return nil, "", err
	}
	n.emit(Event{Kind: EventExported})
	return data, n.fileName, nil
}

// Cursor returns the current index, Unset before the first sample.
func (n *Navigator) Cursor() int {
	return n.cursor
}

// Len returns the number of loaded samples.
func (n *Navigator) Len() int {
	return n.set.Len()
}

// FileName returns the name the samples were loaded from.
func (n *Navigator) FileName() string {
	return n.fileName
}

// Marker returns the handle of the marker currently drawn, if any.
func (n *Navigator) Marker() core.Marker {
	return n.marker
}

// Current returns the sample under the cursor.
func (n *Navigator) Current() (core.Sample, bool) {
	if !n.hasCurrent() {
		return core.Sample{}, false
	}
	return n.set.Samples[n.cursor], true
}

// Snapshot copies the session so it can leave the caller's goroutine.
func (n *Navigator) Snapshot() core.Snapshot {
	return core.Snapshot{
		FileName: n.fileName,
		Cursor:   n.cursor,
		Set:      n.set.Clone(),
	}
}

// hasCurrent guards edits. The upper bound cannot be reached through
// Next/Previous/Jump but is kept to match the long-standing guard.
func (n *Navigator) hasCurrent() bool {
	return n.cursor != Unset && n.cursor != n.set.Len() && n.cursor >= 0 && n.cursor < n.set.Len()
}

func (n *Navigator) clearMarker() {
	if !n.marker.Drawn() {
		return
	}
	n.mapView.ClearMarker(n.marker)
	n.marker = core.Marker{}
}

func (n *Navigator) refreshDisplay() {
	s := n.set.Samples[n.cursor]
	pos := geo.CoordinateOf(s)

	n.log.Debug("Showing sample", "index", n.cursor, "lat", pos.Lat, "lng", pos.Lng, "label", s.Label)

	n.marker = n.mapView.DrawMarkerAt(pos)
	n.mapView.CenterOn(pos)
	n.display.ShowLabel(s.Label)
	n.display.ShowValidation(s.Validation)
	n.display.ShowProgress(n.cursor+1, n.set.Len())
}

func (n *Navigator) emit(e Event) {
	e.Cursor = n.cursor
	e.Total = n.set.Len()
	e.FileName = n.fileName
	for _, o := range n.observers {
		o.Observe(e)
	}
}

type nopMap struct{}

func (nopMap) DrawMarkerAt(c core.Coordinate) core.Marker { return core.Marker{ID: 1, Position: c} }
func (nopMap) ClearMarker(core.Marker)                     {}
func (nopMap) CenterOn(core.Coordinate)                    {}

type nopDisplay struct{}

func (nopDisplay) ShowLabel(string)      {}
func (nopDisplay) ShowValidation(string) {}
func (nopDisplay) ShowProgress(int, int) {}
