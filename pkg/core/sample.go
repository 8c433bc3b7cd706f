// pkg/core/sample.go
package core

import "time"

// Well-known column names. Any other header is carried in Sample.Extra.
const (
	ColumnX          = "x"
	ColumnY          = "y"
	ColumnLabel      = "label"
	ColumnValidation = "validation"
)

// DefaultColumns is the header used when a set was built without one.
var DefaultColumns = []string{ColumnX, ColumnY, ColumnLabel}

// Sample is a single point to be labeled.
// Y is the latitude and X the longitude.
type Sample struct {
	X          float64
	Y          float64
	Label      string
	Validation string
	Extra      map[string]string
}

// SampleSet is an ordered list of samples plus the header it was loaded with.
type SampleSet struct {
	Columns []string
	Samples []Sample
}

// Len returns the number of samples.
func (s *SampleSet) Len() int {
	return len(s.Samples)
}

// HasColumn reports whether name is part of the header.
func (s *SampleSet) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// EnsureColumn appends name to the header if it is missing.
func (s *SampleSet) EnsureColumn(name string) {
	if len(s.Columns) == 0 {
		s.Columns = append([]string(nil), DefaultColumns...)
	}
	if !s.HasColumn(name) {
		s.Columns = append(s.Columns, name)
	}
}

// Clone returns a deep copy so callers can hand the set to another goroutine.
func (s *SampleSet) Clone() SampleSet {
	out := SampleSet{
		Columns: append([]string(nil), s.Columns...),
		Samples: make([]Sample, len(s.Samples)),
	}
	for i, smp := range s.Samples {
		out.Samples[i] = smp
		if smp.Extra != nil {
			out.Samples[i].Extra = make(map[string]string, len(smp.Extra))
			for k, v := range smp.Extra {
				out.Samples[i].Extra[k] = v
			}
		}
	}
	return out
}

// Snapshot is a point-in-time copy of a labeling session.
type Snapshot struct {
	FileName string
	Cursor   int
	Set      SampleSet
	SavedAt  time.Time
}
