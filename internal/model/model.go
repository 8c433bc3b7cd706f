package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tropicly/labeler/internal/geo"
	"github.com/tropicly/labeler/pkg/core"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&LabelSession{},
	&LabeledSample{},
}

// LabelSession is one saved labeling session, keyed by the file it was loaded from.
type LabelSession struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	SavedAt   time.Time `json:"savedAt" gorm:"index"`
	FileName  string    `json:"fileName" gorm:"size:255;uniqueIndex"`
	// Columns is the header order as a JSON array
	Columns   datatypes.JSON  `json:"columns"`
	Cursor    int             `json:"cursor"`
	Total     int             `json:"total"`
	Validated int             `json:"validated"`
	Samples   []LabeledSample `json:"samples" gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE;"`
}

// TableName overrides the default plural table name.
func (*LabelSession) TableName() string {
	return "label_sessions"
}

// LabeledSample is a single sample row of a session.
type LabeledSample struct {
	ID         uint              `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID  uint              `json:"sessionId" gorm:"index:idx_session_index,priority:1"`
	Index      int               `json:"index" gorm:"column:sample_index;index:idx_session_index,priority:2"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Label      string            `json:"label" gorm:"size:255"`
	Validation string            `json:"validation" gorm:"size:255"`
	Extra      datatypes.JSONMap `json:"extra"`
	// Position is EPSG:3857 WKB
	Position []byte `json:"-"`
}

// TableName overrides the default plural table name.
func (*LabeledSample) TableName() string {
	return "labeled_samples"
}

// BeforeSave keeps the projected position in sync with x/y.
func (s *LabeledSample) BeforeSave(tx *gorm.DB) error {
	s.Position = geo.SampleWKB(core.Sample{X: s.X, Y: s.Y})
	return nil
}

// SessionFromSnapshot converts a snapshot into rows.
func SessionFromSnapshot(snap core.Snapshot) (LabelSession, error) {
	columns, err := json.Marshal(snap.Set.Columns)
	if err != nil {
		return LabelSession{}, fmt.Errorf("failed to marshal columns: %w", err)
	}

	session := LabelSession{
		SavedAt:  snap.SavedAt,
		FileName: snap.FileName,
		Columns:  datatypes.JSON(columns),
		Cursor:   snap.Cursor,
		Total:    snap.Set.Len(),
		Samples:  make([]LabeledSample, len(snap.Set.Samples)),
	}
	for i, s := range snap.Set.Samples {
		if s.Validation != "" {
			session.Validated++
		}
		row := LabeledSample{
			Index:      i,
			X:          s.X,
			Y:          s.Y,
			Label:      s.Label,
			Validation: s.Validation,
		}
		if len(s.Extra) > 0 {
			row.Extra = make(datatypes.JSONMap, len(s.Extra))
			for k, v := range s.Extra {
				row.Extra[k] = v
			}
		}
		session.Samples[i] = row
	}
	return session, nil
}

// Snapshot converts rows back into a snapshot. Samples must be ordered by Index.
func (s *LabelSession) Snapshot() (core.Snapshot, error) {
	var columns []string
	if len(s.Columns) > 0 {
		if err := json.Unmarshal(s.Columns, &columns); err != nil {
			return core.Snapshot{}, fmt.Errorf("failed to unmarshal columns: %w", err)
		}
	}

	snap := core.Snapshot{
		FileName: s.FileName,
		Cursor:   s.Cursor,
		SavedAt:  s.SavedAt,
		Set: core.SampleSet{
			Columns: columns,
			Samples: make([]core.Sample, len(s.Samples)),
		},
	}
	for i, row := range s.Samples {
		smp := core.Sample{
			X:          row.X,
			Y:          row.Y,
			Label:      row.Label,
			Validation: row.Validation,
		}
		if len(row.Extra) > 0 {
			smp.Extra = make(map[string]string, len(row.Extra))
			for k, v := range row.Extra {
				smp.Extra[k] = fmt.Sprint(v)
			}
		}
		snap.Set.Samples[i] = smp
	}
	return snap, nil
}
