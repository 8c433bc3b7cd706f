package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicly/labeler/pkg/core"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "label_sessions", (&LabelSession{}).TableName())
	assert.Equal(t, "labeled_samples", (&LabeledSample{}).TableName())
}

func TestSessionFromSnapshot_RoundTrip(t *testing.T) {
	snap := core.Snapshot{
		FileName: "samples.csv",
		Cursor:   1,
		SavedAt:  time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
		Set: core.SampleSet{
			Columns: []string{"label", "row", "col", "x", "y", "validation"},
			Samples: []core.Sample{
				{X: 1, Y: 2, Label: "80", Extra: map[string]string{"row": "1", "col": "0"}},
				{X: 3, Y: 4, Label: "50", Validation: "ok", Extra: map[string]string{"row": "0", "col": "1"}},
			},
		},
	}

	session, err := SessionFromSnapshot(snap)
	require.NoError(t, err)

	assert.Equal(t, 2, session.Total)
	assert.Equal(t, 1, session.Validated)
	require.Len(t, session.Samples, 2)
	assert.Equal(t, 1, session.Samples[1].Index)
	assert.Equal(t, "1", session.Samples[0].Extra["row"])

	back, err := session.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, back)
}

func TestBeforeSave_SetsPosition(t *testing.T) {
	row := &LabeledSample{X: 10, Y: 20}
	require.NoError(t, row.BeforeSave(nil))
	assert.NotEmpty(t, row.Position)
}
