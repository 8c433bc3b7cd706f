package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	data, err := Marshal(TypeDrawMarker, MarkerPayload{ID: 3, Lat: 10.5, Lng: -20})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"draw_marker","payload":{"id":3,"lat":10.5,"lng":-20}}`, string(data))

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	var p MarkerPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, uint64(3), p.ID)
}

func TestMarshal_Error(t *testing.T) {
	_, err := Marshal(TypeLabel, make(chan int))
	assert.ErrorContains(t, err, "marshal label payload")
}
