package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSON(t *testing.T) {
	events := []Event{Bounce(SideLeft), Collision(0, 1), Bounce(SideBottom)}

	data, err := json.Marshal(events)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"type":"boundary_bounce","side":"left"},
		{"type":"collision","i":0,"j":1},
		{"type":"boundary_bounce","side":"bottom"}
	]`, string(data))

	var back []Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, events, back)
}

func TestEventJSONRejectsUnknown(t *testing.T) {
	var e Event
	assert.Error(t, json.Unmarshal([]byte(`{"type":"explosion"}`), &e))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"boundary_bounce","side":"up"}`), &e))

	_, err := json.Marshal(Event{Kind: "explosion"})
	assert.Error(t, err)
}

func TestCount(t *testing.T) {
	bounces, collisions := Count([]Event{Bounce(SideTop), Collision(1, 2), Bounce(SideLeft)})
	assert.Equal(t, 2, bounces)
	assert.Equal(t, 1, collisions)
	assert.Equal(t, "collision(1,2)", Collision(1, 2).String())
	assert.Equal(t, "boundary_bounce(top)", Bounce(SideTop).String())
}
