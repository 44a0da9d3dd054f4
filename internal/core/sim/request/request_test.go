package request

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simcore/internal/core/sim/engine"
	"github.com/zeusync/simcore/internal/core/sim/metrics"
	"github.com/zeusync/simcore/internal/core/sim/world"
)

const stepLine = `{"op":"step","dt":1,"world":{"width":10,"height":10,"bodies":[{"x":0.5,"y":5,"vx":-1,"vy":0,"r":1,"mass":1}]}}`

func TestDecodeStep(t *testing.T) {
	req, err := Decode([]byte(stepLine))
	require.NoError(t, err)

	step, ok := req.(StepRequest)
	require.True(t, ok, "got %T", req)
	assert.Equal(t, OpStep, step.Op())
	assert.Equal(t, 1.0, step.DT)
	assert.Equal(t, 10.0, step.World.Width)
	require.Len(t, step.World.Bodies, 1)
	assert.Equal(t, -1.0, step.World.Bodies[0].VX)
}

func TestDecodeMetrics(t *testing.T) {
	req, err := Decode([]byte(`{"op":"metrics","world":{"width":1,"height":1,"bodies":[]}}`))
	require.NoError(t, err)

	m, ok := req.(MetricsRequest)
	require.True(t, ok, "got %T", req)
	assert.Equal(t, OpMetrics, m.Op())
	assert.NotNil(t, m.World.Bodies)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":       `{op:step}`,
		"unknown op":     `{"op":"explode","world":{"width":1,"height":1,"bodies":[]}}`,
		"missing world":  `{"op":"metrics"}`,
		"missing dt":     `{"op":"step","world":{"width":1,"height":1,"bodies":[]}}`,
		"string dt":      `{"op":"step","dt":"1","world":{"width":1,"height":1,"bodies":[]}}`,
		"missing mass":   `{"op":"metrics","world":{"width":1,"height":1,"bodies":[{"x":0,"y":0,"vx":0,"vy":0,"r":1}]}}`,
		"bodies object":  `{"op":"metrics","world":{"width":1,"height":1,"bodies":{}}}`,
		"top-level list": `[]`,
		"trailing data":  `{"op":"metrics","world":{"width":1,"height":1,"bodies":[]}} {}`,
	}
	for name, line := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(line))
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestHandleStep(t *testing.T) {
	req, err := Decode([]byte(stepLine))
	require.NoError(t, err)

	res, err := Handle(req)
	require.NoError(t, err)

	step, ok := res.(StepResult)
	require.True(t, ok)
	assert.Equal(t, []engine.Event{engine.Bounce(engine.SideLeft)}, step.Events)
	assert.Equal(t, 1.0, step.World.Bodies[0].X)
	assert.Equal(t, 1.0, step.World.Bodies[0].VX)
}

func TestHandleStepWithoutEventsEncodesEmptyList(t *testing.T) {
	res, err := Handle(StepRequest{World: world.New(10, 10), DT: 1})
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"world":{"width":10,"height":10,"bodies":[]},"events":[]}`, string(data))
}

func TestHandleMetrics(t *testing.T) {
	w := world.New(10, 10, world.Body{X: 5, Y: 5, VX: 2, R: 1, Mass: 3})
	res, err := Handle(MetricsRequest{World: w})
	require.NoError(t, err)
	assert.Equal(t, metrics.Result{Bodies: 1, KineticEnergy: 6}, res)
}

func TestRequestMarshalRoundTrip(t *testing.T) {
	in := StepRequest{World: world.New(4, 4, world.Body{X: 1, Y: 1, R: 1, Mass: 1}), DT: 0.25}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	data, err = json.Marshal(MetricsRequest{World: world.New(1, 1)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"op":"metrics"`)
}
