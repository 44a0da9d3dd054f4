package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simcore/internal/config"
	"github.com/zeusync/simcore/internal/core/events/bus"
	"github.com/zeusync/simcore/internal/core/observability/log"
	"github.com/zeusync/simcore/internal/core/sim/engine"
	"github.com/zeusync/simcore/internal/core/sim/world"
)

func defaults() config.RunnerConfig {
	return config.Default().Runner
}

func headOn() world.Scenario {
	return world.Scenario{
		Name: "head-on",
		World: world.New(10, 10,
			world.Body{X: 4, Y: 5, VX: 1, R: 1, Mass: 1},
			world.Body{X: 6, Y: 5, VX: -1, R: 1, Mass: 1},
		),
		DT:     0.5,
		Frames: 3,
	}
}

func TestRunPublishesEvents(t *testing.T) {
	var collisions []engine.Event
	var sources []string
	frames := 0
	onCollision := func(e bus.Event) error {
		collisions = append(collisions, e.Data().(engine.Event))
		sources = append(sources, e.Source())
		return nil
	}
	onFrame := func(e bus.Event) error {
		frames++
		assert.Equal(t, uint64(frames), e.Frame())
		return nil
	}

	r := New(log.NewNop(), bus.New(), defaults(),
		WithSubscriber(EventCollision, onCollision),
		WithSubscriber(EventFrame, onFrame))
	sc := headOn()
	s, err := r.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, []engine.Event{engine.Collision(0, 1)}, collisions)
	assert.Equal(t, []string{s.RunID}, sources)
	assert.Equal(t, 3, frames)
	assert.Equal(t, 3, s.Frames)
	assert.Equal(t, 1, s.Collisions)
	assert.Equal(t, "head-on", s.Name)
	assert.NotEmpty(t, s.RunID)
	assert.InDelta(t, s.Initial.KineticEnergy, s.Final.KineticEnergy, 1e-9)
	assert.InDelta(t, 0.0, s.Momentum.X, 1e-9)

	// Input world is not touched.
	assert.Equal(t, 4.0, sc.World.Bodies[0].X)

	d, err := ParseDigest(s.Digest)
	require.NoError(t, err)
	assert.Equal(t, s.World.Digest(), d)
}

func TestRunIsDeterministic(t *testing.T) {
	r := New(log.NewNop(), nil, defaults())
	sc := world.Scenario{
		World: world.New(50, 50,
			world.Body{X: 10, Y: 10, VX: 13, VY: 7, R: 2, Mass: 1},
			world.Body{X: 40, Y: 15, VX: -9, VY: 11, R: 3, Mass: 3},
			world.Body{X: 25, Y: 40, VX: 4, VY: -12, R: 1, Mass: 0.5},
		),
		DT:     0.02,
		Frames: 400,
	}

	a, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	b, err := r.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, a.Digest, b.Digest)
	assert.Equal(t, a.Bounces, b.Bounces)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunUsesDefaultFrames(t *testing.T) {
	r := New(log.NewNop(), nil, config.RunnerConfig{Frames: 5, Topic: "sim"})
	sc := headOn()
	sc.Frames = 0

	s, err := r.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Frames)
}

func TestRunNoFrames(t *testing.T) {
	r := New(log.NewNop(), nil, config.RunnerConfig{})
	sc := headOn()
	sc.Frames = 0

	_, err := r.Run(context.Background(), sc)
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestRunTopicIsDroppedAfterRun(t *testing.T) {
	b := bus.New()
	var topic string
	r := New(log.NewNop(), b, defaults(), WithSubscriber(EventFrame, func(e bus.Event) error {
		topic = "sim." + e.Source()
		return nil
	}))

	s, err := r.Run(context.Background(), headOn())
	require.NoError(t, err)

	assert.Equal(t, topic, r.Topic(s.RunID))
	assert.ErrorIs(t, b.DeleteTopic(topic), bus.ErrTopicNotFound)

	m := b.GetMetrics()
	// Per frame: one frame event, plus the single collision on frame 1.
	assert.Equal(t, uint64(4), m.Published)
	assert.Equal(t, uint64(0), m.Errors)
}

func TestRunTopicIsDroppedOnError(t *testing.T) {
	b := bus.New()
	boom := errors.New("boom")
	var topic string
	r := New(log.NewNop(), b, defaults(), WithSubscriber(EventCollision, func(e bus.Event) error {
		topic = "sim." + e.Source()
		return boom
	}))

	_, err := r.Run(context.Background(), headOn())
	require.ErrorIs(t, err, boom)
	assert.ErrorIs(t, b.DeleteTopic(topic), bus.ErrTopicNotFound)
	assert.Equal(t, uint64(1), b.GetMetrics().Errors)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	onFrame := func(e bus.Event) error {
		if e.Frame() == 2 {
			cancel()
		}
		return nil
	}

	r := New(log.NewNop(), nil, defaults(), WithSubscriber(EventFrame, onFrame))
	sc := headOn()
	sc.Frames = 10
	s, err := r.Run(ctx, sc)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, s.Frames)
}

func TestRunHandlerError(t *testing.T) {
	boom := errors.New("boom")
	r := New(log.NewNop(), nil, defaults(),
		WithSubscriber(EventCollision, func(bus.Event) error { return boom }))
	s, err := r.Run(context.Background(), headOn())

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s.Frames)
}

func TestRunWritesTrace(t *testing.T) {
	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		tw, err := NewTraceWriter(&buf, compress)
		require.NoError(t, err)

		r := New(log.NewNop(), nil, defaults(), WithTrace(tw))
		s, err := r.Run(context.Background(), headOn())
		require.NoError(t, err)
		require.NoError(t, tw.Close())

		recs, err := ReadTrace(&buf, compress)
		require.NoError(t, err, "compress=%v", compress)
		require.Len(t, recs, 3)
		assert.Equal(t, s.RunID, recs[0].RunID)
		assert.Equal(t, []engine.Event{engine.Collision(0, 1)}, recs[0].Events)
		assert.Empty(t, recs[1].Events)
		assert.Equal(t, s.Digest, recs[2].Digest)
		assert.Equal(t, uint64(2), recs[2].Metrics.Bodies)
	}
}

func TestOpenTrace(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "trace.jsonl.zst")
	tw, err := OpenTrace(p, true)
	require.NoError(t, err)
	require.NoError(t, tw.Write(FrameRecord{Frame: 1, Events: []engine.Event{engine.Bounce(engine.SideTop)}}))
	require.NoError(t, tw.Close())
	require.NoError(t, tw.Close())
	assert.ErrorIs(t, tw.Write(FrameRecord{}), ErrTraceClosed)

	f, err := os.Open(p)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	recs, err := ReadTrace(f, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []engine.Event{engine.Bounce(engine.SideTop)}, recs[0].Events)
}
