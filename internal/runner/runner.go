// Package runner drives a scenario frame by frame: step, publish the step's
// events, evaluate metrics and optionally trace the frame.
package runner

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/simcore/internal/config"
	"github.com/zeusync/simcore/internal/core/events/bus"
	"github.com/zeusync/simcore/internal/core/observability/log"
	"github.com/zeusync/simcore/internal/core/physics"
	"github.com/zeusync/simcore/internal/core/sim/engine"
	"github.com/zeusync/simcore/internal/core/sim/metrics"
	"github.com/zeusync/simcore/internal/core/sim/world"
)

// Bus event types.
const (
	EventBoundaryBounce = "sim.boundary_bounce"
	EventCollision      = "sim.collision"
	EventFrame          = "sim.frame"
)

// FrameRecord is published as the data of every EventFrame and written to the
// trace, one per frame.
type FrameRecord struct {
	RunID   string         `json:"run_id"`
	Frame   uint64         `json:"frame"`
	Digest  string         `json:"digest"`
	Events  []engine.Event `json:"events"`
	Metrics metrics.Result `json:"metrics"`
}

type Summary struct {
	RunID      string         `json:"run_id"`
	Name       string         `json:"name,omitempty"`
	Frames     int            `json:"frames"`
	Bounces    int            `json:"bounces"`
	Collisions int            `json:"collisions"`
	Initial    metrics.Result `json:"initial"`
	Final      metrics.Result `json:"final"`
	Momentum   physics.Vec2   `json:"momentum"`
	Digest     string         `json:"digest"`
	World      world.World    `json:"world"`
	Took       time.Duration  `json:"took"`
}

type Runner struct {
	bus         bus.EventBus
	logger      log.Log
	trace       *TraceWriter
	subscribers []subscriber
	defaults    config.RunnerConfig
}

type Option func(*Runner)

// WithTrace subscribes tw to the frame events of every run. The runner
// flushes it at the end of a run but does not close it.
func WithTrace(tw *TraceWriter) Option {
	return func(r *Runner) { r.trace = tw }
}

// WithSubscriber attaches handler to eventType on the topic of every run.
func WithSubscriber(eventType string, handler bus.EventHandler) Option {
	return func(r *Runner) {
		r.subscribers = append(r.subscribers, subscriber{eventType: eventType, handler: handler})
	}
}

// New creates a runner. A nil bus gets a private one.
func New(logger log.Log, eventBus bus.EventBus, defaults config.RunnerConfig, opts ...Option) *Runner {
	if eventBus == nil {
		eventBus = bus.New()
	}
	r := &Runner{
		bus:      eventBus,
		logger:   logger.With(log.String("component", "runner")),
		defaults: defaults,
	}
	for _, opt := range opts {
		opt(r)
	}
	eventBus.AddObserver(deliveryObserver{logger: r.logger})
	return r
}

// Topic is the bus topic the run with the given ID publishes on. It only
// exists while the run is in progress.
func (r *Runner) Topic(runID string) string {
	if r.defaults.Topic == "" {
		return runID
	}
	return r.defaults.Topic + "." + runID
}

// Run advances a copy of sc.World sc.Frames times (the configured default when
// zero). On cancellation it returns the summary of the frames completed so far
// together with the context error.
func (r *Runner) Run(ctx context.Context, sc world.Scenario) (Summary, error) {
	frames := sc.Frames
	if frames == 0 {
		frames = r.defaults.Frames
	}
	if frames <= 0 {
		return Summary{}, ErrNoFrames
	}

	start := time.Now()
	runID := uuid.NewString()
	runLogger := r.logger.With(log.String("run_id", runID), log.String("scenario", sc.Name))

	topic := r.Topic(runID)
	defer func() {
		if err := r.bus.DeleteTopic(topic); err != nil {
			runLogger.Warn("Failed to delete run topic", log.String("topic", topic), log.Error(err))
		}
	}()
	if err := r.attach(topic, runLogger); err != nil {
		return Summary{}, err
	}

	w := sc.World.Clone()
	summary := Summary{
		RunID:   runID,
		Name:    sc.Name,
		Initial: metrics.Evaluate(w),
	}

	runLogger.Info("Run started",
		log.Int("bodies", w.Len()),
		log.Int("frames", frames),
		log.Float64("dt", sc.DT))

	finish := func(err error) (Summary, error) {
		summary.World = w
		summary.Final = metrics.Evaluate(w)
		summary.Momentum = metrics.Momentum(w)
		summary.Digest = formatDigest(w.Digest())
		summary.Took = time.Since(start)
		return summary, err
	}

	for frame := 1; frame <= frames; frame++ {
		if err := ctx.Err(); err != nil {
			runLogger.Warn("Run cancelled", log.Int("frame", summary.Frames), log.Error(err))
			return finish(err)
		}

		var events []engine.Event
		w, events = engine.Step(w, sc.DT)
		if events == nil {
			events = []engine.Event{}
		}
		bounces, collisions := engine.Count(events)
		summary.Frames = frame
		summary.Bounces += bounces
		summary.Collisions += collisions

		rec := FrameRecord{
			RunID:   runID,
			Frame:   uint64(frame),
			Digest:  formatDigest(w.Digest()),
			Events:  events,
			Metrics: metrics.Evaluate(w),
		}

		if err := r.publish(topic, runID, rec); err != nil {
			runLogger.Error("Event handler failed", log.Int("frame", frame), log.Error(err))
			return finish(fmt.Errorf("frame %d: %w", frame, err))
		}

		runLogger.Debug("Frame done",
			log.Int("frame", frame),
			log.Int("bounces", bounces),
			log.Int("collisions", collisions),
			log.Float64("kinetic_energy", rec.Metrics.KineticEnergy))
	}

	if r.trace != nil {
		if err := r.trace.Flush(); err != nil {
			return finish(fmt.Errorf("flush trace: %w", err))
		}
	}

	s, err := finish(nil)
	bm := r.bus.GetMetrics()
	runLogger.Info("Run finished",
		log.Int("frames", s.Frames),
		log.Int("bounces", s.Bounces),
		log.Int("collisions", s.Collisions),
		log.Float64("kinetic_energy", s.Final.KineticEnergy),
		log.String("digest", s.Digest),
		log.Uint64("bus_published", bm.Published),
		log.Uint64("bus_delivered", bm.DeliveredHandlers),
		log.Duration("took", s.Took))
	return s, err
}

// attach declares the run topic and subscribes the runner's own handlers
// followed by the ones passed through WithSubscriber.
func (r *Runner) attach(topic string, logger log.Log) error {
	if err := r.bus.CreateTopic(topic); err != nil {
		return err
	}
	subs := []subscriber{
		{eventType: EventBoundaryBounce, handler: logEvents(logger)},
		{eventType: EventCollision, handler: logEvents(logger)},
	}
	if r.trace != nil {
		subs = append(subs, subscriber{eventType: EventFrame, handler: traceFrames(r.trace)})
	}
	subs = append(subs, r.subscribers...)

	for _, s := range subs {
		sub, err := r.bus.SubscribeTopic(topic, s.eventType, s.handler)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", s.eventType, err)
		}
		logger.Debug("Subscribed",
			log.String("topic", topic),
			log.String("type", sub.EventType()),
			log.String("subscription", sub.ID()))
	}
	return nil
}

func (r *Runner) publish(topic, runID string, rec FrameRecord) error {
	batch := make([]bus.Event, 0, len(rec.Events)+1)
	for _, e := range rec.Events {
		typ := EventBoundaryBounce
		if e.Kind == engine.KindCollision {
			typ = EventCollision
		}
		batch = append(batch, bus.NewEvent(typ, runID, rec.Frame, e))
	}
	batch = append(batch, bus.NewEvent(EventFrame, runID, rec.Frame, rec))
	return r.bus.PublishBatch(topic, batch...)
}

func formatDigest(d uint64) string {
	return fmt.Sprintf("%016x", d)
}

// ParseDigest is the inverse of the digest strings found in summaries and traces.
func ParseDigest(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}
