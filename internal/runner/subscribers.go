package runner

import (
	"fmt"

	"github.com/zeusync/simcore/internal/core/events/bus"
	"github.com/zeusync/simcore/internal/core/observability/log"
	"github.com/zeusync/simcore/internal/core/sim/engine"
)

type subscriber struct {
	eventType string
	handler   bus.EventHandler
}

// logEvents writes every bounce and collision at debug level.
func logEvents(logger log.Log) bus.EventHandler {
	return func(e bus.Event) error {
		ev, ok := e.Data().(engine.Event)
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", e.Type(), e.Data())
		}
		logger.Debug("Step event",
			log.String("type", e.Type()),
			log.Uint64("frame", e.Frame()),
			log.String("event", ev.String()))
		return nil
	}
}

// traceFrames appends every published FrameRecord to tw.
func traceFrames(tw *TraceWriter) bus.EventHandler {
	return func(e bus.Event) error {
		rec, ok := e.Data().(FrameRecord)
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", e.Type(), e.Data())
		}
		if err := tw.Write(rec); err != nil {
			return fmt.Errorf("trace: %w", err)
		}
		return nil
	}
}

type deliveryObserver struct {
	logger log.Log
}

func (o deliveryObserver) OnDelivered(topic, eventType string, handlers int, err error, durationMicros int64) {
	if err == nil {
		return
	}
	o.logger.Warn("Event delivery failed",
		log.String("topic", topic),
		log.String("type", eventType),
		log.Int("handlers", handlers),
		log.Int64("took_us", durationMicros),
		log.Error(err))
}
