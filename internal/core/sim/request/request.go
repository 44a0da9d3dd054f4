// Package request decodes line-oriented JSON requests into a closed set of
// operations, runs them against the engine and builds response envelopes.
package request

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zeusync/simcore/internal/core/sim/engine"
	"github.com/zeusync/simcore/internal/core/sim/metrics"
	"github.com/zeusync/simcore/internal/core/sim/world"
)

type Op string

const (
	OpStep    Op = "step"
	OpMetrics Op = "metrics"
)

//go:embed request.schema.json
var requestSchemaJSON string

var requestSchema = jsonschema.MustCompileString("request.schema.json", requestSchemaJSON)

// Request is one of StepRequest or MetricsRequest. The set is closed.
type Request interface {
	Op() Op
	Target() world.World
	request()
}

type StepRequest struct {
	World world.World `json:"world"`
	DT    float64     `json:"dt"`
}

type MetricsRequest struct {
	World world.World `json:"world"`
}

func (StepRequest) Op() Op                   { return OpStep }
func (r StepRequest) Target() world.World    { return r.World }
func (StepRequest) request()                 {}
func (MetricsRequest) Op() Op                { return OpMetrics }
func (r MetricsRequest) Target() world.World { return r.World }
func (MetricsRequest) request()              {}

// StepResult is the result payload of a step request.
type StepResult struct {
	World  world.World    `json:"world"`
	Events []engine.Event `json:"events"`
}

// MarshalJSON encodes the request with its "op" tag.
func (r StepRequest) MarshalJSON() ([]byte, error) {
	type plain StepRequest
	return json.Marshal(struct {
		Op Op `json:"op"`
		plain
	}{OpStep, plain(r)})
}

func (r MetricsRequest) MarshalJSON() ([]byte, error) {
	type plain MetricsRequest
	return json.Marshal(struct {
		Op Op `json:"op"`
		plain
	}{OpMetrics, plain(r)})
}

type envelope struct {
	Op    Op          `json:"op"`
	World world.World `json:"world"`
	DT    float64     `json:"dt"`
}

// Decode validates data against the request schema and returns the typed
// request. Every failure wraps ErrInvalidRequest.
func Decode(data []byte) (Request, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after request", ErrInvalidRequest)
	}
	if err := requestSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if env.World.Bodies == nil {
		env.World.Bodies = []world.Body{}
	}

	switch env.Op {
	case OpStep:
		return StepRequest{World: env.World, DT: env.DT}, nil
	case OpMetrics:
		return MetricsRequest{World: env.World}, nil
	default:
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidRequest, ErrUnknownOp, env.Op)
	}
}

// Handle runs req and returns its result payload.
func Handle(req Request) (any, error) {
	switch r := req.(type) {
	case StepRequest:
		w, events := engine.Step(r.World, r.DT)
		if events == nil {
			events = []engine.Event{}
		}
		return StepResult{World: w, Events: events}, nil
	case MetricsRequest:
		return metrics.Evaluate(r.World), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownOp, req)
	}
}
