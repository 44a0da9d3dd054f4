package request

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/simcore/internal/core/observability/log"
	"github.com/zeusync/simcore/pkg/concurrent"
)

// Response is the envelope written back for every request line.
type Response struct {
	OK     bool   `json:"ok"`
	Result any    `json:"result"`
	Mode   string `json:"mode"`
}

// ErrorResult is the result payload of a failed response.
type ErrorResult struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// Dispatcher turns raw request lines into responses. It holds no simulation
// state, so one Dispatcher can serve any number of goroutines.
type Dispatcher struct {
	mode          string
	validateWorld bool
	verboseErrors bool
	logger        log.Log
}

type Option func(*Dispatcher)

// WithMode sets the value stamped into every response's "mode" field.
func WithMode(mode string) Option {
	return func(d *Dispatcher) { d.mode = mode }
}

// WithWorldValidation rejects worlds that break the body invariants instead of
// letting NaN propagate through the engine.
func WithWorldValidation(enabled bool) Option {
	return func(d *Dispatcher) { d.validateWorld = enabled }
}

// WithErrorDetail adds the underlying error text to failed responses.
func WithErrorDetail(enabled bool) Option {
	return func(d *Dispatcher) { d.verboseErrors = enabled }
}

func NewDispatcher(logger log.Log, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: logger.With(log.String("component", "dispatcher")),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Mode() string { return d.mode }

// Process decodes, runs and wraps a single request. It never fails: errors
// become an ok=false envelope. The mode is left empty; ProcessLine stamps it.
func (d *Dispatcher) Process(data []byte) Response {
	start := time.Now()
	reqLogger := d.logger.With(log.String("request_id", uuid.NewString()))

	req, err := Decode(data)
	if err != nil {
		reqLogger.Warn("Rejected request", log.Error(err))
		return d.failure(CodeInvalidRequest, err)
	}

	if d.validateWorld {
		if err = req.Target().Validate(); err != nil {
			reqLogger.Warn("Rejected world", log.String("op", string(req.Op())), log.Error(err))
			return d.failure(CodeInvalidWorld, err)
		}
	}

	result, err := Handle(req)
	if err != nil {
		reqLogger.Error("Failed to handle request", log.Error(err))
		return d.failure(CodeInvalidRequest, err)
	}

	reqLogger.Debug("Handled request",
		log.String("op", string(req.Op())),
		log.Int("bodies", req.Target().Len()),
		log.Duration("took", time.Since(start)))

	return Response{OK: true, Result: result}
}

// ProcessLine is Process followed by JSON encoding and mode stamping. The
// returned bytes carry no trailing newline.
func (d *Dispatcher) ProcessLine(line []byte) []byte {
	resp := d.Process(bytes.TrimSpace(line))
	out, err := json.Marshal(resp)
	if err != nil {
		// Only reachable with non-finite floats in the result.
		d.logger.Error("Failed to encode response", log.Error(err))
		out, _ = json.Marshal(d.failure(CodeInvalidRequest, err))
	}
	return StampMode(out, d.mode)
}

// ProcessBatch runs independent request lines on up to workers goroutines and
// returns the encoded responses in input order.
func (d *Dispatcher) ProcessBatch(ctx context.Context, lines [][]byte, workers int) ([][]byte, error) {
	return concurrent.Map(ctx, lines, workers, func(_ context.Context, line []byte) ([]byte, error) {
		return d.ProcessLine(line), nil
	})
}

func (d *Dispatcher) failure(code string, err error) Response {
	res := ErrorResult{Error: code}
	if d.verboseErrors && err != nil {
		res.Detail = err.Error()
	}
	return Response{OK: false, Result: res}
}

// StampMode sets the top-level "mode" key of a JSON object. Anything that is
// not a JSON object is returned unchanged.
func StampMode(raw []byte, mode string) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return raw
	}
	m, err := json.Marshal(mode)
	if err != nil {
		return raw
	}
	obj["mode"] = m
	out, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return out
}
