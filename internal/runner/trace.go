package runner

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// TraceWriter appends one JSON document per line, optionally through a zstd
// stream. Safe for concurrent use.
type TraceWriter struct {
	mu     sync.Mutex
	closer io.Closer
	enc    *zstd.Encoder
	w      *bufio.Writer
	closed bool
}

// NewTraceWriter wraps dst. The caller keeps ownership of dst unless it is
// handed over through OpenTrace.
func NewTraceWriter(dst io.Writer, compress bool) (*TraceWriter, error) {
	tw := &TraceWriter{}
	if compress {
		enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, err
		}
		tw.enc = enc
		tw.w = bufio.NewWriterSize(enc, 64*1024)
	} else {
		tw.w = bufio.NewWriterSize(dst, 64*1024)
	}
	return tw, nil
}

// OpenTrace creates (or truncates) the file at path and returns a writer that
// closes it on Close.
func OpenTrace(path string, compress bool) (*TraceWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	tw, err := NewTraceWriter(f, compress)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	tw.closer = f
	return tw, nil
}

func (t *TraceWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTraceClosed
	}
	if _, err = t.w.Write(b); err != nil {
		return err
	}
	return t.w.WriteByte('\n')
}

// Flush pushes buffered lines down to the underlying writer. With compression
// on, the zstd frame is flushed as well.
func (t *TraceWriter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTraceClosed
	}
	return t.flushLocked()
}

func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	var firstErr error
	if err := t.w.Flush(); err != nil {
		firstErr = err
	}
	if t.enc != nil {
		if err := t.enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if t.closer != nil {
		if err := t.closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *TraceWriter) flushLocked() error {
	if err := t.w.Flush(); err != nil {
		return err
	}
	if t.enc != nil {
		return t.enc.Flush()
	}
	return nil
}

// ReadTrace decodes every line of a trace into a FrameRecord.
func ReadTrace(src io.Reader, compressed bool) ([]FrameRecord, error) {
	if compressed {
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		src = dec
	}

	var out []FrameRecord
	dec := json.NewDecoder(src)
	for {
		var rec FrameRecord
		if err := dec.Decode(&rec); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
