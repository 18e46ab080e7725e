package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"crmgen/logging"
)

// JSON emits newline-delimited structured events. Writes buffer until
// MaxBatch events accumulate or the flush interval elapses; with no interval
// every write flushes.
type JSON struct {
	mu       sync.Mutex
	writer   *bufio.Writer
	encoder  *json.Encoder
	maxBatch int
	pending  int

	autoFlush bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewJSON constructs a JSON sink writing to the provided io.Writer.
func NewJSON(w io.Writer, cfg logging.JSONConfig) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{
		writer:    buf,
		encoder:   json.NewEncoder(buf),
		maxBatch:  cfg.MaxBatch,
		autoFlush: cfg.FlushInterval <= 0,
		done:      make(chan struct{}),
	}
	if cfg.FlushInterval > 0 {
		go sink.periodicFlush(cfg.FlushInterval)
	}
	return sink
}

// Write satisfies logging.Sink.
func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wire := map[string]any{
		"type":     event.Type,
		"time":     event.Time.Format(time.RFC3339Nano),
		"severity": event.Severity,
		"category": event.Category,
		"entity":   event.Entity,
		"related":  event.Related,
		"payload":  event.Payload,
		"extra":    event.Extra,
		"traceId":  event.TraceID,
	}
	if err := s.encoder.Encode(wire); err != nil {
		return err
	}
	s.pending++
	if s.autoFlush || (s.maxBatch > 0 && s.pending >= s.maxBatch) {
		return s.flushLocked()
	}
	return nil
}

// Close stops the flush goroutine and flushes buffered events.
func (s *JSON) Close(context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *JSON) flushLocked() error {
	s.pending = 0
	return s.writer.Flush()
}

func (s *JSON) periodicFlush(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.flushLocked()
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}
