// Package trace provides a structured event sink for pipeline observability.
//
// Components emit typed events instead of formatted debug strings. Callers
// inject a Sink at construction time; the zero-cost NopSink is the default,
// and LogSink writes events through the standard library logger the same way
// the rest of the tool logs to stderr.
package trace

import "log"

// Event is a typed observability event emitted by a pipeline component.
type Event interface {
	// Kind returns a stable event name, e.g. "CandidateScored".
	Kind() string
}

// Sink receives events. Implementations must be safe for use from a single
// pipeline instance; the pipeline never shares a sink across goroutines
// unless the sink itself is concurrency-safe.
type Sink interface {
	Emit(e Event)
}

// CandidateScored reports that a detection strategy scored a candidate
// region or quadrilateral.
type CandidateScored struct {
	Strategy string  // strategy that produced the candidate
	Score    float64 // strategy-local score; comparable only within one run
	X        int
	Y        int
	Width    int
	Height   int
}

func (CandidateScored) Kind() string { return "CandidateScored" }

// StrategySkipped reports that a strategy produced no usable result and the
// chain moved on. Internal strategy failures convert to this event rather
// than propagating.
type StrategySkipped struct {
	Strategy string
	Reason   string
}

func (StrategySkipped) Kind() string { return "StrategySkipped" }

// FallbackUsed reports that a component exhausted its strategies and applied
// its documented fallback behavior.
type FallbackUsed struct {
	Component string // "detect", "skew"
	Fallback  string // e.g. "border-crop", "whole-image", "zero-angle"
}

func (FallbackUsed) Kind() string { return "FallbackUsed" }

// QualityRejected reports that the quality gate short-circuited a request.
type QualityRejected struct {
	Reason     string
	Blur       float64 // Laplacian variance
	Brightness float64 // mean luminance
}

func (QualityRejected) Kind() string { return "QualityRejected" }

// StageCompleted reports that a pipeline stage finished.
type StageCompleted struct {
	Stage          string
	DurationMillis float64
}

func (StageCompleted) Kind() string { return "StageCompleted" }

// AngleEstimated reports the fused skew estimate and the number of
// strategies that survived outlier rejection.
type AngleEstimated struct {
	AngleDegrees float64
	Strategies   int
}

func (AngleEstimated) Kind() string { return "AngleEstimated" }

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// LogSink writes each event through a standard library logger.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Emit(e Event) {
	if s.Logger == nil {
		log.Printf("event=%s %+v", e.Kind(), e)
		return
	}
	s.Logger.Printf("event=%s %+v", e.Kind(), e)
}
