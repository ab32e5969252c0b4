package bus

import (
	"log"
	"strings"
)

// Tracer observes dispatches. Enter is called after the guard admits a
// frame and Exit after its handler returns; depth is 1 for the outermost
// dispatch of a chain.
type Tracer interface {
	Enter(depth int, f Frame)
	Exit(depth int, f Frame, reply Message, err error)
}

// Event is one recorded Enter or Exit.
type Event struct {
	Exit  bool
	Depth int
	Frame Frame
	Reply Message // Exit only
	Err   string  // Exit only
}

func (e Event) String() string {
	indent := strings.Repeat("  ", e.Depth-1)
	if !e.Exit {
		return indent + "-> " + e.Frame.String()
	}
	if e.Err != "" {
		return indent + "<- " + e.Frame.Target.String() + " error: " + e.Err
	}
	return indent + "<- " + e.Frame.Target.String() + " " + e.Reply.String()
}

// Recorder is a Tracer that keeps every event in memory.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Enter(depth int, f Frame) {
	r.Events = append(r.Events, Event{Depth: depth, Frame: f})
}

func (r *Recorder) Exit(depth int, f Frame, reply Message, err error) {
	e := Event{Exit: true, Depth: depth, Frame: f, Reply: reply}
	if err != nil {
		e.Err = err.Error()
	}
	r.Events = append(r.Events, e)
}

func (r *Recorder) Reset() { r.Events = r.Events[:0] }

// LogTracer writes each event with log.Printf.
type LogTracer struct{}

func (LogTracer) Enter(depth int, f Frame) {
	log.Printf("bus: %v", Event{Depth: depth, Frame: f})
}

func (LogTracer) Exit(depth int, f Frame, reply Message, err error) {
	e := Event{Exit: true, Depth: depth, Frame: f, Reply: reply}
	if err != nil {
		e.Err = err.Error()
	}
	log.Printf("bus: %v", e)
}

// Tracers fans events out to each of its elements.
type Tracers []Tracer

func (ts Tracers) Enter(depth int, f Frame) {
	for _, t := range ts {
		t.Enter(depth, f)
	}
}

func (ts Tracers) Exit(depth int, f Frame, reply Message, err error) {
	for _, t := range ts {
		t.Exit(depth, f, reply, err)
	}
}
