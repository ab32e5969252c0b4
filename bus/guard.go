package bus

import "fmt"

// Frame is one in-flight dispatch: the device whose handler is running and
// the message it is handling.
type Frame struct {
	Target DeviceID
	Msg    Message
}

func (f Frame) String() string { return fmt.Sprintf("%v<-%v", f.Target, f.Msg) }

// Guard tracks the chain of in-flight dispatches and rejects any dispatch to
// a device input (see Line) that already has a frame on the chain.
//
// A device therefore cannot be re-entered on the line it is handling, either
// directly or through a cycle of other devices, but its interrupt input may
// be driven while its main handler runs.
type Guard struct {
	frames []Frame
	active [256][2]bool
}

// Enter pushes f onto the chain.
func (g *Guard) Enter(f Frame) error {
	a := &g.active[f.Target][f.Msg.Line()]
	if *a {
		return ReentrantAccessError{ID: f.Target, Line: f.Msg.Line(), Chain: g.Chain()}
	}
	*a = true
	g.frames = append(g.frames, f)
	return nil
}

// Exit pops the innermost frame.
func (g *Guard) Exit() {
	n := len(g.frames)
	if n == 0 {
		panic("bus: Guard.Exit with empty chain")
	}
	f := g.frames[n-1]
	g.active[f.Target][f.Msg.Line()] = false
	g.frames = g.frames[:n-1]
}

// Active reports whether id has a frame on the chain on any line.
func (g *Guard) Active(id DeviceID) bool {
	return g.active[id][MainLine] || g.active[id][InterruptLine]
}

// Depth returns the number of frames on the chain.
func (g *Guard) Depth() int { return len(g.frames) }

// Chain returns a copy of the chain, innermost last.
func (g *Guard) Chain() []Frame {
	if len(g.frames) == 0 {
		return nil
	}
	return append([]Frame(nil), g.frames...)
}
