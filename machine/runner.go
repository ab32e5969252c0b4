package machine

import (
	"log"
	"time"

	"gopkg.in/tomb.v2"
)

// StateKind describes why a Runner reported a machine's state.
type StateKind int

const (
	ClearState StateKind = iota // running
	PauseState
	BreakState
	HaltState
	QuietState // periodic, while running
)

const quietInterval = time.Second / 10

// Runner ticks a machine on its own goroutine. Other goroutines reach the
// machine only through the Runner, between ticks.
type Runner struct {
	// Dev keeps the runner alive after a tick fails, paused, so that a
	// fixed program can be swapped in.
	Dev bool
	// Limit stops the runner after that many ticks. Zero runs until Stop.
	Limit uint64
	// Rate is the number of ticks per second. Zero is unthrottled.
	Rate int
	// StateFunc, if set, is called whenever the runner pauses, breaks,
	// halts, steps or resumes. It runs on the runner's goroutine and may
	// inspect m until it returns.
	StateFunc func(m *Machine, k StateKind)

	t    tomb.Tomb
	m    *Machine
	swap chan *Machine
	cmds chan command
	do   chan call

	running bool
	brk     uint64
	quiet   time.Time
}

type command struct {
	name string
	arg  uint64
}

type call struct {
	fn   func(*Machine)
	done chan struct{}
}

func NewRunner(m *Machine) *Runner {
	return &Runner{
		m:    m,
		swap: make(chan *Machine),
		cmds: make(chan command),
		do:   make(chan call),
	}
}

// Start runs the machine, or leaves it paused waiting for a debugger
// command.
func (r *Runner) Start(paused bool) {
	r.running = !paused
	r.t.Go(r.loop)
}

// Swap replaces the running machine with m and resumes it. The old
// machine is closed.
func (r *Runner) Swap(m *Machine) {
	select {
	case r.swap <- m:
	case <-r.t.Dying():
		m.Close()
	}
}

// Debug sends a debugger command: "s" or "step" ticks a paused machine
// once, "c" or "cont" resumes it, "p" or "pause" pauses it, "reset"
// resets it, "b" or "break" pauses at tick arg (zero clears), and "exit"
// stops the runner.
func (r *Runner) Debug(cmd string, arg uint64) {
	select {
	case r.cmds <- command{cmd, arg}:
	case <-r.t.Dying():
	}
}

// Do calls fn with the machine between ticks and waits for it to return.
func (r *Runner) Do(fn func(*Machine)) {
	c := call{fn, make(chan struct{})}
	select {
	case r.do <- c:
		<-c.done
	case <-r.t.Dying():
	}
}

// Stop stops the runner and returns the error that ended it, if any.
func (r *Runner) Stop() error {
	r.t.Kill(nil)
	return r.t.Wait()
}

// Wait waits for the runner to finish.
func (r *Runner) Wait() error { return r.t.Wait() }

// Dead is closed once the runner has finished.
func (r *Runner) Dead() <-chan struct{} { return r.t.Dead() }

// Machine returns the machine the runner last ran. It must only be called
// once the runner has finished, after which the caller owns the machine.
func (r *Runner) Machine() *Machine { return r.m }

func (r *Runner) loop() error {
	always := make(chan time.Time)
	close(always)
	tick := (<-chan time.Time)(always)
	if r.Rate > 0 {
		t := time.NewTicker(time.Second / time.Duration(r.Rate))
		defer t.Stop()
		tick = t.C
	}
	r.report(r.kind())

	for {
		var next <-chan time.Time
		if r.running {
			next = tick
		}
		select {
		case <-r.t.Dying():
			return nil
		case m := <-r.swap:
			r.m.Close()
			r.m, r.running = m, true
			r.report(ClearState)
		case c := <-r.cmds:
			if c.name == "exit" {
				return nil
			}
			if err := r.command(c); err != nil {
				return err
			}
		case c := <-r.do:
			c.fn(r.m)
			close(c.done)
		case <-next:
			if err := r.step(); err != nil {
				return err
			}
			if r.running && time.Since(r.quiet) >= quietInterval {
				r.quiet = time.Now()
				r.report(QuietState)
			}
		}
		if r.Limit > 0 && r.m.Ticks() >= r.Limit {
			r.running = false
			r.report(PauseState)
			return nil
		}
	}
}

func (r *Runner) kind() StateKind {
	if r.running {
		return ClearState
	}
	return PauseState
}

func (r *Runner) command(c command) error {
	switch c.name {
	case "s", "step":
		if r.running {
			return nil
		}
		if err := r.step(); err != nil {
			return err
		}
		if !r.running {
			r.report(PauseState)
		}
	case "c", "cont":
		r.running = true
		r.report(ClearState)
	case "p", "pause":
		r.running = false
		r.report(PauseState)
	case "reset":
		r.m.Reset()
		r.report(r.kind())
	case "b", "break":
		r.brk = c.arg
	default:
		log.Printf("debug: unknown command %q", c.name)
	}
	return nil
}

func (r *Runner) step() error {
	if err := r.m.Tick(); err != nil {
		r.running = false
		r.report(HaltState)
		if r.Dev {
			log.Printf("machine: %v", err)
			return nil
		}
		return err
	}
	if r.brk != 0 && r.m.Ticks() == r.brk {
		r.running = false
		r.report(BreakState)
	}
	return nil
}

func (r *Runner) report(k StateKind) {
	if r.StateFunc != nil {
		r.StateFunc(r.m, k)
	}
}
