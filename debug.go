package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/nf/hwbus/machine"
	"github.com/nf/hwbus/uxn"
)

type debugger struct {
	run *machine.Runner

	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	mu      sync.Mutex
	brk     uint64
	syms    symbols
	watches []watch
}

type watch struct {
	symbol
	short bool
}

func (d *debugger) symbols() symbols {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syms
}

func (d *debugger) setSymbols(s symbols) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syms = s
}

func newDebugger() *debugger {
	d := &debugger{
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 5, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetAutocompleteFunc(func(t string) (entries []string) {
		if cmd, arg, ok := strings.Cut(t, " "); ok {
			switch cmd {
			case "w", "w2", "watch", "watch2":
				for _, s := range d.symbols().withLabelPrefix(arg) {
					entries = append(entries, cmd+" "+s.label)
				}
			}
		}
		return
	})
	d.input.SetAutocompletedFunc(func(t string, index, src int) bool {
		if src != tview.AutocompletedNavigate {
			d.input.SetText(t)
		}
		return src == tview.AutocompletedEnter || src == tview.AutocompletedClick
	})
	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := d.input.GetText()
		if cmd == "" {
			return
		}
		d.input.SetText("")
		d.command(cmd)
	})
	return d
}

func (d *debugger) command(cmd string) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	switch cmd {
	case "exit":
		d.app.Stop()
	case "b", "break":
		var tick uint64
		if arg != "" {
			n, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				log.Printf("invalid tick %q", arg)
				return
			}
			tick = n
		}
		d.mu.Lock()
		d.brk = tick
		d.mu.Unlock()
		d.run.Debug(cmd, tick)
		if tick == 0 {
			log.Print("cleared break")
		} else {
			log.Printf("set break at tick %d", tick)
		}
	case "w", "w2", "watch", "watch2":
		s, ok := d.symbols().resolve(arg)
		if !ok {
			log.Printf("invalid address %q", arg)
			return
		}
		d.mu.Lock()
		d.watches = append(d.watches,
			watch{symbol: s, short: strings.HasSuffix(cmd, "2")})
		d.mu.Unlock()
		log.Printf("watching %.4x", s.addr)
	case "dump":
		// Not on this goroutine: the runner may be waiting on it.
		go d.run.Do(func(m *machine.Machine) {
			log.Print(spew.Sdump(m.State()))
		})
	default:
		d.run.Debug(cmd, 0)
	}
}

func (d *debugger) Run() error { return d.app.Run() }

func (d *debugger) StateFunc(m *machine.Machine, k machine.StateKind) {
	var (
		watch = d.watchContent(m)
		state string
	)
	if k != machine.QuietState {
		state = stateMsg(d.symbols(), m, k)
	}
	d.app.QueueUpdateDraw(func() {
		switch k {
		case machine.ClearState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case machine.BreakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case machine.PauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case machine.HaltState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		if k != machine.QuietState {
			d.state.SetText(state)
		}
	})
}

func stateMsg(syms symbols, m *machine.Machine, k machine.StateKind) string {
	kind := "       "
	switch k {
	case machine.BreakState:
		kind = "[break]"
	case machine.PauseState:
		kind = "[pause]"
	case machine.HaltState:
		kind = "[HALT!]"
	}
	s := m.State()
	var where string
	if c := m.Uxn(); c != nil {
		where = fmt.Sprintf("%.4x %- 6s", c.PC, uxn.Op(c.Mem[c.PC]))
		if ss := syms.forAddr(c.PC); len(ss) > 0 {
			where += " " + ss[0].String()
		}
	}
	return fmt.Sprintf("%s %s trampoline=%v\n%s\n", kind, where, s.Trampoline, s)
}

func (d *debugger) watchContent(m *machine.Machine) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if d.brk != 0 {
		fmt.Fprintf(&b, "tick %d brk!\n", d.brk)
	}
	for _, w := range d.watches {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s [%.4x] ", w.label, w.addr)
		if w.short {
			fmt.Fprintf(&b, "%.2x%.2x", m.Peek(w.addr), m.Peek(w.addr+1))
		} else {
			fmt.Fprintf(&b, "  %.2x", m.Peek(w.addr))
		}
	}
	return b.String()
}
