package opaque

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/nf/hwbus/bus"
)

// The bus table seen by scripts. Each access yields the coroutine running
// the script back to LuaCore, which suspends on it.
const luaPrelude = `
bus = bus or {}
function bus.read(addr) return coroutine.yield("read", addr) end
function bus.write(addr, v) coroutine.yield("write", addr, v) end
function bus.inp(port) return coroutine.yield("inp", port) end
function bus.out(port, v) coroutine.yield("out", port, v) end
`

// LuaCore is a CPU written in Lua. Each Step calls the script's global
// step function in a new coroutine; EnableInterrupt and DisableInterrupt
// call interrupt(on) if the script defines it. Scripts reach the bus
// through bus.read, bus.write, bus.inp and bus.out, and read the
// interrupt flag with bus.iff().
type LuaCore struct {
	L   *lua.LState
	src string
	iff bool
}

// NewLuaCore loads the script src.
func NewLuaCore(src string) (*LuaCore, error) {
	c := &LuaCore{src: src}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *LuaCore) load() error {
	L := lua.NewState()
	tbl := L.NewTable()
	L.SetField(tbl, "iff", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(c.iff))
		return 1
	}))
	L.SetGlobal("bus", tbl)
	if err := L.DoString(luaPrelude); err != nil {
		L.Close()
		return fmt.Errorf("lua: prelude: %v", err)
	}
	if err := L.DoString(c.src); err != nil {
		L.Close()
		return fmt.Errorf("lua: %v", err)
	}
	if _, ok := L.GetGlobal("step").(*lua.LFunction); !ok {
		L.Close()
		return fmt.Errorf("lua: script does not define step")
	}
	c.L = L
	return nil
}

// Reset reloads the script, discarding its globals.
func (c *LuaCore) Reset() {
	old := c.L
	if err := c.load(); err != nil {
		c.L = old
		return
	}
	c.iff = false
	old.Close()
}

func (c *LuaCore) Close() { c.L.Close() }

// IFF reports whether interrupts are enabled.
func (c *LuaCore) IFF() bool { return c.iff }

// Global returns the value of a global variable of the script.
func (c *LuaCore) Global(name string) lua.LValue { return c.L.GetGlobal(name) }

func (c *LuaCore) Start(msg bus.Message) (Step, error) {
	switch msg.Kind {
	case bus.StepKind:
		return c.call("step")
	case bus.EnableInterruptKind, bus.DisableInterruptKind:
		c.iff = msg.Kind == bus.EnableInterruptKind
		if _, ok := c.L.GetGlobal("interrupt").(*lua.LFunction); !ok {
			return Complete(bus.Ack()), nil
		}
		return c.call("interrupt", lua.LBool(c.iff))
	}
	return Step{}, bus.ErrUnsupported
}

func (c *LuaCore) call(name string, args ...lua.LValue) (Step, error) {
	fn, ok := c.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return Step{}, fmt.Errorf("lua: %s is not a function", name)
	}
	co, cancel := c.L.NewThread()
	done := func() {
		if cancel != nil {
			cancel()
		}
	}
	return c.resume(co, fn, done, args...)
}

func (c *LuaCore) resume(co *lua.LState, fn *lua.LFunction, done func(), args ...lua.LValue) (Step, error) {
	st, err, values := c.L.Resume(co, fn, args...)
	switch st {
	case lua.ResumeOK:
		done()
		return Complete(bus.Ack()), nil
	case lua.ResumeError:
		done()
		return Step{}, fmt.Errorf("lua: %v", err)
	}
	req, err := yieldRequest(values)
	if err != nil {
		done()
		return Step{}, err
	}
	return Suspend(req, func(reply bus.Message) (Step, error) {
		if reply.Kind == bus.ByteKind {
			return c.resume(co, fn, done, lua.LNumber(reply.Value))
		}
		return c.resume(co, fn, done)
	}), nil
}

func yieldRequest(values []lua.LValue) (bus.Message, error) {
	if len(values) == 0 {
		return bus.Message{}, fmt.Errorf("lua: yield without a bus operation")
	}
	arg := func(i int) (int, error) {
		if i >= len(values) {
			return 0, fmt.Errorf("lua: %v: missing argument %d", values[0], i)
		}
		n, ok := values[i].(lua.LNumber)
		if !ok {
			return 0, fmt.Errorf("lua: %v: argument %d is %v, want number", values[0], i, values[i].Type())
		}
		return int(n), nil
	}
	a, err := arg(1)
	if err != nil {
		return bus.Message{}, err
	}
	switch values[0].String() {
	case "read":
		return bus.ReadByte(uint16(a)), nil
	case "inp":
		return bus.ReadPort(byte(a)), nil
	}
	v, err := arg(2)
	if err != nil {
		return bus.Message{}, err
	}
	switch values[0].String() {
	case "write":
		return bus.WriteByte(uint16(a), byte(v)), nil
	case "out":
		return bus.WritePort(byte(a), byte(v)), nil
	}
	return bus.Message{}, fmt.Errorf("lua: unknown bus operation %v", values[0])
}
