package runtime

import (
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/DemiDroL/lua-runtime/engine"
	"github.com/DemiDroL/lua-runtime/errors"
)

// Private registry keys. The self-pointer lets any trampoline recover the
// owning State from a bare *lua.LState; the error namespace holds
// interpreter error values while a LuaError carries them on the host side.
const (
	registryStateKey  = "lua-runtime.state"
	registryErrorsKey = "lua-runtime.errors"
)

// Config controls State construction. The zero value gives gopher-lua
// defaults with the standard libraries opened.
type Config struct {
	// SkipOpenLibs disables loading the Lua standard libraries.
	SkipOpenLibs bool
	// CallStackSize overrides the interpreter call stack depth.
	CallStackSize int
	// RegistrySize overrides the initial interpreter register count.
	RegistrySize int
	// IncludeGoStackTrace adds Go stack traces to interpreter errors.
	IncludeGoStackTrace bool
}

// State owns one interpreter instance. It is never copied; exactly one
// State exists per instance, and every LuaError created from it shares its
// liveness flag so a release after Close touches nothing freed.
//
// State is NOT safe for concurrent use.
type State struct {
	ls        *lua.LState
	alive     *atomic.Bool
	errNS     *lua.LTable // registry namespace for in-flight error values
	captureMT *lua.LTable // metatable marking host-error captures
	recordMT  *lua.LTable // metatable marking callback records
	tramp     trampolines
}

// New creates an interpreter instance and installs the bridge machinery:
// the panic handler, the registry self-pointer, the private capture and
// record metatables, the error namespace table, and the cached trampolines.
// Any setup failure marks the liveness flag false and closes the instance
// before returning.
func New(cfg *Config) (s *State, err error) {
	opts := lua.Options{}
	if cfg != nil {
		opts.SkipOpenLibs = cfg.SkipOpenLibs
		opts.CallStackSize = cfg.CallStackSize
		opts.RegistrySize = cfg.RegistrySize
		opts.IncludeGoStackTrace = cfg.IncludeGoStackTrace
	}

	ls := lua.NewState(opts)
	alive := &atomic.Bool{}
	alive.Store(true)
	s = &State{ls: ls, alive: alive}

	defer func() {
		if err != nil {
			alive.Store(false)
			ls.Close()
		}
	}()

	ls.Panic = panicThrow

	self := ls.NewUserData()
	self.Value = s
	engine.RegistrySet(ls, registryStateKey, self)

	s.captureMT = s.newOpaqueMetatable(captureToString)
	s.recordMT = s.newOpaqueMetatable(recordToString)

	s.errNS = ls.NewTable()
	engine.RegistrySet(ls, registryErrorsKey, s.errNS)

	if err = s.installTrampolines(); err != nil {
		return nil, err
	}

	engine.Logger().Debug("lua state created")
	return s, nil
}

// newOpaqueMetatable builds a private metatable whose structure scripts can
// neither discover nor replace: __metatable is false, and the only visible
// behavior is a diagnostic __tostring.
func (s *State) newOpaqueMetatable(tostring lua.LGFunction) *lua.LTable {
	mt := s.ls.NewTable()
	mt.RawSetString("__tostring", s.ls.NewFunction(tostring))
	mt.RawSetString("__metatable", lua.LFalse)
	return mt
}

// captureToString renders a travelling host error for Lua-side diagnostics.
func captureToString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	if err, ok := ud.Value.(error); ok {
		L.Push(lua.LString(err.Error()))
	} else {
		L.Push(lua.LString("host error"))
	}
	return 1
}

func recordToString(L *lua.LState) int {
	L.Push(lua.LString("host function"))
	return 1
}

// Close flips the liveness flag and destroys the interpreter instance.
// Values still held by outstanding LuaErrors are collected with it;
// releasing those errors afterwards is a no-op. Idempotent.
func (s *State) Close() {
	if !s.alive.CompareAndSwap(true, false) {
		return
	}
	engine.Logger().Debug("lua state closed")
	s.ls.Close()
}

// Alive reports whether Close has not yet run.
func (s *State) Alive() bool {
	return s.alive.Load()
}

// Raw returns the underlying LState. Calling fallible interpreter
// operations on it directly bypasses the protected envelope; a failure
// there unwinds through host frames. Intended for type construction and
// other non-raising use.
func (s *State) Raw() *lua.LState {
	return s.ls
}

// Thin stack forwards, for callbacks that want to stay off Raw().

func (s *State) Get(i int) lua.LValue { return s.ls.Get(i) }
func (s *State) GetTop() int          { return s.ls.GetTop() }
func (s *State) Pop(n int)            { s.ls.Pop(n) }
func (s *State) Push(v lua.LValue)    { s.ls.Push(v) }
func (s *State) SetTop(n int)         { s.ls.SetTop(n) }

// GetGlobal returns a global without metamethod dispatch hazards only when
// the globals table is unmodified; it is a plain forward.
func (s *State) GetGlobal(name string) lua.LValue { return s.ls.GetGlobal(name) }

func (s *State) SetGlobal(name string, v lua.LValue) { s.ls.SetGlobal(name, v) }

// fromLState recovers the owning State through the registry self-pointer.
func fromLState(ls *lua.LState) *State {
	ud, ok := engine.RegistryGet(ls, registryStateKey).(*lua.LUserData)
	if !ok {
		return nil
	}
	s, _ := ud.Value.(*State)
	return s
}

// panicThrow runs when an error escapes every protected call, which only
// happens if interpreter internals or a third-party extension raise through
// an unprotected entry point. It converts the error value at the top of the
// stack into the same typed value the protected path would have produced
// and panics with it, so a recover higher up sees a *LuaError instead of an
// interpreter-internal value. Best effort; not a sanctioned control path.
func panicThrow(ls *lua.LState) {
	s := fromLState(ls)
	if s == nil {
		panic(errors.New(errors.PhaseCall, errors.KindRuntime).
			Detail("error outside protected call on unmanaged state").
			Build())
	}
	engine.Logger().Warn("interpreter error escaped protected calls")
	panic(s.wrapError(ls.Get(-1)))
}
