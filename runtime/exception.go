package runtime

import (
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/DemiDroL/lua-runtime/engine"
	"github.com/DemiDroL/lua-runtime/errors"
)

// defaultErrorMessage stands in when an error value has no string form.
const defaultErrorMessage = "unknown lua error"

// LuaError is a host error representing an interpreter-originated error
// value. The value itself lives in the owning State's error namespace,
// keyed by ref, so it survives the stack unwinding that produced it and
// can be re-injected later with its identity intact.
//
// A LuaError may only be re-raised into the State that produced it.
type LuaError struct {
	msg      string
	owner    *State
	alive    *atomic.Bool // shared with the owner, read-only here
	ref      int
	released bool
}

// wrapError captures the error value v into the State's error namespace
// and returns the host-side representation. The display message is the
// string form of v when it has one.
func (s *State) wrapError(v lua.LValue) *LuaError {
	msg := defaultErrorMessage
	if lua.LVCanConvToString(v) {
		msg = lua.LVAsString(v)
	}
	engine.Logger().Debug("lua error captured", zap.String("message", msg))
	return &LuaError{
		msg:   msg,
		owner: s,
		alive: s.alive,
		ref:   engine.Ref(s.errNS, v),
	}
}

func (e *LuaError) Error() string {
	return e.msg
}

// Release frees the namespace slot holding the captured value, making it
// collectible. If the owning State has been closed the interpreter no
// longer exists and there is nothing to touch. Idempotent.
func (e *LuaError) Release() {
	if e.released {
		return
	}
	e.released = true
	if !e.alive.Load() {
		return
	}
	engine.Unref(e.owner.errNS, e.ref)
}

// Value returns the captured error value. target must be the State that
// produced the error; anything else is the cross-context error.
func (e *LuaError) Value(target *State) (lua.LValue, error) {
	if target != e.owner {
		return nil, errors.CrossContext()
	}
	if e.released {
		return nil, errors.InvalidInput(errors.PhaseCall, "lua error already released")
	}
	if !e.alive.Load() {
		return nil, errors.InvalidInput(errors.PhaseCall, "owning state is closed")
	}
	return engine.RefGet(e.owner.errNS, e.ref), nil
}

// PushError fetches the captured value back onto target's stack, ready to
// be returned through the interpreter's error channel as-is. The identity
// check is the same as Value's.
func (e *LuaError) PushError(target *State) error {
	v, err := e.Value(target)
	if err != nil {
		return err
	}
	return engine.Guard(target.ls, errors.PhaseCall, func() { target.ls.Push(v) })
}
