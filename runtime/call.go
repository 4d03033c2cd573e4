package runtime

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/DemiDroL/lua-runtime/engine"
	"github.com/DemiDroL/lua-runtime/errors"
)

// trampolines holds the fixed-purpose functions that perform raw
// interpreter operations from inside a protected call. They are created
// once at construction so wrapper operations allocate nothing per call.
type trampolines struct {
	getTable *lua.LFunction
	setTable *lua.LFunction
	equal    *lua.LFunction
	lessThan *lua.LFunction
	gc       *lua.LFunction
	next     *lua.LFunction
	concat   *lua.LFunction
}

// concatChunk folds `..` right-associatively over its arguments, so
// __concat metamethods fire with Lua's own semantics. gopher-lua exposes no
// concat primitive, so the trampoline is Lua compiled at setup.
const concatChunk = `
return function(...)
	local n = select('#', ...)
	local r = select(n, ...)
	for i = n - 1, 1, -1 do
		r = (select(i, ...)) .. r
	end
	return r
end
`

func (s *State) installTrampolines() error {
	ls := s.ls
	s.tramp.getTable = ls.NewFunction(getTableTramp)
	s.tramp.setTable = ls.NewFunction(setTableTramp)
	s.tramp.equal = ls.NewFunction(equalTramp)
	s.tramp.lessThan = ls.NewFunction(lessThanTramp)
	s.tramp.gc = ls.NewFunction(gcTramp)
	s.tramp.next = ls.NewFunction(nextTramp)

	chunk, err := ls.LoadString(concatChunk)
	if err != nil {
		return errors.Wrap(errors.PhaseSetup, errors.KindRuntime, err, "compile concat trampoline")
	}
	if err := engine.Guard(ls, errors.PhaseSetup, func() { ls.Push(chunk) }); err != nil {
		return err
	}
	if err := s.Call(0, 1, nil); err != nil {
		return err
	}
	fn, ok := ls.Get(-1).(*lua.LFunction)
	if !ok {
		ls.Pop(1)
		return errors.InvalidInput(errors.PhaseSetup, "concat chunk did not return a function")
	}
	ls.Pop(1)
	s.tramp.concat = fn
	return nil
}

// Call invokes the interpreter's protected-call primitive on the function
// sitting below nargs arguments at the top of the stack. It is the single
// choke point turning interpreter failures into typed errors:
//
//   - success: results are left on the stack, nil is returned.
//   - host-error capture as the error value: the wrapped Go error is
//     returned by identity; the capture is discarded.
//   - memory exhaustion: a memory-kind error, never a LuaError.
//   - errfunc supplied and the handler itself fails: an errfunc-kind error.
//   - anything else: the error value is wrapped as a fresh *LuaError.
//
// On failure the stack is restored to its depth below the pushed function,
// never holding a partial operand sequence.
func (s *State) Call(nargs, nrets int, errfunc *lua.LFunction) error {
	err := s.ls.PCall(nargs, nrets, nil)
	if err == nil {
		return nil
	}

	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return errors.Wrap(errors.PhaseCall, errors.KindRuntime, err, "protected call failed")
	}

	if herr := s.unwrapCapture(apiErr.Object); herr != nil {
		return herr
	}
	if engine.MemoryExhausted(apiErr.Object) {
		return errors.Memory(errors.PhaseCall, lua.LVAsString(apiErr.Object))
	}
	if apiErr.Type == lua.ApiErrorPanic {
		// A Go panic crossed the interpreter outside our own trampolines
		// (third-party LGFunctions; ours convert panics before raising).
		return errors.Wrap(errors.PhaseCall, errors.KindHostPanic, apiErr, "go panic crossed the interpreter")
	}

	obj := apiErr.Object
	if errfunc != nil {
		transformed, herr := s.runErrFunc(errfunc, obj)
		if herr != nil {
			return herr
		}
		obj = transformed
	}
	return s.wrapError(obj)
}

// runErrFunc applies the caller's error handler to the error value, itself
// under protection. A failure here is the distinct errfunc error kind.
func (s *State) runErrFunc(errfunc *lua.LFunction, obj lua.LValue) (lua.LValue, error) {
	if err := engine.Guard(s.ls, errors.PhaseCall, func() {
		s.ls.Push(errfunc)
		s.ls.Push(obj)
	}); err != nil {
		return nil, err
	}
	if err := s.ls.PCall(1, 1, nil); err != nil {
		return nil, errors.ErrFunc(err)
	}
	v := s.ls.Get(-1)
	s.ls.Pop(1)
	return v, nil
}

// unwrapCapture returns the Go error carried by a host-error capture, or
// nil if v is not one. Detection is by metatable identity, read from the
// raw field: GetMetatable honors __metatable and the capture metatable
// hides itself behind it.
func (s *State) unwrapCapture(v lua.LValue) error {
	ud, ok := v.(*lua.LUserData)
	if !ok {
		return nil
	}
	if ud.Metatable != lua.LValue(s.captureMT) {
		return nil
	}
	herr, ok := ud.Value.(error)
	if !ok {
		return nil
	}
	ud.Value = nil // capture is spent
	return herr
}

// GetTable reads obj[key] with metamethod dispatch, under protection.
func (s *State) GetTable(obj, key lua.LValue) (lua.LValue, error) {
	if err := engine.Guard(s.ls, errors.PhaseCall, func() {
		s.ls.Push(s.tramp.getTable)
		s.ls.Push(obj)
		s.ls.Push(key)
	}); err != nil {
		return nil, err
	}
	if err := s.Call(2, 1, nil); err != nil {
		return nil, err
	}
	v := s.ls.Get(-1)
	s.ls.Pop(1)
	return v, nil
}

// SetTable writes obj[key] = value with metamethod dispatch, under
// protection.
func (s *State) SetTable(obj, key, value lua.LValue) error {
	if err := engine.Guard(s.ls, errors.PhaseCall, func() {
		s.ls.Push(s.tramp.setTable)
		s.ls.Push(obj)
		s.ls.Push(key)
		s.ls.Push(value)
	}); err != nil {
		return err
	}
	return s.Call(3, 0, nil)
}

// GetField is GetTable with a string key.
func (s *State) GetField(obj lua.LValue, name string) (lua.LValue, error) {
	return s.GetTable(obj, lua.LString(name))
}

// SetField is SetTable with a string key.
func (s *State) SetField(obj lua.LValue, name string, value lua.LValue) error {
	return s.SetTable(obj, lua.LString(name), value)
}

// Concat concatenates the values left to right, honoring __concat, under
// protection. No values concatenate to the empty string.
func (s *State) Concat(vals ...lua.LValue) (lua.LValue, error) {
	if len(vals) == 0 {
		return lua.LString(""), nil
	}
	if err := engine.Guard(s.ls, errors.PhaseCall, func() {
		s.ls.Push(s.tramp.concat)
		for _, v := range vals {
			s.ls.Push(v)
		}
	}); err != nil {
		return nil, err
	}
	if err := s.Call(len(vals), 1, nil); err != nil {
		return nil, err
	}
	v := s.ls.Get(-1)
	s.ls.Pop(1)
	return v, nil
}

// Equal compares a and b. Raw identity is checked first; it cannot fail and
// skips the protected call. The fallback may invoke __eq and runs under
// protection.
func (s *State) Equal(a, b lua.LValue) (bool, error) {
	if a == b {
		return true, nil
	}
	return s.compare(s.tramp.equal, a, b)
}

// LessThan compares a < b, honoring __lt, under protection.
func (s *State) LessThan(a, b lua.LValue) (bool, error) {
	return s.compare(s.tramp.lessThan, a, b)
}

func (s *State) compare(tramp *lua.LFunction, a, b lua.LValue) (bool, error) {
	if err := engine.Guard(s.ls, errors.PhaseCall, func() {
		s.ls.Push(tramp)
		s.ls.Push(a)
		s.ls.Push(b)
	}); err != nil {
		return false, err
	}
	if err := s.Call(2, 1, nil); err != nil {
		return false, err
	}
	r := lua.LVAsBool(s.ls.Get(-1))
	s.ls.Pop(1)
	return r, nil
}

// GC drives the interpreter's collector through its own collectgarbage,
// under protection. opt is a collectgarbage option ("collect", "count").
func (s *State) GC(opt string) (int, error) {
	if err := engine.Guard(s.ls, errors.PhaseCall, func() {
		s.ls.Push(s.tramp.gc)
		s.ls.Push(lua.LString(opt))
	}); err != nil {
		return 0, err
	}
	if err := s.Call(1, 1, nil); err != nil {
		return 0, err
	}
	n := int(lua.LVAsNumber(s.ls.Get(-1)))
	s.ls.Pop(1)
	return n, nil
}

// Next performs one stateful iteration step over tbl, under protection.
// A nil key starts iteration; a returned nil key ends it.
func (s *State) Next(tbl, key lua.LValue) (lua.LValue, lua.LValue, error) {
	base := s.ls.GetTop()
	if err := engine.Guard(s.ls, errors.PhaseCall, func() {
		s.ls.Push(s.tramp.next)
		s.ls.Push(tbl)
		s.ls.Push(key)
	}); err != nil {
		return nil, nil, err
	}
	if err := s.Call(2, lua.MultRet, nil); err != nil {
		return nil, nil, err
	}
	n := s.ls.GetTop() - base
	if n <= 1 {
		s.ls.SetTop(base)
		return lua.LNil, lua.LNil, nil
	}
	k := s.ls.Get(base + 1)
	v := s.ls.Get(base + 2)
	s.ls.SetTop(base)
	return k, v, nil
}

// ToString returns the string form of v. Only strings and numbers have
// one; anything else is the not-a-string error, with no side effects.
func (s *State) ToString(v lua.LValue) (string, error) {
	if lua.LVCanConvToString(v) {
		return lua.LVAsString(v), nil
	}
	return "", errors.NotString(v.Type().String())
}

// Raw operations performed one frame inside a protected call. Each does
// exactly one fallible thing and returns a fixed number of results.

func getTableTramp(L *lua.LState) int {
	L.Push(L.GetTable(L.Get(1), L.Get(2)))
	return 1
}

func setTableTramp(L *lua.LState) int {
	L.SetTable(L.Get(1), L.Get(2), L.Get(3))
	return 0
}

func equalTramp(L *lua.LState) int {
	L.Push(lua.LBool(L.Equal(L.Get(1), L.Get(2))))
	return 1
}

func lessThanTramp(L *lua.LState) int {
	L.Push(lua.LBool(L.LessThan(L.Get(1), L.Get(2))))
	return 1
}

func gcTramp(L *lua.LState) int {
	L.Push(L.GetGlobal("collectgarbage"))
	L.Push(L.Get(1))
	L.Call(1, 1)
	return 1
}

func nextTramp(L *lua.LState) int {
	tbl := L.CheckTable(1)
	k, v := tbl.Next(L.Get(2))
	if k == lua.LNil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(k)
	L.Push(v)
	return 2
}
