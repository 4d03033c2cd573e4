package runtime

import (
	"io"

	lua "github.com/yuin/gopher-lua"

	"github.com/DemiDroL/lua-runtime/engine"
	"github.com/DemiDroL/lua-runtime/errors"
)

// LoadString compiles source into a function without running it. The
// interpreter's compilation entry point is internally protected; its
// outcomes are classified into success, syntax error, or memory.
func (s *State) LoadString(source string) (*lua.LFunction, error) {
	return classifyLoad(s.ls.LoadString(source))
}

// Load compiles a named chunk from r.
func (s *State) Load(r io.Reader, name string) (*lua.LFunction, error) {
	return classifyLoad(s.ls.Load(r, name))
}

// LoadFile compiles the chunk at path. A filesystem failure is the file
// error kind, distinct from a syntax error in the file's contents.
func (s *State) LoadFile(path string) (*lua.LFunction, error) {
	return classifyLoad(s.ls.LoadFile(path))
}

func classifyLoad(fn *lua.LFunction, err error) (*lua.LFunction, error) {
	if err == nil {
		return fn, nil
	}
	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindRuntime, err, "load chunk")
	}
	if engine.MemoryExhausted(apiErr.Object) {
		return nil, errors.Memory(errors.PhaseCompile, lua.LVAsString(apiErr.Object))
	}
	switch apiErr.Type {
	case lua.ApiErrorSyntax:
		return nil, errors.Syntax(apiErr)
	case lua.ApiErrorFile:
		return nil, errors.File(apiErr)
	default:
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindRuntime, apiErr, "load chunk")
	}
}

// DoString compiles and runs source under protection, discarding results.
func (s *State) DoString(source string) error {
	fn, err := s.LoadString(source)
	if err != nil {
		return err
	}
	return s.runDiscard(fn)
}

// DoFile compiles and runs the chunk at path under protection, discarding
// results.
func (s *State) DoFile(path string) error {
	fn, err := s.LoadFile(path)
	if err != nil {
		return err
	}
	return s.runDiscard(fn)
}

func (s *State) runDiscard(fn *lua.LFunction) error {
	base := s.ls.GetTop()
	if err := engine.Guard(s.ls, errors.PhaseCall, func() { s.ls.Push(fn) }); err != nil {
		return err
	}
	if err := s.Call(0, lua.MultRet, nil); err != nil {
		return err
	}
	s.ls.SetTop(base)
	return nil
}

// CallGlobal invokes the global function name with args under protection
// and copies all results to the host side, leaving the stack balanced.
func (s *State) CallGlobal(name string, args ...lua.LValue) ([]lua.LValue, error) {
	fn := s.ls.GetGlobal(name)
	if fn == lua.LNil {
		return nil, errors.InvalidInput(errors.PhaseCall, "global "+name+" is not defined")
	}

	base := s.ls.GetTop()
	if err := engine.Guard(s.ls, errors.PhaseCall, func() {
		s.ls.Push(fn)
		for _, a := range args {
			s.ls.Push(a)
		}
	}); err != nil {
		return nil, err
	}
	if err := s.Call(len(args), lua.MultRet, nil); err != nil {
		return nil, err
	}

	n := s.ls.GetTop() - base
	results := make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = s.ls.Get(base + 1 + i)
	}
	s.ls.SetTop(base)
	return results, nil
}
