package runtime

import (
	stderrors "errors"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

// divisionByZeroError is a realistic host error payload: a typed error
// carrying data, thrown from inside a callback and caught by type at the
// host call site.
type divisionByZeroError struct {
	Dividend float64
}

func (e *divisionByZeroError) Error() string {
	return "division by zero"
}

func registerDivide(s *State) {
	s.Register("divide", func(s *State) (int, error) {
		a := float64(s.Raw().CheckNumber(1))
		b := float64(s.Raw().CheckNumber(2))
		if b == 0 {
			return 0, &divisionByZeroError{Dividend: a}
		}
		s.Push(lua.LNumber(a / b))
		return 1, nil
	})
}

func TestCallback_Divide(t *testing.T) {
	s := newTestState(t)
	registerDivide(s)

	results, err := s.CallGlobal("divide", lua.LNumber(10), lua.LNumber(2))
	if err != nil {
		t.Fatalf("divide(10, 2): %v", err)
	}
	if len(results) != 1 || results[0] != lua.LNumber(5) {
		t.Errorf("divide(10, 2) = %v, want [5]", results)
	}
}

func TestCallback_DivideByZero(t *testing.T) {
	s := newTestState(t)
	registerDivide(s)

	_, err := s.CallGlobal("divide", lua.LNumber(10), lua.LNumber(0))
	if err == nil {
		t.Fatal("expected division by zero error")
	}
	var dz *divisionByZeroError
	if !stderrors.As(err, &dz) {
		t.Fatalf("error type = %T, want *divisionByZeroError", err)
	}
	if dz.Dividend != 10 {
		t.Errorf("payload dividend = %v, want 10", dz.Dividend)
	}
}

func TestCallback_ErrorIdentityAcrossLuaFrames(t *testing.T) {
	s := newTestState(t)

	original := &divisionByZeroError{Dividend: 7}
	s.Register("fail", func(s *State) (int, error) {
		return 0, original
	})

	// Several interpreter frames between the protected call and the
	// callback: the error must come back as the same value, not a copy.
	if err := s.DoString(`
		function inner() fail() end
		function outer() inner() end
	`); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := s.CallGlobal("outer")
	if err == nil {
		t.Fatal("expected error")
	}
	var dz *divisionByZeroError
	if !stderrors.As(err, &dz) {
		t.Fatalf("error type = %T, want *divisionByZeroError", err)
	}
	if dz != original {
		t.Error("error lost identity crossing interpreter frames")
	}
}

func TestCallback_SentinelError(t *testing.T) {
	s := newTestState(t)

	sentinel := stderrors.New("quota exceeded")
	s.Register("quota", func(s *State) (int, error) {
		return 0, sentinel
	})

	_, err := s.CallGlobal("quota")
	if !stderrors.Is(err, sentinel) {
		t.Errorf("errors.Is against the sentinel failed: %v", err)
	}
}

func TestCallback_PanicPreserved(t *testing.T) {
	s := newTestState(t)

	s.Register("explode", func(s *State) (int, error) {
		panic("kaboom")
	})

	_, err := s.CallGlobal("explode")
	if err == nil {
		t.Fatal("expected error from panicking callback")
	}
	var hp *HostPanicError
	if !stderrors.As(err, &hp) {
		t.Fatalf("error type = %T, want *HostPanicError", err)
	}
	if hp.Value != "kaboom" {
		t.Errorf("panic value = %v, want kaboom", hp.Value)
	}
}

func TestCallback_Upvalues(t *testing.T) {
	s := newTestState(t)

	fn := s.NewClosure(func(s *State) (int, error) {
		s.Push(s.Upvalue(1))
		s.Push(s.Upvalue(2))
		return 2, nil
	}, lua.LNumber(7), lua.LString("bound"))
	s.SetGlobal("bound", fn)

	results, err := s.CallGlobal("bound")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("result count = %d, want 2", len(results))
	}
	if results[0] != lua.LNumber(7) || results[1] != lua.LString("bound") {
		t.Errorf("upvalues = %v, want [7 bound]", results)
	}
}

func TestCallback_Results(t *testing.T) {
	s := newTestState(t)

	s.Register("three", func(s *State) (int, error) {
		s.Push(lua.LNumber(1))
		s.Push(lua.LNumber(2))
		s.Push(lua.LNumber(3))
		return 3, nil
	})

	if err := s.DoString(`a, b, c = three()`); err != nil {
		t.Fatalf("run: %v", err)
	}
	if v := s.GetGlobal("c"); v != lua.LNumber(3) {
		t.Errorf("c = %v, want 3", v)
	}
}

func TestCallback_ArgumentTypeError(t *testing.T) {
	s := newTestState(t)
	registerDivide(s)

	// CheckNumber raises through the interpreter; the raise must surface
	// as a LuaError, not unwind through the test.
	_, err := s.CallGlobal("divide", lua.LString("ten"), lua.LNumber(2))
	if err == nil {
		t.Fatal("expected argument type error")
	}
	var le *LuaError
	if !stderrors.As(err, &le) {
		t.Fatalf("error type = %T, want *LuaError", err)
	}
	le.Release()
}
