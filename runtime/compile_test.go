package runtime

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/DemiDroL/lua-runtime/errors"
)

func TestLoadString_Valid(t *testing.T) {
	s := newTestState(t)

	fn, err := s.LoadString(`return 1 + 1`)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fn == nil {
		t.Fatal("expected a compiled function")
	}
}

func TestLoadString_SyntaxError(t *testing.T) {
	s := newTestState(t)

	_, err := s.LoadString(`function ( end`)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !stderrors.Is(err, errors.Syntax(nil)) {
		t.Errorf("error = %v, want syntax kind", err)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	s := newTestState(t)

	_, err := s.LoadFile(filepath.Join(t.TempDir(), "missing.lua"))
	if err == nil {
		t.Fatal("expected file error")
	}
	if !stderrors.Is(err, errors.File(nil)) {
		t.Errorf("error = %v, want file kind", err)
	}
	if stderrors.Is(err, errors.Syntax(nil)) {
		t.Error("file error must be distinct from syntax error")
	}
}

func TestLoadFile_SyntaxError(t *testing.T) {
	s := newTestState(t)

	path := filepath.Join(t.TempDir(), "bad.lua")
	if err := os.WriteFile(path, []byte(`function ( end`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := s.LoadFile(path)
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !stderrors.Is(err, errors.Syntax(nil)) {
		t.Errorf("error = %v, want syntax kind", err)
	}
}

func TestDoFile(t *testing.T) {
	s := newTestState(t)

	path := filepath.Join(t.TempDir(), "chunk.lua")
	if err := os.WriteFile(path, []byte(`answer = 42`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := s.DoFile(path); err != nil {
		t.Fatalf("dofile: %v", err)
	}
	if v := s.GetGlobal("answer"); v != lua.LNumber(42) {
		t.Errorf("answer = %v, want 42", v)
	}
}

func TestCallGlobal_MultipleResults(t *testing.T) {
	s := newTestState(t)

	if err := s.DoString(`function pair(a, b) return b, a end`); err != nil {
		t.Fatalf("setup: %v", err)
	}

	results, err := s.CallGlobal("pair", lua.LNumber(1), lua.LNumber(2))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(results) != 2 || results[0] != lua.LNumber(2) || results[1] != lua.LNumber(1) {
		t.Errorf("pair(1, 2) = %v, want [2 1]", results)
	}
}

func TestCallGlobal_Undefined(t *testing.T) {
	s := newTestState(t)

	_, err := s.CallGlobal("nosuchfunction")
	if err == nil {
		t.Fatal("expected error calling an undefined global")
	}
	if !stderrors.Is(err, errors.InvalidInput(errors.PhaseCall, "")) {
		t.Errorf("error = %v, want invalid_input kind", err)
	}
}

func TestCallGlobal_StackBalanced(t *testing.T) {
	s := newTestState(t)

	if err := s.DoString(`function id(...) return ... end`); err != nil {
		t.Fatalf("setup: %v", err)
	}

	top := s.GetTop()
	if _, err := s.CallGlobal("id", lua.LNumber(1), lua.LNumber(2), lua.LNumber(3)); err != nil {
		t.Fatalf("call: %v", err)
	}
	if got := s.GetTop(); got != top {
		t.Errorf("stack depth = %d, want %d", got, top)
	}
}
