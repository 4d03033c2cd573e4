package runtime

import (
	stderrors "errors"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/DemiDroL/lua-runtime/errors"
)

func failWith(t *testing.T, s *State, chunk string) *LuaError {
	t.Helper()
	err := s.DoString(chunk)
	if err == nil {
		t.Fatalf("chunk %q should have failed", chunk)
	}
	var le *LuaError
	if !stderrors.As(err, &le) {
		t.Fatalf("error type = %T, want *LuaError", err)
	}
	return le
}

func TestLuaError_Message(t *testing.T) {
	s := newTestState(t)

	le := failWith(t, s, `error("boom")`)
	defer le.Release()

	if !strings.Contains(le.Error(), "boom") {
		t.Errorf("message = %q, want it to contain \"boom\"", le.Error())
	}
}

func TestLuaError_DefaultMessage(t *testing.T) {
	s := newTestState(t)

	le := failWith(t, s, `error({code = 1})`)
	defer le.Release()

	if le.Error() != defaultErrorMessage {
		t.Errorf("message = %q, want %q for a table error value", le.Error(), defaultErrorMessage)
	}
}

func TestLuaError_ValuePreserved(t *testing.T) {
	s := newTestState(t)

	le := failWith(t, s, `error({code = 42})`)
	defer le.Release()

	v, err := le.Value(s)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	tbl, ok := v.(*lua.LTable)
	if !ok {
		t.Fatalf("captured value type = %T, want *lua.LTable", v)
	}
	if code := tbl.RawGetString("code"); code != lua.LNumber(42) {
		t.Errorf("captured value code = %v, want 42", code)
	}
}

func TestLuaError_RoundTrip(t *testing.T) {
	s := newTestState(t)

	le := failWith(t, s, `error({code = 42})`)
	defer le.Release()

	orig, err := le.Value(s)
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	// A host callback that deliberately re-throws the captured error.
	s.Register("rethrow", func(s *State) (int, error) {
		return 0, le
	})

	_, err = s.CallGlobal("rethrow")
	if err == nil {
		t.Fatal("expected re-raised error")
	}
	var le2 *LuaError
	if !stderrors.As(err, &le2) {
		t.Fatalf("error type = %T, want *LuaError", err)
	}
	defer le2.Release()

	restored, err := le2.Value(s)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if restored != orig {
		t.Error("re-raised error value is not the originally captured value")
	}
	eq, err := s.Equal(orig, restored)
	if err != nil {
		t.Fatalf("equal: %v", err)
	}
	if !eq {
		t.Error("interpreter equality should hold for the round-tripped value")
	}
}

func TestLuaError_CrossContext(t *testing.T) {
	s1 := newTestState(t)
	s2 := newTestState(t)

	le := failWith(t, s1, `error("boom")`)
	defer le.Release()

	// Deterministic: every attempt fails the same way.
	for i := 0; i < 3; i++ {
		err := le.PushError(s2)
		if err == nil {
			t.Fatal("expected cross-context error")
		}
		if !stderrors.Is(err, errors.CrossContext()) {
			t.Errorf("attempt %d: error = %v, want cross_context kind", i, err)
		}
	}

	// The owning state still accepts it.
	if err := le.PushError(s1); err != nil {
		t.Fatalf("push into owner: %v", err)
	}
	s1.Pop(1)
}

func TestLuaError_ReleaseIdempotent(t *testing.T) {
	s := newTestState(t)

	le := failWith(t, s, `error("boom")`)
	le.Release()
	le.Release() // must not corrupt the free list

	if _, err := le.Value(s); err == nil {
		t.Fatal("expected error reading a released value")
	}
}

func TestLuaError_ReleaseAfterClose(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("create state: %v", err)
	}

	doErr := s.DoString(`error("boom")`)
	var le *LuaError
	if !stderrors.As(doErr, &le) {
		t.Fatalf("error type = %T, want *LuaError", doErr)
	}

	s.Close()
	le.Release() // must not touch the destroyed interpreter

	if _, err := le.Value(s); err == nil {
		t.Fatal("expected error reading a value from a closed state")
	}
}

func TestLuaError_SlotReuse(t *testing.T) {
	s := newTestState(t)

	le1 := failWith(t, s, `error("first")`)
	le2 := failWith(t, s, `error("second")`)

	v2, err := le2.Value(s)
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	le1.Release()
	le3 := failWith(t, s, `error("third")`)
	defer le3.Release()
	defer le2.Release()

	// le1's slot was reused; le2 must be untouched.
	got, err := le2.Value(s)
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if got != v2 {
		t.Error("releasing one error disturbed another error's slot")
	}
}
