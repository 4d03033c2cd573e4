package engine

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/DemiDroL/lua-runtime/errors"
)

// RefNil is the reference returned for a nil value. Storing nil in a slot
// would delete it and corrupt slot allocation, so nil gets a sentinel.
const RefNil = -1

// freeListKey holds the head of the free-reference list in the table's
// hash part. It must not be an integer: RawSetInt puts key 0 in the hash
// part while RawGetInt reads only the array part, so an integer head would
// never round-trip, and any positive integer would collide with ref slots.
const freeListKey = "free-list-head"

// RegistryGet fetches a private registry field without invoking metamethods.
func RegistryGet(ls *lua.LState, key string) lua.LValue {
	return ls.G.Registry.RawGetString(key)
}

// RegistrySet stores a private registry field without invoking metamethods.
func RegistrySet(ls *lua.LState, key string, v lua.LValue) {
	ls.G.Registry.RawSetString(key, v)
}

// freeHead reads the free-list head; zero means the list is empty.
func freeHead(t *lua.LTable) int {
	if n, ok := t.RawGetString(freeListKey).(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// Ref stores v in t and returns a unique integer key for it, reusing
// released slots through a free list threaded under freeListKey. Freed
// slots hold the next free slot number, never nil, so Len stays a reliable
// high-water mark when the list is empty.
func Ref(t *lua.LTable, v lua.LValue) int {
	if v == lua.LNil {
		return RefNil
	}

	ref := freeHead(t)
	if ref != 0 {
		next, _ := t.RawGetInt(ref).(lua.LNumber)
		t.RawSetString(freeListKey, next)
	} else {
		ref = t.Len() + 1
	}
	t.RawSetInt(ref, v)
	return ref
}

// Unref releases the slot for ref, making its value collectible. The slot
// is pushed onto the free list for reuse. Safe to call with RefNil.
func Unref(t *lua.LTable, ref int) {
	if ref <= 0 {
		return
	}
	t.RawSetInt(ref, lua.LNumber(freeHead(t)))
	t.RawSetString(freeListKey, lua.LNumber(ref))
}

// RefGet fetches the value stored under ref.
func RefGet(t *lua.LTable, ref int) lua.LValue {
	if ref == RefNil {
		return lua.LNil
	}
	return t.RawGetInt(ref)
}

// Guard runs fn, which may push values and raise through the interpreter,
// and converts any raise into a typed error. On failure the stack is
// restored to its prior depth, so a partially pushed operand sequence is
// never left behind.
func Guard(ls *lua.LState, phase errors.Phase, fn func()) (err error) {
	top := ls.GetTop()
	defer func() {
		rcv := recover()
		if rcv == nil {
			return
		}
		ls.SetTop(top)
		err = classifyPanic(phase, rcv)
	}()
	fn()
	return nil
}

// classifyPanic maps a recovered interpreter raise to the error taxonomy.
// gopher-lua reports exhaustion by raising, not by a status code, so memory
// conditions are recognized from the diagnostic text.
func classifyPanic(phase errors.Phase, rcv any) error {
	if apiErr, ok := rcv.(*lua.ApiError); ok {
		if MemoryExhausted(apiErr.Object) {
			return errors.Memory(phase, lua.LVAsString(apiErr.Object))
		}
		return errors.Wrap(phase, errors.KindRuntime, apiErr, "interpreter raised outside protected call")
	}
	msg := fmt.Sprint(rcv)
	if strings.Contains(msg, "overflow") {
		return errors.Memory(phase, msg)
	}
	return errors.New(phase, errors.KindRuntime).Detail(msg).Build()
}

// MemoryExhausted reports whether an interpreter error value describes
// stack or registry exhaustion.
func MemoryExhausted(v lua.LValue) bool {
	if !lua.LVCanConvToString(v) {
		return false
	}
	msg := lua.LVAsString(v)
	return strings.Contains(msg, "stack overflow") || strings.Contains(msg, "registry overflow")
}
