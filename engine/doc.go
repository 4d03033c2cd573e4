// Package engine contains the low-level gopher-lua plumbing shared by the
// runtime package: metamethod-free registry field access, reference-slot
// allocation for values that must outlive an interpreter stack frame, and
// guarded pushes that convert interpreter raises into typed errors without
// leaving a half-built operand sequence on the stack.
//
// Nothing here dispatches protected calls; that is the runtime package's
// job. engine is safe to use only from the goroutine owning the LState.
package engine
