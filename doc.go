// Package store provides keyed, observable singleton state containers.
//
// A Store holds one value of any shape. Callers read it with Get, change it
// with Set (one-level merge) or Replace, and observe changes with Subscribe.
// Stores are cached in a Registry by key, so constructing the same key twice
// yields the same instance and the initializer runs once.
//
// When a medium.Medium is configured the value is written through a
// serializer after every accepted change and read back on construction, where
// a persisted value takes precedence over the initializer. Persistence faults
// are logged and never surface to callers of Set.
package store
