// Package undo records edits made to a live entity world and replays them
// backwards and forwards.
//
// No data kind ships its own diff/patch logic. Each tracked kind gets a
// generic pipeline that snapshots values, diffs them against the live world
// every tick, and turns the differences into change records. Records revert
// and apply themselves through a type-erased World.
//
// ARCHITECTURE:
//
// Single-Writer Tick:
// Everything runs inside Engine.Tick, on one goroutine, in fixed phases:
//  1. Debounce ledger decrement
//  2. Drain inbound events (explicit records, undo/redo requests)
//  3. Per-kind pipelines, in registration order
//  4. Append this tick's records to the chain as ONE history entry
//  5. Undo/redo requests, in arrival order
//  6. Identity-remap propagation through the deep reference rewriter
//
// Only the inbound queue is safe for use from other goroutines.
//
// Feedback Suppression:
// Every write performed by a revert or apply goes through the debounce
// ledger. For the next few ticks the pipelines treat the written entities'
// live values as the new baseline instead of as user edits.
//
// Identity Instability:
// Destroying and recreating an entity yields a new identity. Records keep
// the identity they were created with; the chain accumulates a remap table
// (original -> current) and every record resolves through it before acting.
// After a tick that changed identities, the rewriter walks every live value
// of every tracked kind and replaces stale identity fields.
package undo
