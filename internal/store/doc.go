// Package store provides SQLite-backed durable storage for history journals.
//
// Each editing session appends one row per history event:
//   - record: a history entry was committed
//   - undo / redo: an entry was reverted or re-applied (with its error, if any)
//   - evict: an entry fell off the bottom of the history
//
// Rows carry the record's content-addressed change ID, so an undo row links
// back to the record row it reverted.
//
// # Critical Patterns
//
// Logical Time:
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - Queries MUST include ORDER BY seq ASC (and session_id first when
//     spanning sessions)
//
// Idempotent Appends:
//   - PRIMARY KEY(session_id, seq) with ON CONFLICT DO NOTHING
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
