// Package harness runs scripted editing sessions against a real world,
// history engine and SQLite journal, and checks the outcome.
//
// A scenario is YAML:
//
//	name: edit_and_undo
//	description: Edit a counter, then undo the edit
//	kinds: [counter]
//	steps:
//	  - spawn: a
//	  - insert: {entity: a, kind: counter, value: {x: 1}}
//	  - tick: 1
//	  - set: {entity: a, kind: counter, field: x, value: 2}
//	  - settle: true
//	  - undo: 1
//	  - settle: true
//	assertions:
//	  - {type: value, entity: a, kind: counter, field: x, equals: 1}
//
// Entities are named by alias. An alias always denotes the entity's current
// identity, following the engine's remap table across destroy/recreate
// cycles. Inside values, a string "@alias" stands for that entity's identity.
//
// Each run uses a fresh sequential identity generator and an in-memory
// journal, so the same scenario always produces the same journal.
package harness
