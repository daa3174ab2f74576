// Package ident provides the opaque identity handle that names one entity.
//
// Identities are comparable and cheap to copy, but they are NOT durable:
// destroying an entity and creating it again yields a different ID. Code that
// holds an ID across an undo or redo must resolve it through a remap table
// before acting on it.
package ident
