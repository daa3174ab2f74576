package undo

import (
	"slices"

	"github.com/roach88/rewind/internal/ident"
)

// Pair records that Original is now known as Current.
type Pair struct {
	Original ident.ID
	Current  ident.ID
}

// Remap maps original identities to the identity currently denoting the same
// conceptual entity. Entries are only ever added or overwritten, never removed.
//
// A nil *Remap resolves every identity to itself.
type Remap struct {
	table map[ident.ID]ident.ID
}

// NewRemap creates an empty remap table.
func NewRemap() *Remap {
	return &Remap{table: make(map[ident.ID]ident.ID)}
}

// Resolve follows the table from id to a fixpoint. Chains form when a record
// created after one remap refers to the intermediate identity.
func (r *Remap) Resolve(id ident.ID) ident.ID {
	if r == nil {
		return id
	}
	// Bounded by table size: a well-formed table never loops, but a
	// malformed one must not hang the tick.
	for i := 0; i <= len(r.table); i++ {
		next, ok := r.table[id]
		if !ok || next == id {
			return id
		}
		id = next
	}
	return id
}

// Merge adds pairs to the table, overwriting earlier entries for the same
// original identity. The identity an original used to resolve to is
// forwarded as well, so live values still holding it resolve to the newest
// identity too.
func (r *Remap) Merge(pairs ...Pair) {
	for _, p := range pairs {
		if p.Original == p.Current {
			continue
		}
		prev := r.Resolve(p.Original)
		r.table[p.Original] = p.Current
		if prev != p.Original && prev != p.Current {
			r.table[prev] = p.Current
		}
	}
}

// Clone returns an independent copy. Cloning nil yields an empty table.
func (r *Remap) Clone() *Remap {
	out := NewRemap()
	if r == nil {
		return out
	}
	for k, v := range r.table {
		out.table[k] = v
	}
	return out
}

// Len returns the number of entries.
func (r *Remap) Len() int {
	if r == nil {
		return 0
	}
	return len(r.table)
}

// Pairs returns the raw entries ordered by original identity.
func (r *Remap) Pairs() []Pair {
	if r == nil {
		return nil
	}
	pairs := make([]Pair, 0, len(r.table))
	for k, v := range r.table {
		pairs = append(pairs, Pair{Original: k, Current: v})
	}
	slices.SortFunc(pairs, func(a, b Pair) int {
		return ident.Compare(a.Original, b.Original)
	})
	return pairs
}
