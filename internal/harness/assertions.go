package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/rewind/internal/ident"
)

// evaluate checks assertions against the live world, history and journal.
// Returns error messages for failed assertions (empty slice if all pass).
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.evaluateAssertion(ctx, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func (h *Harness) evaluateAssertion(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertValue:
		return h.assertValue(a)
	case AssertAbsent:
		return h.assertAbsent(a)
	case AssertExists:
		return h.assertExists(a)
	case AssertHistory:
		return h.assertHistory(a)
	case AssertJournalOps:
		return h.assertJournalOps(ctx, a)
	case AssertReference:
		return h.assertReference(a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// lookup returns the field addressed by the assertion on the live value.
func (h *Harness) lookup(a Assertion) (reflect.Value, error) {
	id, err := h.resolve(a.Entity)
	if err != nil {
		return reflect.Value{}, err
	}
	b, err := kindOf(a.Kind)
	if err != nil {
		return reflect.Value{}, err
	}
	live, ok := h.world.Get(id, b.typ)
	if !ok {
		return reflect.Value{}, fmt.Errorf("entity %q (%s) has no %s value", a.Entity, id.Short(), a.Kind)
	}
	return fieldByPath(reflect.ValueOf(live).Elem(), a.Field)
}

func (h *Harness) assertValue(a Assertion) error {
	field, err := h.lookup(a)
	if err != nil {
		return err
	}
	want, err := h.substitute(a.Equals)
	if err != nil {
		return err
	}
	wantNorm, err := normalize(want)
	if err != nil {
		return fmt.Errorf("normalize expected: %w", err)
	}
	gotNorm, err := normalize(field.Interface())
	if err != nil {
		return fmt.Errorf("normalize actual: %w", err)
	}
	if !reflect.DeepEqual(gotNorm, wantNorm) {
		return fmt.Errorf("%s.%s on %q: got %v, want %v", a.Kind, a.Field, a.Entity, gotNorm, wantNorm)
	}
	return nil
}

func (h *Harness) assertAbsent(a Assertion) error {
	id, err := h.resolve(a.Entity)
	if err != nil {
		return err
	}
	if a.Kind == "" {
		if h.world.Exists(id) {
			return fmt.Errorf("entity %q (%s) still exists", a.Entity, id.Short())
		}
		return nil
	}
	b, err := kindOf(a.Kind)
	if err != nil {
		return err
	}
	if h.world.Has(id, b.typ) {
		return fmt.Errorf("entity %q (%s) still holds %s", a.Entity, id.Short(), a.Kind)
	}
	return nil
}

func (h *Harness) assertExists(a Assertion) error {
	id, err := h.resolve(a.Entity)
	if err != nil {
		return err
	}
	if !h.world.Exists(id) {
		return fmt.Errorf("entity %q (%s) does not exist", a.Entity, id.Short())
	}
	return nil
}

func (h *Harness) assertHistory(a Assertion) error {
	chain := h.engine.Chain()
	if a.Undo != nil && chain.Len() != *a.Undo {
		return fmt.Errorf("undo depth: got %d, want %d", chain.Len(), *a.Undo)
	}
	if a.Redo != nil && chain.RedoLen() != *a.Redo {
		return fmt.Errorf("redo depth: got %d, want %d", chain.RedoLen(), *a.Redo)
	}
	return nil
}

func (h *Harness) assertJournalOps(ctx context.Context, a Assertion) error {
	entries, err := h.store.ReadJournal(ctx, h.session)
	if err != nil {
		return err
	}
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = string(e.Op)
	}
	if !slices.Equal(got, a.Ops) {
		return fmt.Errorf("journal ops: got %v, want %v", got, a.Ops)
	}
	return nil
}

func (h *Harness) assertReference(a Assertion) error {
	field, err := h.lookup(a)
	if err != nil {
		return err
	}
	for field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return fmt.Errorf("%s.%s on %q is nil", a.Kind, a.Field, a.Entity)
		}
		field = field.Elem()
	}
	got, ok := field.Interface().(ident.ID)
	if !ok {
		return fmt.Errorf("%s.%s is %s, not an identity", a.Kind, a.Field, field.Type())
	}
	want, err := h.resolve(a.Target)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%s.%s on %q: points at %s, want %q (%s)",
			a.Kind, a.Field, a.Entity, got.Short(), a.Target, want.Short())
	}
	return nil
}
