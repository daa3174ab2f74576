package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rewind/internal/ident"
	"github.com/roach88/rewind/internal/store"
	"github.com/roach88/rewind/internal/testutil"
	"github.com/roach88/rewind/internal/undo"
	"github.com/roach88/rewind/internal/world"
)

// Options configures a scenario run.
type Options struct {
	// Store receives the journal. Nil means a fresh in-memory database.
	Store *store.Store

	// SessionID names the journal session. Empty means the scenario name.
	SessionID string

	// Engine options applied before the scenario's own overrides.
	Engine []undo.EngineOption

	// Logger for harness progress. Nil discards.
	Logger *slog.Logger
}

// Harness is the test execution engine.
// It drives one engine over a deterministic world.
type Harness struct {
	store   *store.Store
	session string
	world   *world.World
	engine  *undo.Engine
	aliases map[string]ident.ID // alias -> identity at spawn time
	logger  *slog.Logger
}

// Run executes a test scenario in a fresh in-memory database and returns
// the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(context.Background(), scenario, Options{})
}

// RunWithOptions executes a test scenario and returns the result.
//
// Execution flow:
// 1. Open (or reuse) the store and create the journal session
// 2. Build the world and engine, track the scenario's kinds
// 3. Execute steps, evaluating any mid-run expectations
// 4. Evaluate final assertions
// 5. Return result with pass/fail, journal, and errors
func RunWithOptions(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	session := opts.SessionID
	if session == "" {
		session = scenario.Name
	}
	if err := st.CreateSession(ctx, store.Session{
		ID:    session,
		Label: scenario.Name,
		Settings: map[string]any{
			"kinds":          scenario.Kinds,
			"capacity":       scenario.Capacity,
			"debounce_ticks": scenario.DebounceTicks,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	engineOpts := append([]undo.EngineOption{}, opts.Engine...)
	if scenario.Capacity > 0 {
		engineOpts = append(engineOpts, undo.WithCapacity(scenario.Capacity))
	}
	if scenario.DebounceTicks > 0 {
		engineOpts = append(engineOpts, undo.WithDebounceTicks(scenario.DebounceTicks))
	}
	engineOpts = append(engineOpts, undo.WithJournal(st.Journal(session)))

	w := testutil.NewWorld()
	eng := undo.New(w, engineOpts...)
	for _, name := range scenario.Kinds {
		b, ok := lookupKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown kind %q", name)
		}
		b.track(eng)
	}

	h := &Harness{
		store:   st,
		session: session,
		world:   w,
		engine:  eng,
		aliases: make(map[string]ident.ID),
		logger:  logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	for _, msg := range h.evaluate(ctx, scenario.Assertions) {
		result.AddError(msg)
	}

	journal, err := st.ReadJournal(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	summary, err := st.Summarize(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize journal: %w", err)
	}
	result.Journal = journal
	result.Summary = summary

	h.logger.Info("scenario complete",
		"scenario", scenario.Name,
		"session", session,
		"ticks", eng.CurrentTick(),
		"pass", result.Pass)
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	switch {
	case step.Spawn != "":
		if _, ok := h.aliases[step.Spawn]; ok {
			return fmt.Errorf("alias %q already spawned", step.Spawn)
		}
		h.aliases[step.Spawn] = h.engine.Spawn()

	case step.Despawn != "":
		id, err := h.resolve(step.Despawn)
		if err != nil {
			return err
		}
		if !h.engine.Despawn(id) {
			return fmt.Errorf("despawn %q: entity %s does not exist", step.Despawn, id)
		}

	case step.Insert != nil:
		return h.insert(step.Insert)

	case step.Remove != nil:
		id, err := h.resolve(step.Remove.Entity)
		if err != nil {
			return err
		}
		b, err := kindOf(step.Remove.Kind)
		if err != nil {
			return err
		}
		if !h.world.Remove(id, b.typ) {
			return fmt.Errorf("remove %s from %q: not present", step.Remove.Kind, step.Remove.Entity)
		}

	case step.Set != nil:
		return h.set(step.Set)

	case step.Tick > 0:
		h.tick(ctx, step.Tick)

	case step.Undo > 0:
		for range step.Undo {
			h.engine.Undo()
		}
		h.tick(ctx, 1)

	case step.Redo > 0:
		for range step.Redo {
			h.engine.Redo()
		}
		h.tick(ctx, 1)

	case step.Settle:
		// A settled edit needs one quiet tick; engine writes stay
		// debounced for the full window.
		h.tick(ctx, h.engine.Ledger().Window()+2)

	case len(step.Expect) > 0:
		for _, msg := range h.evaluate(ctx, step.Expect) {
			result.AddError(fmt.Sprintf("steps[%d]: %s", index, msg))
		}
	}
	return nil
}

func (h *Harness) tick(ctx context.Context, n int) {
	for range n {
		report := h.engine.Tick(ctx)
		h.logger.Debug("tick",
			"tick", report.Tick,
			"recorded", report.Recorded != nil,
			"steps", len(report.Steps),
			"rewritten", report.Rewritten)
	}
}

// resolve returns the current identity of an alias.
func (h *Harness) resolve(alias string) (ident.ID, error) {
	id, ok := h.aliases[alias]
	if !ok {
		return ident.ID{}, fmt.Errorf("unknown entity alias %q", alias)
	}
	return h.engine.Resolve(id), nil
}

func (h *Harness) insert(vs *ValueStep) error {
	id, err := h.resolve(vs.Entity)
	if err != nil {
		return err
	}
	b, err := kindOf(vs.Kind)
	if err != nil {
		return err
	}

	raw, err := h.substitute(vs.Value)
	if err != nil {
		return err
	}
	value := reflect.New(b.typ)
	if err := decodeInto(raw, value.Interface()); err != nil {
		return fmt.Errorf("insert %s on %q: %w", vs.Kind, vs.Entity, err)
	}
	return h.world.Insert(id, value.Elem().Interface())
}

// set writes one field through the live pointer, the way an editor tool
// mutates a value in place.
func (h *Harness) set(s *SetStep) error {
	id, err := h.resolve(s.Entity)
	if err != nil {
		return err
	}
	b, err := kindOf(s.Kind)
	if err != nil {
		return err
	}
	live, ok := h.world.Get(id, b.typ)
	if !ok {
		return fmt.Errorf("set on %q: no %s value", s.Entity, s.Kind)
	}

	field, err := fieldByPath(reflect.ValueOf(live).Elem(), s.Field)
	if err != nil {
		return fmt.Errorf("set on %q: %w", s.Entity, err)
	}
	raw, err := h.substitute(s.Value)
	if err != nil {
		return err
	}
	target := reflect.New(field.Type())
	if err := decodeInto(raw, target.Interface()); err != nil {
		return fmt.Errorf("set %s.%s on %q: %w", s.Kind, s.Field, s.Entity, err)
	}
	field.Set(target.Elem())
	return nil
}

// substitute replaces "@alias" strings with the alias's current identity.
func (h *Harness) substitute(v any) (any, error) {
	switch v := v.(type) {
	case string:
		alias, ok := strings.CutPrefix(v, "@")
		if !ok {
			return v, nil
		}
		id, err := h.resolve(alias)
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			s, err := h.substitute(item)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			s, err := h.substitute(item)
			if err != nil {
				return nil, err
			}
			out[k] = s
		}
		return out, nil
	default:
		return v, nil
	}
}

// decodeInto converts a generic YAML value into dst through a YAML round trip.
func decodeInto(raw any, dst any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// normalize turns any value into its generic YAML form, so values decoded
// from a scenario and values read from the world compare equal.
func normalize(v any) (any, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// fieldByPath walks a dotted path of YAML field names.
func fieldByPath(v reflect.Value, path string) (reflect.Value, error) {
	if path == "" {
		return v, nil
	}
	for _, name := range strings.Split(path, ".") {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, fmt.Errorf("field %q: nil pointer", path)
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field %q: %s is not a struct", path, v.Type())
		}
		next, ok := structField(v, name)
		if !ok {
			return reflect.Value{}, fmt.Errorf("field %q: %s has no field %q", path, v.Type(), name)
		}
		v = next
	}
	return v, nil
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tagName, _, _ := strings.Cut(sf.Tag.Get("yaml"), ",")
		if tagName == name || (tagName == "" && strings.EqualFold(sf.Name, name)) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
