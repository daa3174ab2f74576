package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_JSONEmit(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &Output{JSON: true, Writer: buf}

	require.NoError(t, out.Emit("s1", map[string]int{"records": 3}, nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "s1", resp.Session)
	assert.Equal(t, map[string]any{"records": float64(3)}, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Contains(t, buf.String(), `"session": "s1"`)
}

func TestOutput_JSONFail(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &Output{JSON: true, Writer: buf}

	details := map[string]string{"file": "settings.cue"}
	cerr := CLIError{Code: ErrCodeConfigInvalid, Message: "debounce_ticks out of range", Details: details}
	require.NoError(t, out.Fail("", cerr, []string{"partial"}, nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, []any{"partial"}, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfigInvalid, resp.Error.Code)
	assert.Equal(t, "debounce_ticks out of range", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
	assert.NotContains(t, buf.String(), `"session"`)
}

func TestOutput_Text(t *testing.T) {
	badStep := CLIError{Code: ErrCodeScenarioInvalid, Message: "bad step", Details: "steps[2]"}
	tests := []struct {
		name    string
		verbose bool
		write   func(o *Output) error
		want    []string
		notWant []string
	}{
		{
			name: "emit",
			write: func(o *Output) error {
				return o.Emit("", 3, func(w io.Writer) { fmt.Fprintln(w, "3 records") })
			},
			want: []string{"3 records"},
		},
		{
			name:    "fail",
			write:   func(o *Output) error { return o.Fail("", badStep, nil, nil) },
			want:    []string{"Error [E_SCENARIO_INVALID]: bad step"},
			notWant: []string{"Details:"},
		},
		{
			name:    "fail verbose",
			verbose: true,
			write:   func(o *Output) error { return o.Fail("", badStep, nil, nil) },
			want:    []string{"Error [E_SCENARIO_INVALID]", "Details: steps[2]"},
		},
		{
			name: "fail with own text",
			write: func(o *Output) error {
				return o.Fail("", badStep, nil, func(w io.Writer) { fmt.Fprintln(w, "✗ 1 file") })
			},
			want:    []string{"✗ 1 file"},
			notWant: []string{"Error ["},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			out := &Output{Writer: buf, Verbose: tt.verbose}
			require.NoError(t, tt.write(out))
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestExitError(t *testing.T) {
	base := errors.New("no such file")
	err := fmt.Errorf("command: %w", WrapExitError(ExitCommandError, "failed to open database", base))

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "failed to open database: no such file")

	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "2 scenario(s) failed")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
