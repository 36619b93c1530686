package builtins

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/josephlewis42/pipesh/commands"
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/josephlewis42/pipesh/core/value"
	"github.com/josephlewis42/pipesh/core/vos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*engine.EngineState, *bytes.Buffer) {
	t.Helper()

	var terminal bytes.Buffer
	state := engine.NewEngineState()
	state.Stdout = &terminal
	state.Stderr = &terminal
	state.Launcher = &vos.VirtualLauncher{Resolver: commands.Resolve}
	state.Env.Setenv("PATH", vos.DefaultPath)
	Register(state)
	return state, &terminal
}

// evalData parses and runs src, capturing the output of a trailing external.
func evalData(state *engine.EngineState, interrupt *pipeline.Interrupt, src string) (pipeline.Data, error) {
	block, err := shell.Parse(state, src)
	if err != nil {
		return nil, err
	}
	ctx := engine.NewContext(state, interrupt)
	return engine.EvalBlock(ctx, block, pipeline.Empty{}, engine.Redirect{Stdout: true})
}

func eval(state *engine.EngineState, src string) (value.Value, error) {
	out, err := evalData(state, pipeline.NewInterrupt(context.Background()), src)
	if err != nil {
		return nil, err
	}
	return pipeline.IntoValue(out), nil
}

func mustNuon(t *testing.T, v value.Value) string {
	t.Helper()
	out, err := value.ToNuon(v)
	require.NoError(t, err)
	return out
}

func TestExamples(t *testing.T) {
	for _, cmd := range All() {
		for i, example := range cmd.Examples() {
			t.Run(fmt.Sprintf("%s/%d", cmd.Name(), i), func(t *testing.T) {
				state, _ := newTestEngine(t)

				actual, err := eval(state, example.Example)
				require.NoError(t, err, example.Example)
				if example.Result == nil {
					return
				}
				assert.True(t, value.Equal(example.Result, actual),
					"%s\nexpected: %s\nactual: %s", example.Example, mustNuon(t, example.Result), mustNuon(t, actual))
			})
		}
	}
}

func TestAll_uniqueNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, cmd := range All() {
		assert.False(t, seen[cmd.Name()], "duplicate command %q", cmd.Name())
		seen[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Usage(), cmd.Name())
		assert.NotNil(t, cmd.Signature(), cmd.Name())
	}
}

func TestEach_errorsBecomeValues(t *testing.T) {
	state, _ := newTestEngine(t)

	v, err := eval(state, "[1 2] | each {|i| $nope }")
	require.NoError(t, err)

	list, ok := v.(value.List)
	require.True(t, ok)
	require.Len(t, list, 2)
	errValue, ok := list[0].(value.Error)
	require.True(t, ok)
	assert.Equal(t, engine.VariableNotFound, engine.KindOf(errValue.Err))
}

func TestComplete(t *testing.T) {
	state, _ := newTestEngine(t)

	v, err := eval(state, "^sh -c 'echo out; exit 4' | complete")
	require.NoError(t, err)
	assert.Equal(t, "{stdout: \"out\\n\", stderr: \"\", exit_code: 4}", mustNuon(t, v))

	_, err = eval(state, "[1] | complete")
	assert.Equal(t, engine.TypeMismatch, engine.KindOf(err))
}

func TestToJSON_fromJSONRoundTrip(t *testing.T) {
	state, _ := newTestEngine(t)

	v, err := eval(state, "[[name, size]; [a, 1], [b, 2.5]] | to json | from json")
	require.NoError(t, err)
	assert.Equal(t, "[[name, size]; [a, 1], [b, 2.5]]", mustNuon(t, v))

	_, err = eval(state, "'{' | from json")
	assert.Equal(t, engine.ParseFailed, engine.KindOf(err))
}

func TestSave_refusesToOverwrite(t *testing.T) {
	state, _ := newTestEngine(t)

	_, err := eval(state, "'a' | save x.txt")
	require.NoError(t, err)

	_, err = eval(state, "'b' | save x.txt")
	var shellErr *engine.ShellError
	require.ErrorAs(t, err, &shellErr)
	assert.Equal(t, "use --force to overwrite", shellErr.Help)

	v, err := eval(state, "'b' | save --force x.txt; open x.txt")
	require.NoError(t, err)
	assert.Equal(t, value.String("b"), v)
}

func TestOpen_missingFile(t *testing.T) {
	state, _ := newTestEngine(t)

	_, err := eval(state, "open /nope.json")
	assert.Error(t, err)
}
