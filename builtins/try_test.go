package builtins

import (
	"context"
	"testing"
	"time"

	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/metrics"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/josephlewis42/pipesh/core/value"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTry_withoutCatchIsEmpty(t *testing.T) {
	state, _ := newTestEngine(t)

	for _, src := range []string{
		"try { asdfasdf }",
		"try { error make {msg: boom} }",
		"try { ^false }",
	} {
		out, err := evalData(state, pipeline.NewInterrupt(context.Background()), src)
		require.NoError(t, err, src)
		assert.IsType(t, pipeline.Empty{}, out, src)
	}
}

func TestTry_bindsTheError(t *testing.T) {
	state, _ := newTestEngine(t)

	v, err := eval(state, "try { error make {msg: boom help: 'try again'} } catch {|e| $e }")
	require.NoError(t, err)

	errValue, ok := v.(value.Error)
	require.True(t, ok, "got %T", v)
	var shellErr *engine.ShellError
	require.ErrorAs(t, errValue.Err, &shellErr)
	assert.Equal(t, "boom", shellErr.Msg)
	assert.Equal(t, "try again", shellErr.Help)

	v, err = eval(state, "try { asdfasdf } catch {|e| $e.kind }")
	require.NoError(t, err)
	assert.Equal(t, value.String(engine.CommandNotFound.String()), v)
}

func TestTry_failedProgram(t *testing.T) {
	state, _ := newTestEngine(t)

	v, err := eval(state, "try { ^exit 3 } catch {|e| $e }")
	require.NoError(t, err)
	assert.Equal(t, value.Nothing{}, v)

	v, err = eval(state, "try { ^exit 3 } catch { 'caught' }")
	require.NoError(t, err)
	assert.Equal(t, value.String("caught"), v)
}

func TestTry_successKeepsExitStatus(t *testing.T) {
	state, _ := newTestEngine(t)
	interrupt := pipeline.NewInterrupt(context.Background())

	out, err := evalData(state, interrupt, "try { ^true } catch { 'caught' }")
	require.NoError(t, err)

	external, ok := out.(pipeline.External)
	require.True(t, ok, "got %T", out)
	assert.Nil(t, external.Stdout)
	assert.Same(t, interrupt, external.ExitCode.Interrupt())
	assert.Equal(t, value.List{value.Int(0)}, external.ExitCode.Collect())
}

func TestTry_capturedOutputIsNotChecked(t *testing.T) {
	state, _ := newTestEngine(t)

	v, err := eval(state, "try { ^false | complete } catch { 'caught' }")
	require.NoError(t, err)
	assert.Equal(t, "{stdout: \"\", stderr: \"\", exit_code: 1}", mustNuon(t, v))
}

func TestTry_nested(t *testing.T) {
	state, _ := newTestEngine(t)

	v, err := eval(state, "try { try { asdfasdf } catch { 'inner' } } catch { 'outer' }")
	require.NoError(t, err)
	assert.Equal(t, value.String("inner"), v)

	v, err = eval(state, "try { try { asdfasdf } catch { qwerty } } catch { 'outer' }")
	require.NoError(t, err)
	assert.Equal(t, value.String("outer"), v)
}

func TestTry_failingCatchPropagates(t *testing.T) {
	state, _ := newTestEngine(t)

	_, err := eval(state, "try { asdfasdf } catch { error make {msg: again} }")
	require.NoError(t, err, "error values are returned, not raised")

	_, err = eval(state, "try { asdfasdf } catch { qwerty }")
	assert.Equal(t, engine.CommandNotFound, engine.KindOf(err))
}

func TestTry_tooManyExitStatuses(t *testing.T) {
	state, _ := newTestEngine(t)
	state.Options.MaxExitStatusValues = 0

	_, err := eval(state, "try { ^true } catch { 'caught' }")
	assert.Equal(t, engine.ExternalFailed, engine.KindOf(err))

	var tooMany *pipeline.TooManyValuesError
	assert.ErrorAs(t, err, &tooMany)
}

func TestTry_interruptIsNotCaught(t *testing.T) {
	state, _ := newTestEngine(t)

	block, err := shell.Parse(state, "try { asdfasdf } catch { 'caught' }")
	require.NoError(t, err)
	call, ok := block.Pipelines[0].Elements[0].(*engine.Call)
	require.True(t, ok)

	interrupt := pipeline.NewInterrupt(context.Background())
	interrupt.Trigger()

	_, err = (&Try{}).Run(engine.NewContext(state, interrupt), call, pipeline.Empty{})
	assert.True(t, engine.IsInterrupted(err), "got %v", err)
}

func TestTry_interruptDuringBlock(t *testing.T) {
	state, _ := newTestEngine(t)
	interrupt := pipeline.NewInterrupt(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		interrupt.Trigger()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := evalData(state, interrupt, "try { ^yes | length } catch { 'caught' }")
		done <- err
	}()

	select {
	case err := <-done:
		assert.True(t, engine.IsInterrupted(err), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("try did not stop after the interrupt")
	}
}

func TestTry_countsCaughtFailures(t *testing.T) {
	state, _ := newTestEngine(t)
	state.Metrics = metrics.New()

	for _, src := range []string{
		"try { asdfasdf }",
		"try { error make {msg: x} }",
		"try { ^false }",
		"try { ^false }",
	} {
		_, err := eval(state, src)
		require.NoError(t, err, src)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(state.Metrics.CaughtFailures.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(state.Metrics.CaughtFailures.WithLabelValues("error_value")))
	assert.Equal(t, 2.0, testutil.ToFloat64(state.Metrics.CaughtFailures.WithLabelValues("exit_status")))
}

func TestTry_catchesJoinFailures(t *testing.T) {
	cases := map[string]string{
		"missing probe key":       "[{b: 1}] | join [{a: 1}] a",
		"missing later probe key": "[{a: 1} {b: 2}] | join [{a: 1}] a",
		"missing build key":       "[{a: 1}] | join [{b: 1}] a",
		"incomparable probe key":  "[{a: NaN}] | join [{a: 1}] a",
		"incomparable build key":  "[{a: 1}] | join [{a: NaN}] a",
		"streamed probe":          "[{b: 1}] | each { |i| $i } | join [{a: 1}] a",
	}

	for name, join := range cases {
		for _, mode := range joinTypes {
			t.Run(name+mode, func(t *testing.T) {
				state, _ := newTestEngine(t)
				src := "try { " + join + " " + mode + " } catch { 'caught' }"

				v, err := eval(state, src)
				require.NoError(t, err, src)
				assert.Equal(t, value.String("caught"), v, src)
			})
		}
	}
}
