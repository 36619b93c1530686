package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/value"
	"github.com/josephlewis42/pipesh/core/vos"
	"github.com/josephlewis42/pipesh/core/vos/vostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthrough returns its input unchanged.
type passthrough struct {
	name   string
	stderr bool
}

func (p *passthrough) Name() string { return p.name }
func (p *passthrough) Signature() *Signature {
	return &Signature{CapturesStderr: p.stderr}
}
func (p *passthrough) Usage() string       { return "return the input" }
func (p *passthrough) Examples() []Example { return nil }
func (p *passthrough) Run(ctx *Context, call *Call, input pipeline.Data) (pipeline.Data, error) {
	return input, nil
}

func lit(v value.Value) Expr {
	return &Literal{Value: v}
}

func pipe(elements ...Expr) *Pipeline {
	return &Pipeline{Elements: elements}
}

func newTestEngine(t *testing.T) (*EngineState, *bytes.Buffer) {
	t.Helper()

	var terminal bytes.Buffer
	engine := NewEngineState()
	engine.Stdout = &terminal
	engine.Launcher = &vos.VirtualLauncher{
		Resolver: vostest.MapResolver(map[string]vos.ProcessFunc{
			"hello": func(virtOS vos.VOS) int {
				fmt.Fprintln(virtOS.Stdout(), "hello")
				fmt.Fprintln(virtOS.Stderr(), "oops")
				return 0
			},
			"fail": func(virtOS vos.VOS) int {
				return 3
			},
			"upper": func(virtOS vos.VOS) int {
				b, _ := io.ReadAll(virtOS.Stdin())
				fmt.Fprint(virtOS.Stdout(), string(bytes.ToUpper(b)))
				return 0
			},
			"yes": func(virtOS vos.VOS) int {
				for {
					if _, err := fmt.Fprintln(virtOS.Stdout(), "y"); err != nil {
						return 1
					}
				}
			},
		}),
	}
	engine.Env.Setenv("PATH", "/bin")
	engine.AddDecl(&passthrough{name: "id"})
	engine.AddDecl(&passthrough{name: "capture", stderr: true})
	return engine, &terminal
}

func TestEvalBlock_empty(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := NewContext(engine, nil)

	out, err := EvalBlock(ctx, &Block{}, pipeline.FromValue(value.Int(1)), Redirect{})
	assert.NoError(t, err)
	assert.Equal(t, pipeline.Empty{}, out)
}

func TestEvalBlock_inputOnlyReachesFirstPipeline(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := NewContext(engine, nil)

	block := &Block{Pipelines: []*Pipeline{
		{Let: "x", Elements: []Expr{&Call{Name: "id"}}},
		pipe(&Call{Name: "id"}),
	}}

	out, err := EvalBlock(ctx, block, pipeline.FromValue(value.Int(7)), Redirect{})
	require.NoError(t, err)
	assert.Equal(t, value.Nothing{}, pipeline.IntoValue(out))

	bound, ok := ctx.Stack.Var("x")
	assert.True(t, ok)
	assert.Equal(t, value.Int(7), bound)
}

func TestEvalBlock_errorValueInEarlierPipelineFails(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := NewContext(engine, nil)

	cause := Errorf(Generic, value.Span{}, "boom")
	block := &Block{Pipelines: []*Pipeline{
		pipe(lit(value.Error{Err: cause})),
		pipe(lit(value.Int(1))),
	}}

	_, err := EvalBlock(ctx, block, pipeline.Empty{}, Redirect{})
	assert.ErrorIs(t, err, cause)
}

func TestEvalExpr(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := NewContext(engine, nil)
	ctx.Stack.AddVar("rec", value.RecordOf("a", value.Int(1)))
	ctx.Stack.AddVar("err", value.Error{Err: &ShellError{Msg: "bad", Help: "fix it"}})

	cases := map[string]struct {
		expr     Expr
		expected value.Value
		kind     ErrorKind
	}{
		"record": {
			expr:     &RecordExpr{Fields: []RecordField{{"b", lit(value.Int(2))}, {"a", lit(value.Int(1))}}},
			expected: value.RecordOf("b", value.Int(2), "a", value.Int(1)),
		},
		"list": {
			expr:     &ListExpr{Items: []Expr{lit(value.Int(1)), lit(value.String("x"))}},
			expected: value.List{value.Int(1), value.String("x")},
		},
		"table": {
			expr: &TableExpr{Columns: []string{"a"}, Rows: [][]Expr{{lit(value.Int(1))}, {lit(value.Int(2))}}},
			expected: value.List{
				value.RecordOf("a", value.Int(1)),
				value.RecordOf("a", value.Int(2)),
			},
		},
		"var-path":     {expr: &VarRef{Name: "rec", Path: []string{"a"}}, expected: value.Int(1)},
		"error-msg":    {expr: &VarRef{Name: "err", Path: []string{"msg"}}, expected: value.String("bad")},
		"error-help":   {expr: &VarRef{Name: "err", Path: []string{"help"}}, expected: value.String("fix it")},
		"missing-var":  {expr: &VarRef{Name: "nope"}, kind: VariableNotFound},
		"missing-path": {expr: &VarRef{Name: "rec", Path: []string{"z"}}, kind: MissingColumn},
		"closure":      {expr: &ClosureRef{ID: 4}, expected: value.Closure{BlockID: 4}},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			actual, err := EvalExpr(ctx, tc.expr)
			if tc.expected == nil {
				require.Error(t, err)
				assert.Equal(t, tc.kind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, value.Equal(tc.expected, actual), "got %#v", actual)
		})
	}
}

func TestEvalClosure_scopes(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := NewContext(engine, nil)
	ctx.Stack.AddVar("outer", value.Int(1))

	id := engine.AddBlock(&Block{
		Params: []string{"x", "y"},
		Pipelines: []*Pipeline{
			{Let: "inner", Elements: []Expr{lit(value.Int(2))}},
			pipe(&ListExpr{Items: []Expr{&VarRef{Name: "x"}, &VarRef{Name: "y"}, &VarRef{Name: "outer"}}}),
		},
	})

	out, err := EvalClosure(ctx, id, []value.Value{value.String("a")}, pipeline.Empty{}, Redirect{})
	require.NoError(t, err)
	assert.Equal(t, value.List{value.String("a"), value.Nothing{}, value.Int(1)}, pipeline.IntoValue(out))

	_, ok := ctx.Stack.Var("inner")
	assert.False(t, ok, "closure bindings don't leak into the caller")
}

func TestExternal_redirect(t *testing.T) {
	engine, terminal := newTestEngine(t)
	ctx := NewContext(engine, nil)

	out, err := EvalBlock(ctx, &Block{Pipelines: []*Pipeline{pipe(&ExternalCall{Name: "hello"})}}, pipeline.Empty{}, Redirect{})
	require.NoError(t, err)

	external, ok := out.(pipeline.External)
	require.True(t, ok)
	assert.Nil(t, external.Stdout, "stdout went to the terminal")
	assert.Equal(t, value.List{value.Int(0)}, external.ExitCode.Collect())
	assert.Equal(t, "hello\n", terminal.String())

	out, err = EvalBlock(ctx, &Block{Pipelines: []*Pipeline{pipe(&ExternalCall{Name: "hello"})}}, pipeline.Empty{}, Redirect{Stdout: true})
	require.NoError(t, err)
	assert.Equal(t, value.String("hello"), pipeline.IntoValue(out))
}

func TestExternal_stderrCapturedForNextCommand(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := NewContext(engine, nil)

	out, err := EvalBlock(ctx, &Block{Pipelines: []*Pipeline{
		pipe(&ExternalCall{Name: "hello"}, &Call{Name: "capture"}),
	}}, pipeline.Empty{}, Redirect{})
	require.NoError(t, err)

	external := out.(pipeline.External)
	require.NotNil(t, external.Stderr)
	require.NotNil(t, external.Stdout)
	assert.Equal(t, "oops\n", string(external.Stderr.ReadAll()))
	assert.Equal(t, "hello\n", string(external.Stdout.ReadAll()))
}

func TestExternal_stdinAndExitCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := NewContext(engine, nil)

	out, err := EvalBlock(ctx, &Block{Pipelines: []*Pipeline{
		pipe(lit(value.List{value.String("a"), value.Int(1)}), &ExternalCall{Name: "upper"}),
	}}, pipeline.Empty{}, Redirect{Stdout: true})
	require.NoError(t, err)
	assert.Equal(t, value.String("A\n1"), pipeline.IntoValue(out))

	out, err = EvalBlock(ctx, &Block{Pipelines: []*Pipeline{pipe(&ExternalCall{Name: "fail"})}}, pipeline.Empty{}, Redirect{})
	require.NoError(t, err)
	assert.Equal(t, value.List{value.Int(3)}, out.(pipeline.External).ExitCode.Collect())
}

func TestExternal_notFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := NewContext(engine, nil)

	_, err := EvalBlock(ctx, &Block{Pipelines: []*Pipeline{pipe(&ExternalCall{Name: "asdfasdf"})}}, pipeline.Empty{}, Redirect{})
	assert.Equal(t, CommandNotFound, KindOf(err))
	assert.ErrorIs(t, err, vos.ErrNotFound)
}

func TestExternal_interruptStopsProducer(t *testing.T) {
	engine, _ := newTestEngine(t)
	interrupt := pipeline.NewInterrupt(context.Background())
	ctx := NewContext(engine, interrupt)

	out, err := EvalBlock(ctx, &Block{Pipelines: []*Pipeline{pipe(&ExternalCall{Name: "yes"})}}, pipeline.Empty{}, Redirect{Stdout: true})
	require.NoError(t, err)
	external := out.(pipeline.External)

	chunk, ok := external.Stdout.Next()
	require.True(t, ok)
	assert.Contains(t, string(chunk), "y")

	interrupt.Trigger()

	done := make(chan struct{})
	go func() {
		defer close(done)
		pipeline.Drain(external)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("external output kept flowing after interrupt")
	}

	_, err = EvalBlock(ctx, &Block{Pipelines: []*Pipeline{pipe(lit(value.Int(1)))}}, pipeline.Empty{}, Redirect{})
	assert.True(t, IsInterrupted(err))
}

// recordingLauncher remembers the context of every process it starts.
type recordingLauncher struct {
	vos.Launcher
	started []context.Context
}

func (l *recordingLauncher) Start(ctx context.Context, name string, argv []string, attr *vos.ProcAttr) (vos.Process, error) {
	l.started = append(l.started, ctx)
	return l.Launcher.Start(ctx, name, argv, attr)
}

func TestCollect_releasesPipelineInterrupts(t *testing.T) {
	engine, _ := newTestEngine(t)
	launcher := &recordingLauncher{Launcher: engine.Launcher}
	engine.Launcher = launcher

	line := pipeline.NewInterrupt(context.Background())
	ctx := NewContext(engine, line)

	id := engine.AddBlock(&Block{
		Params:    []string{"i"},
		Pipelines: []*Pipeline{pipe(&ExternalCall{Name: "hello"}, &Call{Name: "id"})},
	})
	for i := 0; i < 3; i++ {
		v, err := CollectClosure(ctx, id, []value.Value{value.Int(i)}, pipeline.Empty{})
		require.NoError(t, err)
		assert.Equal(t, value.String("hello"), v)
	}

	_, err := EvalBlock(ctx, &Block{Pipelines: []*Pipeline{
		{Let: "x", Elements: []Expr{&ExternalCall{Name: "hello"}, &Call{Name: "id"}}},
		pipe(&ExternalCall{Name: "hello"}, &Call{Name: "id"}),
		pipe(lit(value.Int(1))),
	}}, pipeline.Empty{}, Redirect{})
	require.NoError(t, err)

	require.Len(t, launcher.started, 5)
	for i, started := range launcher.started {
		assert.Error(t, started.Err(), "process %d still holds its interrupt", i)
	}
	assert.False(t, line.Triggered())
}

func TestStack(t *testing.T) {
	root := NewStack()
	root.AddVar("a", value.Int(1))

	child := root.Push()
	child.AddVar("a", value.Int(2))
	child.AddVar("b", value.Int(3))

	v, _ := child.Var("a")
	assert.Equal(t, value.Int(2), v)
	v, _ = root.Var("a")
	assert.Equal(t, value.Int(1), v)
	_, ok := root.Var("b")
	assert.False(t, ok)
}

func TestFormatSignature(t *testing.T) {
	sig := &Signature{
		Required: []PositionalArg{{Name: "try_block", Shape: ShapeBlock}},
		Optional: []PositionalArg{{Name: "catch_block", Shape: ShapeClosure, Keyword: "catch"}},
		Flags:    []Flag{{Long: "raw", Short: 'r'}, {Long: "indent", Arg: ShapeArg(ShapeInt)}},
	}

	assert.Equal(t, "try <try_block> [catch <catch_block>] --raw(-r) --indent <int>", FormatSignature("try", sig))
}
