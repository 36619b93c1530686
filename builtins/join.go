package builtins

import (
	"github.com/josephlewis42/pipesh/core/engine"
	"github.com/josephlewis42/pipesh/core/metrics"
	"github.com/josephlewis42/pipesh/core/pipeline"
	"github.com/josephlewis42/pipesh/core/value"
)

type joinMode int

const (
	joinInner joinMode = iota
	joinLeft
	joinRight
	joinOuter
)

func (m joinMode) String() string {
	switch m {
	case joinInner:
		return "inner"
	case joinLeft:
		return "left"
	case joinRight:
		return "right"
	case joinOuter:
		return "outer"
	default:
		return "unknown"
	}
}

// Join combines the input table with another table on equal key values.
//
// One side, the build side, is indexed in memory while the other, the probe
// side, is read row by row. The right table is the build side except for
// right joins, which mirror the roles so rows come out in right table order.
// The output is collected before it's returned so a bad row on either side
// fails the command instead of ending up in the table.
type Join struct{}

var _ engine.Command = (*Join)(nil)

func (*Join) Name() string { return "join" }

func (*Join) Usage() string {
	return "Join two tables on a column."
}

func (*Join) Signature() *engine.Signature {
	return &engine.Signature{
		Required: []engine.PositionalArg{
			{Name: "right-table", Shape: engine.ShapeList, Desc: "the right table in the join"},
			{Name: "left-on", Shape: engine.ShapeString, Desc: "name of the column in the input table to join on"},
		},
		Optional: []engine.PositionalArg{
			{Name: "right-on", Shape: engine.ShapeString, Desc: "name of the column in the right table to join on, defaults to left-on"},
		},
		Flags: []engine.Flag{
			{Long: "inner", Short: 'i', Desc: "inner join (default)"},
			{Long: "left", Short: 'l', Desc: "left-outer join"},
			{Long: "right", Short: 'r', Desc: "right-outer join"},
			{Long: "outer", Short: 'o', Desc: "outer join"},
		},
	}
}

func (*Join) Examples() []engine.Example {
	return []engine.Example{
		{
			Description: "Join two tables",
			Example:     "[{a: 1 b: 2}] | join [{a: 1 c: 3}] a",
			Result:      value.List{value.RecordOf("a", value.Int(1), "b", value.Int(2), "c", value.Int(3))},
		},
		{
			Description: "Keep rows of the input table without a match",
			Example:     "[{a: 1} {a: 2}] | join --left [{a: 1 c: 3}] a",
			Result: value.List{
				value.RecordOf("a", value.Int(1), "c", value.Int(3)),
				value.RecordOf("a", value.Int(2), "c", value.Nothing{}),
			},
		},
		{
			Description: "Join on differently named columns",
			Example:     "[{id: 1 name: x}] | join [{user: 1 age: 30}] id user",
			Result:      value.List{value.RecordOf("id", value.Int(1), "name", value.String("x"), "age", value.Int(30))},
		},
	}
}

func joinModeOf(call *engine.Call) (joinMode, error) {
	mode := joinInner
	count := 0
	for _, m := range []joinMode{joinInner, joinLeft, joinRight, joinOuter} {
		if call.HasFlag(m.String()) {
			mode = m
			count++
		}
	}
	if count > 1 {
		return 0, &engine.ShellError{
			Kind: engine.IncompatibleFlags,
			Span: call.Span,
			Msg:  "join accepts only one of --inner, --left, --right and --outer",
		}
	}
	return mode, nil
}

func (*Join) Run(ctx *engine.Context, call *engine.Call, input pipeline.Data) (pipeline.Data, error) {
	mode, err := joinModeOf(call)
	if err != nil {
		return nil, err
	}

	rightValue, err := call.Req(ctx, 0, "right-table")
	if err != nil {
		return nil, err
	}
	rightRows, ok := rightValue.(value.List)
	if !ok {
		return nil, engine.TypeMismatchError("table", rightValue, call.Positional[0].ExprSpan())
	}
	leftOn, err := call.ReqString(ctx, 1, "left-on")
	if err != nil {
		return nil, err
	}
	rightOn := leftOn
	if v, ok, err := call.Opt(ctx, 2); err != nil {
		return nil, err
	} else if ok {
		if rightOn, err = engine.AsString(v, call.Positional[2].ExprSpan()); err != nil {
			return nil, err
		}
	}

	j := &joiner{
		mode:    mode,
		leftOn:  leftOn,
		rightOn: rightOn,
		span:    call.Span,
		metrics: ctx.Engine.Metrics,
	}

	left := pipeline.IntoStream(input, ctx.Interrupt)
	if mode == joinRight {
		leftRows := left.Collect()
		if err := j.buildIndex(leftRows, leftOn); err != nil {
			return nil, err
		}
		j.leftCols = leftColumns(leftRows, leftOn)
		j.probe = pipeline.FromValues(rightRows, ctx.Interrupt).Next
		j.probeOn = rightOn
	} else {
		if err := j.buildIndex(rightRows, rightOn); err != nil {
			return nil, err
		}
		j.probe, j.leftCols = peekLeftColumns(left, leftOn)
		j.probeOn = leftOn
	}
	j.rightCols = rightColumns(rightRows, rightOn, j.leftCols)

	out := value.List{}
	for row, ok := j.next(); ok; row, ok = j.next() {
		if ctx.Interrupt.Triggered() {
			break
		}
		out = append(out, row)
	}
	if ctx.Interrupt.Triggered() {
		return nil, engine.Errorf(engine.Interrupted, call.Span, "interrupted by user")
	}
	if j.err != nil {
		return nil, j.err
	}
	return pipeline.Value{Value: out}, nil
}

// outColumn maps a right table column to its name in the output.
type outColumn struct {
	name string
	out  string
}

type joiner struct {
	mode    joinMode
	leftOn  string
	rightOn string
	span    value.Span
	metrics *metrics.Metrics

	leftCols  []string
	rightCols []outColumn

	build   []*value.Record
	index   map[value.Key][]int
	matched []bool

	probe   func() (value.Value, bool)
	probeOn string

	pending  []value.Value
	probing  bool
	finished bool
	produced int
	err      error
}

func asRecord(v value.Value, span value.Span) (*value.Record, error) {
	switch v := v.(type) {
	case *value.Record:
		return v, nil
	case value.Error:
		return nil, v.Err
	default:
		return nil, engine.TypeMismatchError("record", v, span)
	}
}

func (j *joiner) keyOf(row *value.Record, column string) (value.Key, error) {
	v, ok := row.Get(column)
	if !ok {
		return value.Key{}, &engine.ShellError{
			Kind: engine.MissingColumn,
			Span: j.span,
			Msg:  "join: cannot find column " + value.Quote(column),
			Help: "every row must have the join column",
		}
	}
	key, err := value.KeyOf(v)
	if err != nil {
		return value.Key{}, &engine.ShellError{
			Kind: engine.IncomparableValues,
			Span: j.span,
			Msg:  "join: column " + value.Quote(column) + " can't be used as a key",
			Err:  err,
		}
	}
	return key, nil
}

func (j *joiner) buildIndex(rows value.List, on string) error {
	j.index = make(map[value.Key][]int)
	for _, row := range rows {
		rec, err := asRecord(row, j.span)
		if err != nil {
			return err
		}
		key, err := j.keyOf(rec, on)
		if err != nil {
			return err
		}
		j.index[key] = append(j.index[key], len(j.build))
		j.build = append(j.build, rec)
	}
	j.matched = make([]bool, len(j.build))
	j.probing = true
	return nil
}

// leftColumns is the schema of the left table: the columns of its first row,
// or just the key for an empty table.
func leftColumns(rows value.List, leftOn string) []string {
	if len(rows) > 0 {
		if rec, ok := rows[0].(*value.Record); ok {
			return rec.Columns()
		}
	}
	return []string{leftOn}
}

// peekLeftColumns reads the first row of a streamed left table to learn its
// schema and returns a source yielding that row again.
func peekLeftColumns(left *pipeline.ListStream, leftOn string) (func() (value.Value, bool), []string) {
	first, ok := left.Next()
	if !ok {
		return left.Next, []string{leftOn}
	}

	pushedBack := true
	next := func() (value.Value, bool) {
		if pushedBack {
			pushedBack = false
			return first, true
		}
		return left.Next()
	}
	return next, leftColumns(value.List{first}, leftOn)
}

// rightColumns lists every column of the right table except its key, in first
// seen order. Names taken by the left table get underscores appended until
// they are unique.
func rightColumns(rows value.List, rightOn string, leftCols []string) []outColumn {
	taken := make(map[string]bool)
	for _, col := range leftCols {
		taken[col] = true
	}

	seen := map[string]bool{rightOn: true}
	var out []outColumn
	for _, row := range rows {
		rec, ok := row.(*value.Record)
		if !ok {
			continue
		}
		for _, col := range rec.Columns() {
			if seen[col] {
				continue
			}
			seen[col] = true

			name := col
			for taken[name] {
				name += "_"
			}
			taken[name] = true
			out = append(out, outColumn{name: col, out: name})
		}
	}
	return out
}

// merge builds an output row, either side may be nil.
func (j *joiner) merge(left, right *value.Record) *value.Record {
	out := value.NewRecord()
	for _, col := range j.leftCols {
		var v value.Value = value.Nothing{}
		switch {
		case left != nil:
			if cell, ok := left.Get(col); ok {
				v = cell
			}
		case col == j.leftOn:
			if cell, ok := right.Get(j.rightOn); ok {
				v = cell
			}
		}
		out.Insert(col, v)
	}

	for _, col := range j.rightCols {
		var v value.Value = value.Nothing{}
		if right != nil {
			if cell, ok := right.Get(col.name); ok {
				v = cell
			}
		}
		out.Insert(col.out, v)
	}
	return out
}

func (j *joiner) mergeProbe(probe, build *value.Record) *value.Record {
	if j.mode == joinRight {
		return j.merge(build, probe)
	}
	return j.merge(probe, build)
}

func (j *joiner) probeRow(row value.Value) ([]value.Value, error) {
	rec, err := asRecord(row, j.span)
	if err != nil {
		return nil, err
	}
	key, err := j.keyOf(rec, j.probeOn)
	if err != nil {
		return nil, err
	}

	matches := j.index[key]
	if len(matches) == 0 {
		if j.mode == joinInner {
			return nil, nil
		}
		return []value.Value{j.mergeProbe(rec, nil)}, nil
	}

	out := make([]value.Value, 0, len(matches))
	for _, i := range matches {
		j.matched[i] = true
		out = append(out, j.mergeProbe(rec, j.build[i]))
	}
	return out, nil
}

// unmatchedBuild returns the right rows no left row matched, padded with
// nulls.
func (j *joiner) unmatchedBuild() []value.Value {
	var out []value.Value
	for i, rec := range j.build {
		if !j.matched[i] {
			out = append(out, j.merge(nil, rec))
		}
	}
	return out
}

func (j *joiner) next() (value.Value, bool) {
	for {
		if len(j.pending) > 0 {
			v := j.pending[0]
			j.pending = j.pending[1:]
			j.produced++
			return v, true
		}
		if !j.probing {
			if !j.finished {
				j.finished = true
				j.metrics.JoinRowsProduced(j.mode.String(), j.produced)
			}
			return nil, false
		}

		row, ok := j.probe()
		if !ok {
			j.probing = false
			if j.mode == joinOuter {
				j.pending = j.unmatchedBuild()
			}
			continue
		}

		rows, err := j.probeRow(row)
		if err != nil {
			j.probing = false
			j.finished = true
			j.err = err
			return nil, false
		}
		j.pending = rows
	}
}
