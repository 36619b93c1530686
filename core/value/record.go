package value

// Record is an ordered mapping of unique column names to values.
type Record struct {
	cols []string
	vals []Value
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{}
}

// RecordOf builds a record from alternating column names and values, it
// panics if the arguments aren't paired. Intended for literals in code and
// tests.
func RecordOf(pairs ...interface{}) *Record {
	if len(pairs)%2 != 0 {
		panic("value: RecordOf needs column/value pairs")
	}
	r := &Record{}
	for i := 0; i < len(pairs); i += 2 {
		r.Insert(pairs[i].(string), pairs[i+1].(Value))
	}
	return r
}

// Insert sets col to v, replacing an existing column in place or appending a
// new one.
func (r *Record) Insert(col string, v Value) {
	for i, c := range r.cols {
		if c == col {
			r.vals[i] = v
			return
		}
	}
	r.cols = append(r.cols, col)
	r.vals = append(r.vals, v)
}

// Get returns the value stored in col.
func (r *Record) Get(col string) (Value, bool) {
	for i, c := range r.cols {
		if c == col {
			return r.vals[i], true
		}
	}
	return nil, false
}

// Has reports whether col exists.
func (r *Record) Has(col string) bool {
	_, ok := r.Get(col)
	return ok
}

// Columns returns the column names in order. The slice must not be modified.
func (r *Record) Columns() []string {
	return r.cols
}

// Values returns the values in column order. The slice must not be modified.
func (r *Record) Values() []Value {
	return r.vals
}

// Len returns the number of columns.
func (r *Record) Len() int {
	return len(r.cols)
}

// SameColumns reports whether both records have the same columns in the same
// order.
func (r *Record) SameColumns(other *Record) bool {
	if len(r.cols) != len(other.cols) {
		return false
	}
	for i := range r.cols {
		if r.cols[i] != other.cols[i] {
			return false
		}
	}
	return true
}
