package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Field names written by the application and read back by reports.
const (
	FieldSessionID   = "session_id"
	FieldSessionKind = "session_kind"
	FieldUser        = "user"
	FieldResult      = "result"
	FieldArgv        = "argv"
	FieldCode        = "code"

	MessageLogin          = "login attempt"
	MessageExternalStart  = "started external"
	MessageExternalExited = "external exited"
)

// Entry is one decoded JSON log line.
type Entry map[string]interface{}

// String returns the field as a string, empty if it's missing.
func (e Entry) String(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ReadJSONLinesLog parses a newline delimited JSON log. Lines that aren't
// JSON objects are passed to invalid, which may be nil.
func ReadJSONLinesLog(r io.Reader, handler func(Entry), invalid func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			if invalid != nil {
				invalid(string(line))
			}
			continue
		}
		handler(entry)
	}
	return scanner.Err()
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int `json:"log_entries"`
	InvalidEntries int `json:"invalid_entries,omitempty"`

	Levels       StrCounter   `json:"levels"`
	SessionKinds StrCounter   `json:"session_kinds"`
	Logins       *PathCounter `json:"logins"`
	Programs     StrCounter   `json:"programs"`
	ExitCodes    StrCounter   `json:"exit_codes"`
	Problems     StrCounter   `json:"problems"`

	seenSessions map[string]bool
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		Logins:       NewPathCounter(FieldUser, FieldResult),
		seenSessions: make(map[string]bool),
	}
}

// Update adds a log entry to the report.
func (r *Report) Update(le Entry) {
	r.LogEntries++

	level := le.String("level")
	r.Levels.Increment(level)

	if id := le.String(FieldSessionID); id != "" && !r.seenSessions[id] {
		r.seenSessions[id] = true
		r.SessionKinds.Increment(le.String(FieldSessionKind))
	}

	switch le.String("message") {
	case MessageLogin:
		r.Logins.Increment(le.String(FieldUser), le.String(FieldResult))
	case MessageExternalStart:
		if argv, ok := le[FieldArgv].([]interface{}); ok && len(argv) > 0 {
			r.Programs.Increment(fmt.Sprint(argv[0]))
		}
	case MessageExternalExited:
		r.ExitCodes.Increment(le.String(FieldCode))
	}

	switch level {
	case "warn", "error", "dpanic", "panic", "fatal":
		r.Problems.Increment(le.String("message"))
	}
}

// Invalid counts a line that couldn't be decoded.
func (r *Report) Invalid(string) {
	r.InvalidEntries++
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns how many times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements a custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	if s.internal == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given tuple.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// Count returns how many times the tuple was seen.
func (ctr *PathCounter) Count(vals ...string) int {
	return ctr.internal[toKey(vals...)]
}

// MarshalJSON implements a custom JSON marshaler, the most frequent tuples
// come first.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	_ = json.Unmarshal([]byte(key), &out)
	return out
}
