package mclog

import (
	"fmt"
	"regexp"
)

// Def declares one entry of a pattern table before compilation.
type Def[T any] struct {
	Pattern string
	Tag     T
}

// Table is an ordered, compiled mapping from detection pattern to tag.
// It is read-only after construction and safe for concurrent use.
type Table[T any] struct {
	entries []tableEntry[T]
}

type tableEntry[T any] struct {
	re  *regexp.Regexp
	tag T
}

// Match is a successful evaluation of one table entry.
type Match[T any] struct {
	Tag    T
	Index  int      // position of the entry in the table
	Groups []string // Groups[0] is the whole match
	re     *regexp.Regexp
}

// Group returns capture group i, or "" if the group does not exist or did
// not participate in the match.
func (m Match[T]) Group(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}
	return m.Groups[i]
}

// Named returns the named capture group, or "".
func (m Match[T]) Named(name string) string {
	if m.re == nil {
		return ""
	}
	idx := m.re.SubexpIndex(name)
	if idx < 0 {
		return ""
	}
	return m.Group(idx)
}

// PatternError reports a table entry whose pattern does not compile.
type PatternError struct {
	Index   int
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("pattern[%d] %q: %v", e.Index, e.Pattern, e.Err)
}

// Unwrap returns the regexp compile error.
func (e *PatternError) Unwrap() error {
	return e.Err
}

// NewTable compiles defs in order. Any invalid pattern fails the whole table.
func NewTable[T any](defs ...Def[T]) (*Table[T], error) {
	entries := make([]tableEntry[T], 0, len(defs))
	for i, d := range defs {
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return nil, &PatternError{Index: i, Pattern: d.Pattern, Err: err}
		}
		entries = append(entries, tableEntry[T]{re: re, tag: d.Tag})
	}
	return &Table[T]{entries: entries}, nil
}

// MustTable is like NewTable but panics on an invalid pattern.
// It is intended for package-level tables so that a bad pattern stops the
// program at start-up.
func MustTable[T any](defs ...Def[T]) *Table[T] {
	t, err := NewTable(defs...)
	if err != nil {
		panic("mclog: " + err.Error())
	}
	return t
}

// Len returns the number of entries.
func (t *Table[T]) Len() int {
	return len(t.entries)
}

// FindFirst returns the first entry, in declaration order, whose pattern
// matches content.
func (t *Table[T]) FindFirst(content string) (Match[T], bool) {
	for i, e := range t.entries {
		if groups := e.re.FindStringSubmatch(content); groups != nil {
			return Match[T]{Tag: e.tag, Index: i, Groups: groups, re: e.re}, true
		}
	}
	return Match[T]{}, false
}

// FindAll evaluates every entry independently against content and returns
// the first match of each matching entry, in declaration order.
func (t *Table[T]) FindAll(content string) []Match[T] {
	var out []Match[T]
	for i, e := range t.entries {
		if groups := e.re.FindStringSubmatch(content); groups != nil {
			out = append(out, Match[T]{Tag: e.tag, Index: i, Groups: groups, re: e.re})
		}
	}
	return out
}
