package directive

import (
	"sort"
	"strings"

	"github.com/anchorsec/anchorlint/ir"
)

// ignoreEntry tracks an ignore directive and whether it was used.
type ignoreEntry struct {
	rule string // "" covers all rules
	used bool
}

// IgnoreMap tracks, per 1-based line number, the ignore directive on
// that line.
type IgnoreMap map[int]*ignoreEntry

// FromSource scans one source file's content for ignore directives.
// A directive anywhere on a line is recorded under that line number.
func FromSource(content string) IgnoreMap {
	m := make(IgnoreMap)
	for i, line := range strings.Split(content, "\n") {
		idx := strings.Index(line, "//")
		if idx < 0 {
			continue
		}
		rule, ok := ParseIgnore(line[idx:])
		if !ok {
			continue
		}
		m[i+1] = &ignoreEntry{rule: rule}
	}
	return m
}

// ShouldIgnore returns true if a finding of the named rule at the given
// line is suppressed. It checks the same line and the previous line, and
// marks a matching entry as used.
func (m IgnoreMap) ShouldIgnore(line int, rule string) bool {
	for _, l := range [2]int{line, line - 1} {
		if entry, ok := m[l]; ok && (entry.rule == "" || entry.rule == rule) {
			entry.used = true
			return true
		}
	}
	return false
}

// UnusedLines returns the lines of ignore directives that suppressed
// nothing, in ascending order.
func (m IgnoreMap) UnusedLines() []int {
	var unused []int
	for line, entry := range m {
		if !entry.used {
			unused = append(unused, line)
		}
	}
	sort.Ints(unused)
	return unused
}

// Index holds the ignore maps of every source file in a program dump.
type Index map[string]IgnoreMap

// BuildIndex scans all source files carried in the dump.
func BuildIndex(prog *ir.Program) Index {
	idx := make(Index, len(prog.Files))
	for _, f := range prog.Files {
		if m := FromSource(f.Content); len(m) > 0 {
			idx[f.Name] = m
		}
	}
	return idx
}

// ShouldIgnore applies IgnoreMap.ShouldIgnore to the file a span points at.
func (idx Index) ShouldIgnore(span ir.Span, rule string) bool {
	m, ok := idx[span.File]
	if !ok {
		return false
	}
	return m.ShouldIgnore(span.Line, rule)
}

// Unused returns every directive that suppressed nothing, as file/line
// pairs ordered by file then line.
func (idx Index) Unused() []Location {
	files := make([]string, 0, len(idx))
	for name := range idx {
		files = append(files, name)
	}
	sort.Strings(files)
	var out []Location
	for _, name := range files {
		for _, line := range idx[name].UnusedLines() {
			out = append(out, Location{File: name, Line: line})
		}
	}
	return out
}

// Location names one directive in the analyzed sources.
type Location struct {
	File string
	Line int
}
