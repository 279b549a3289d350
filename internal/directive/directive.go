// Package directive handles anchorlint comment directives found in the
// analyzed program's source files.
//
// # Supported Directives
//
//	// anchorlint:ignore         - Suppress all findings for the next line or same line
//	// anchorlint:ignore:<rule>  - Suppress findings of one rule only
//
// # Directive Placement
//
// Directives can be placed:
//   - On the line before the affected code (most common)
//   - At the end of the affected line
//
// # Examples
//
// Line-level ignore:
//
//	// anchorlint:ignore
//	invoke(&ix, accounts)?;
//
// Same-line, rule-scoped ignore:
//
//	invoke(&ix, accounts)?; // anchorlint:ignore:arbitrary-cpi
//
// The analyzed sources are not Go, so the package works on raw line text
// rather than a parsed syntax tree.
package directive

import "strings"

const directivePrefix = "anchorlint:"

// ParseIgnore reports whether a comment body is an ignore directive.
// rule is the scoped rule name, or "" when the directive covers all rules.
// Supports both "//anchorlint:ignore" and "// anchorlint:ignore".
func ParseIgnore(text string) (rule string, ok bool) {
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, directivePrefix+"ignore") {
		return "", false
	}
	rest := text[len(directivePrefix+"ignore"):]
	if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
		return "", true
	}
	if rest[0] != ':' {
		return "", false
	}
	fields := strings.Fields(rest[1:])
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
