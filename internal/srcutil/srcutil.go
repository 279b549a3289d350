// Package srcutil holds the source-text helpers the kernel uses to name
// accounts in diagnostics: comment stripping, `ctx.accounts.<name>`
// extraction, and vec-literal element splitting.
//
// These operate on raw snippet text recovered from the analyzed program's
// sources, so they are deliberately tolerant: on unrecognized shapes they
// return the input (or nothing) instead of failing.
package srcutil

import "strings"

// RemoveComments drops line comments from a snippet.
func RemoveComments(code string) string {
	var kept []string
	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isIdentChar(c rune) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}

func leadingIdent(s string) string {
	for i, c := range s {
		if !isIdentChar(c) {
			return s[:i]
		}
	}
	return s
}

// ExtractAccountName pulls an account name out of a snippet matching
// `<prefix>.accounts.<name>`, `accounts.<name>`, or a bare dotted path
// like `name.key()`.
func ExtractAccountName(s string) (string, bool) {
	s = strings.TrimPrefix(s, "&mut ")
	s = strings.TrimPrefix(s, "& ")

	if _, after, found := strings.Cut(s, ".accounts."); found {
		if name := leadingIdent(after); name != "" {
			return name, true
		}
	}

	if pos := strings.Index(s, "accounts."); pos >= 0 {
		if pos == 0 || strings.HasSuffix(s[:pos], ".") {
			if name := leadingIdent(s[pos+len("accounts."):]); name != "" {
				return name, true
			}
		}
	}

	switch strings.Count(s, ".") {
	case 1:
		before, _, _ := strings.Cut(s, ".")
		if name := leadingIdent(before); name != "" {
			return name, true
		}
	case 2:
		if pos := strings.LastIndex(s, "."); pos >= 0 {
			if name := leadingIdent(s[pos+1:]); name != "" {
				return name, true
			}
		}
	}

	if s != "" {
		return s, true
	}
	return "", false
}

// ExtractContextAccount extracts either the bare account name or the full
// `<ctx>.accounts.<name>` path from one source line.
func ExtractContextAccount(line string, returnOnlyName bool) (string, bool) {
	snippet := RemoveComments(line)
	snippet = strings.TrimPrefix(snippet, "&mut ")
	snippet = strings.TrimPrefix(snippet, "& ")

	start := strings.Index(snippet, ".accounts.")
	if start < 0 {
		return ExtractAccountName(snippet)
	}

	prefixStart := 0
	for i := start - 1; i >= 0; i-- {
		if !isIdentChar(rune(snippet[i])) {
			prefixStart = i + 1
			break
		}
	}
	prefix := snippet[prefixStart:start]
	account := leadingIdent(snippet[start+len(".accounts."):])

	if returnOnlyName {
		return account, account != ""
	}
	return prefix + ".accounts." + account, account != ""
}

// ExtractVecElements splits the elements of a `vec![...]` (or `vec!(...)`)
// literal in the snippet, honoring nested brackets.
func ExtractVecElements(snippet string) []string {
	trimmed := strings.TrimSpace(snippet)
	trimmed = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(trimmed, "&"), "mut "))

	var open string
	var close byte
	pos := strings.Index(trimmed, "vec![")
	if pos >= 0 {
		open, close = "vec![", ']'
	} else if pos = strings.Index(trimmed, "vec!("); pos >= 0 {
		open, close = "vec!(", ')'
	} else {
		return nil
	}

	after := trimmed[pos+len(open):]

	// Find the matching closing bracket by depth.
	depth := 1
	closePos := -1
	for i := 0; i < len(after) && closePos < 0; i++ {
		switch after[i] {
		case '[', '(', '{':
			depth++
		case close:
			depth--
			if depth == 0 {
				closePos = i
			}
		}
	}

	inner := after
	if closePos >= 0 {
		inner = after[:closePos]
	} else {
		inner = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(inner, ";"), string(close)))
	}

	var elements []string
	var current strings.Builder
	depth = 0
	for i := 0; i < len(inner); i++ {
		ch := inner[i]
		switch ch {
		case '[', '(', '{':
			depth++
			current.WriteByte(ch)
		case ']', ')', '}':
			depth--
			current.WriteByte(ch)
		case ',':
			if depth == 0 {
				if el := strings.TrimSpace(current.String()); el != "" {
					elements = append(elements, el)
				}
				current.Reset()
			} else {
				current.WriteByte(ch)
			}
		default:
			current.WriteByte(ch)
		}
	}
	if el := strings.TrimSpace(current.String()); el != "" {
		elements = append(elements, el)
	}
	return elements
}

// BalancedSnippet accumulates lines until the first bracket group that
// opens is balanced again, returning the accumulated text. Used to
// recover a multi-line `vec![...]` starting at a span's first line.
func BalancedSnippet(lines []string) string {
	var buf strings.Builder
	depth := 0
	seenOpen := false

	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')

		for i := 0; i < len(line); i++ {
			switch line[i] {
			case '[', '(', '{':
				seenOpen = true
				depth++
			case ']', ')', '}':
				if depth > 0 {
					depth--
				}
			}
		}
		if seenOpen && depth == 0 {
			break
		}
	}
	return buf.String()
}
