// Package report renders driver findings for humans (text) and for CI
// tooling (SARIF 2.1.0).
package report

import (
	"fmt"
	"io"

	"github.com/anchorsec/anchorlint/lint"
)

// WriteText prints one line per diagnostic, with the secondary note
// indented below it when present.
func WriteText(w io.Writer, diags []lint.Diagnostic) error {
	for _, d := range diags {
		if _, err := fmt.Fprintf(w, "%s:%d: %s: %s [%s]\n",
			d.Span.File, d.Span.Line, d.Severity, d.Message, d.Rule); err != nil {
			return err
		}
		if d.Note == "" {
			continue
		}
		if d.NoteSpan.IsZero() {
			if _, err := fmt.Fprintf(w, "\tnote: %s\n", d.Note); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "\t%s:%d: note: %s\n",
			d.NoteSpan.File, d.NoteSpan.Line, d.Note); err != nil {
			return err
		}
	}
	return nil
}
