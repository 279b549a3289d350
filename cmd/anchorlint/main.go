// Command anchorlint is a static analysis tool for Anchor programs. It
// consumes program dumps produced by the host compiler plugin and reports
// missing signer checks, arbitrary CPIs, stale account reads and other
// account-handling mistakes.
//
// Usage:
//
//	anchorlint check dump.json
//	anchorlint check --format sarif -o report.sarif dump.json
//	anchorlint rules
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anchorsec/anchorlint"
	"github.com/anchorsec/anchorlint/internal/config"
	"github.com/anchorsec/anchorlint/internal/report"
	"github.com/anchorsec/anchorlint/ir"
	"github.com/anchorsec/anchorlint/lint"
)

// version is overridden at release time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "anchorlint:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "anchorlint",
		Short:         "Static analysis for Anchor programs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCheckCmd())
	root.AddCommand(newRulesCmd())
	return root
}

// jsonDiag is the --format json shape; the public Diagnostic carries no
// serialization tags.
type jsonDiag struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	EndLine  int    `json:"endLine,omitempty"`
	Message  string `json:"message"`
	Note     string `json:"note,omitempty"`
	NoteFile string `json:"noteFile,omitempty"`
	NoteLine int    `json:"noteLine,omitempty"`
}

func toJSONDiags(diags []lint.Diagnostic) []jsonDiag {
	out := make([]jsonDiag, 0, len(diags))
	for _, d := range diags {
		jd := jsonDiag{
			Rule:     d.Rule,
			Severity: d.Severity.String(),
			File:     d.Span.File,
			Line:     d.Span.Line,
			EndLine:  d.Span.EndLine,
			Message:  d.Message,
			Note:     d.Note,
		}
		if !d.NoteSpan.IsZero() {
			jd.NoteFile = d.NoteSpan.File
			jd.NoteLine = d.NoteSpan.Line
		}
		out = append(out, jd)
	}
	return out
}

func newCheckCmd() *cobra.Command {
	var (
		format  string
		failOn  string
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "check <dump.json>...",
		Short: "Analyze one or more program dumps",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, _, err := config.Load(wd)
			if err != nil {
				return err
			}
			if failOn != "" {
				cfg.FailOn = failOn
			}

			var diags []lint.Diagnostic
			for _, path := range args {
				prog, err := ir.LoadProgram(path)
				if err != nil {
					return err
				}
				diags = append(diags, anchorlint.Run(prog, anchorlint.Options{Config: cfg})...)
			}
			lint.SortDiagnostics(diags)

			out := cmd.OutOrStdout()
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return fmt.Errorf("creating %s: %w", outFile, err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "text":
				if err := report.WriteText(out, diags); err != nil {
					return err
				}
			case "json":
				data, err := json.MarshalIndent(toJSONDiags(diags), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			case "sarif":
				data, err := report.ToSARIF(version, anchorlint.Rules(), diags)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			default:
				return fmt.Errorf("unknown format %q (want text, json or sarif)", format)
			}

			if anchorlint.FailsThreshold(diags, cfg.FailOn) {
				return fmt.Errorf("findings at or above %s severity", cfg.FailOn)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text|json|sarif")
	cmd.Flags().StringVar(&failOn, "fail-on", "", "Exit nonzero on findings of this severity or higher (note|warning|error)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List built-in rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range anchorlint.Rules() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.Name, r.Severity, r.Doc)
			}
			return nil
		},
	}
}
