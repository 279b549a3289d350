package report

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/anchorsec/anchorlint/lint"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool       `json:"tool"`
	Automation sarifAutomation `json:"automationDetails"`
	Results    []sarifResult   `json:"results"`
}

type sarifAutomation struct {
	GUID string `json:"guid"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string          `json:"name"`
	Version string          `json:"version,omitempty"`
	Rules   []sarifRuleDesc `json:"rules,omitempty"`
}

type sarifRuleDesc struct {
	ID   string       `json:"id"`
	Desc sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string       `json:"ruleId"`
	Level     string       `json:"level"`
	Message   sarifMessage `json:"message"`
	Locations []sarifLoc   `json:"locations"`
	Related   []sarifLoc   `json:"relatedLocations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	Physical sarifPhys     `json:"physicalLocation"`
	Message  *sarifMessage `json:"message,omitempty"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine,omitempty"`
}

func severityLevel(s lint.Severity) string {
	switch s {
	case lint.SeverityError:
		return "error"
	case lint.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

func spanLoc(file string, line, endLine int, msg string) sarifLoc {
	loc := sarifLoc{Physical: sarifPhys{
		ArtifactLocation: sarifArt{URI: file},
		Region:           sarifRegion{StartLine: line, EndLine: endLine},
	}}
	if msg != "" {
		loc.Message = &sarifMessage{Text: msg}
	}
	return loc
}

// ToSARIF renders the diagnostics as one SARIF 2.1.0 run. Every run
// gets a fresh GUID so uploads of repeated scans stay distinguishable.
func ToSARIF(toolVersion string, rules []*lint.Rule, diags []lint.Diagnostic) ([]byte, error) {
	descs := make([]sarifRuleDesc, 0, len(rules))
	for _, r := range rules {
		descs = append(descs, sarifRuleDesc{ID: r.Name, Desc: sarifMessage{Text: r.Doc}})
	}

	results := make([]sarifResult, 0, len(diags))
	for _, d := range diags {
		res := sarifResult{
			RuleID:  d.Rule,
			Level:   severityLevel(d.Severity),
			Message: sarifMessage{Text: d.Message},
			Locations: []sarifLoc{spanLoc(d.Span.File, d.Span.Line, d.Span.EndLine, "")},
		}
		if d.Note != "" && !d.NoteSpan.IsZero() {
			res.Related = []sarifLoc{spanLoc(d.NoteSpan.File, d.NoteSpan.Line, d.NoteSpan.EndLine, d.Note)}
		}
		results = append(results, res)
	}

	s := sarif{
		Schema:  sarifSchema,
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:       sarifTool{Driver: sarifDriver{Name: "anchorlint", Version: toolVersion, Rules: descs}},
			Automation: sarifAutomation{GUID: uuid.NewString()},
			Results:    results,
		}},
	}
	return json.MarshalIndent(s, "", "  ")
}
