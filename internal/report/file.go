package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scriptmaint/luaopt/internal/rules"
	"github.com/scriptmaint/luaopt/internal/runner"
)

// WriteFile writes the summary to path, choosing the format from the
// extension: .json, .html, anything else gets plain text.
func WriteFile(path string, s *Summary) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = renderJSON(s)
	case ".html", ".htm":
		data, err = renderHTML(s)
	default:
		data = renderText(s)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

type jsonFinding struct {
	Pattern  string `json:"pattern"`
	Severity string `json:"severity"`
	Line     uint32 `json:"line"`
	Message  string `json:"message"`
	Fixed    bool   `json:"fixed"`
}

type jsonFile struct {
	Path     string        `json:"path"`
	Status   string        `json:"status"`
	Changed  bool          `json:"changed"`
	Applied  int           `json:"edits_applied,omitempty"`
	Note     string        `json:"note,omitempty"`
	Error    string        `json:"error,omitempty"`
	Findings []jsonFinding `json:"findings,omitempty"`
}

type jsonReport struct {
	GeneratedAt   string         `json:"generated_at"`
	ElapsedMS     int64          `json:"elapsed_ms"`
	Files         int            `json:"files"`
	Changed       int            `json:"changed"`
	Skipped       int            `json:"skipped"`
	ParseErrors   int            `json:"parse_errors"`
	Timeouts      int            `json:"timeouts"`
	WriteFailures int            `json:"write_failures"`
	Applied       int            `json:"edits_applied"`
	Severities    map[string]int `json:"severities"`
	Patterns      map[string]int `json:"patterns"`
	Results       []jsonFile     `json:"results"`
}

func renderJSON(s *Summary) ([]byte, error) {
	rep := jsonReport{
		GeneratedAt:   time.Now().Format(time.RFC3339),
		ElapsedMS:     s.Elapsed.Milliseconds(),
		Files:         s.Files,
		Changed:       s.Changed,
		Skipped:       s.Skipped,
		ParseErrors:   s.ParseErrors,
		Timeouts:      s.Timeouts,
		WriteFailures: s.WriteFailures,
		Applied:       s.Applied,
		Severities:    make(map[string]int),
		Patterns:      s.byPattern,
	}
	for sev, n := range s.BySeverity {
		rep.Severities[sev.String()] = n
	}
	for _, r := range s.Results {
		jf := jsonFile{
			Path:    r.Path,
			Status:  r.Status.String(),
			Changed: r.Changed,
			Applied: r.Applied,
			Note:    r.Note,
		}
		if r.Err != nil {
			jf.Error = r.Err.Error()
		}
		for _, f := range r.Findings {
			jf.Findings = append(jf.Findings, jsonFinding{
				Pattern:  f.Pattern,
				Severity: f.Severity.String(),
				Line:     f.Line,
				Message:  f.Message,
				Fixed:    f.Fixed,
			})
		}
		rep.Results = append(rep.Results, jf)
	}
	return json.MarshalIndent(rep, "", "  ")
}

func renderText(s *Summary) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "luaopt report, %s\n\n", time.Now().Format(time.RFC1123))
	for _, r := range s.Results {
		if r.Status == runner.StatusOK && len(r.Findings) == 0 && r.Err == nil {
			continue
		}
		fmt.Fprintf(&b, "%s [%s]\n", r.Path, r.Status)
		for _, f := range r.Findings {
			fmt.Fprintf(&b, "  %s\n", plainLine(f.Finding, f.Fixed))
		}
		if r.Err != nil {
			fmt.Fprintf(&b, "  ! %v\n", r.Err)
		} else if r.Note != "" {
			fmt.Fprintf(&b, "  ! %s\n", r.Note)
		}
	}
	fmt.Fprintf(&b, "\nfiles: %d  changed: %d  skipped: %d  parse errors: %d  timeouts: %d  write failures: %d\n",
		s.Files, s.Changed, s.Skipped, s.ParseErrors, s.Timeouts, s.WriteFailures)
	fmt.Fprintf(&b, "%d GREEN, %d YELLOW, %d RED, %d DEBUG in %s\n",
		s.BySeverity[rules.Green], s.BySeverity[rules.Yellow],
		s.BySeverity[rules.Red], s.BySeverity[rules.Debug],
		s.Elapsed.Round(time.Millisecond))
	return []byte(b.String())
}

var htmlTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>luaopt report</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
.sev-GREEN { color: #1a7f37; font-weight: 600; }
.sev-YELLOW { color: #9a6700; font-weight: 600; }
.sev-RED { color: #cf222e; font-weight: 600; }
.sev-DEBUG { color: #0969da; }
.path { margin-top: 1.2em; font-weight: 600; }
.note { color: #9a6700; }
.meta { color: #666; font-size: 0.9em; }
</style>
</head>
<body>
<h1>luaopt report</h1>
<p class="meta">{{.When}}, {{.Elapsed}}</p>
<table>
<tr><th>Files</th><th>Changed</th><th>Skipped</th><th>Parse errors</th><th>Timeouts</th><th>Edits applied</th></tr>
<tr><td>{{.Files}}</td><td>{{.Changed}}</td><td>{{.Skipped}}</td><td>{{.ParseErrors}}</td><td>{{.Timeouts}}</td><td>{{.Applied}}</td></tr>
</table>
{{range .Results}}
<div class="path">{{.Path}} [{{.Status}}]</div>
<table>
{{range .Findings}}
<tr><td>{{.Line}}</td><td class="sev-{{.Severity}}">{{.Severity}}</td><td>{{.Message}}</td><td>{{if .Fixed}}fixed{{end}}</td></tr>
{{end}}
</table>
{{with .Note}}<p class="note">{{.}}</p>{{end}}
{{end}}
</body>
</html>
`))

func renderHTML(s *Summary) ([]byte, error) {
	type htmlFile struct {
		Path     string
		Status   string
		Note     string
		Findings []jsonFinding
	}
	data := struct {
		When        string
		Elapsed     time.Duration
		Files       int
		Changed     int
		Skipped     int
		ParseErrors int
		Timeouts    int
		Applied     int
		Results     []htmlFile
	}{
		When:        time.Now().Format(time.RFC1123),
		Elapsed:     s.Elapsed.Round(time.Millisecond),
		Files:       s.Files,
		Changed:     s.Changed,
		Skipped:     s.Skipped,
		ParseErrors: s.ParseErrors,
		Timeouts:    s.Timeouts,
		Applied:     s.Applied,
	}
	for _, r := range s.Results {
		if r.Status == runner.StatusOK && len(r.Findings) == 0 {
			continue
		}
		hf := htmlFile{Path: r.Path, Status: r.Status.String(), Note: r.Note}
		for _, f := range r.Findings {
			hf.Findings = append(hf.Findings, jsonFinding{
				Pattern:  f.Pattern,
				Severity: f.Severity.String(),
				Line:     f.Line,
				Message:  f.Message,
				Fixed:    f.Fixed,
			})
		}
		data.Results = append(data.Results, hf)
	}
	var b strings.Builder
	if err := htmlTmpl.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("failed to render html report: %w", err)
	}
	return []byte(b.String()), nil
}
