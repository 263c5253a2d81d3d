// Package report renders analysis results for the console and for report
// files. Console output is colorized per severity; file output dispatches
// on extension.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/scriptmaint/luaopt/internal/rules"
	"github.com/scriptmaint/luaopt/internal/runner"
)

// Summary aggregates one run's results.
type Summary struct {
	Results []runner.FileResult
	Elapsed time.Duration

	Files         int
	Changed       int
	Skipped       int
	ParseErrors   int
	Timeouts      int
	WriteFailures int
	Applied       int

	BySeverity map[rules.Severity]int
	byPattern  map[string]int
}

// Summarize computes run totals from per-file results.
func Summarize(results []runner.FileResult, elapsed time.Duration) *Summary {
	s := &Summary{
		Results:    results,
		Elapsed:    elapsed,
		Files:      len(results),
		BySeverity: make(map[rules.Severity]int),
		byPattern:  make(map[string]int),
	}
	for _, r := range results {
		switch r.Status {
		case runner.StatusSkipped:
			s.Skipped++
		case runner.StatusParseError:
			s.ParseErrors++
		case runner.StatusTimeout:
			s.Timeouts++
		}
		if r.Status == runner.StatusOK && r.Err != nil {
			s.WriteFailures++
		}
		if r.Changed {
			s.Changed++
			s.Applied += r.Applied
		}
		for _, f := range r.Findings {
			s.BySeverity[f.Severity]++
			s.byPattern[f.Pattern]++
		}
	}
	return s
}

// Findings reports the total finding count across all severities.
func (s *Summary) Findings() int {
	n := 0
	for _, c := range s.BySeverity {
		n += c
	}
	return n
}

var (
	greenStyle  = color.New(color.FgGreen, color.Bold)
	yellowStyle = color.New(color.FgYellow, color.Bold)
	redStyle    = color.New(color.FgRed, color.Bold)
	debugStyle  = color.New(color.FgCyan)
	dimStyle    = color.New(color.Faint)
)

func severityStyle(sev rules.Severity) *color.Color {
	switch sev {
	case rules.Green:
		return greenStyle
	case rules.Yellow:
		return yellowStyle
	case rules.Red:
		return redStyle
	default:
		return debugStyle
	}
}

// Console writes the run report to w. Quiet suppresses per-file detail;
// verbose includes clean files and per-file timing.
func Console(w io.Writer, s *Summary, verbose, quiet bool) {
	if !quiet {
		for _, r := range s.Results {
			writeFileResult(w, r, verbose)
		}
	}
	writeTotals(w, s)
	writePatternBreakdown(w, s)
	writeTips(w, s)
}

// impactLabels describe what each pattern costs at runtime; shown in the
// per-pattern breakdown.
var impactLabels = map[string]string{
	"repeated-call-caching":      "high: every native call crosses the script boundary",
	"distance-native-suggestion": "high: native call where vector math would do",
	"string-concat-loop":         "high: quadratic allocation in loops",
	"table-insert-append":        "moderate: function call per append",
	"pow-square":                 "moderate: function call per multiplication",
	"pow-cube":                   "moderate: function call per multiplication",
	"pow-sqrt":                   "low: math.pow is slower than math.sqrt",
	"table-getn":                 "low: deprecated call, # is free",
	"string-len":                 "low: function call, # is free",
	"debug-call":                 "low: I/O per call, adds up in loops",
	"global-write":               "correctness: pollutes the shared global table",
	"nil-guard-suggestion":       "correctness: possible nil/0 dereference",
	"dead-code":                  "none: never executes",
	"unused-local":               "none: dead assignment",
	"unused-local-function":      "none: dead definition",
}

func writePatternBreakdown(w io.Writer, s *Summary) {
	if len(s.byPattern) == 0 {
		return
	}
	names := make([]string, 0, len(s.byPattern))
	for n := range s.byPattern {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.byPattern[names[i]] != s.byPattern[names[j]] {
			return s.byPattern[names[i]] > s.byPattern[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Pattern", "Count", "Impact"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, n := range names {
		table.Append([]string{n, fmt.Sprintf("%d", s.byPattern[n]), impactLabels[n]})
	}
	table.Render()
}

func writeFileResult(w io.Writer, r runner.FileResult, verbose bool) {
	switch r.Status {
	case runner.StatusParseError:
		redStyle.Fprintf(w, "%s: parse error", r.Path)
		fmt.Fprintf(w, " (%v)\n", r.Err)
		return
	case runner.StatusTimeout:
		redStyle.Fprintf(w, "%s: timed out", r.Path)
		fmt.Fprintf(w, " after %s\n", r.Duration.Round(time.Millisecond))
		return
	case runner.StatusSkipped:
		if verbose {
			dimStyle.Fprintf(w, "%s: skipped (%s)\n", r.Path, r.Note)
		}
		return
	}

	if len(r.Findings) == 0 {
		if r.Err != nil {
			redStyle.Fprintf(w, "%s: %v\n", r.Path, r.Err)
		} else if verbose {
			dimStyle.Fprintf(w, "%s: clean\n", r.Path)
		}
		return
	}

	fmt.Fprintf(w, "%s\n", r.Path)
	for _, f := range r.Findings {
		style := severityStyle(f.Severity)
		mark := " "
		if f.Fixed {
			mark = "*"
		}
		fmt.Fprintf(w, "  %s line %-5d ", mark, f.Line)
		style.Fprintf(w, "[%s]", f.Severity)
		fmt.Fprintf(w, " %s\n", f.Message)
	}
	if r.Err != nil {
		redStyle.Fprintf(w, "  ! %v\n", r.Err)
	} else if r.Note != "" {
		yellowStyle.Fprintf(w, "  ! %s\n", r.Note)
	}
	if verbose {
		dimStyle.Fprintf(w, "  analyzed in %s\n", r.Duration.Round(time.Millisecond))
	}
}

func writeTotals(w io.Writer, s *Summary) {
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Files", "Changed", "Skipped", "Parse Errors", "Timeouts", "Edits Applied"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.Append([]string{
		fmt.Sprintf("%d", s.Files),
		fmt.Sprintf("%d", s.Changed),
		fmt.Sprintf("%d", s.Skipped),
		fmt.Sprintf("%d", s.ParseErrors),
		fmt.Sprintf("%d", s.Timeouts),
		fmt.Sprintf("%d", s.Applied),
	})
	table.Render()

	if s.WriteFailures > 0 {
		fmt.Fprintln(w)
		redStyle.Fprintf(w, "%d file(s) could not be written back; originals left untouched\n", s.WriteFailures)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s, %s, %s, %s in %s\n",
		greenStyle.Sprintf("%d GREEN (auto-fixable)", s.BySeverity[rules.Green]),
		yellowStyle.Sprintf("%d YELLOW (review recommended)", s.BySeverity[rules.Yellow]),
		redStyle.Sprintf("%d RED (manual attention)", s.BySeverity[rules.Red]),
		debugStyle.Sprintf("%d DEBUG", s.BySeverity[rules.Debug]),
		s.Elapsed.Round(time.Millisecond))
}

// writeTips prints performance hints keyed on what the run actually found,
// matching the pattern detectors by name.
func writeTips(w io.Writer, s *Summary) {
	var tips []string
	if s.byPattern["repeated-call-caching"] > 0 {
		tips = append(tips, "cache repeated native calls in a local; each call crosses the script/runtime boundary")
	}
	if s.byPattern["distance-native-suggestion"] > 0 {
		tips = append(tips, "prefer #(coords1 - coords2) over GetDistanceBetweenCoords(); vector math stays in the VM")
	}
	if s.byPattern["string-concat-loop"] > 0 {
		tips = append(tips, "build strings with table.concat in loops; repeated .. is quadratic")
	}
	if s.BySeverity[rules.Green] > 0 && s.Applied == 0 {
		tips = append(tips, "run with --fix to apply the GREEN fixes automatically")
	}
	if len(tips) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, t := range tips {
		dimStyle.Fprintf(w, "tip: %s\n", t)
	}
}

func plainLine(f rules.Finding, fixed bool) string {
	mark := " "
	if fixed {
		mark = "*"
	}
	return strings.TrimRight(fmt.Sprintf("%s line %d [%s] %s", mark, f.Line, f.Severity, f.Message), " ")
}
