// Package edit turns findings into a conflict-free edit plan and applies it
// to source text. The rewriter re-parses its own output and refuses to emit
// text that fails validation.
package edit

import (
	"sort"

	"github.com/scriptmaint/luaopt/internal/config"
	"github.com/scriptmaint/luaopt/internal/rules"
)

// Planned pairs a finding with the planner's verdict for it.
type Planned struct {
	rules.Finding
	Fixed bool // edits accepted into the plan
}

// Plan is the conflict-free edit set for one file, ascending by offset.
type Plan struct {
	Findings []Planned
	Edits    []rules.Edit
}

// Build selects the findings whose fix class the policy enables and resolves
// overlaps. Priority: GREEN beats YELLOW and DEBUG; within a severity tier
// the narrower overall span wins. A losing finding keeps its message and
// loses its edits.
func Build(findings []rules.Finding, policy config.FixPolicy) *Plan {
	plan := &Plan{Findings: make([]Planned, len(findings))}
	for i, f := range findings {
		plan.Findings[i] = Planned{Finding: f}
	}

	order := make([]int, 0, len(findings))
	for i, f := range findings {
		if len(f.Edits) > 0 && f.FixClass.Enabled(policy) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		fa, fb := &findings[order[a]], &findings[order[b]]
		ra, rb := severityRank(fa.Severity), severityRank(fb.Severity)
		if ra != rb {
			return ra < rb
		}
		if wa, wb := fa.Span.Len(), fb.Span.Len(); wa != wb {
			return wa < wb
		}
		return fa.Span.Start < fb.Span.Start
	})

	var accepted []rules.Edit
	for _, i := range order {
		f := &plan.Findings[i]
		if conflictsAny(f.Edits, accepted) {
			continue // demoted to report-only
		}
		accepted = append(accepted, f.Edits...)
		f.Fixed = true
	}

	sort.SliceStable(accepted, func(a, b int) bool {
		if accepted[a].Start != accepted[b].Start {
			return accepted[a].Start < accepted[b].Start
		}
		return accepted[a].End < accepted[b].End
	})
	plan.Edits = accepted
	return plan
}

func severityRank(s rules.Severity) int {
	if s == rules.Green {
		return 0
	}
	return 1
}

func conflictsAny(candidate, accepted []rules.Edit) bool {
	for _, c := range candidate {
		for _, a := range accepted {
			if editsConflict(c, a) {
				return true
			}
		}
	}
	return false
}

// editsConflict uses half-open semantics. Two inserts at the same offset
// coexist; an insert inside a replaced range does not.
func editsConflict(a, b rules.Edit) bool {
	aEmpty, bEmpty := a.Start == a.End, b.Start == b.End
	if aEmpty && bEmpty {
		return false
	}
	if aEmpty {
		return b.Start < a.Start && a.Start < b.End
	}
	if bEmpty {
		return a.Start < b.Start && b.Start < a.End
	}
	return a.Start < b.End && b.Start < a.End
}
