package config

// FixPolicy controls which findings get their edits applied. The flags
// compose as follows (documented here because the CLI surface is ambiguous
// on its own):
//
//   - Green enables safe fixes.
//   - Yellow enables review-grade fixes and implies Green.
//   - Debug enables commenting out debug statements, independently of the
//     other two.
//   - Experimental is a gate, not a selector: it makes the concat-loop fix
//     eligible even without Yellow, enables cross-branch call aggregation
//     (reported as YELLOW), and is required for NilGuards and DeadCode to
//     take effect.
type FixPolicy struct {
	Green        bool
	Yellow       bool
	Debug        bool
	NilGuards    bool
	DeadCode     bool
	Experimental bool
}

// PolicyFromFlags builds a FixPolicy from the raw CLI flags.
func PolicyFromFlags(fix, fixYellow, fixDebug, fixNil, removeDead, experimental bool) FixPolicy {
	p := FixPolicy{
		Green:        fix,
		Yellow:       fixYellow,
		Debug:        fixDebug,
		Experimental: experimental,
	}
	if p.Yellow {
		p.Green = true
	}
	// Experimental-only fixes are inert without the gate.
	p.NilGuards = fixNil && experimental
	p.DeadCode = removeDead && experimental
	return p
}

// Fixing reports whether any class of fix is enabled at all.
func (p FixPolicy) Fixing() bool {
	return p.Green || p.Yellow || p.Debug || p.NilGuards || p.DeadCode || p.Experimental
}
