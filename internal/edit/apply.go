package edit

import (
	"fmt"

	"github.com/scriptmaint/luaopt/internal/parser"
	"github.com/scriptmaint/luaopt/internal/rules"
)

// TransformationError reports that applying a plan produced text the parser
// rejects. The caller must discard the rewrite and keep the original bytes.
type TransformationError struct {
	Err error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("rewritten text failed to re-parse: %v", e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

// Apply rebuilds src with the plan's edits. Edits must be sorted ascending
// and conflict-free, which Build guarantees; every byte outside an edited
// range is carried over verbatim.
func Apply(src []byte, edits []rules.Edit) ([]byte, error) {
	out := make([]byte, 0, len(src)+len(src)/8)
	pos := uint32(0)
	for _, e := range edits {
		if e.Start < pos || e.End < e.Start || int(e.End) > len(src) {
			return nil, fmt.Errorf("edit [%d,%d) out of order or out of range at offset %d", e.Start, e.End, pos)
		}
		out = append(out, src[pos:e.Start]...)
		out = append(out, e.Text...)
		pos = e.End
	}
	out = append(out, src[pos:]...)
	return out, nil
}

// Rewrite applies the plan and validates the result. On validation failure
// the original text stands and a TransformationError describes why.
func Rewrite(src []byte, plan *Plan) ([]byte, error) {
	if len(plan.Edits) == 0 {
		return src, nil
	}
	out, err := Apply(src, plan.Edits)
	if err != nil {
		return src, &TransformationError{Err: err}
	}
	if err := parser.Validate(out); err != nil {
		return src, &TransformationError{Err: err}
	}
	return out, nil
}
