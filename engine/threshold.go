package engine

import (
	"github.com/noddao/governd/fixed"
	"github.com/noddao/governd/types"
)

// Outcome carries the exact percentages alongside the booleans; the PoE
// artifact records both.
type Outcome struct {
	Participation    fixed.FixedPoint128
	Approval         fixed.FixedPoint128
	QuorumMet        bool
	SupermajorityMet bool
	Passed           bool
}

// Evaluate decides PASSED or REJECTED from a frozen tally. Both threshold
// comparisons are inclusive (>=). Quorum is checked first so the approval
// ratio is only ever computed against a non-zero denominator; an
// all-abstain tally can meet quorum but never a supermajority, its
// approval stays zero.
func Evaluate(t types.Tally, quorumPct, superPct uint64) (Outcome, error) {
	var out Outcome
	if t.StakeSnapshot == 0 {
		return out, ErrInvalidState
	}

	hundred := fixed.FromUint64(100)
	part, err := fixed.FromUint64(t.Participating()).Mul(hundred)
	if err != nil {
		return out, err
	}
	out.Participation, err = part.Div(fixed.FromUint64(t.StakeSnapshot))
	if err != nil {
		return out, err
	}
	out.QuorumMet = out.Participation.Cmp(fixed.FromUint64(quorumPct)) >= 0
	if !out.QuorumMet {
		return out, nil
	}

	den := t.Yes + t.No
	if den == 0 {
		return out, nil
	}
	appr, err := fixed.FromUint64(t.Yes).Mul(hundred)
	if err != nil {
		return out, err
	}
	out.Approval, err = appr.Div(fixed.FromUint64(den))
	if err != nil {
		return out, err
	}
	out.SupermajorityMet = out.Approval.Cmp(fixed.FromUint64(superPct)) >= 0
	out.Passed = out.QuorumMet && out.SupermajorityMet
	return out, nil
}
