package engine

import (
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/noddao/governd/config"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/poe"
	"github.com/noddao/governd/types"
)

type finalizeHandler struct {
	cfg    *config.Config
	logger cmtlog.Logger
}

// Apply decides PASSED or REJECTED. The result is a pure function of the
// committed vote ledger at the window boundary; invoking it later (or
// replaying it) changes nothing.
func (h *finalizeHandler) Apply(l *ledger.Ledger, ev *types.Event) error {
	body, ok := ev.Body.(*types.FinalizeEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	p, err := l.GetProposal(body.Proposal)
	if err != nil {
		return err
	}
	if p.Phase != types.PhaseActive {
		return ErrInvalidTransition
	}
	if ev.Seq < p.EndSeq {
		return ErrWindowNotClosed
	}

	tally, err := l.TallyVotes(p)
	if err != nil {
		return err
	}
	out, err := Evaluate(tally, h.cfg.QuorumPct, h.cfg.SupermajorityPct)
	if err != nil {
		return err
	}
	if out.Passed {
		p.Phase = types.PhasePassed
	} else {
		p.Phase = types.PhaseRejected
	}
	l.PutProposal(p)

	work := l.Work()
	art, err := poe.Build(p, tally, out.Participation, out.Approval,
		common.Hash{}, common.Hash{}, work.LastPoEHash, ev.Seq, work.PoECount)
	if err != nil {
		return err
	}
	l.AppendPoE(art)
	h.logger.Info("proposal finalized", "id", p.ID, "phase", p.Phase.String(),
		"participation", out.Participation.String(), "approval", out.Approval.String())
	return nil
}
