package engine

import (
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/types"
)

type activateHandler struct {
	logger cmtlog.Logger
}

func (h *activateHandler) Apply(l *ledger.Ledger, ev *types.Event) error {
	body, ok := ev.Body.(*types.ActivateEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	p, err := l.GetProposal(body.Proposal)
	if err != nil {
		return err
	}
	if p.Phase != types.PhaseDraft {
		return ErrInvalidTransition
	}
	if ev.Seq < p.StartSeq {
		return ErrWindowNotOpen
	}
	if ev.Seq >= p.EndSeq {
		return ErrVotingClosed
	}
	work := l.Work()
	// quorum against zero stake would divide by zero at finalization;
	// reject here instead
	if work.TotalStake == 0 {
		return ErrInvalidState
	}
	p.Phase = types.PhaseActive
	p.StakeSnapshot = work.TotalStake
	l.PutProposal(p)
	h.logger.Info("proposal active", "id", p.ID, "stakeSnapshot", p.StakeSnapshot, "endSeq", p.EndSeq)
	return nil
}
