package engine

import (
	"fmt"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/noddao/governd/config"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/poe"
	"github.com/noddao/governd/registry"
	"github.com/noddao/governd/types"
)

type executeHandler struct {
	cfg     *config.Config
	applier registry.Applier
	logger  cmtlog.Logger
}

// Apply performs the single at-most-once side effect of the engine. On
// registry failure the proposal stays PASSED and the error is surfaced;
// retrying is the caller's decision.
func (h *executeHandler) Apply(l *ledger.Ledger, ev *types.Event) error {
	body, ok := ev.Body.(*types.ExecuteEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	p, err := l.GetProposal(body.Proposal)
	if err != nil {
		return err
	}
	switch p.Phase {
	case types.PhasePassed:
	case types.PhaseExecuted:
		return ErrAlreadyExecuted
	default:
		return ErrInvalidTransition
	}

	preRoot, postRoot, err := h.applier.Apply(p.Payload)
	if err != nil {
		h.logger.Error("registry apply failed", "proposal", p.ID, "err", err)
		return fmt.Errorf("%w: %v", ErrRegistryApply, err)
	}

	p.Phase = types.PhaseExecuted
	l.PutProposal(p)

	tally, err := l.TallyVotes(p)
	if err != nil {
		return err
	}
	out, err := Evaluate(tally, h.cfg.QuorumPct, h.cfg.SupermajorityPct)
	if err != nil {
		return err
	}
	work := l.Work()
	art, err := poe.Build(p, tally, out.Participation, out.Approval,
		preRoot, postRoot, work.LastPoEHash, ev.Seq, work.PoECount)
	if err != nil {
		return err
	}
	l.AppendPoE(art)
	h.logger.Info("proposal executed", "id", p.ID, "preRoot", preRoot, "postRoot", postRoot)
	return nil
}
