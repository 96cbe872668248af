package engine

import (
	"errors"
	"fmt"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/noddao/governd/config"
	"github.com/noddao/governd/crypto"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/types"
)

type submitHandler struct {
	cfg    *config.Config
	logger cmtlog.Logger
}

func (h *submitHandler) Apply(l *ledger.Ledger, ev *types.Event) error {
	body, ok := ev.Body.(*types.SubmitEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	if err := types.ValidatePayload(body.Payload); err != nil {
		return err
	}
	if body.StartSeq < ev.Seq {
		return fmt.Errorf("%w: start %d before submission %d", ErrWindowOutOfBounds, body.StartSeq, ev.Seq)
	}
	if body.EndSeq <= body.StartSeq {
		return fmt.Errorf("%w: end %d not after start %d", ErrWindowOutOfBounds, body.EndSeq, body.StartSeq)
	}
	span := body.EndSeq - body.StartSeq
	if span < h.cfg.MinVotingWindow || span > h.cfg.MaxVotingWindow {
		return fmt.Errorf("%w: span %d outside [%d, %d]", ErrWindowOutOfBounds, span, h.cfg.MinVotingWindow, h.cfg.MaxVotingWindow)
	}

	addr, err := crypto.AddressOf(body.PubKey)
	if err != nil || addr != body.Proposer {
		return ErrSigInvalid
	}
	acnt, err := l.GetAccount(body.Proposer)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return ErrUnknownVoter
		}
		return err
	}
	if acnt.Stake == 0 {
		return ErrNotMember
	}
	dat, err := ev.SigData([]byte(l.Work().ChainID))
	if err != nil {
		return err
	}
	if !crypto.Verify(body.PubKey, dat, ev.Sig) {
		return ErrSigInvalid
	}

	id, err := types.ProposalID(body.Proposer, body.Payload, ev.Seq)
	if err != nil {
		return err
	}
	if _, err := l.GetProposal(id); err == nil {
		return fmt.Errorf("%w: duplicate proposal %x", types.ErrInvalidPayload, id)
	} else if !errors.Is(err, ledger.ErrProposalNotFound) {
		return err
	}

	l.PutProposal(&types.Proposal{
		ID:             id,
		Proposer:       body.Proposer,
		ProposerPubKey: body.PubKey,
		Payload:        body.Payload,
		Phase:          types.PhaseDraft,
		CreatedSeq:     ev.Seq,
		StartSeq:       body.StartSeq,
		EndSeq:         body.EndSeq,
	})
	l.Work().ProposalCount++
	h.logger.Info("proposal submitted", "id", id, "proposer", body.Proposer, "window", fmt.Sprintf("[%d,%d)", body.StartSeq, body.EndSeq))
	return nil
}
