package engine

import (
	"errors"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/noddao/governd/crypto"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/types"
)

type voteHandler struct {
	logger cmtlog.Logger
}

func (h *voteHandler) Apply(l *ledger.Ledger, ev *types.Event) error {
	body, ok := ev.Body.(*types.VoteEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	p, err := l.GetProposal(body.Proposal)
	if err != nil {
		return err
	}
	if p.Phase != types.PhaseActive || ev.Seq >= p.EndSeq {
		return ErrVotingClosed
	}
	if !body.Direction.Valid() {
		return ErrInvalidDirection
	}

	addr, err := crypto.AddressOf(body.PubKey)
	if err != nil || addr != body.Voter {
		return ErrSigInvalid
	}
	acnt, err := l.GetAccount(body.Voter)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return ErrUnknownVoter
		}
		return err
	}
	if body.Weight == 0 || body.Weight > acnt.Stake {
		return ErrInvalidWeight
	}
	dat, err := ev.SigData([]byte(l.Work().ChainID))
	if err != nil {
		return err
	}
	if !crypto.Verify(body.PubKey, dat, ev.Sig) {
		return ErrSigInvalid
	}

	// (proposal, voter) is unique; the vote with the highest sequence
	// number is the effective one
	if prev, err := l.GetVote(p.ID, body.Voter); err == nil {
		if prev.Seq >= ev.Seq {
			return ledger.ErrStaleSequence
		}
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return err
	}

	l.PutVote(&types.Vote{
		Proposal:  p.ID,
		Voter:     body.Voter,
		Direction: body.Direction,
		Weight:    body.Weight,
		Seq:       ev.Seq,
	})
	h.logger.Debug("vote cast", "proposal", p.ID, "voter", body.Voter, "direction", body.Direction, "weight", body.Weight)
	return nil
}
