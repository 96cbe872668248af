package poe

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/noddao/governd/fixed"
	"github.com/noddao/governd/types"
)

var (
	ErrNotTerminal = errors.New("proposal not in a terminal phase")
	ErrChainBroken = errors.New("poe chain verification failed")
)

// Build assembles the Proof-of-Execution artifact for one terminal
// proposal and seals it with its own canonical hash. The artifact is
// a pure function of its inputs; building it twice yields byte-identical
// output.
func Build(
	p *types.Proposal,
	tally types.Tally,
	participation, approval fixed.FixedPoint128,
	preRoot, postRoot common.Hash,
	prevPoEHash common.Hash,
	seq, chainIndex uint64,
) (*types.ProofOfExecution, error) {
	if !p.Phase.Terminal() {
		return nil, ErrNotTerminal
	}
	payloadHash, err := p.PayloadHash()
	if err != nil {
		return nil, err
	}
	art := &types.ProofOfExecution{
		Proposal:      p.ID,
		PayloadHash:   payloadHash,
		PreStateRoot:  preRoot,
		PostStateRoot: postRoot,
		Tally:         tally,
		Participation: participation,
		Approval:      approval,
		Status:        p.Phase,
		PrevPoEHash:   prevPoEHash,
		Seq:           seq,
		ChainIndex:    chainIndex,
	}
	art.ID, err = art.Hash()
	if err != nil {
		return nil, err
	}
	return art, nil
}

// VerifyChain recomputes every artifact's hash from its canonical
// encoding and checks each successor's backward link. Corrupting any
// field of artifact i breaks verification at i (id mismatch) and at i+1
// (prev link mismatch).
func VerifyChain(chain []*types.ProofOfExecution) error {
	prev := common.Hash{}
	for i, art := range chain {
		h, err := art.Hash()
		if err != nil {
			return err
		}
		if h != art.ID {
			return fmt.Errorf("%w: artifact %d id mismatch", ErrChainBroken, i)
		}
		if art.PrevPoEHash != prev {
			return fmt.Errorf("%w: artifact %d prev link mismatch", ErrChainBroken, i)
		}
		if art.ChainIndex != uint64(i) {
			return fmt.Errorf("%w: artifact %d chain index mismatch", ErrChainBroken, i)
		}
		prev = art.ID
	}
	return nil
}
