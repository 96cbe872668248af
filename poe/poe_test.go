package poe

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noddao/governd/fixed"
	"github.com/noddao/governd/types"
)

func terminalProposal(seed byte, phase types.Phase) *types.Proposal {
	var id common.Hash
	id[0] = seed
	return &types.Proposal{
		ID:            id,
		Proposer:      "proposer",
		Payload:       []types.ParamOp{{Kind: types.OpSetUint, Name: "x", Uint: uint64(seed)}},
		Phase:         phase,
		CreatedSeq:    1,
		StartSeq:      2,
		EndSeq:        10,
		StakeSnapshot: 1000,
	}
}

func buildArtifact(t *testing.T, seed byte, phase types.Phase, prev common.Hash, idx uint64) *types.ProofOfExecution {
	p := terminalProposal(seed, phase)
	tally := types.Tally{Yes: 700, No: 300, StakeSnapshot: 1000}
	part := fixed.FromUint64(100)
	appr := fixed.FromUint64(70)
	art, err := Build(p, tally, part, appr, common.Hash{}, common.Hash{}, prev, 10+idx, idx)
	require.NoError(t, err)
	return art
}

func TestBuildIsDeterministic(t *testing.T) {
	a := buildArtifact(t, 1, types.PhasePassed, common.Hash{}, 0)
	b := buildArtifact(t, 1, types.PhasePassed, common.Hash{}, 0)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, common.Hash{}, a.ID)

	// any field change moves the identity
	c := buildArtifact(t, 1, types.PhaseRejected, common.Hash{}, 0)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestBuildRejectsNonTerminalPhase(t *testing.T) {
	for _, phase := range []types.Phase{types.PhaseDraft, types.PhaseActive} {
		_, err := Build(terminalProposal(1, phase), types.Tally{}, fixed.Zero(), fixed.Zero(),
			common.Hash{}, common.Hash{}, common.Hash{}, 1, 0)
		require.ErrorIs(t, err, ErrNotTerminal)
	}
}

func TestVerifyChain(t *testing.T) {
	a0 := buildArtifact(t, 1, types.PhasePassed, common.Hash{}, 0)
	a1 := buildArtifact(t, 2, types.PhaseRejected, a0.ID, 1)
	a2 := buildArtifact(t, 3, types.PhaseExecuted, a1.ID, 2)
	chain := []*types.ProofOfExecution{a0, a1, a2}

	require.NoError(t, VerifyChain(chain))
	require.NoError(t, VerifyChain(nil))
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	a0 := buildArtifact(t, 1, types.PhasePassed, common.Hash{}, 0)
	a1 := buildArtifact(t, 2, types.PhaseRejected, a0.ID, 1)
	a2 := buildArtifact(t, 3, types.PhaseExecuted, a1.ID, 2)

	// corrupting a field breaks the artifact's own identity
	tampered := *a1
	tampered.Tally.Yes++
	err := VerifyChain([]*types.ProofOfExecution{a0, &tampered, a2})
	require.ErrorIs(t, err, ErrChainBroken)
	assert.Contains(t, err.Error(), "artifact 1")

	// re-sealing the corrupted artifact still breaks the successor's link
	tampered.ID, err = tampered.Hash()
	require.NoError(t, err)
	err = VerifyChain([]*types.ProofOfExecution{a0, &tampered, a2})
	require.ErrorIs(t, err, ErrChainBroken)
	assert.Contains(t, err.Error(), "artifact 2")
}

func TestVerifyChainDetectsBadLinks(t *testing.T) {
	a0 := buildArtifact(t, 1, types.PhasePassed, common.Hash{}, 0)

	// first artifact must anchor to the zero hash
	loose := buildArtifact(t, 2, types.PhasePassed, a0.ID, 0)
	require.ErrorIs(t, VerifyChain([]*types.ProofOfExecution{loose}), ErrChainBroken)

	// chain index must match position
	misplaced := buildArtifact(t, 2, types.PhasePassed, a0.ID, 5)
	require.ErrorIs(t, VerifyChain([]*types.ProofOfExecution{a0, misplaced}), ErrChainBroken)
}
