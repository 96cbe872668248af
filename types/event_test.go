package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRoundTrip(t *testing.T) {
	ev := &Event{
		Version: 1,
		Type:    EventTypeVote,
		Seq:     42,
		Body: &VoteEvent{
			Proposal:  common.Hash{0xaa},
			Voter:     "voter",
			PubKey:    []byte{1, 2, 3},
			Direction: VoteYes,
			Weight:    100,
		},
		Sig: [][]byte{{9, 9}},
	}

	dat, err := MarshalEvent(ev)
	require.NoError(t, err)
	back, err := UnmarshalEvent(dat)
	require.NoError(t, err)

	assert.Equal(t, ev.Version, back.Version)
	assert.Equal(t, ev.Seq, back.Seq)
	assert.Equal(t, ev.Sig, back.Sig)
	body, ok := back.Body.(*VoteEvent)
	require.True(t, ok)
	assert.Equal(t, ev.Body, body)
}

func TestUnmarshalEventDispatch(t *testing.T) {
	cases := []struct {
		typ  EventType
		body any
	}{
		{EventTypeSubmit, &SubmitEvent{Proposer: "p", StartSeq: 1, EndSeq: 2}},
		{EventTypeActivate, &ActivateEvent{Proposal: common.Hash{1}}},
		{EventTypeFinalize, &FinalizeEvent{Proposal: common.Hash{2}}},
		{EventTypeExecute, &ExecuteEvent{Proposal: common.Hash{3}}},
		{EventTypeGenesis, &GenesisEvent{ChainID: "c", Accounts: []GenesisAccount{{PubKey: []byte{1}, Stake: 5}}}},
	}
	for _, tc := range cases {
		dat, err := MarshalEvent(&Event{Version: 1, Type: tc.typ, Seq: 1, Body: tc.body})
		require.NoError(t, err)
		back, err := UnmarshalEvent(dat)
		require.NoError(t, err)
		assert.Equal(t, tc.body, back.Body)
	}

	_, err := MarshalEvent(&Event{Version: 1, Type: EventTypeUnknown, Seq: 1})
	require.NoError(t, err)
	_, err = UnmarshalEvent([]byte(`{"type":0}`))
	require.ErrorIs(t, err, ErrUnsupportedEventType)
}

func TestSigDataCommitsToChainID(t *testing.T) {
	ev := &Event{
		Version: 1,
		Type:    EventTypeSubmit,
		Seq:     7,
		Body:    &SubmitEvent{Proposer: "p"},
		Sig:     [][]byte{{1}},
	}
	a, err := ev.SigData([]byte("chain-a"))
	require.NoError(t, err)
	b, err := ev.SigData([]byte("chain-b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// SigData never covers the signature itself
	ev.Sig = [][]byte{{2}}
	a2, err := ev.SigData([]byte("chain-a"))
	require.NoError(t, err)
	assert.Equal(t, a, a2)
}

func TestProposalIDDeterminism(t *testing.T) {
	payload := []ParamOp{{Kind: OpSetUint, Name: "gov.max_payload_ops", Uint: 64}}

	a, err := ProposalID("proposer", payload, 10)
	require.NoError(t, err)
	b, err := ProposalID("proposer", payload, 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := ProposalID("proposer", payload, 11)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	d, err := ProposalID("other", payload, 10)
	require.NoError(t, err)
	assert.NotEqual(t, a, d)
}

func TestPhaseStringAndTerminal(t *testing.T) {
	assert.Equal(t, "DRAFT", PhaseDraft.String())
	assert.Equal(t, "EXECUTED", PhaseExecuted.String())
	assert.Equal(t, "UNKNOWN", Phase(0).String())

	assert.False(t, PhaseDraft.Terminal())
	assert.False(t, PhaseActive.Terminal())
	assert.True(t, PhasePassed.Terminal())
	assert.True(t, PhaseRejected.Terminal())
	assert.True(t, PhaseExecuted.Terminal())
}
