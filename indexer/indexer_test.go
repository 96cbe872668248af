package indexer

import (
	"path/filepath"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noddao/governd/codec"
	"github.com/noddao/governd/config"
	"github.com/noddao/governd/engine"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/registry"
	"github.com/noddao/governd/types"
)

type fixture struct {
	t   *testing.T
	eng *engine.Engine
	ix  *Indexer
	key ed25519.PrivKey
}

func newFixture(t *testing.T, stake uint64) *fixture {
	dir := t.TempDir()
	cfg := config.DefaultConfig(dir)
	cfg.MinVotingWindow = 1
	logger := cmtlog.NewNopLogger()

	db, err := ledger.NewDB(filepath.Join(dir, "data"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store, err := registry.NewStore(filepath.Join(dir, "registry"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	eng := engine.New(cfg, db, store, logger)
	key := ed25519.GenPrivKey()
	require.NoError(t, eng.InitGenesis(&types.GenesisEvent{
		ChainID:  cfg.ChainID,
		Accounts: []types.GenesisAccount{{PubKey: key.PubKey().Bytes(), Stake: stake}},
	}))

	ix, err := New(logger, filepath.Join(dir, "indexer.db"), db)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	return &fixture{t: t, eng: eng, ix: ix, key: key}
}

func (f *fixture) apply(typ types.EventType, seq uint64, body any, signed bool) {
	ev := &types.Event{Version: codec.Version, Type: typ, Seq: seq, Body: body}
	if signed {
		dat, err := ev.SigData([]byte(f.eng.ChainID()))
		require.NoError(f.t, err)
		sig, err := f.key.Sign(dat)
		require.NoError(f.t, err)
		ev.Sig = [][]byte{sig}
	}
	require.NoError(f.t, f.eng.Apply(ev))
}

func (f *fixture) runLifecycle() common.Hash {
	addr := f.key.PubKey().Address().String()
	payload := []types.ParamOp{{Kind: types.OpSetUint, Name: "gov.max_payload_ops", Uint: 64}}

	f.apply(types.EventTypeSubmit, 2, &types.SubmitEvent{
		Proposer: addr,
		PubKey:   f.key.PubKey().Bytes(),
		Payload:  payload,
		StartSeq: 2,
		EndSeq:   10,
	}, true)
	id, err := types.ProposalID(addr, payload, 2)
	require.NoError(f.t, err)

	f.apply(types.EventTypeActivate, 3, &types.ActivateEvent{Proposal: id}, false)
	f.apply(types.EventTypeVote, 4, &types.VoteEvent{
		Proposal: id, Voter: addr, PubKey: f.key.PubKey().Bytes(),
		Direction: types.VoteNo, Weight: 400,
	}, true)
	// the voter reconsiders; the second vote supersedes
	f.apply(types.EventTypeVote, 5, &types.VoteEvent{
		Proposal: id, Voter: addr, PubKey: f.key.PubKey().Bytes(),
		Direction: types.VoteYes, Weight: 1000,
	}, true)
	f.apply(types.EventTypeFinalize, 10, &types.FinalizeEvent{Proposal: id}, false)
	f.apply(types.EventTypeExecute, 11, &types.ExecuteEvent{Proposal: id}, false)
	return id
}

func TestCatchupMirrorsLedger(t *testing.T) {
	f := newFixture(t, 1000)
	id := f.runLifecycle()
	require.NoError(t, f.ix.Catchup())

	p, err := f.ix.GetProposalById(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(types.PhaseExecuted), p.Phase)
	assert.Equal(t, "EXECUTED", p.PhaseName)
	assert.Equal(t, uint64(1000), p.StakeSnapshot)

	votes, err := f.ix.GetVotesByProposal(id.Hex())
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, uint64(types.VoteYes), votes[0].Direction)
	assert.Equal(t, uint64(1000), votes[0].Weight)
	assert.Equal(t, uint64(5), votes[0].Seq)

	arts, err := f.ix.GetArtifactsByProposal(id.Hex())
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, "PASSED", arts[0].StatusName)
	assert.Equal(t, "EXECUTED", arts[1].StatusName)
	assert.Equal(t, arts[0].Id, arts[1].PrevHash)

	addr := f.key.PubKey().Address().String()
	a, err := f.ix.GetAccount(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), a.Stake)
}

func TestCatchupIsIdempotent(t *testing.T) {
	f := newFixture(t, 1000)
	id := f.runLifecycle()

	require.NoError(t, f.ix.Catchup())
	require.NoError(t, f.ix.Catchup())

	votes, err := f.ix.GetVotesByProposal(id.Hex())
	require.NoError(t, err)
	require.Len(t, votes, 1)

	arts, _, err := f.ix.GetArtifacts(0, 50)
	require.NoError(t, err)
	require.Len(t, arts, 2)
	assert.Equal(t, uint64(11), f.ix.cursor())
}

func TestLiveEventsAdvanceCursor(t *testing.T) {
	f := newFixture(t, 1000)
	require.NoError(t, f.ix.Catchup())
	assert.Equal(t, uint64(1), f.ix.cursor())

	id := f.runLifecycle()
	events, err := f.ix.ledger.Events()
	require.NoError(t, err)
	for _, ev := range events {
		if ev.Seq > 1 {
			f.ix.handleEvent(ev)
		}
	}
	assert.Equal(t, uint64(11), f.ix.cursor())

	p, err := f.ix.GetProposalById(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(types.PhaseExecuted), p.Phase)
}

func TestGetProposalsPaging(t *testing.T) {
	f := newFixture(t, 1000)
	addr := f.key.PubKey().Address().String()
	seq := uint64(2)
	for i := 0; i < 5; i++ {
		payload := []types.ParamOp{{Kind: types.OpSetUint, Name: "gov.max_payload_ops", Uint: uint64(i)}}
		f.apply(types.EventTypeSubmit, seq, &types.SubmitEvent{
			Proposer: addr,
			PubKey:   f.key.PubKey().Bytes(),
			Payload:  payload,
			StartSeq: seq,
			EndSeq:   seq + 100,
		}, true)
		seq++
	}
	require.NoError(t, f.ix.Catchup())

	all, total, err := f.ix.GetProposals(0, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	require.Len(t, all, 3)
	// newest first
	assert.Equal(t, uint64(6), all[0].CreatedSeq)

	rest, _, err := f.ix.GetProposals(0, 1, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)

	drafts, total, err := f.ix.GetProposals(uint64(types.PhaseDraft), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
	require.Len(t, drafts, 5)
}
