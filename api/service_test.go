package api

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noddao/governd/codec"
	"github.com/noddao/governd/config"
	"github.com/noddao/governd/engine"
	"github.com/noddao/governd/indexer"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/registry"
	"github.com/noddao/governd/types"
)

type fixture struct {
	t   *testing.T
	cli *Client
	key ed25519.PrivKey
}

func newFixture(t *testing.T) *fixture {
	gin.SetMode(gin.TestMode)
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

	gov := engine.New(cfg, db, store, logger)
	events := gov.Subscribe(64)

	key := ed25519.GenPrivKey()
	require.NoError(t, gov.InitGenesis(&types.GenesisEvent{
		ChainID:  cfg.ChainID,
		Accounts: []types.GenesisAccount{{PubKey: key.PubKey().Bytes(), Stake: 1000}},
	}))

	ix, err := indexer.New(logger, filepath.Join(dir, "indexer.db"), db)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	require.NoError(t, ix.Catchup())
	go func() {
		for ev := range events {
			_ = ev
		}
	}()

	s := NewService("127.0.0.1:0", gov, db, ix, cfg)
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)

	return &fixture{t: t, cli: NewClient(srv.URL), key: key}
}

func (f *fixture) signedEvent(typ types.EventType, seq uint64, body any, chainID string) *types.Event {
	ev := &types.Event{Version: codec.Version, Type: typ, Seq: seq, Body: body}
	dat, err := ev.SigData([]byte(chainID))
	require.NoError(f.t, err)
	sig, err := f.key.Sign(dat)
	require.NoError(f.t, err)
	ev.Sig = [][]byte{sig}
	return ev
}

func TestChainInfo(t *testing.T) {
	f := newFixture(t)
	info, err := f.cli.ChainInfo()
	require.NoError(t, err)
	assert.Equal(t, "nod-governance-1", info.ChainID)
	assert.Equal(t, uint64(1), info.Height)
	assert.Equal(t, uint64(2), info.NextSeq)
	assert.Equal(t, uint64(1000), info.TotalStake)
	assert.Equal(t, uint64(30), info.QuorumPct)
	assert.Equal(t, uint64(66), info.SupermajorityPct)
}

func TestBroadcastLifecycle(t *testing.T) {
	f := newFixture(t)
	info, err := f.cli.ChainInfo()
	require.NoError(t, err)
	addr := f.key.PubKey().Address().String()

	payload := []types.ParamOp{{Kind: types.OpSetUint, Name: "gov.max_payload_ops", Uint: 64}}
	res, err := f.cli.BroadcastEvent(f.signedEvent(types.EventTypeSubmit, info.NextSeq, &types.SubmitEvent{
		Proposer: addr,
		PubKey:   f.key.PubKey().Bytes(),
		Payload:  payload,
		StartSeq: info.NextSeq,
		EndSeq:   info.NextSeq + 8,
	}, info.ChainID))
	require.NoError(t, err)
	require.NotEmpty(t, res.Proposal)
	pid := res.Proposal

	id, err := types.ProposalID(addr, payload, res.Seq)
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), pid)

	_, err = f.cli.BroadcastEvent(&types.Event{
		Version: codec.Version,
		Type:    types.EventTypeActivate,
		Seq:     3,
		Body:    &types.ActivateEvent{Proposal: id},
	})
	require.NoError(t, err)

	_, err = f.cli.BroadcastEvent(f.signedEvent(types.EventTypeVote, 4, &types.VoteEvent{
		Proposal:  id,
		Voter:     addr,
		PubKey:    f.key.PubKey().Bytes(),
		Direction: types.VoteYes,
		Weight:    1000,
	}, info.ChainID))
	require.NoError(t, err)

	tally, err := f.cli.GetTally(pid)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), tally.Yes)
	assert.True(t, tally.QuorumMet)
	assert.True(t, tally.WouldPass)

	active, err := f.cli.ListActive()
	require.NoError(t, err)
	require.Len(t, active.Proposals, 1)
	assert.Equal(t, pid, active.Proposals[0].Id)

	_, err = f.cli.BroadcastEvent(&types.Event{
		Version: codec.Version,
		Type:    types.EventTypeFinalize,
		Seq:     10,
		Body:    &types.FinalizeEvent{Proposal: id},
	})
	require.NoError(t, err)
	_, err = f.cli.BroadcastEvent(&types.Event{
		Version: codec.Version,
		Type:    types.EventTypeExecute,
		Seq:     11,
		Body:    &types.ExecuteEvent{Proposal: id},
	})
	require.NoError(t, err)

	chain, err := f.cli.GetPoEChain(true)
	require.NoError(t, err)
	require.Len(t, chain.Artifacts, 2)
	assert.True(t, chain.Verified)

	active, err = f.cli.ListActive()
	require.NoError(t, err)
	assert.Empty(t, active.Proposals)
}

func TestBroadcastRejectsInvalidEvents(t *testing.T) {
	f := newFixture(t)
	info, err := f.cli.ChainInfo()
	require.NoError(t, err)
	addr := f.key.PubKey().Address().String()

	// bad signature
	ev := f.signedEvent(types.EventTypeSubmit, info.NextSeq, &types.SubmitEvent{
		Proposer: addr,
		PubKey:   f.key.PubKey().Bytes(),
		Payload:  []types.ParamOp{{Kind: types.OpSetUint, Name: "x", Uint: 1}},
		StartSeq: info.NextSeq,
		EndSeq:   info.NextSeq + 8,
	}, "wrong-chain")
	_, err = f.cli.BroadcastEvent(ev)
	require.Error(t, err)

	// immutable parameter
	ev = f.signedEvent(types.EventTypeSubmit, info.NextSeq, &types.SubmitEvent{
		Proposer: addr,
		PubKey:   f.key.PubKey().Bytes(),
		Payload:  []types.ParamOp{{Kind: types.OpSetUint, Name: "protocol.version", Uint: 2}},
		StartSeq: info.NextSeq,
		EndSeq:   info.NextSeq + 8,
	}, info.ChainID)
	_, err = f.cli.BroadcastEvent(ev)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "immutable")

	// state must be untouched
	after, err := f.cli.ChainInfo()
	require.NoError(t, err)
	assert.Equal(t, info.Height, after.Height)
	assert.Equal(t, info.HeaderHash, after.HeaderHash)
}
