package engine

import (
	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/types"
)

type genesisHandler struct {
	logger cmtlog.Logger
}

func (h *genesisHandler) Apply(l *ledger.Ledger, ev *types.Event) error {
	gen, ok := ev.Body.(*types.GenesisEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	work := l.Work()
	if work.Height != 1 || work.TotalStake != 0 || work.ProposalCount != 0 {
		return ErrInvalidState
	}
	work.ChainID = gen.ChainID
	for _, ga := range gen.Accounts {
		a := ledger.NewAccount(ga.PubKey, ga.Stake)
		l.PutAccount(a)
		work.TotalStake += ga.Stake
	}
	h.logger.Info("genesis applied", "chainId", gen.ChainID, "accounts", len(gen.Accounts), "totalStake", work.TotalStake)
	return nil
}
