package engine

import (
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/noddao/governd/codec"
	"github.com/noddao/governd/config"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/registry"
	"github.com/noddao/governd/types"
)

// eventHandler applies one event kind against the staged ledger batch.
// Handlers return an error to abort the batch; they never commit.
type eventHandler interface {
	Apply(l *ledger.Ledger, ev *types.Event) error
}

// Engine is the single logical writer of the governance ledger. It
// consumes an externally ordered event stream; every state change is a
// pure function of that stream, so replaying it reproduces the ledger
// bit for bit.
type Engine struct {
	logger  cmtlog.Logger
	cfg     *config.Config
	db      *ledger.DB
	applier registry.Applier

	handlers map[types.EventType]eventHandler
	subs     []chan<- *types.Event
}

func New(cfg *config.Config, db *ledger.DB, applier registry.Applier, logger cmtlog.Logger) *Engine {
	logger = logger.With("module", "engine")
	e := &Engine{
		logger:  logger,
		cfg:     cfg,
		db:      db,
		applier: applier,
	}
	e.handlers = map[types.EventType]eventHandler{
		types.EventTypeGenesis:  &genesisHandler{logger: logger},
		types.EventTypeSubmit:   &submitHandler{cfg: cfg, logger: logger},
		types.EventTypeActivate: &activateHandler{logger: logger},
		types.EventTypeVote:     &voteHandler{logger: logger},
		types.EventTypeFinalize: &finalizeHandler{cfg: cfg, logger: logger},
		types.EventTypeExecute:  &executeHandler{cfg: cfg, applier: applier, logger: logger},
	}
	return e
}

// InitGenesis seeds the voter set. Valid only on an empty ledger.
func (e *Engine) InitGenesis(gen *types.GenesisEvent) error {
	return e.Apply(&types.Event{
		Version: codec.Version,
		Type:    types.EventTypeGenesis,
		Seq:     1,
		Body:    gen,
	})
}

// Apply drives one externally ordered event through its handler. A
// failed event leaves the committed ledger byte-identical to before the
// attempt.
func (e *Engine) Apply(ev *types.Event) error {
	if err := codec.CheckVersion(ev.Version); err != nil {
		return err
	}
	return e.db.WriteLocked(func(l *ledger.Ledger) error {
		h, ok := e.handlers[ev.Type]
		if !ok {
			return types.ErrUnsupportedEventType
		}
		if err := l.Begin(ev); err != nil {
			return err
		}
		if err := h.Apply(l, ev); err != nil {
			l.Reset()
			e.logger.Info("event rejected", "type", ev.Type, "seq", ev.Seq, "err", err)
			return err
		}
		hash, err := l.Commit()
		if err != nil {
			e.logger.Error("commit fail", "seq", ev.Seq, "err", err)
			return err
		}
		e.logger.Debug("event applied", "type", ev.Type, "seq", ev.Seq, "hash", hash)
		e.publish(ev)
		return nil
	})
}

// NextSeq hands entry points the sequence number for a freshly minted
// event.
func (e *Engine) NextSeq() uint64 {
	return e.db.Header().Height + 1
}

// ChainID is fixed at genesis; submission signatures commit to it.
func (e *Engine) ChainID() string {
	return e.db.Header().ChainID
}

// Subscribe delivers applied events in commit order. Registration must
// happen before the engine starts applying.
func (e *Engine) Subscribe(buffer int) <-chan *types.Event {
	ch := make(chan *types.Event, buffer)
	e.subs = append(e.subs, ch)
	return ch
}

func (e *Engine) publish(ev *types.Event) {
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.logger.Error("event subscriber lagging, notice dropped", "seq", ev.Seq)
		}
	}
}

// Replay applies a recorded event stream onto an empty ledger, e.g.
// after crash recovery. Replaying any number of times reaches the same
// final header hash and PoE chain.
func (e *Engine) Replay(events []*types.Event) error {
	for _, ev := range events {
		if err := e.Apply(ev); err != nil {
			return err
		}
	}
	return nil
}

// Submit wraps the body in a sequenced envelope and applies it.
func (e *Engine) Submit(body *types.SubmitEvent, sig [][]byte) (common.Hash, error) {
	ev := &types.Event{
		Version: codec.Version,
		Type:    types.EventTypeSubmit,
		Seq:     e.NextSeq(),
		Body:    body,
		Sig:     sig,
	}
	id, err := types.ProposalID(body.Proposer, body.Payload, ev.Seq)
	if err != nil {
		return common.Hash{}, err
	}
	if err := e.Apply(ev); err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

func (e *Engine) Activate(id common.Hash) error {
	return e.Apply(&types.Event{
		Version: codec.Version,
		Type:    types.EventTypeActivate,
		Seq:     e.NextSeq(),
		Body:    &types.ActivateEvent{Proposal: id},
	})
}

func (e *Engine) CastVote(body *types.VoteEvent, sig [][]byte) error {
	return e.Apply(&types.Event{
		Version: codec.Version,
		Type:    types.EventTypeVote,
		Seq:     e.NextSeq(),
		Body:    body,
		Sig:     sig,
	})
}

func (e *Engine) Finalize(id common.Hash) error {
	return e.Apply(&types.Event{
		Version: codec.Version,
		Type:    types.EventTypeFinalize,
		Seq:     e.NextSeq(),
		Body:    &types.FinalizeEvent{Proposal: id},
	})
}

func (e *Engine) Execute(id common.Hash) error {
	return e.Apply(&types.Event{
		Version: codec.Version,
		Type:    types.EventTypeExecute,
		Seq:     e.NextSeq(),
		Body:    &types.ExecuteEvent{Proposal: id},
	})
}
