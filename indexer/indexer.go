package indexer

import (
	"context"
	"encoding/json"
	"errors"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"

	"github.com/noddao/governd/crypto"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/types"
)

// Indexer mirrors the committed ledger into sqlite for query serving. It
// consumes the engine's applied-event feed; the ledger stays the source
// of truth and the sqlite mirror can always be rebuilt from it.
type Indexer struct {
	logger        cmtlog.Logger
	db            *gorm.DB
	ledger        *ledger.DB
	eventHandlers map[types.EventType]eventHandler
}

type eventHandler func(ev *types.Event) error

func New(logger cmtlog.Logger, dbPath string, ldb *ledger.DB) (*Indexer, error) {
	logger = logger.With("module", "indexer")
	logger.Info("opening index db", "dbPath", dbPath)
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Cursor{}, &Proposal{}, &Vote{}, &Artifact{}, &Account{}).Error; err != nil {
		return nil, err
	}
	ix := &Indexer{
		logger: logger,
		db:     db,
		ledger: ldb,
	}
	ix.eventHandlers = map[types.EventType]eventHandler{
		types.EventTypeGenesis:  ix.handleGenesis,
		types.EventTypeSubmit:   ix.handleSubmit,
		types.EventTypeActivate: ix.handleProposalChange,
		types.EventTypeVote:     ix.handleVote,
		types.EventTypeFinalize: ix.handleTerminal,
		types.EventTypeExecute:  ix.handleTerminal,
	}
	return ix, nil
}

func (ix *Indexer) Close() error {
	return ix.db.Close()
}

func (ix *Indexer) cursor() uint64 {
	c := Cursor{Id: 1}
	if err := ix.db.First(&c).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		ix.logger.Error("read cursor fail", "err", err)
	}
	return c.Seq
}

// Catchup replays the ledger's committed event log past the sqlite
// cursor, so a wiped or lagging mirror converges before live events
// start flowing.
func (ix *Indexer) Catchup() error {
	from := ix.cursor()
	events, err := ix.ledger.Events()
	if err != nil {
		return err
	}
	n := 0
	for _, ev := range events {
		if ev.Seq <= from {
			continue
		}
		ix.handleEvent(ev)
		n++
	}
	if n > 0 {
		ix.logger.Info("indexer caught up", "events", n, "from", from)
	}
	return nil
}

// Start consumes applied events until the context ends. The channel must
// come from the engine's Subscribe, registered before any event flows.
func (ix *Indexer) Start(ctx context.Context, events <-chan *types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			ix.handleEvent(ev)
		}
	}
}

func (ix *Indexer) handleEvent(ev *types.Event) {
	if h, ok := ix.eventHandlers[ev.Type]; ok {
		if err := h(ev); err != nil {
			ix.logger.Error("index event fail", "type", ev.Type, "seq", ev.Seq, "err", err)
			return
		}
	}
	if err := ix.db.Save(&Cursor{Id: 1, Seq: ev.Seq}).Error; err != nil {
		ix.logger.Error("save cursor fail", "err", err)
	}
}

func (ix *Indexer) handleGenesis(ev *types.Event) error {
	gen, ok := ev.Body.(*types.GenesisEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	for _, ga := range gen.Accounts {
		addr, err := crypto.AddressOf(ga.PubKey)
		if err != nil {
			return err
		}
		if err := ix.db.Save(&Account{Address: addr, Stake: ga.Stake}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) handleSubmit(ev *types.Event) error {
	body, ok := ev.Body.(*types.SubmitEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	id, err := types.ProposalID(body.Proposer, body.Payload, ev.Seq)
	if err != nil {
		return err
	}
	return ix.saveProposal(id)
}

func (ix *Indexer) handleProposalChange(ev *types.Event) error {
	body, ok := ev.Body.(*types.ActivateEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	return ix.saveProposal(body.Proposal)
}

func (ix *Indexer) handleVote(ev *types.Event) error {
	body, ok := ev.Body.(*types.VoteEvent)
	if !ok {
		return types.ErrUnmatchedEventType
	}
	// (proposal, voter) stays unique; a later vote replaces the earlier row
	var row Vote
	err := ix.db.Where("proposal = ? AND voter = ?", body.Proposal.Hex(), body.Voter).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	row.Proposal = body.Proposal.Hex()
	row.Voter = body.Voter
	row.Direction = uint64(body.Direction)
	row.Weight = body.Weight
	row.Seq = ev.Seq
	return ix.db.Save(&row).Error
}

func (ix *Indexer) handleTerminal(ev *types.Event) error {
	var pid common.Hash
	switch body := ev.Body.(type) {
	case *types.FinalizeEvent:
		pid = body.Proposal
	case *types.ExecuteEvent:
		pid = body.Proposal
	default:
		return types.ErrUnmatchedEventType
	}
	if err := ix.saveProposal(pid); err != nil {
		return err
	}
	art, err := ix.ledger.GetPoE(pid)
	if err != nil {
		return err
	}
	return ix.db.Save(&Artifact{
		Id:            art.ID.Hex(),
		Proposal:      art.Proposal.Hex(),
		Status:        uint64(art.Status),
		StatusName:    art.Status.String(),
		ChainIndex:    art.ChainIndex,
		Seq:           art.Seq,
		PayloadHash:   art.PayloadHash.Hex(),
		PreStateRoot:  art.PreStateRoot.Hex(),
		PostStateRoot: art.PostStateRoot.Hex(),
		Participation: art.Participation.String(),
		Approval:      art.Approval.String(),
		PrevHash:      art.PrevPoEHash.Hex(),
	}).Error
}

func (ix *Indexer) saveProposal(id common.Hash) error {
	p, err := ix.ledger.GetProposal(id)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return err
	}
	return ix.db.Save(&Proposal{
		Id:            p.ID.Hex(),
		Proposer:      p.Proposer,
		Payload:       string(payload),
		Phase:         uint64(p.Phase),
		PhaseName:     p.Phase.String(),
		CreatedSeq:    p.CreatedSeq,
		StartSeq:      p.StartSeq,
		EndSeq:        p.EndSeq,
		StakeSnapshot: p.StakeSnapshot,
	}).Error
}

func (ix *Indexer) GetProposalById(id string) (Proposal, error) {
	var p Proposal
	err := ix.db.First(&p, "id = ?", id).Error
	return p, err
}

func (ix *Indexer) GetProposals(phase uint64, page, pageSize int) ([]Proposal, uint64, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if page < 0 {
		page = 0
	}
	q := ix.db.Model(&Proposal{})
	if phase != 0 {
		q = q.Where("phase = ?", phase)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Proposal
	err := q.Order("created_seq desc").Offset(page * pageSize).Limit(pageSize).Find(&out).Error
	return out, total, err
}

func (ix *Indexer) GetVotesByProposal(id string) ([]Vote, error) {
	var out []Vote
	err := ix.db.Where("proposal = ?", id).Order("seq asc").Find(&out).Error
	return out, err
}

func (ix *Indexer) GetArtifacts(page, pageSize int) ([]Artifact, uint64, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if page < 0 {
		page = 0
	}
	var total uint64
	if err := ix.db.Model(&Artifact{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Artifact
	err := ix.db.Order("chain_index asc").Offset(page * pageSize).Limit(pageSize).Find(&out).Error
	return out, total, err
}

func (ix *Indexer) GetArtifactsByProposal(id string) ([]Artifact, error) {
	var out []Artifact
	err := ix.db.Where("proposal = ?", id).Order("chain_index asc").Find(&out).Error
	return out, err
}

func (ix *Indexer) GetAccount(address string) (Account, error) {
	var a Account
	err := ix.db.First(&a, "address = ?", address).Error
	return a, err
}
