package ledger

import (
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"

	"github.com/noddao/governd/types"
)

// DB guards the single-writer ledger behind a read-write lock. Readers
// get cloned records from the last saved version and never observe a
// partially applied transition.
type DB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree

	ledger *Ledger
}

func NewDB(dir string, logger cmtlog.Logger) (db *DB, err error) {
	logger = logger.With("module", "ledgerdb")
	ldb, err := dbm.NewDB("gov", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	tdb := iavl.NewMutableTree(ldb, 128, true, CometbftToCosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("ledger db loaded", "version", version)
	led := newLedger(tdb, logger)
	if err = led.load(); err != nil {
		logger.Error("ledger load fail", "err", err)
		return nil, err
	}
	db = &DB{
		dir:    dir,
		logger: logger,
		db:     tdb,
		ledger: led,
	}
	return
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Ledger hands the writer its exclusive handle. Engine only.
func (db *DB) Ledger() *Ledger {
	return db.ledger
}

// WriteLocked runs fn with the write lock held, serializing commits
// against concurrent readers.
func (db *DB) WriteLocked(fn func(l *Ledger) error) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	return fn(db.ledger)
}

func (db *DB) Header() *Header {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.ledger.Header().Clone()
}

func (db *DB) GetProposal(id common.Hash) (*types.Proposal, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.ledger.GetProposal(id)
}

func (db *DB) GetAccount(addr string) (*Account, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	a, err := db.ledger.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return a.Clone(), nil
}

func (db *DB) GetPoE(pid common.Hash) (*types.ProofOfExecution, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.ledger.GetPoE(pid)
}

func (db *DB) PoEChain() ([]*types.ProofOfExecution, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.ledger.PoEChain()
}

func (db *DB) ActiveProposals() ([]*types.Proposal, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.ledger.ActiveProposals()
}

// TallyPreview reads the running tally of an active proposal from the
// last saved version.
func (db *DB) TallyPreview(id common.Hash) (types.Tally, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	p, err := db.ledger.GetProposal(id)
	if err != nil {
		return types.Tally{}, err
	}
	return db.ledger.TallyVotes(p)
}

func (db *DB) Events() ([]*types.Event, error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.ledger.Events()
}
