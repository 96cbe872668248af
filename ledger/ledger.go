package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/noddao/governd/types"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrPoENotFound      = errors.New("proof of execution not found")
	ErrStaleSequence    = errors.New("event sequence not after ledger height")
	ErrNoOpenBatch      = errors.New("no open event batch")
)

var (
	KeyHeader   = "l"
	KeyAccount  = "a%s"
	KeyProposal = "p%x"
	KeyVote     = "v%x/%s"
	KeyPoE      = "e%x"
	KeyPoEChain = "c%016x"
	KeyEvent    = "q%016x"
)

// Ledger owns the append-only sequence of proposals, votes, PoE artifacts
// and raw events over one iavl tree. The engine is its sole writer: each
// event is staged through Begin/mutators and lands atomically in Commit,
// or vanishes without a trace in Reset.
type Ledger struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header *Header

	// staged state for the event being applied
	work         *Header
	workEvent    *types.Event
	modProposals map[common.Hash]*types.Proposal
	modVotes     map[string]*types.Vote
	modAccounts  map[string]*Account
	newPoEs      []*types.ProofOfExecution
}

func newLedger(db *iavl.MutableTree, logger cmtlog.Logger) *Ledger {
	return &Ledger{
		logger: logger,
		db:     db,
		header: new(Header),
	}
}

func (l *Ledger) load() error {
	val, err := l.db.Get([]byte(KeyHeader))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val == nil {
		return nil
	}
	if err := l.header.Unmarshal(val); err != nil {
		return err
	}
	if h := l.db.Hash(); h != nil {
		l.calcHash(h, true)
	}
	return nil
}

func (l *Ledger) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		l.header.RootHash = append(l.header.RootHash[:0], rootHash...)
		l.header.Hash = append(l.header.Hash[:0], h[:]...)
	}
	return
}

func (l *Ledger) Header() *Header {
	return l.header
}

func (l *Ledger) Hash() (h common.Hash) {
	if l.header.Hash != nil {
		copy(h[:], l.header.Hash)
	}
	return
}

func (l *Ledger) SetChainID(chainID string) {
	l.header.ChainID = chainID
}

// Begin opens a staging batch for one event. Every event must carry a
// sequence number strictly after the current height.
func (l *Ledger) Begin(ev *types.Event) error {
	if ev.Seq <= l.header.Height && l.header.Height > 0 {
		return ErrStaleSequence
	}
	l.work = l.header.Clone()
	l.work.Height = ev.Seq
	l.workEvent = ev
	l.modProposals = make(map[common.Hash]*types.Proposal)
	l.modVotes = make(map[string]*types.Vote)
	l.modAccounts = make(map[string]*Account)
	l.newPoEs = nil
	return nil
}

// Reset discards the staged batch; committed state is untouched,
// byte-identical to before the attempt.
func (l *Ledger) Reset() {
	l.work = nil
	l.workEvent = nil
	l.modProposals = nil
	l.modVotes = nil
	l.modAccounts = nil
	l.newPoEs = nil
}

// Work returns the staged header, the view every mutator operates on.
func (l *Ledger) Work() *Header {
	if l.work != nil {
		return l.work
	}
	return l.header
}

func voteKey(pid common.Hash, voter string) string {
	return fmt.Sprintf(KeyVote, pid, voter)
}

func (l *Ledger) PutProposal(p *types.Proposal) {
	l.modProposals[p.ID] = p
}

func (l *Ledger) PutVote(v *types.Vote) {
	l.modVotes[voteKey(v.Proposal, v.Voter)] = v
}

func (l *Ledger) PutAccount(a *Account) {
	l.modAccounts[a.Address] = a
}

func (l *Ledger) AppendPoE(p *types.ProofOfExecution) {
	l.newPoEs = append(l.newPoEs, p)
	l.work.PoECount++
	l.work.LastPoEHash = p.ID
}

// GetProposal reads staged state first, then the committed tree.
func (l *Ledger) GetProposal(id common.Hash) (*types.Proposal, error) {
	if l.modProposals != nil {
		if p, ok := l.modProposals[id]; ok {
			return p, nil
		}
	}
	val, err := l.get(fmt.Sprintf(KeyProposal, id))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrProposalNotFound
	}
	p := new(types.Proposal)
	if err := json.Unmarshal(val, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *Ledger) GetVote(pid common.Hash, voter string) (*types.Vote, error) {
	if l.modVotes != nil {
		if v, ok := l.modVotes[voteKey(pid, voter)]; ok {
			return v, nil
		}
	}
	val, err := l.get(voteKey(pid, voter))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}
	v := new(types.Vote)
	if err := json.Unmarshal(val, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (l *Ledger) GetAccount(addr string) (*Account, error) {
	if l.modAccounts != nil {
		if a, ok := l.modAccounts[addr]; ok {
			return a, nil
		}
	}
	val, err := l.get(fmt.Sprintf(KeyAccount, addr))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrAccountNotFound
	}
	a := new(Account)
	if err := json.Unmarshal(val, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetPoE returns the latest artifact of one proposal: the EXECUTED one
// when present, else the PASSED/REJECTED one. Earlier artifacts stay in
// the chain untouched.
func (l *Ledger) GetPoE(pid common.Hash) (*types.ProofOfExecution, error) {
	if l.newPoEs != nil {
		for i := len(l.newPoEs) - 1; i >= 0; i-- {
			if l.newPoEs[i].Proposal == pid {
				return l.newPoEs[i], nil
			}
		}
	}
	val, err := l.get(fmt.Sprintf(KeyPoE, pid))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrPoENotFound
	}
	var idx uint64
	if err := rlp.DecodeBytes(val, &idx); err != nil {
		return nil, err
	}
	return l.PoEAt(idx)
}

// PoEAt reads one artifact by chain index.
func (l *Ledger) PoEAt(idx uint64) (*types.ProofOfExecution, error) {
	val, err := l.get(fmt.Sprintf(KeyPoEChain, idx))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrPoENotFound
	}
	p := new(types.ProofOfExecution)
	if err := json.Unmarshal(val, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PoEChain returns every artifact in chain order.
func (l *Ledger) PoEChain() ([]*types.ProofOfExecution, error) {
	chain := make([]*types.ProofOfExecution, 0, l.header.PoECount)
	for i := uint64(0); i < l.header.PoECount; i++ {
		p, err := l.PoEAt(i)
		if err != nil {
			return nil, err
		}
		chain = append(chain, p)
	}
	return chain, nil
}

// TallyVotes folds the committed effective votes of one proposal. Votes
// are iterated in key order so the fold is deterministic, though the sums
// are order-independent anyway.
func (l *Ledger) TallyVotes(p *types.Proposal) (types.Tally, error) {
	t := types.Tally{StakeSnapshot: p.StakeSnapshot}
	start := []byte(fmt.Sprintf("v%x/", p.ID))
	end := PrefixEndBytes(start)
	it, err := l.db.Iterator(start, end, false)
	if err != nil {
		return t, err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		var v types.Vote
		if err := json.Unmarshal(it.Value(), &v); err != nil {
			return t, err
		}
		switch v.Direction {
		case types.VoteYes:
			t.Yes += v.Weight
		case types.VoteNo:
			t.No += v.Weight
		case types.VoteAbstain:
			t.Abstain += v.Weight
		}
	}
	return t, nil
}

// ActiveProposals lists ACTIVE proposal ids ordered by creation sequence,
// then id, so every node lists them identically.
func (l *Ledger) ActiveProposals() ([]*types.Proposal, error) {
	return l.proposalsInPhase(types.PhaseActive)
}

func (l *Ledger) proposalsInPhase(phase types.Phase) ([]*types.Proposal, error) {
	start := []byte("p")
	end := PrefixEndBytes(start)
	it, err := l.db.Iterator(start, end, false)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []*types.Proposal
	for ; it.Valid(); it.Next() {
		p := new(types.Proposal)
		if err := json.Unmarshal(it.Value(), p); err != nil {
			return nil, err
		}
		if p.Phase == phase {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedSeq != out[j].CreatedSeq {
			return out[i].CreatedSeq < out[j].CreatedSeq
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

// Events replays the raw event log in sequence order.
func (l *Ledger) Events() ([]*types.Event, error) {
	start := []byte("q")
	end := PrefixEndBytes(start)
	it, err := l.db.Iterator(start, end, false)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var out []*types.Event
	for ; it.Valid(); it.Next() {
		ev, err := types.UnmarshalEvent(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Commit writes the staged batch and the triggering event into the tree
// in sorted key order and saves a version. The new header hash commits
// the full ledger content.
func (l *Ledger) Commit() (h common.Hash, err error) {
	if l.work == nil || l.workEvent == nil {
		return h, ErrNoOpenBatch
	}
	defer func() {
		if err != nil {
			l.db.Rollback()
		}
		l.Reset()
	}()

	pairs := make(map[string][]byte)

	evDat, err := types.MarshalEvent(l.workEvent)
	if err != nil {
		return
	}
	pairs[fmt.Sprintf(KeyEvent, l.workEvent.Seq)] = evDat

	for id, p := range l.modProposals {
		dat, err2 := json.Marshal(p)
		if err2 != nil {
			return h, err2
		}
		pairs[fmt.Sprintf(KeyProposal, id)] = dat
	}
	for key, v := range l.modVotes {
		dat, err2 := json.Marshal(v)
		if err2 != nil {
			return h, err2
		}
		pairs[key] = dat
	}
	for addr, a := range l.modAccounts {
		dat, err2 := a.Marshal()
		if err2 != nil {
			return h, err2
		}
		pairs[fmt.Sprintf(KeyAccount, addr)] = dat
	}
	for _, p := range l.newPoEs {
		dat, err2 := json.Marshal(p)
		if err2 != nil {
			return h, err2
		}
		pairs[fmt.Sprintf(KeyPoEChain, p.ChainIndex)] = dat
		idx, err2 := rlp.EncodeToBytes(p.ChainIndex)
		if err2 != nil {
			return h, err2
		}
		pairs[fmt.Sprintf(KeyPoE, p.Proposal)] = idx
	}

	hdrDat, err := l.work.Marshal()
	if err != nil {
		return
	}
	pairs[KeyHeader] = hdrDat

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err = l.db.Set([]byte(k), pairs[k]); err != nil {
			return
		}
	}

	work := l.work
	rootHash, ver, err := l.db.SaveVersion()
	if err != nil {
		return
	}
	l.dbVer = ver
	l.header = work
	h = l.calcHash(rootHash, true)

	// the persisted header carries the previous root; load() recomputes
	// hashes from the live tree
	return h, nil
}

func (l *Ledger) get(key string) ([]byte, error) {
	val, err := l.db.Get([]byte(key))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

// PrefixEndBytes returns the smallest key strictly after every key with
// the given prefix.
func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}
		end = end[:len(end)-1]
		if len(end) == 0 {
			return nil
		}
	}
	return end
}
