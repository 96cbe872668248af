package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/noddao/governd/fixed"
	"github.com/noddao/governd/ledger"
	"github.com/noddao/governd/types"
)

var (
	ErrApplyFailed = errors.New("registry apply failed")
	ErrNoParam     = errors.New("parameter not set")
)

// Applier is the narrow contract the engine holds on the parameter
// registry. Apply must be atomic: either every op lands and post differs
// from pre, or nothing changes at all.
type Applier interface {
	Apply(ops []types.ParamOp) (preRoot, postRoot common.Hash, err error)
}

const keyParam = "g/%s"

// Store is the reference Applier backed by its own versioned iavl tree.
// The merkle root before and after each apply becomes the PoE pre/post
// state root pair.
type Store struct {
	mtx    sync.Mutex
	logger cmtlog.Logger
	db     *iavl.MutableTree
}

func NewStore(dir string, logger cmtlog.Logger) (*Store, error) {
	logger = logger.With("module", "registry")
	ldb, err := dbm.NewDB("registry", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	tdb := iavl.NewMutableTree(ldb, 128, true, ledger.CometbftToCosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("registry loaded", "version", version)
	return &Store{logger: logger, db: tdb}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Root is keccak over the current iavl root hash, matching the ledger's
// header hashing.
func (s *Store) Root() common.Hash {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.root()
}

func (s *Store) root() common.Hash {
	h := s.db.Hash()
	return crypto.Keccak256Hash(h)
}

type paramValue struct {
	Kind  types.OpKind `json:"kind"`
	Uint  uint64       `json:"uint,omitempty"`
	Fixed string       `json:"fixed,omitempty"`
	Bytes []byte       `json:"bytes,omitempty"`
}

func (s *Store) Apply(ops []types.ParamOp) (preRoot, postRoot common.Hash, err error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	preRoot = s.root()
	defer func() {
		if err != nil {
			s.db.Rollback()
			err = fmt.Errorf("%w: %v", ErrApplyFailed, err)
		}
	}()

	for _, op := range ops {
		if err = op.Validate(); err != nil {
			return
		}
		pv := paramValue{Kind: op.Kind}
		switch op.Kind {
		case types.OpSetUint:
			pv.Uint = op.Uint
		case types.OpSetFixed:
			pv.Fixed = op.Fixed.String()
		case types.OpSetBytes:
			pv.Bytes = op.Bytes
		}
		var dat []byte
		dat, err = json.Marshal(pv)
		if err != nil {
			return
		}
		if _, err = s.db.Set([]byte(fmt.Sprintf(keyParam, op.Name)), dat); err != nil {
			return
		}
	}

	rootHash, _, err := s.db.SaveVersion()
	if err != nil {
		return
	}
	postRoot = crypto.Keccak256Hash(rootHash)
	return preRoot, postRoot, nil
}

// Get reads one applied parameter.
func (s *Store) Get(name string) (*types.ParamOp, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	val, err := s.db.Get([]byte(fmt.Sprintf(keyParam, name)))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNoParam
		}
		return nil, err
	}
	if val == nil {
		return nil, ErrNoParam
	}
	var pv paramValue
	if err := json.Unmarshal(val, &pv); err != nil {
		return nil, err
	}
	op := &types.ParamOp{Kind: pv.Kind, Name: name, Uint: pv.Uint, Bytes: pv.Bytes}
	if pv.Kind == types.OpSetFixed {
		f, err := fixed.Parse(pv.Fixed)
		if err != nil {
			return nil, err
		}
		op.Fixed = f
	}
	return op, nil
}
