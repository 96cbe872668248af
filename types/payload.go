package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/noddao/governd/codec"
	"github.com/noddao/governd/fixed"
)

type OpKind uint8

// The set of parameter-change operation kinds is closed and versioned.
// Adding a kind is a protocol version bump.
const (
	OpSetUint  OpKind = 1
	OpSetFixed OpKind = 2
	OpSetBytes OpKind = 3
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrImmutableParam = errors.New("payload touches immutable parameter")
)

// immutableParams is the constitutional guard: parameters that no
// proposal may ever change. Checked at submission, before anything is
// written.
var immutableParams = map[string]struct{}{
	"protocol.version":      {},
	"chain.id":              {},
	"genesis.hash":          {},
	"arithmetic.scale":      {},
	"gov.immutable_set":     {},
	"gov.poe_hash_function": {},
}

func ImmutableParam(name string) bool {
	_, ok := immutableParams[name]
	return ok
}

// ParamOp is one parameter-change operation. Exactly the value field
// matching Kind is meaningful; Validate enforces the shape.
type ParamOp struct {
	Kind  OpKind              `json:"kind"`
	Name  string              `json:"name"`
	Uint  uint64              `json:"uint,omitempty"`
	Fixed fixed.FixedPoint128 `json:"fixed,omitempty"`
	Bytes []byte              `json:"bytes,omitempty"`
}

func (op ParamOp) Validate() error {
	if op.Name == "" {
		return fmt.Errorf("%w: empty parameter name", ErrInvalidPayload)
	}
	if ImmutableParam(op.Name) {
		return fmt.Errorf("%w: %s", ErrImmutableParam, op.Name)
	}
	switch op.Kind {
	case OpSetUint, OpSetFixed:
	case OpSetBytes:
		if len(op.Bytes) == 0 {
			return fmt.Errorf("%w: empty bytes value for %s", ErrInvalidPayload, op.Name)
		}
	default:
		return fmt.Errorf("%w: unknown op kind %d", ErrInvalidPayload, op.Kind)
	}
	return nil
}

func (op ParamOp) record() codec.Record {
	r := codec.Record{
		"kind": uint64(op.Kind),
		"name": op.Name,
	}
	switch op.Kind {
	case OpSetUint:
		r["value"] = op.Uint
	case OpSetFixed:
		r["value"] = op.Fixed
	case OpSetBytes:
		r["value"] = op.Bytes
	}
	return r
}

// ValidatePayload applies the constitutional guard to the whole ordered
// op set. An empty payload is invalid.
func ValidatePayload(ops []ParamOp) error {
	if len(ops) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
	}
	return nil
}

// PayloadHash hashes the canonical encoding of the ordered op list.
func PayloadHash(ops []ParamOp) (common.Hash, error) {
	recs := make([]codec.Record, len(ops))
	for i, op := range ops {
		recs[i] = op.record()
	}
	return codec.Hash(codec.Version, codec.Record{"ops": recs})
}
