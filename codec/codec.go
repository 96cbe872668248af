package codec

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/noddao/governd/fixed"
)

// Version is the protocol codec version. It prefixes every hashed
// preimage; artifacts encoded under a different version must be rejected,
// never reinterpreted.
const Version uint8 = 1

var (
	ErrVersionMismatch = errors.New("codec version mismatch")
	ErrValueKind       = errors.New("unsupported canonical value kind")
)

// Record is an unordered set of named fields. Encoding sorts keys
// bytewise, so two records built in different insertion orders produce
// byte-identical output.
type Record map[string]any

// Encode renders r into its unique canonical byte form. Supported value
// kinds: uint64, string, []byte, bool, common.Hash, fixed.FixedPoint128
// and nested Record. Each value carries a one-letter type tag and strings
// are length-prefixed, so no field boundary is ambiguous.
func Encode(version uint8, r Record) ([]byte, error) {
	var b strings.Builder
	b.WriteByte(version)
	if err := encodeRecord(&b, r); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encodeRecord(b *strings.Builder, r Record) error {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(b, "%d:%s=", len(k), k)
		if err := encodeValue(b, r[k]); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	b.WriteByte('}')
	return nil
}

func encodeValue(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case uint64:
		fmt.Fprintf(b, "u:%d", x)
	case bool:
		if x {
			b.WriteString("b:1")
		} else {
			b.WriteString("b:0")
		}
	case string:
		fmt.Fprintf(b, "s:%d:%s", len(x), x)
	case []byte:
		fmt.Fprintf(b, "x:%s", hex.EncodeToString(x))
	case common.Hash:
		fmt.Fprintf(b, "h:%s", hex.EncodeToString(x[:]))
	case fixed.FixedPoint128:
		fmt.Fprintf(b, "f:%s", x.String())
	case Record:
		b.WriteString("r:")
		return encodeRecord(b, x)
	case []Record:
		fmt.Fprintf(b, "l:%d:[", len(x))
		for i, rec := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encodeRecord(b, rec); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		return fmt.Errorf("%w: %T", ErrValueKind, v)
	}
	return nil
}

// Hash canonically encodes r and feeds the bytes to Keccak-256.
func Hash(version uint8, r Record) (common.Hash, error) {
	dat, err := Encode(version, r)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(dat), nil
}

// CheckVersion guards replay across protocol versions.
func CheckVersion(version uint8) error {
	if version != Version {
		return fmt.Errorf("%w: got %d want %d", ErrVersionMismatch, version, Version)
	}
	return nil
}
