package codec

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noddao/governd/fixed"
)

func TestEncodeOrderIndependent(t *testing.T) {
	a := Record{}
	a["proposer"] = "nod1abc"
	a["seq"] = uint64(42)
	a["weight"] = fixed.MustParse("66.5")

	b := Record{}
	b["weight"] = fixed.MustParse("66.5")
	b["proposer"] = "nod1abc"
	b["seq"] = uint64(42)

	da, err := Encode(Version, a)
	require.NoError(t, err)
	db, err := Encode(Version, b)
	require.NoError(t, err)
	assert.Equal(t, da, db)

	ha, err := Hash(Version, a)
	require.NoError(t, err)
	hb, err := Hash(Version, b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestEncodeNestedAndLists(t *testing.T) {
	r := Record{
		"ops": []Record{
			{"name": "quorum.pct", "value": uint64(30)},
			{"name": "reward.rate", "value": fixed.MustParse("0.05")},
		},
		"hash":   common.HexToHash("0xdeadbeef"),
		"raw":    []byte{0x01, 0x02},
		"active": true,
	}
	d1, err := Encode(Version, r)
	require.NoError(t, err)
	d2, err := Encode(Version, r)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, byte(Version), d1[0])
}

func TestEncodeDistinctValuesDiffer(t *testing.T) {
	h1, err := Hash(Version, Record{"k": "ab"})
	require.NoError(t, err)
	h2, err := Hash(Version, Record{"k": "ac"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	// the version byte is part of the preimage
	h3, err := Hash(2, Record{"k": "ab"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestEncodeRejectsUnknownKind(t *testing.T) {
	_, err := Encode(Version, Record{"k": 3.14})
	assert.ErrorIs(t, err, ErrValueKind)
}

func TestCheckVersion(t *testing.T) {
	assert.NoError(t, CheckVersion(Version))
	assert.ErrorIs(t, CheckVersion(Version+1), ErrVersionMismatch)
}
