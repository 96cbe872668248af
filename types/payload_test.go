package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noddao/governd/fixed"
)

func TestValidatePayload(t *testing.T) {
	valid := []ParamOp{
		{Kind: OpSetUint, Name: "gov.max_payload_ops", Uint: 64},
		{Kind: OpSetFixed, Name: "gov.fee_ratio", Fixed: fixed.MustParse("0.5")},
		{Kind: OpSetBytes, Name: "gov.treasury", Bytes: []byte{1}},
	}
	require.NoError(t, ValidatePayload(valid))

	cases := []struct {
		name string
		ops  []ParamOp
		want error
	}{
		{"empty payload", nil, ErrInvalidPayload},
		{"empty name", []ParamOp{{Kind: OpSetUint}}, ErrInvalidPayload},
		{"unknown kind", []ParamOp{{Kind: OpKind(9), Name: "x"}}, ErrInvalidPayload},
		{"empty bytes", []ParamOp{{Kind: OpSetBytes, Name: "x"}}, ErrInvalidPayload},
		{"immutable chain id", []ParamOp{{Kind: OpSetBytes, Name: "chain.id", Bytes: []byte{1}}}, ErrImmutableParam},
		{"immutable scale", []ParamOp{{Kind: OpSetUint, Name: "arithmetic.scale", Uint: 9}}, ErrImmutableParam},
		{"immutable hash function", []ParamOp{{Kind: OpSetBytes, Name: "gov.poe_hash_function", Bytes: []byte{1}}}, ErrImmutableParam},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, ValidatePayload(tc.ops), tc.want)
		})
	}
}

func TestImmutableParam(t *testing.T) {
	assert.True(t, ImmutableParam("protocol.version"))
	assert.True(t, ImmutableParam("genesis.hash"))
	assert.False(t, ImmutableParam("gov.fee_ratio"))
}

func TestPayloadHashIsOrderSensitive(t *testing.T) {
	a := []ParamOp{
		{Kind: OpSetUint, Name: "p1", Uint: 1},
		{Kind: OpSetUint, Name: "p2", Uint: 2},
	}
	b := []ParamOp{a[1], a[0]}

	ha, err := PayloadHash(a)
	require.NoError(t, err)
	hb, err := PayloadHash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)

	ha2, err := PayloadHash(a)
	require.NoError(t, err)
	assert.Equal(t, ha, ha2)
}
