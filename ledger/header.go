package ledger

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// Header summarizes the ledger tip. Height is the last applied global
// sequence number; Hash is keccak over the iavl root so the whole ledger
// content is committed by one value.
type Header struct {
	ChainID       string      `json:"chainId"`
	Height        uint64      `json:"height"`
	ProposalCount uint64      `json:"proposalCount"`
	PoECount      uint64      `json:"poeCount"`
	LastPoEHash   common.Hash `json:"lastPoeHash"`
	TotalStake    uint64      `json:"totalStake"`
	RootHash      []byte      `json:"rootHash"`
	Hash          []byte      `json:"hash"`
}

func (h *Header) Clone() *Header {
	n := *h
	n.RootHash = append([]byte(nil), h.RootHash...)
	n.Hash = append([]byte(nil), h.Hash...)
	return &n
}

func (h *Header) Marshal() ([]byte, error) {
	return json.Marshal(h)
}

func (h *Header) Unmarshal(dat []byte) error {
	return json.Unmarshal(dat, h)
}
