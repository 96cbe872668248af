package ledger

import (
	"encoding/json"

	"github.com/cometbft/cometbft/crypto/ed25519"
)

// Account is one eligible voter with its non-transferable NOD stake. The
// raw stake stays an exact integer end to end; it never passes through
// fixed-point scaling.
type Account struct {
	Address string `json:"address"`
	PubKey  []byte `json:"pubKey"`
	Stake   uint64 `json:"stake"`
}

func NewAccount(pubKey []byte, stake uint64) *Account {
	return &Account{
		Address: ed25519.PubKey(pubKey).Address().String(),
		PubKey:  append([]byte(nil), pubKey...),
		Stake:   stake,
	}
}

func (a *Account) Clone() *Account {
	n := *a
	n.PubKey = append([]byte(nil), a.PubKey...)
	return &n
}

func (a *Account) Marshal() ([]byte, error) {
	return json.Marshal(a)
}
