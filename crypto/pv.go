package crypto

import (
	"errors"
	"fmt"
	"os"

	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/cometbft/cometbft/privval"
)

var ErrBadPubKey = errors.New("bad public key length")

// PV wraps a file-backed ed25519 key pair. The engine itself never signs;
// signing happens at the submission boundary (CLI, API clients).
type PV struct {
	privateKey crypto.PrivKey
	publicKey  crypto.PubKey
}

func LoadFilePV(keyFilePath string) (*PV, error) {
	keyJSONBytes, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	pvKey := privval.FilePVKey{}
	if err := cmtjson.Unmarshal(keyJSONBytes, &pvKey); err != nil {
		return nil, fmt.Errorf("reading key from %v: %w", keyFilePath, err)
	}
	return &PV{
		privateKey: pvKey.PrivKey,
		publicKey:  pvKey.PubKey,
	}, nil
}

func GenFilePV(keyFilePath, stateFilePath string) *PV {
	filePV := privval.LoadOrGenFilePV(keyFilePath, stateFilePath)
	return &PV{
		privateKey: filePV.Key.PrivKey,
		publicKey:  filePV.Key.PubKey,
	}
}

func (k *PV) PublicKey() []byte {
	return k.publicKey.Bytes()
}

func (k *PV) Address() string {
	return k.publicKey.Address().String()
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return k.privateKey.Sign(data)
}

// AddressOf derives the voter identity string from a raw ed25519 public key.
func AddressOf(pubKey []byte) (string, error) {
	if len(pubKey) != ed25519.PubKeySize {
		return "", ErrBadPubKey
	}
	return ed25519.PubKey(pubKey).Address().String(), nil
}

// Verify checks one ed25519 signature over msg. The hash and signature
// primitives are fixed per protocol version and consumed as opaque
// dependencies; nothing here implements its own cryptography.
func Verify(pubKey, msg []byte, sigs [][]byte) bool {
	if len(sigs) != 1 || len(pubKey) != ed25519.PubKeySize {
		return false
	}
	return ed25519.PubKey(pubKey).VerifySignature(msg, sigs[0])
}
