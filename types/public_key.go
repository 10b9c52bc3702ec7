package types

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// PublicKeyLength is the size of a compressed secp256k1 public key.
const PublicKeyLength = 33

// PublicKey is the oracle's verification key in compressed form.
type PublicKey [PublicKeyLength]byte

func PublicKeyFromECDSA(pub *ecdsa.PublicKey) PublicKey {
	var key PublicKey
	copy(key[:], crypto.CompressPubkey(pub))
	return key
}

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var key PublicKey
	if len(b) != PublicKeyLength {
		return key, fmt.Errorf("invalid public key length %d", len(b))
	}
	if _, err := crypto.DecompressPubkey(b); err != nil {
		return key, fmt.Errorf("invalid public key: %w", err)
	}
	copy(key[:], b)
	return key, nil
}

func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

func (k PublicKey) Bytes() []byte {
	return k[:]
}

func (k PublicKey) Hex() string {
	return hexutil.Encode(k[:])
}

func (k PublicKey) String() string {
	return k.Hex()
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.Hex()), nil
}

func (k *PublicKey) UnmarshalText(input []byte) error {
	raw, err := hexutil.Decode(string(input))
	if err != nil {
		return err
	}
	key, err := PublicKeyFromBytes(raw)
	if err != nil {
		return err
	}
	*k = key
	return nil
}
