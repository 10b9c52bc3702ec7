// Package oracle produces signed reserve attestations.
package oracle

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/celer-network/go-reserves/types"
	"github.com/celer-network/go-reserves/utils"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Signer attests reserve balances with a secp256k1 key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	publicKey  types.PublicKey
}

func NewSigner(privateKey *ecdsa.PrivateKey) *Signer {
	return &Signer{
		privateKey: privateKey,
		publicKey:  types.PublicKeyFromECDSA(&privateKey.PublicKey),
	}
}

func GenerateSigner() (*Signer, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return NewSigner(privateKey), nil
}

// LoadSigner reads the oracle key from a hex string or, when keystorePath is
// set, from an encrypted keystore file.
func LoadSigner(hexKey string, keystorePath string, password string) (*Signer, error) {
	var privateKey *ecdsa.PrivateKey
	var err error
	if keystorePath != "" {
		privateKey, err = utils.GetPrivateKeyFromKeystore(keystorePath, password)
	} else {
		privateKey, err = utils.GetPrivateKeyFromHex(hexKey)
	}
	if err != nil {
		return nil, fmt.Errorf("load oracle key: %w", err)
	}
	return NewSigner(privateKey), nil
}

func (s *Signer) PublicKey() types.PublicKey {
	return s.publicKey
}

func (s *Signer) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(s.privateKey))
}

// Attest signs the reserve vector.
func (s *Signer) Attest(reserves types.Balances) (types.OracleBalances, []byte, error) {
	attestation := types.NewOracleBalances(reserves)
	sig, err := utils.SignData(s.privateKey, attestation.SigningPayload())
	if err != nil {
		return types.OracleBalances{}, nil, err
	}
	return attestation, sig, nil
}

// ScaleReserves returns liabilities multiplied by multiplier, the bootstrap
// reserves used when no external source is wired in.
func ScaleReserves(liabilities types.Balances, multiplier uint64) (types.Balances, error) {
	factor := uint256.NewInt(multiplier)
	reserves := types.NewBalances(len(liabilities))
	for i := range liabilities {
		if _, overflow := reserves[i].MulOverflow(&liabilities[i], factor); overflow {
			return nil, fmt.Errorf("%w: token %d", types.ErrOverflow, i)
		}
	}
	return reserves, nil
}
