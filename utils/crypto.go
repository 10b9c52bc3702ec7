package utils

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"io/ioutil"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"
)

// SigIsValid reports whether sig over data was produced by the holder of the
// compressed public key signer.
func SigIsValid(signer []byte, data []byte, sig []byte) bool {
	pubKey, err := RecoverPublicKey(data, sig)
	if err != nil {
		log.Debug().Err(err).Msg("recover signer")
		return false
	}
	return bytes.Equal(crypto.CompressPubkey(pubKey), signer)
}

func RecoverPublicKey(data []byte, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}
	return crypto.SigToPub(generatePrefixedHash(data), sig)
}

func RecoverSigner(data []byte, sig []byte) common.Address {
	pubKey, err := RecoverPublicKey(data, sig)
	if err != nil {
		log.Error().Msg(err.Error())
		return common.Address{}
	}
	return crypto.PubkeyToAddress(*pubKey)
}

func GetPrivateKeyFromKeystore(path string, password string) (*ecdsa.PrivateKey, error) {
	ksBytes, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := keystore.DecryptKey(ksBytes, password)
	if err != nil {
		return nil, err
	}
	return key.PrivateKey, nil
}

// GetPrivateKeyFromHex loads a raw hex encoded secp256k1 key.
func GetPrivateKeyFromHex(hexKey string) (*ecdsa.PrivateKey, error) {
	if len(hexKey) > 1 && hexKey[0] == '0' && (hexKey[1] == 'x' || hexKey[1] == 'X') {
		hexKey = hexKey[2:]
	}
	return crypto.HexToECDSA(hexKey)
}

func SignData(privateKey *ecdsa.PrivateKey, data ...[]byte) ([]byte, error) {
	hash := crypto.Keccak256Hash(data...)
	prefixedHash := crypto.Keccak256Hash(
		[]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%v", len(hash))),
		hash.Bytes(),
	)
	return crypto.Sign(prefixedHash.Bytes(), privateKey)
}

func generatePrefixedHash(data []byte) []byte {
	return crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), crypto.Keccak256(data))
}
