package types

import (
	"github.com/celer-network/go-reserves/utils"
	"github.com/ethereum/go-ethereum/common"
)

// OracleBalances is an attested snapshot of reserves, one amount per token.
type OracleBalances struct {
	balances Balances
}

func NewOracleBalances(balances Balances) OracleBalances {
	return OracleBalances{balances: balances.Clone()}
}

func (o OracleBalances) Len() int {
	return len(o.balances)
}

// Balances returns a copy of the attested reserves.
func (o OracleBalances) Balances() Balances {
	return o.balances.Clone()
}

// SigningPayload is the exact byte string the oracle signs: the reserve
// vector in token order, 32 bytes per token, nothing else.
func (o OracleBalances) SigningPayload() []byte {
	return o.balances.Encode()
}

// Verify reports whether signature is a valid signature by publicKey over the
// reserve vector. A false result is not an error; callers decide what to reject.
func (o OracleBalances) Verify(publicKey PublicKey, signature []byte) bool {
	if publicKey.IsZero() {
		return false
	}
	return utils.SigIsValid(publicKey.Bytes(), o.SigningPayload(), signature)
}

func (o OracleBalances) Hash() common.Hash {
	return o.balances.Hash()
}

func (o OracleBalances) Equal(other OracleBalances) bool {
	return o.balances.Equal(other.balances)
}

func (o OracleBalances) String() string {
	return o.balances.String()
}
