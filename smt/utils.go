package smt

import (
	"encoding/binary"
	"hash"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// MaxDepth is the deepest tree whose keys still fit a uint64 account id.
const MaxDepth = 64

// NewHasher returns the keccak256 hasher ledger roots are committed with.
func NewHasher() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

func digest(hasher hash.Hash, data ...[]byte) common.Hash {
	for _, d := range data {
		hasher.Write(d)
	}
	var sum common.Hash
	copy(sum[:], hasher.Sum(nil))
	hasher.Reset()
	return sum
}

func hashChildren(hasher hash.Hash, left common.Hash, right common.Hash) common.Hash {
	return digest(hasher, left[:], right[:])
}

// defaultNodes returns the root of an empty subtree for every level up to depth.
// Level 0 is the empty leaf.
func defaultNodes(hasher hash.Hash, depth int) []common.Hash {
	nodes := make([]common.Hash, depth+1)
	for i := 1; i <= depth; i++ {
		nodes[i] = hashChildren(hasher, nodes[i-1], nodes[i-1])
	}
	return nodes
}

// isRight reports whether the path of key turns right when leaving the given level.
// Level 0 is the leaf level.
func isRight(key uint64, level int) bool {
	return key&(1<<uint(level)) != 0
}

func checkDepth(depth int) error {
	if depth < 1 || depth > MaxDepth {
		return ErrInvalidDepth
	}
	return nil
}

func checkKey(key uint64, depth int) error {
	if depth < MaxDepth && key>>uint(depth) != 0 {
		return ErrKeyOutOfRange
	}
	return nil
}

func encodeDepth(depth int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(depth))
	return b
}

func decodeDepth(b []byte) int {
	if len(b) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(b))
}

func splitNode(value []byte) (common.Hash, common.Hash) {
	return common.BytesToHash(value[:common.HashLength]), common.BytesToHash(value[common.HashLength:])
}

func joinNode(left common.Hash, right common.Hash) []byte {
	value := make([]byte, 0, 2*common.HashLength)
	value = append(value, left[:]...)
	return append(value, right[:]...)
}
