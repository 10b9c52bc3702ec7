package smt

import (
	"errors"
	"hash"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidDepth    = errors.New("smt: invalid tree depth")
	ErrKeyOutOfRange   = errors.New("smt: key out of range")
	ErrWitnessDepth    = errors.New("smt: witness depth mismatch")
	ErrMissingNode     = errors.New("smt: missing node")
	ErrDepthMismatch   = errors.New("smt: db holds a tree of another depth")
	ErrInvalidCompact  = errors.New("smt: invalid compact witness")
	ErrBatchLength     = errors.New("smt: keys and leaves differ in length")
	errNodeSizeInvalid = errors.New("smt: corrupt node")
)

// Witness is the authentication path of one leaf. Entry i describes level i,
// the leaf level first: IsLefts[i] tells whether the path node is the left
// child and Siblings[i] is the hash of the node beside it.
type Witness struct {
	IsLefts  []bool        `json:"isLefts"`
	Siblings []common.Hash `json:"siblings"`
}

func (w *Witness) Depth() int {
	return len(w.Siblings)
}

func (w *Witness) Clone() *Witness {
	return &Witness{
		IsLefts:  append([]bool{}, w.IsLefts...),
		Siblings: append([]common.Hash{}, w.Siblings...),
	}
}

func (w *Witness) validate() error {
	if len(w.IsLefts) != len(w.Siblings) {
		return ErrWitnessDepth
	}
	return checkDepth(len(w.Siblings))
}

// Key returns the leaf position the witness describes.
func (w *Witness) Key() (uint64, error) {
	if err := w.validate(); err != nil {
		return 0, err
	}
	var key uint64
	for i, isLeft := range w.IsLefts {
		if !isLeft {
			key |= 1 << uint(i)
		}
	}
	return key, nil
}

// Recompute folds leaf up the path and returns the implied root and leaf position.
func (w *Witness) Recompute(hasher hash.Hash, leaf common.Hash) (common.Hash, uint64, error) {
	key, err := w.Key()
	if err != nil {
		return common.Hash{}, 0, err
	}
	current := leaf
	for i, sibling := range w.Siblings {
		if w.IsLefts[i] {
			current = hashChildren(hasher, current, sibling)
		} else {
			current = hashChildren(hasher, sibling, current)
		}
	}
	return current, key, nil
}

// VerifyProof checks that leaf sits at key under root.
func VerifyProof(w *Witness, root common.Hash, key uint64, leaf common.Hash, hasher hash.Hash) bool {
	computedRoot, computedKey, err := w.Recompute(hasher, leaf)
	if err != nil {
		return false
	}
	return computedRoot == root && computedKey == key
}

// CompactWitness drops the siblings that are empty subtree roots. Bit i of
// Defaults is set when sibling i was omitted.
type CompactWitness struct {
	Key      uint64        `json:"key"`
	Depth    int           `json:"depth"`
	Defaults uint64        `json:"defaults"`
	Siblings []common.Hash `json:"siblings"`
}

// Compact compacts a witness, to reduce its size.
func Compact(w *Witness, hasher hash.Hash) (*CompactWitness, error) {
	key, err := w.Key()
	if err != nil {
		return nil, err
	}
	defaults := defaultNodes(hasher, w.Depth())
	compact := &CompactWitness{Key: key, Depth: w.Depth()}
	for i, sibling := range w.Siblings {
		if sibling == defaults[i] {
			compact.Defaults |= 1 << uint(i)
		} else {
			compact.Siblings = append(compact.Siblings, sibling)
		}
	}
	return compact, nil
}

// Decompact restores the full witness.
func (c *CompactWitness) Decompact(hasher hash.Hash) (*Witness, error) {
	if err := checkDepth(c.Depth); err != nil {
		return nil, err
	}
	if err := checkKey(c.Key, c.Depth); err != nil {
		return nil, err
	}
	if c.Depth < MaxDepth && c.Defaults>>uint(c.Depth) != 0 {
		return nil, ErrInvalidCompact
	}
	if len(c.Siblings) != c.Depth-bits.OnesCount64(c.Defaults) {
		return nil, ErrInvalidCompact
	}
	defaults := defaultNodes(hasher, c.Depth)
	w := &Witness{
		IsLefts:  make([]bool, c.Depth),
		Siblings: make([]common.Hash, c.Depth),
	}
	position := 0
	for i := 0; i < c.Depth; i++ {
		w.IsLefts[i] = !isRight(c.Key, i)
		if c.Defaults&(1<<uint(i)) != 0 {
			w.Siblings[i] = defaults[i]
		} else {
			w.Siblings[i] = c.Siblings[position]
			position++
		}
	}
	return w, nil
}
