// Package smt implements a fixed depth Sparse Merkle tree keyed by account id.
package smt

import (
	"hash"

	reservesdb "github.com/celer-network/go-reserves/db"
	"github.com/ethereum/go-ethereum/common"
)

// SparseMerkleTree is a Sparse Merkle tree with 2^depth leaves. Interior nodes
// are stored content addressed, so every root ever produced by the tree stays
// readable. A SparseMerkleTree is not safe for concurrent use.
type SparseMerkleTree struct {
	hasher   hash.Hash
	db       reservesdb.DB
	root     common.Hash
	depth    int
	defaults []common.Hash
}

// NewSparseMerkleTree creates or restores a Sparse Merkle tree with a DB. A zero
// root selects the empty tree.
func NewSparseMerkleTree(db reservesdb.DB, hasher hash.Hash, root common.Hash, depth int) (*SparseMerkleTree, error) {
	if err := checkDepth(depth); err != nil {
		return nil, err
	}
	smt := SparseMerkleTree{
		hasher:   hasher,
		db:       db,
		depth:    depth,
		defaults: defaultNodes(hasher, depth),
	}

	stored, exists, err := db.Get(reservesdb.NamespaceMeta, reservesdb.KeyTreeDepth)
	if err != nil {
		return nil, err
	}
	if exists && decodeDepth(stored) != depth {
		return nil, ErrDepthMismatch
	}
	if !exists {
		bulk := db.NewBulk()
		for i := 1; i <= depth; i++ {
			err = bulk.Set(reservesdb.NamespaceSMT, smt.defaults[i].Bytes(), joinNode(smt.defaults[i-1], smt.defaults[i-1]))
			if err != nil {
				return nil, err
			}
		}
		err = bulk.Set(reservesdb.NamespaceMeta, reservesdb.KeyTreeDepth, encodeDepth(depth))
		if err != nil {
			return nil, err
		}
		err = bulk.Flush()
		if err != nil {
			return nil, err
		}
	}

	if root == (common.Hash{}) {
		root = smt.EmptyRoot()
	}
	exists, err = db.Exist(reservesdb.NamespaceSMT, root.Bytes())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMissingNode
	}
	smt.SetRoot(root)
	return &smt, nil
}

// Root gets the root of the tree.
func (smt *SparseMerkleTree) Root() common.Hash {
	return smt.root
}

// SetRoot sets the root of the tree.
func (smt *SparseMerkleTree) SetRoot(root common.Hash) {
	smt.root = root
}

func (smt *SparseMerkleTree) Depth() int {
	return smt.depth
}

// EmptyRoot is the root of the tree with every leaf empty.
func (smt *SparseMerkleTree) EmptyRoot() common.Hash {
	return smt.defaults[smt.depth]
}

// EmptyLeaf is the value of a leaf that was never set.
func (smt *SparseMerkleTree) EmptyLeaf() common.Hash {
	return smt.defaults[0]
}

// HasRoot reports whether the nodes under root are available in the DB.
func (smt *SparseMerkleTree) HasRoot(root common.Hash) (bool, error) {
	return smt.db.Exist(reservesdb.NamespaceSMT, root.Bytes())
}

// Get gets a leaf from the tree.
func (smt *SparseMerkleTree) Get(key uint64) (common.Hash, error) {
	return smt.GetForRoot(key, smt.Root())
}

// GetForRoot gets a leaf from the tree at a specific root.
func (smt *SparseMerkleTree) GetForRoot(key uint64, root common.Hash) (common.Hash, error) {
	leaf, _, err := smt.walk(key, root, nil)
	return leaf, err
}

// Update sets a new leaf for a key in the tree, returns the new root, and sets the new current root of the tree.
func (smt *SparseMerkleTree) Update(key uint64, leaf common.Hash) (common.Hash, error) {
	newRoot, err := smt.UpdateForRoot(key, leaf, smt.Root())
	if err == nil {
		smt.SetRoot(newRoot)
	}
	return newRoot, err
}

// UpdateForRoot sets a new leaf for a key in the tree at a specific root, and returns the new root.
func (smt *SparseMerkleTree) UpdateForRoot(key uint64, leaf common.Hash, root common.Hash) (common.Hash, error) {
	pending := make(map[common.Hash][]byte)
	newRoot, err := smt.updateWithPending(key, leaf, root, pending)
	if err != nil {
		return common.Hash{}, err
	}
	if err = smt.flush(pending); err != nil {
		return common.Hash{}, err
	}
	return newRoot, nil
}

// UpdateBatch sets many leaves at once, writing the surviving nodes in one
// bulk, and moves the tree to the resulting root. Keys are applied in slice order.
func (smt *SparseMerkleTree) UpdateBatch(keys []uint64, leaves []common.Hash) (common.Hash, error) {
	if len(keys) != len(leaves) {
		return common.Hash{}, ErrBatchLength
	}
	pending := make(map[common.Hash][]byte)
	root := smt.Root()
	for i, key := range keys {
		var err error
		root, err = smt.updateWithPending(key, leaves[i], root, pending)
		if err != nil {
			return common.Hash{}, err
		}
	}
	if err := smt.flush(pending); err != nil {
		return common.Hash{}, err
	}
	smt.SetRoot(root)
	return root, nil
}

// Prove generates a witness for a key.
func (smt *SparseMerkleTree) Prove(key uint64) (*Witness, error) {
	return smt.ProveForRoot(key, smt.Root())
}

// ProveForRoot generates a witness for a key, at a specific root.
func (smt *SparseMerkleTree) ProveForRoot(key uint64, root common.Hash) (*Witness, error) {
	_, sideNodes, err := smt.walk(key, root, nil)
	if err != nil {
		return nil, err
	}
	w := &Witness{
		IsLefts:  make([]bool, smt.depth),
		Siblings: sideNodes,
	}
	for i := range w.IsLefts {
		w.IsLefts[i] = !isRight(key, i)
	}
	return w, nil
}

func (smt *SparseMerkleTree) VerifyProof(w *Witness, key uint64, leaf common.Hash) bool {
	return VerifyProof(w, smt.root, key, leaf, smt.hasher)
}

// walk descends from root to the leaf of key, collecting the side nodes from the leaf level up.
func (smt *SparseMerkleTree) walk(key uint64, root common.Hash, pending map[common.Hash][]byte) (common.Hash, []common.Hash, error) {
	if err := checkKey(key, smt.depth); err != nil {
		return common.Hash{}, nil, err
	}
	sideNodes := make([]common.Hash, smt.depth)
	current := root
	for level := smt.depth; level >= 1; level-- {
		value, err := smt.node(current, pending)
		if err != nil {
			return common.Hash{}, nil, err
		}
		left, right := splitNode(value)
		if isRight(key, level-1) {
			sideNodes[level-1] = left
			current = right
		} else {
			sideNodes[level-1] = right
			current = left
		}
	}
	return current, sideNodes, nil
}

func (smt *SparseMerkleTree) updateWithPending(key uint64, leaf common.Hash, root common.Hash, pending map[common.Hash][]byte) (common.Hash, error) {
	_, sideNodes, err := smt.walk(key, root, pending)
	if err != nil {
		return common.Hash{}, err
	}
	current := leaf
	for level := 0; level < smt.depth; level++ {
		var value []byte
		if isRight(key, level) {
			value = joinNode(sideNodes[level], current)
		} else {
			value = joinNode(current, sideNodes[level])
		}
		current = digest(smt.hasher, value)
		pending[current] = value
	}
	return current, nil
}

func (smt *SparseMerkleTree) node(nodeHash common.Hash, pending map[common.Hash][]byte) ([]byte, error) {
	if value, ok := pending[nodeHash]; ok {
		return value, nil
	}
	value, exists, err := smt.db.Get(reservesdb.NamespaceSMT, nodeHash.Bytes())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMissingNode
	}
	if len(value) != 2*common.HashLength {
		return nil, errNodeSizeInvalid
	}
	return value, nil
}

func (smt *SparseMerkleTree) flush(pending map[common.Hash][]byte) error {
	bulk := smt.db.NewBulk()
	for nodeHash, value := range pending {
		if err := bulk.Set(reservesdb.NamespaceSMT, nodeHash.Bytes(), value); err != nil {
			return err
		}
	}
	return bulk.Flush()
}
