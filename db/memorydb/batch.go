package memorydb

import (
	"errors"
	"sync"
)

type txOp struct {
	isSet bool
	key   []byte
	value []byte
}

// batch buffers writes and applies them to the map under a single lock.
type batch struct {
	txLock    sync.Mutex
	db        *DB
	ops       []txOp
	isDiscard bool
	isCommit  bool
}

func newBatch(db *DB) *batch {
	return &batch{db: db}
}

func (b *batch) set(namespace []byte, key []byte, value []byte) error {
	b.txLock.Lock()
	defer b.txLock.Unlock()

	b.ops = append(b.ops, txOp{true, rawKey(namespace, key), copyBytes(value)})
	return nil
}

func (b *batch) delete(namespace []byte, key []byte) error {
	b.txLock.Lock()
	defer b.txLock.Unlock()

	b.ops = append(b.ops, txOp{false, rawKey(namespace, key), nil})
	return nil
}

func (b *batch) commit() error {
	b.txLock.Lock()
	defer b.txLock.Unlock()

	if b.isDiscard {
		return errors.New("Commit after discard is not allowed")
	} else if b.isCommit {
		return errors.New("Commit occurs two times")
	}

	db := b.db
	db.lock.Lock()
	defer db.lock.Unlock()
	if db.closed {
		return errClosed
	}

	for _, op := range b.ops {
		if op.isSet {
			db.db[string(op.key)] = op.value
		} else {
			delete(db.db, string(op.key))
		}
	}

	b.isCommit = true
	return nil
}

func (b *batch) discard() {
	b.txLock.Lock()
	defer b.txLock.Unlock()

	b.isDiscard = true
}

type Transaction struct {
	*batch
}

func (tx *Transaction) Set(namespace []byte, key []byte, value []byte) error {
	return tx.set(namespace, key, value)
}

func (tx *Transaction) Delete(namespace []byte, key []byte) error {
	return tx.delete(namespace, key)
}

func (tx *Transaction) Commit() error {
	return tx.commit()
}

func (tx *Transaction) Discard() {
	tx.discard()
}

type Bulk struct {
	*batch
}

func (bulk *Bulk) Set(namespace []byte, key []byte, value []byte) error {
	return bulk.set(namespace, key, value)
}

func (bulk *Bulk) Delete(namespace []byte, key []byte) error {
	return bulk.delete(namespace, key)
}

func (bulk *Bulk) Flush() error {
	return bulk.commit()
}

func (bulk *Bulk) DiscardLast() {
	bulk.discard()
}
