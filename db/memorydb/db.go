// Package memorydb is an in-process implementation of db.DB used by tests and
// by keepers that rebuild their replica on every start.
package memorydb

import (
	"errors"
	"sync"

	reservesdb "github.com/celer-network/go-reserves/db"
)

var errClosed = errors.New("memorydb: closed")

// Enforce database and transaction implements interfaces
var _ reservesdb.DB = (*DB)(nil)

type DB struct {
	lock   sync.RWMutex
	db     map[string][]byte
	closed bool
}

func NewDB() *DB {
	return &DB{
		db: make(map[string][]byte),
	}
}

func (db *DB) Type() string {
	return "memorydb"
}

func (db *DB) Set(namespace []byte, key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if db.closed {
		return errClosed
	}

	db.db[string(rawKey(namespace, key))] = copyBytes(value)
	return nil
}

func (db *DB) Delete(namespace []byte, key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if db.closed {
		return errClosed
	}

	delete(db.db, string(rawKey(namespace, key)))
	return nil
}

func (db *DB) Get(namespace []byte, key []byte) ([]byte, bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if db.closed {
		return nil, false, errClosed
	}

	value, exists := db.db[string(rawKey(namespace, key))]
	if !exists {
		return nil, false, nil
	}
	return copyBytes(value), true, nil
}

func (db *DB) Exist(namespace []byte, key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	if db.closed {
		return false, errClosed
	}

	_, ok := db.db[string(rawKey(namespace, key))]
	return ok, nil
}

func (db *DB) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()
	db.closed = true
	return nil
}

func (db *DB) NewTx() reservesdb.Transaction {
	return &Transaction{batch: newBatch(db)}
}

func (db *DB) NewBulk() reservesdb.Bulk {
	return &Bulk{batch: newBatch(db)}
}

func rawKey(namespace []byte, key []byte) []byte {
	key = reservesdb.PrependNamespace(namespace, key)
	return reservesdb.ConvNilToBytes(key)
}

func copyBytes(value []byte) []byte {
	return append([]byte{}, value...)
}
