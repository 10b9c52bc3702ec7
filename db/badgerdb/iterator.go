package badgerdb

import (
	"bytes"
	"errors"

	reservesdb "github.com/celer-network/go-reserves/db"
	"github.com/dgraph-io/badger/v2"
)

type Iterator struct {
	end     []byte
	reverse bool
	txn     *badger.Txn
	iter    *badger.Iterator
}

func (db *DB) Iterator(start, end []byte) reservesdb.Iterator {
	txn := db.db.NewTransaction(false)

	// if start is bigger than end, then reverse order
	reverse := end != nil && bytes.Compare(start, end) == 1

	opt := badger.DefaultIteratorOptions
	opt.PrefetchValues = false
	opt.Reverse = reverse

	iter := txn.NewIterator(opt)
	iter.Seek(start)

	return &Iterator{
		end:     end,
		reverse: reverse,
		txn:     txn,
		iter:    iter,
	}
}

func (iter *Iterator) Next() error {
	if !iter.Valid() {
		return errors.New("Invalid iterator")
	}
	iter.iter.Next()
	return nil
}

func (iter *Iterator) Valid() bool {
	if !iter.iter.Valid() {
		return false
	}

	if iter.end != nil {
		key := iter.iter.Item().Key()
		if !iter.reverse {
			return bytes.Compare(key, iter.end) < 0
		}
		return bytes.Compare(iter.end, key) < 0
	}

	return true
}

func (iter *Iterator) Key() ([]byte, error) {
	return iter.iter.Item().KeyCopy(nil), nil
}

func (iter *Iterator) Value() ([]byte, error) {
	return iter.iter.Item().ValueCopy(nil)
}

func (iter *Iterator) Close() {
	iter.iter.Close()
	iter.txn.Discard()
}
