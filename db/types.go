package db

// DB is the namespaced key/value store backing the keeper replica.
type DB interface {
	Type() string
	Set(namespace []byte, key []byte, value []byte) error
	Delete(namespace []byte, key []byte) error
	Get(namespace []byte, key []byte) ([]byte, bool, error)
	Exist(namespace []byte, key []byte) (bool, error)
	// Iterator walks raw (namespace prefixed) keys in [start, end), or in reverse when start > end.
	Iterator(start []byte, end []byte) Iterator
	NewTx() Transaction
	NewBulk() Bulk
	Close() error
}

// Transaction is used to batch multiple operations
type Transaction interface {
	Set(namespace []byte, key []byte, value []byte) error
	Delete(namespace []byte, key []byte) error
	Commit() error
	Discard()
}

// Bulk is used to batch multiple transactions
// This will internally commit transactions when reach maximum tx size
type Bulk interface {
	Set(namespace []byte, key []byte, value []byte) error
	Delete(namespace []byte, key []byte) error
	Flush() error
	DiscardLast()
}

// Iterator is used to navigate specific key ranges
type Iterator interface {
	Next() error
	Valid() bool
	Key() ([]byte, error)
	Value() ([]byte, error)
	Close()
}

// ForEach calls fn with every key (namespace stripped) and value stored under namespace,
// in ascending key order. Iteration stops at the first error.
func ForEach(db DB, namespace []byte, fn func(key []byte, value []byte) error) error {
	start, end := NamespaceRange(namespace)
	iter := db.Iterator(start, end)
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		key, err := iter.Key()
		if err != nil {
			return err
		}
		value, err := iter.Value()
		if err != nil {
			return err
		}
		if err = fn(StripNamespace(namespace, key), value); err != nil {
			return err
		}
	}
	return nil
}
