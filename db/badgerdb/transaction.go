package badgerdb

import (
	"time"

	"github.com/celer-network/go-reserves/log"
	"github.com/dgraph-io/badger/v2"
)

type Transaction struct {
	db       *DB
	tx       *badger.Txn
	createT  time.Time
	setCount uint
	delCount uint
}

func (transaction *Transaction) Set(namespace []byte, key []byte, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	err := transaction.tx.Set(rawKey(namespace, key), value)
	if err != nil {
		return err
	}
	transaction.setCount++
	return nil
}

func (transaction *Transaction) Delete(namespace []byte, key []byte) error {
	err := transaction.tx.Delete(rawKey(namespace, key))
	if err != nil {
		return err
	}
	transaction.delCount++
	return nil
}

func (transaction *Transaction) Commit() error {
	writeStartT := time.Now()
	err := transaction.tx.Commit()
	writeEndT := time.Now()

	if writeEndT.Sub(writeStartT) > time.Millisecond*100 {
		logger.Warn().Str("name", transaction.db.name).Str("callstack1", log.SkipCaller(2)).
			Dur("prepareTime", writeStartT.Sub(transaction.createT)).
			Dur("takenTime", writeEndT.Sub(writeStartT)).
			Uint("delCount", transaction.delCount).Uint("setCount", transaction.setCount).
			Msg("commit takes long time")
	}

	return err
}

func (transaction *Transaction) Discard() {
	transaction.tx.Discard()
}
