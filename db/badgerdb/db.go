// Package badgerdb implements db.DB on top of badger so a keeper replica survives restarts.
package badgerdb

import (
	"context"
	"time"

	reservesdb "github.com/celer-network/go-reserves/db"
	"github.com/celer-network/go-reserves/log"
	"github.com/dgraph-io/badger/v2"
	"github.com/dgraph-io/badger/v2/options"
)

const (
	badgerDbDiscardRatio   = 0.5 // run gc when 50% of samples can be collected
	badgerDbGcInterval     = 10 * time.Minute
	badgerDbGcSize         = 1 << 20 // 1 MB
	badgerValueLogFileSize = 1<<26 - 1
)

var logger *extendedLog

// Enforce database and transaction implements interfaces
var _ reservesdb.DB = (*DB)(nil)

type DB struct {
	db         *badger.DB
	ctx        context.Context
	cancelFunc context.CancelFunc
	name       string
}

// NewDB creates new database or load existing database in the directory
func NewDB(dir string) (*DB, error) {
	logger = &extendedLog{Logger: log.NewLogger("db")}

	opts := badger.DefaultOptions(dir)
	opts.ValueLogLoadingMode = options.FileIO
	opts.TableLoadingMode = options.FileIO
	// account records and tree leaves are small; keep them in the LSM tree
	opts.ValueThreshold = 1024
	opts.ValueLogFileSize = badgerValueLogFileSize
	opts.Logger = logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	database := &DB{
		db:         db,
		ctx:        ctx,
		cancelFunc: cancelFunc,
		name:       dir,
	}

	go database.runBadgerGC()

	return database, nil
}

func (db *DB) runBadgerGC() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	lastGcT := time.Now()
	_, lastDbVlogSize := db.db.Size()
	for {
		select {
		case <-ticker.C:
			currentDblsmSize, currentDbVlogSize := db.db.Size()

			// exceed badgerDbGcInterval time or vlog grows slowly (resource is free)
			if time.Since(lastGcT) > badgerDbGcInterval || lastDbVlogSize+badgerDbGcSize > currentDbVlogSize {
				startGcT := time.Now()
				logger.Debug().Str("name", db.name).Int64("lsmSize", currentDblsmSize).Int64("vlogSize", currentDbVlogSize).Msg("Start to GC at badger")
				err := db.db.RunValueLogGC(badgerDbDiscardRatio)
				if err != nil {
					if err == badger.ErrNoRewrite {
						logger.Debug().Str("name", db.name).Str("msg", err.Error()).Msg("Nothing to GC at badger")
					} else {
						logger.Error().Str("name", db.name).Err(err).Msg("Fail to GC at badger")
					}
					lastDbVlogSize = currentDbVlogSize
				} else {
					afterGcDblsmSize, afterGcDbVlogSize := db.db.Size()
					logger.Debug().Str("name", db.name).Int64("lsmSize", afterGcDblsmSize).Int64("vlogSize", afterGcDbVlogSize).
						Dur("takenTime", time.Since(startGcT)).Msg("Finish to GC at badger")
					lastDbVlogSize = afterGcDbVlogSize
				}
				lastGcT = time.Now()
			}

		case <-db.ctx.Done():
			return
		}
	}
}

func (db *DB) Type() string {
	return "badgerdb"
}

func (db *DB) Set(namespace []byte, key []byte, value []byte) error {
	key = rawKey(namespace, key)
	value = reservesdb.ConvNilToBytes(value)

	return db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (db *DB) Delete(namespace []byte, key []byte) error {
	key = rawKey(namespace, key)

	return db.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (db *DB) Get(namespace []byte, key []byte) ([]byte, bool, error) {
	key = rawKey(namespace, key)

	var val []byte
	err := db.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	return val, true, nil
}

func (db *DB) Exist(namespace []byte, key []byte) (bool, error) {
	_, exists, err := db.Get(namespace, key)
	return exists, err
}

func (db *DB) Close() error {
	db.cancelFunc() // stop the gc goroutine
	return db.db.Close()
}

func (db *DB) NewTx() reservesdb.Transaction {
	return &Transaction{
		db:      db,
		tx:      db.db.NewTransaction(true),
		createT: time.Now(),
	}
}

func (db *DB) NewBulk() reservesdb.Bulk {
	return &Bulk{
		db:      db,
		bulk:    db.db.NewWriteBatch(),
		createT: time.Now(),
	}
}

func rawKey(namespace []byte, key []byte) []byte {
	key = reservesdb.PrependNamespace(namespace, key)
	return reservesdb.ConvNilToBytes(key)
}
