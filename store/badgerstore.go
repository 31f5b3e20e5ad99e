// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package store

import (
	"os"
	"time"

	"github.com/dgraph-io/badger"

	"github.com/ai4all-network/coordinator/internal/xerrors"
	"github.com/ai4all-network/coordinator/internal/xlog"
)

var logger = xlog.NewModuleLogger("store")

const gcThreshold = int64(1 << 30) // 1GB of reclaimable value-log space triggers a GC pass
const sizeGCTickerInterval = 1 * time.Minute

// BadgerStore is the primary KVStore backend: an embedded LSM-tree
// store, grounded on the teacher's storage/database badgerDB wrapper
// (directory bootstrap, transaction-per-op, and a periodic
// value-log GC ticker keyed off db size growth).
type BadgerStore struct {
	dir      string
	db       *badger.DB
	gcTicker *time.Ticker
	stopGC   chan struct{}
}

// NewBadgerStore opens (creating if absent) a badger store at dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	local := logger.NewWith("dbDir", dir)

	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, xerrors.New(xerrors.InvalidInput, "store.NewBadgerStore", "dbDir exists and is not a directory: "+dir)
		}
	} else if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, xerrors.Wrap(xerrors.InvariantBug, "store.NewBadgerStore", err)
		}
	} else {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.NewBadgerStore", err)
	}

	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir

	db, err := badger.Open(opts)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.NewBadgerStore", err)
	}

	bs := &BadgerStore{
		dir:      dir,
		db:       db,
		gcTicker: time.NewTicker(sizeGCTickerInterval),
		stopGC:   make(chan struct{}),
	}
	go bs.runValueLogGC()
	local.Info("badger store opened")
	return bs, nil
}

func (bs *BadgerStore) runValueLogGC() {
	_, lastSize := bs.db.Size()
	for {
		select {
		case <-bs.stopGC:
			return
		case <-bs.gcTicker.C:
			_, currSize := bs.db.Size()
			if currSize-lastSize < gcThreshold {
				continue
			}
			if err := bs.db.RunValueLogGC(0.5); err != nil {
				logger.Error("value log gc failed", "err", err)
				continue
			}
			_, lastSize = bs.db.Size()
		}
	}
}

func (bs *BadgerStore) Put(key, value []byte) error {
	txn := bs.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Set(key, value); err != nil {
		return xerrors.Wrap(xerrors.InvariantBug, "store.BadgerStore.Put", err)
	}
	return txn.Commit(nil)
}

func (bs *BadgerStore) Has(key []byte) (bool, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, xerrors.Wrap(xerrors.InvariantBug, "store.BadgerStore.Has", err)
	}
	return true, nil
}

func (bs *BadgerStore) Get(key []byte) ([]byte, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.BadgerStore.Get", err)
	}
	return item.ValueCopy(nil)
}

// Keys returns every key currently stored under prefix, values not
// fetched, used by ListTransactionBlocks to enumerate persisted
// transaction blocks for pruning/archival.
func (bs *BadgerStore) Keys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.BadgerStore.Keys", err)
	}
	return keys, nil
}

func (bs *BadgerStore) Delete(key []byte) error {
	txn := bs.db.NewTransaction(true)
	defer txn.Discard()
	if err := txn.Delete(key); err != nil {
		return xerrors.Wrap(xerrors.InvariantBug, "store.BadgerStore.Delete", err)
	}
	return txn.Commit(nil)
}

func (bs *BadgerStore) Close() error {
	close(bs.stopGC)
	bs.gcTicker.Stop()
	return bs.db.Close()
}
