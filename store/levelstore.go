// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package store

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/ai4all-network/coordinator/internal/xerrors"
)

const defaultLDBCacheMiB = 16
const defaultLDBHandles = 16

func ldbOptions(cacheMiB, handles int) *opt.Options {
	return &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cacheMiB / 2 * opt.MiB,
		WriteBuffer:            cacheMiB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}
}

// LevelStore is the alternate KVStore backend, grounded on the
// teacher's storage/database levelDB wrapper: open-or-recover on
// corruption, with bloom-filtered block reads.
type LevelStore struct {
	dir string
	db  *leveldb.DB
}

// NewLevelStore opens (or recovers) a goleveldb store at dir.
func NewLevelStore(dir string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(dir, ldbOptions(defaultLDBCacheMiB, defaultLDBHandles))
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.NewLevelStore", err)
	}
	return &LevelStore{dir: dir, db: db}, nil
}

func (ls *LevelStore) Put(key, value []byte) error {
	if err := ls.db.Put(key, value, nil); err != nil {
		return xerrors.Wrap(xerrors.InvariantBug, "store.LevelStore.Put", err)
	}
	return nil
}

func (ls *LevelStore) Has(key []byte) (bool, error) {
	ok, err := ls.db.Has(key, nil)
	if err != nil {
		return false, xerrors.Wrap(xerrors.InvariantBug, "store.LevelStore.Has", err)
	}
	return ok, nil
}

func (ls *LevelStore) Get(key []byte) ([]byte, error) {
	value, err := ls.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.LevelStore.Get", err)
	}
	return value, nil
}

// Keys returns every key currently stored under prefix, mirroring
// BadgerStore.Keys so both backends satisfy the same KVStore contract.
func (ls *LevelStore) Keys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	iter := ls.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		keys = append(keys, key)
	}
	if err := iter.Error(); err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.LevelStore.Keys", err)
	}
	return keys, nil
}

func (ls *LevelStore) Delete(key []byte) error {
	if err := ls.db.Delete(key, nil); err != nil {
		return xerrors.Wrap(xerrors.InvariantBug, "store.LevelStore.Delete", err)
	}
	return nil
}

func (ls *LevelStore) Close() error {
	return ls.db.Close()
}
