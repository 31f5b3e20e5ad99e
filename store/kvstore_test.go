// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStorePutGetHasDelete(t *testing.T) {
	bs, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	defer bs.Close()

	exerciseKVStore(t, bs)
}

func TestLevelStorePutGetHasDelete(t *testing.T) {
	ls, err := NewLevelStore(t.TempDir())
	require.NoError(t, err)
	defer ls.Close()

	exerciseKVStore(t, ls)
}

func exerciseKVStore(t *testing.T, kv KVStore) {
	t.Helper()

	ok, err := kv.Has([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = kv.Get([]byte("missing"))
	assert.True(t, errors.Is(err, ErrKeyNotFound), "got %v", err)

	require.NoError(t, kv.Put([]byte("k1"), []byte("v1")))
	ok, err = kv.Has([]byte("k1"))
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := kv.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))

	require.NoError(t, kv.Put([]byte("txblock:2026-01-28"), []byte("b1")))
	require.NoError(t, kv.Put([]byte("txblock:2026-01-29"), []byte("b2")))
	keys, err := kv.Keys([]byte("txblock:"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	require.NoError(t, kv.Delete([]byte("k1")))
	ok, err = kv.Has([]byte("k1"))
	require.NoError(t, err)
	assert.False(t, ok)
}
