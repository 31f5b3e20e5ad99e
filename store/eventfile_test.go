// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai4all-network/coordinator/eventlog"
)

func TestEventFileRoundTrip(t *testing.T) {
	f, err := NewEventFile(t.TempDir())
	require.NoError(t, err)

	a := eventlog.NewAppender("2026-01-28", 0, eventlog.GenesisHash)
	ev0, err := a.Append(eventlog.NodeRegistered, "alice", map[string]interface{}{}, time.Now())
	require.NoError(t, err)
	ev1, err := a.Append(eventlog.WorkAssigned, "", map[string]interface{}{}, time.Now())
	require.NoError(t, err)

	require.NoError(t, f.AppendEvents("2026-01-28", []eventlog.DomainEvent{ev0, ev1}))

	readBack, err := f.ReadEvents("2026-01-28")
	require.NoError(t, err)
	require.Len(t, readBack, 2)
	assert.Equal(t, ev0.EventID, readBack[0].EventID)
	assert.Equal(t, ev1.EventHash, readBack[1].EventHash)
}

func TestEventFileReadMissingDayReturnsEmpty(t *testing.T) {
	f, err := NewEventFile(t.TempDir())
	require.NoError(t, err)

	events, err := f.ReadEvents("2099-01-01")
	require.NoError(t, err)
	assert.Len(t, events, 0)
}

func TestEventFileSkipsMalformedTrailingLine(t *testing.T) {
	dir := t.TempDir()
	f, err := NewEventFile(dir)
	require.NoError(t, err)

	a := eventlog.NewAppender("2026-01-28", 0, eventlog.GenesisHash)
	ev0, err := a.Append(eventlog.NodeRegistered, "alice", map[string]interface{}{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.AppendEvents("2026-01-28", []eventlog.DomainEvent{ev0}))

	// simulate a crash mid-write: append a truncated, non-JSON trailing line
	file, err := os.OpenFile(filepath.Join(dir, "2026-01-28.jsonl"), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = file.WriteString(`{"eventId":"trunc`)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	events, err := f.ReadEvents("2026-01-28")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ev0.EventID, events[0].EventID)
}
