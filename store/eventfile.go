// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ai4all-network/coordinator/eventlog"
	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// EventFile is the append-only, line-delimited event store of spec §5:
// one file per dayId, one JSON record per line, tolerant of a
// malformed trailing line left by a crash mid-write.
type EventFile struct {
	dir string
}

// NewEventFile returns a file-backed event store rooted at dir,
// creating the directory if absent.
func NewEventFile(dir string) (*EventFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.NewEventFile", err)
	}
	return &EventFile{dir: dir}, nil
}

func (f *EventFile) path(dayID string) string {
	return filepath.Join(f.dir, dayID+".jsonl")
}

// AppendEvents appends events to dayId's file in order, one JSON
// object per line. The file is opened append-only so a concurrent
// reader never observes a half-written burst from another day.
func (f *EventFile) AppendEvents(dayID string, events []eventlog.DomainEvent) error {
	file, err := os.OpenFile(f.path(dayID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return xerrors.Wrap(xerrors.InvariantBug, "store.EventFile.AppendEvents", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, ev := range events {
		line, err := json.Marshal(ev)
		if err != nil {
			return xerrors.Wrap(xerrors.InvalidInput, "store.EventFile.AppendEvents", err)
		}
		if _, err := writer.Write(line); err != nil {
			return xerrors.Wrap(xerrors.InvariantBug, "store.EventFile.AppendEvents", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return xerrors.Wrap(xerrors.InvariantBug, "store.EventFile.AppendEvents", err)
		}
	}
	return writer.Flush()
}

// ReadEvents reads back dayId's events in file order. A malformed
// trailing line (the crash-recovery case spec §5 calls out) is skipped
// with a warning rather than failing the whole read; a malformed line
// in the *middle* of the file is treated the same way, since the log
// is append-only and such corruption can only originate at the tail
// of a prior crash.
func (f *EventFile) ReadEvents(dayID string) ([]eventlog.DomainEvent, error) {
	file, err := os.Open(f.path(dayID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.EventFile.ReadEvents", err)
	}
	defer file.Close()

	var events []eventlog.DomainEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev eventlog.DomainEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			logger.Warn("skipping malformed event-log line", "dayId", dayID, "line", lineNo, "err", err)
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.EventFile.ReadEvents", err)
	}
	return events, nil
}

// ListDays returns every dayId with a persisted event file, sorted
// ascending (dayId's YYYY-MM-DD form sorts lexicographically in time
// order).
func (f *EventFile) ListDays() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.EventFile.ListDays", err)
	}
	var days []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		days = append(days, strings.TrimSuffix(entry.Name(), ".jsonl"))
	}
	sort.Strings(days)
	return days, nil
}

// ReadAllEvents reads back every persisted day in order, for rebuilding
// a Coordinator on restart via Resume.
func (f *EventFile) ReadAllEvents() ([]eventlog.DomainEvent, error) {
	days, err := f.ListDays()
	if err != nil {
		return nil, err
	}
	var events []eventlog.DomainEvent
	for _, day := range days {
		dayEvents, err := f.ReadEvents(day)
		if err != nil {
			return nil, err
		}
		events = append(events, dayEvents...)
	}
	return events, nil
}
