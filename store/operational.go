// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package store

import (
	"encoding/hex"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/go-sql-driver/mysql"

	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// NodeRecord is the relational row backing node registration and
// heartbeat bookkeeping. This is intentionally separate from the
// event-sourced Contributor history: the event log is the source of
// truth for rewards, while this table is an operational index an
// operator queries directly (last-seen, device count) without
// replaying the whole log.
type NodeRecord struct {
	ContributorID string `gorm:"primary_key"`
	PublicKeyHex  string
	RegisteredAt  time.Time
	LastHeartbeat time.Time
}

// DeviceRecord tracks a paired device for a contributor, mirroring the
// DEVICE_PAIRED/DEVICE_UNPAIRED event pair in a directly queryable form.
type DeviceRecord struct {
	ID            uint `gorm:"primary_key"`
	ContributorID string `gorm:"index"`
	DeviceID      string
	PairedAt      time.Time
	UnpairedAt    *time.Time
}

// OperationalStore is the gorm/MySQL-backed side store for node and
// device bookkeeping that operators query outside of event replay.
type OperationalStore struct {
	db *gorm.DB
}

// NewOperationalStore opens a MySQL connection via dsn and migrates
// the operational schema.
func NewOperationalStore(dsn string) (*OperationalStore, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.NewOperationalStore", err)
	}
	if err := db.AutoMigrate(&NodeRecord{}, &DeviceRecord{}).Error; err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.NewOperationalStore", err)
	}
	return &OperationalStore{db: db}, nil
}

// UpsertNode records a registration or refreshes an existing node's
// heartbeat timestamp.
func (s *OperationalStore) UpsertNode(contributorID, publicKeyHex string, now time.Time) error {
	var existing NodeRecord
	err := s.db.Where("contributor_id = ?", contributorID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.Create(&NodeRecord{
			ContributorID: contributorID,
			PublicKeyHex:  publicKeyHex,
			RegisteredAt:  now,
			LastHeartbeat: now,
		}).Error
	}
	if err != nil {
		return xerrors.Wrap(xerrors.InvariantBug, "store.OperationalStore.UpsertNode", err)
	}
	existing.LastHeartbeat = now
	return s.db.Save(&existing).Error
}

// PublicKey looks up a registered node's public key, for use as an
// auth.KeyLookup backing the worker-auth verifier.
func (s *OperationalStore) PublicKey(contributorID string) ([]byte, bool) {
	var record NodeRecord
	if err := s.db.Where("contributor_id = ?", contributorID).First(&record).Error; err != nil {
		return nil, false
	}
	pk, err := hex.DecodeString(record.PublicKeyHex)
	if err != nil {
		return nil, false
	}
	return pk, true
}

// ListNodes returns every registered node, for seeding a fresh
// coordinator's roster at process startup.
func (s *OperationalStore) ListNodes() ([]NodeRecord, error) {
	var records []NodeRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, xerrors.Wrap(xerrors.InvariantBug, "store.OperationalStore.ListNodes", err)
	}
	return records, nil
}

// Heartbeat updates only the last-seen timestamp for an already
// registered node.
func (s *OperationalStore) Heartbeat(contributorID string, now time.Time) error {
	return s.db.Model(&NodeRecord{}).Where("contributor_id = ?", contributorID).
		Update("last_heartbeat", now).Error
}

// PairDevice inserts a new device-pairing row.
func (s *OperationalStore) PairDevice(contributorID, deviceID string, now time.Time) error {
	return s.db.Create(&DeviceRecord{
		ContributorID: contributorID,
		DeviceID:      deviceID,
		PairedAt:      now,
	}).Error
}

// UnpairDevice marks every still-paired row for (contributorID,
// deviceID) as unpaired at now.
func (s *OperationalStore) UnpairDevice(contributorID, deviceID string, now time.Time) error {
	return s.db.Model(&DeviceRecord{}).
		Where("contributor_id = ? AND device_id = ? AND unpaired_at IS NULL", contributorID, deviceID).
		Update("unpaired_at", now).Error
}

// ActiveDeviceCount returns how many devices are currently paired for
// a contributor.
func (s *OperationalStore) ActiveDeviceCount(contributorID string) (int, error) {
	var count int
	err := s.db.Model(&DeviceRecord{}).
		Where("contributor_id = ? AND unpaired_at IS NULL", contributorID).
		Count(&count).Error
	if err != nil {
		return 0, xerrors.Wrap(xerrors.InvariantBug, "store.OperationalStore.ActiveDeviceCount", err)
	}
	return count, nil
}

// Close releases the underlying connection pool.
func (s *OperationalStore) Close() error {
	return s.db.Close()
}
