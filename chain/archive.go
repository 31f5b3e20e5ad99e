// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.

package chain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	uuid "github.com/satori/go.uuid"

	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// Archiver cold-stores transaction blocks pruned from the live 30-day
// retention window, so operators can still answer historical queries
// without keeping every block resident.
type Archiver struct {
	s3     *s3.S3
	bucket string
}

// NewArchiver builds an Archiver over an AWS session targeting bucket.
func NewArchiver(sess *session.Session, bucket string) *Archiver {
	return &Archiver{s3: s3.New(sess), bucket: bucket}
}

// ArchiveBlocks uploads each pruned block as its own object, keyed by
// dayId plus a random correlation suffix so retries never collide with
// a partially-failed previous attempt.
func (a *Archiver) ArchiveBlocks(blocks []TransactionBlock) error {
	for _, b := range blocks {
		data, err := json.Marshal(b)
		if err != nil {
			return xerrors.Wrap(xerrors.InvalidInput, "chain.Archiver.ArchiveBlocks", err)
		}
		correlationID, err := uuid.NewV4()
		if err != nil {
			return xerrors.Wrap(xerrors.InvariantBug, "chain.Archiver.ArchiveBlocks", err)
		}
		key := fmt.Sprintf("transaction-chain/%s-%s.json", b.DayID, correlationID.String())
		_, err = a.s3.PutObject(&s3.PutObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return xerrors.Wrap(xerrors.InvariantBug, "chain.Archiver.ArchiveBlocks", err)
		}
		logger.Info("archived transaction block", "dayId", b.DayID, "key", key)
	}
	return nil
}
