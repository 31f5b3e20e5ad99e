// Copyright 2026 The ai4all-network Authors
// This file is part of the ai4all-network coordinator.
//
// The ai4all-network coordinator is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The ai4all-network coordinator is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ai4all-network coordinator. If not, see
// <http://www.gnu.org/licenses/>.

// Package config holds every tunable knob spec §6 names, with TOML
// marshaling in the node/cn style: a generated-looking MarshalTOML/
// UnmarshalTOML pair over an internal mirror struct, so field
// reordering or additions never silently change the wire format.
package config

import (
	"os"
	"time"

	"github.com/naoina/toml"

	"github.com/ai4all-network/coordinator/internal/xerrors"
)

// Config is every tunable knob the coordinator and its components
// consume, spec §6.
type Config struct {
	DailyEmissions            float64
	BasePoolPercentage        float64
	PerformancePoolPercentage float64

	MinBlocksForActive int
	MinReliability     float64

	CanaryFailurePenalty  float64
	CanaryBlockDuration   time.Duration
	PerformanceLookback   time.Duration
	BaseCanaryPercentage  float64
	CanaryIncreasePerFail float64
	CanaryDecreasePerPass float64
	MaxCanaryPercentage   float64
	MinCanaryPercentage   float64

	DailyBlockQuota         int
	BatchSize               int
	NewContributorMinWeight float64
}

// Defaults returns spec §6's documented default configuration.
func Defaults() Config {
	return Config{
		DailyEmissions:            22000,
		BasePoolPercentage:        0.20,
		PerformancePoolPercentage: 0.80,

		MinBlocksForActive: 1,
		MinReliability:     0.0,

		CanaryFailurePenalty:  0.1,
		CanaryBlockDuration:   24 * time.Hour,
		PerformanceLookback:   30 * 24 * time.Hour,
		BaseCanaryPercentage:  0.10,
		CanaryIncreasePerFail: 0.05,
		CanaryDecreasePerPass: 0.02,
		MaxCanaryPercentage:   0.50,
		MinCanaryPercentage:   0.05,

		DailyBlockQuota:         22000,
		BatchSize:               5,
		NewContributorMinWeight: 0.1,
	}
}

var _ = (*configMarshaling)(nil)

// configMarshaling mirrors Config field-for-field, the gencodec
// convention the teacher's node/cn package follows: a Config field
// renamed or removed without updating this mirror is a compile error,
// but a field added to Config alone compiles and is not marshaled.
type configMarshaling struct {
	DailyEmissions            float64
	BasePoolPercentage        float64
	PerformancePoolPercentage float64
	MinBlocksForActive        int
	MinReliability            float64
	CanaryFailurePenalty      float64
	CanaryBlockDuration       time.Duration
	PerformanceLookback       time.Duration
	BaseCanaryPercentage      float64
	CanaryIncreasePerFail     float64
	CanaryDecreasePerPass     float64
	MaxCanaryPercentage       float64
	MinCanaryPercentage       float64
	DailyBlockQuota           int
	BatchSize                 int
	NewContributorMinWeight   float64
}

// MarshalTOML marshals as TOML.
func (c Config) MarshalTOML() (interface{}, error) {
	type Config configMarshaling
	enc := Config(configMarshaling{
		DailyEmissions:            c.DailyEmissions,
		BasePoolPercentage:        c.BasePoolPercentage,
		PerformancePoolPercentage: c.PerformancePoolPercentage,
		MinBlocksForActive:        c.MinBlocksForActive,
		MinReliability:            c.MinReliability,
		CanaryFailurePenalty:      c.CanaryFailurePenalty,
		CanaryBlockDuration:       c.CanaryBlockDuration,
		PerformanceLookback:       c.PerformanceLookback,
		BaseCanaryPercentage:      c.BaseCanaryPercentage,
		CanaryIncreasePerFail:     c.CanaryIncreasePerFail,
		CanaryDecreasePerPass:     c.CanaryDecreasePerPass,
		MaxCanaryPercentage:       c.MaxCanaryPercentage,
		MinCanaryPercentage:       c.MinCanaryPercentage,
		DailyBlockQuota:           c.DailyBlockQuota,
		BatchSize:                 c.BatchSize,
		NewContributorMinWeight:   c.NewContributorMinWeight,
	})
	return &enc, nil
}

// UnmarshalTOML unmarshals from TOML, a field at a time, onto whatever
// *c already holds (typically Defaults()): a field absent from the
// TOML document leaves the corresponding *c field untouched instead of
// zeroing it, matching the teacher's gen_config.go pointer-mirror/
// nil-guarded-merge pattern.
func (c *Config) UnmarshalTOML(unmarshal func(interface{}) error) error {
	type Config struct {
		DailyEmissions            *float64
		BasePoolPercentage        *float64
		PerformancePoolPercentage *float64
		MinBlocksForActive        *int
		MinReliability            *float64
		CanaryFailurePenalty      *float64
		CanaryBlockDuration       *time.Duration
		PerformanceLookback       *time.Duration
		BaseCanaryPercentage      *float64
		CanaryIncreasePerFail     *float64
		CanaryDecreasePerPass     *float64
		MaxCanaryPercentage       *float64
		MinCanaryPercentage       *float64
		DailyBlockQuota           *int
		BatchSize                 *int
		NewContributorMinWeight   *float64
	}
	var dec Config
	if err := unmarshal(&dec); err != nil {
		return err
	}
	if dec.DailyEmissions != nil {
		c.DailyEmissions = *dec.DailyEmissions
	}
	if dec.BasePoolPercentage != nil {
		c.BasePoolPercentage = *dec.BasePoolPercentage
	}
	if dec.PerformancePoolPercentage != nil {
		c.PerformancePoolPercentage = *dec.PerformancePoolPercentage
	}
	if dec.MinBlocksForActive != nil {
		c.MinBlocksForActive = *dec.MinBlocksForActive
	}
	if dec.MinReliability != nil {
		c.MinReliability = *dec.MinReliability
	}
	if dec.CanaryFailurePenalty != nil {
		c.CanaryFailurePenalty = *dec.CanaryFailurePenalty
	}
	if dec.CanaryBlockDuration != nil {
		c.CanaryBlockDuration = *dec.CanaryBlockDuration
	}
	if dec.PerformanceLookback != nil {
		c.PerformanceLookback = *dec.PerformanceLookback
	}
	if dec.BaseCanaryPercentage != nil {
		c.BaseCanaryPercentage = *dec.BaseCanaryPercentage
	}
	if dec.CanaryIncreasePerFail != nil {
		c.CanaryIncreasePerFail = *dec.CanaryIncreasePerFail
	}
	if dec.CanaryDecreasePerPass != nil {
		c.CanaryDecreasePerPass = *dec.CanaryDecreasePerPass
	}
	if dec.MaxCanaryPercentage != nil {
		c.MaxCanaryPercentage = *dec.MaxCanaryPercentage
	}
	if dec.MinCanaryPercentage != nil {
		c.MinCanaryPercentage = *dec.MinCanaryPercentage
	}
	if dec.DailyBlockQuota != nil {
		c.DailyBlockQuota = *dec.DailyBlockQuota
	}
	if dec.BatchSize != nil {
		c.BatchSize = *dec.BatchSize
	}
	if dec.NewContributorMinWeight != nil {
		c.NewContributorMinWeight = *dec.NewContributorMinWeight
	}
	return nil
}

// Load reads and parses a TOML config file, layering it over Defaults()
// so an omitted field keeps its documented default rather than
// zero-valuing silently.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, xerrors.Wrap(xerrors.InvalidInput, "config.Load", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, xerrors.Wrap(xerrors.InvalidInput, "config.Load", err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return xerrors.Wrap(xerrors.InvariantBug, "config.Save", err)
	}
	return os.WriteFile(path, data, 0644)
}
