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

// ai4alld is the coordinator daemon: it loads configuration, opens the
// event/KV/operational stores, boots the Coordinator and its cron
// scheduler, and optionally exposes a Prometheus exporter. Structured
// the way the teacher's cmd/kcn/main.go structures a klaytn consensus
// node: a urfave/cli v1 app with a default Action and a handful of
// one-shot subcommands. There is no Before hook; the metrics registry
// and its exporter are set up inside the daemon Action itself.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli"

	"github.com/ai4all-network/coordinator/assign"
	"github.com/ai4all-network/coordinator/auth"
	"github.com/ai4all-network/coordinator/config"
	"github.com/ai4all-network/coordinator/coordinator"
	"github.com/ai4all-network/coordinator/internal/metrics"
	"github.com/ai4all-network/coordinator/internal/xlog"
	"github.com/ai4all-network/coordinator/points"
	"github.com/ai4all-network/coordinator/reward"
	"github.com/ai4all-network/coordinator/store"
	"github.com/ai4all-network/coordinator/submission"
)

var logger = xlog.NewModuleLogger("ai4alld")

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML configuration file (defaults applied for anything absent)",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "directory for the event log and KV store",
		Value: "./ai4all-data",
	}
	mysqlDSNFlag = cli.StringFlag{
		Name:  "mysql-dsn",
		Usage: "DSN for the operational store (node/device bookkeeping); empty disables node pre-provisioning",
	}
	startCronFlag = cli.StringFlag{
		Name:  "start-cron",
		Usage: "cron expression firing startDay",
		Value: "0 0 * * *",
	}
	finalizeCronFlag = cli.StringFlag{
		Name:  "finalize-cron",
		Usage: "cron expression firing finalize",
		Value: "0 0 * * *",
	}
	metricsPortFlag = cli.IntFlag{
		Name:  "metrics-port",
		Usage: "port to serve /metrics on; 0 disables the exporter",
		Value: 0,
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "ai4alld"
	app.Usage = "AI4ALL federated compute coordinator"
	app.HideVersion = true
	app.Flags = []cli.Flag{configFlag, dataDirFlag, mysqlDSNFlag, startCronFlag, finalizeCronFlag, metricsPortFlag}
	app.Action = runDaemon
	app.Commands = []cli.Command{
		initConfigCommand,
		registerCommand,
		startDayCommand,
		finalizeDayCommand,
		statusCommand,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config if given, else returns spec §6 defaults.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	if path := ctx.GlobalString(configFlag.Name); path != "" {
		return config.Load(path)
	}
	return config.Defaults(), nil
}

func toCoordinatorConfig(cfg config.Config) coordinator.Config {
	pointsCfg := points.Config{
		MinReliability:        cfg.MinReliability,
		MinBlocksForActive:    cfg.MinBlocksForActive,
		CanaryFailurePenalty:  cfg.CanaryFailurePenalty,
		CanaryBlockDuration:   cfg.CanaryBlockDuration,
		PerformanceLookback:   cfg.PerformanceLookback,
		BaseCanaryPercentage:  cfg.BaseCanaryPercentage,
		CanaryIncreasePerFail: cfg.CanaryIncreasePerFail,
		CanaryDecreasePerPass: cfg.CanaryDecreasePerPass,
		MaxCanaryPercentage:   cfg.MaxCanaryPercentage,
		MinCanaryPercentage:   cfg.MinCanaryPercentage,
	}
	return coordinator.Config{
		Assign: assign.Config{
			DailyBlockQuota:         cfg.DailyBlockQuota,
			BatchSize:               cfg.BatchSize,
			NewContributorMinWeight: cfg.NewContributorMinWeight,
			PerformanceLookback:     cfg.PerformanceLookback,
			BaseCanaryPercentage:    cfg.BaseCanaryPercentage,
		},
		Points:     pointsCfg,
		Submission: submission.Config{CanaryFailurePenalty: cfg.CanaryFailurePenalty},
		Reward: reward.Config{
			DailyEmissions:            cfg.DailyEmissions,
			BasePoolPercentage:        cfg.BasePoolPercentage,
			PerformancePoolPercentage: cfg.PerformancePoolPercentage,
			PerformanceLookback:       cfg.PerformanceLookback,
			Points:                    pointsCfg,
		},
	}
}

// bootResult bundles a fully-wired Coordinator together with the
// stores backing it, so one-shot commands (start-day, finalize-day,
// status) and the daemon Action can share the exact same boot path:
// open the stores, read back whatever a prior run persisted, and
// Resume from it rather than starting fresh every invocation.
type bootResult struct {
	coord     *coordinator.Coordinator
	kv        store.KVStore
	eventFile *store.EventFile
	opStore   *store.OperationalStore
	metrics   *metrics.Registry
}

// Close releases every store bootCoordinator opened.
func (b *bootResult) Close() {
	if b.opStore != nil {
		b.opStore.Close()
	}
	b.kv.Close()
}

// bootCoordinator opens the event/KV/operational stores, seeds the
// roster from the operational store if configured, and rebuilds the
// Coordinator from whatever a prior run left behind: a fresh data
// directory gets coordinator.New, one with persisted events gets
// coordinator.Resume so a restart never silently discards history.
func bootCoordinator(ctx *cli.Context) (*bootResult, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	dataDir := ctx.GlobalString(dataDirFlag.Name)

	kv, err := store.NewBadgerStore(filepath.Join(dataDir, "kv"))
	if err != nil {
		return nil, err
	}

	eventFile, err := store.NewEventFile(filepath.Join(dataDir, "events"))
	if err != nil {
		kv.Close()
		return nil, err
	}

	cache, err := points.NewWindowCache(0)
	if err != nil {
		kv.Close()
		return nil, err
	}

	var opStore *store.OperationalStore
	if dsn := ctx.GlobalString(mysqlDSNFlag.Name); dsn != "" {
		opStore, err = store.NewOperationalStore(dsn)
		if err != nil {
			kv.Close()
			return nil, err
		}
	}

	lookup := func(accountID string) ([]byte, bool) {
		if opStore == nil {
			return nil, false
		}
		return opStore.PublicKey(accountID)
	}
	verifier := auth.NewVerifier(auth.Ed25519Verify, lookup)

	metricsRegistry := metrics.New()

	deps := coordinator.Dependencies{
		Verifier:    verifier,
		WindowCache: cache,
		EventFile:   eventFile,
		KV:          kv,
		Metrics:     metricsRegistry,
	}

	events, err := eventFile.ReadAllEvents()
	if err != nil {
		kv.Close()
		return nil, err
	}
	lastTxBlock, err := store.LastTransactionBlock(kv)
	if err != nil {
		kv.Close()
		return nil, err
	}

	var coord *coordinator.Coordinator
	if len(events) > 0 {
		coord, err = coordinator.Resume(toCoordinatorConfig(cfg), deps, events, lastTxBlock)
		if err != nil {
			kv.Close()
			return nil, err
		}
		logger.Info("resumed from persisted state", "events", len(events), "lastBlockNumber", func() int64 {
			if lastTxBlock == nil {
				return 0
			}
			return lastTxBlock.BlockNumber
		}())
	} else {
		coord = coordinator.New(toCoordinatorConfig(cfg), deps)
	}

	if opStore != nil {
		nodes, err := opStore.ListNodes()
		if err != nil {
			kv.Close()
			return nil, err
		}
		now := time.Now()
		for _, n := range nodes {
			pk, ok := opStore.PublicKey(n.ContributorID)
			if !ok {
				continue
			}
			if err := coord.RegisterContributor(n.ContributorID, pk, now); err != nil {
				logger.Warn("skipping node at boot", "contributorId", n.ContributorID, "error", err)
			}
		}
		logger.Info("roster seeded from operational store", "nodes", len(nodes))
	}

	return &bootResult{coord: coord, kv: kv, eventFile: eventFile, opStore: opStore, metrics: metricsRegistry}, nil
}

// runDaemon is the default Action: boot every store (resuming prior
// state if any exists), start the scheduler, and block forever
// (interrupted only by process signal/exit), mirroring the teacher's
// nodecmd.RunKlaytnNode being the app's default Action.
func runDaemon(ctx *cli.Context) error {
	boot, err := bootCoordinator(ctx)
	if err != nil {
		return err
	}
	defer boot.Close()

	scheduler, err := coordinator.NewScheduler(boot.coord, coordinator.ScheduleConfig{
		StartCron:    ctx.GlobalString(startCronFlag.Name),
		FinalizeCron: ctx.GlobalString(finalizeCronFlag.Name),
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if port := ctx.GlobalInt(metricsPortFlag.Name); port != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(boot.metrics.Registerer(), promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", port)
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics exporter stopped", "addr", addr, "error", err)
			}
		}()
		logger.Info("metrics exporter listening", "addr", addr)
	}

	logger.Info("ai4alld running", "dataDir", ctx.GlobalString(dataDirFlag.Name))
	select {}
}

var initConfigCommand = cli.Command{
	Name:  "init-config",
	Usage: "write spec defaults to a TOML file",
	Flags: []cli.Flag{cli.StringFlag{Name: "out", Value: "ai4all.toml"}},
	Action: func(ctx *cli.Context) error {
		path := ctx.String("out")
		if err := config.Save(path, config.Defaults()); err != nil {
			return err
		}
		fmt.Printf("wrote defaults to %s\n", path)
		return nil
	},
}

var registerCommand = cli.Command{
	Name:  "register",
	Usage: "pre-provision a contributor's public key in the operational store",
	Flags: []cli.Flag{
		mysqlDSNFlag,
		cli.StringFlag{Name: "account", Usage: "contributorId"},
		cli.StringFlag{Name: "pubkey-hex", Usage: "hex-encoded public key"},
	},
	Action: func(ctx *cli.Context) error {
		dsn := ctx.String(mysqlDSNFlag.Name)
		if dsn == "" {
			return fmt.Errorf("register requires --mysql-dsn")
		}
		opStore, err := store.NewOperationalStore(dsn)
		if err != nil {
			return err
		}
		defer opStore.Close()
		return opStore.UpsertNode(ctx.String("account"), ctx.String("pubkey-hex"), time.Now())
	},
}

// startDayCommand is the operator escape hatch for spec §4.9's
// IDLE -> ACTIVE transition when the cron scheduler inside runDaemon
// isn't available or a day must be started out of band.
var startDayCommand = cli.Command{
	Name:  "start-day",
	Usage: "manually start a new day against the persisted state in --datadir",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "day", Usage: "dayId, e.g. 2026-01-28; defaults to today (UTC)"},
	},
	Action: func(ctx *cli.Context) error {
		boot, err := bootCoordinator(ctx)
		if err != nil {
			return err
		}
		defer boot.Close()

		dayID := ctx.String("day")
		if dayID == "" {
			dayID = time.Now().UTC().Format("2006-01-02")
		}
		if err := boot.coord.StartDay(dayID, time.Now()); err != nil {
			return err
		}
		fmt.Printf("day %s started\n", dayID)
		return nil
	},
}

// finalizeDayCommand is the operator escape hatch for spec §4.9/§4.12's
// ACTIVE -> FINALIZING -> IDLE transition.
var finalizeDayCommand = cli.Command{
	Name:  "finalize-day",
	Usage: "manually finalize the active day against the persisted state in --datadir",
	Action: func(ctx *cli.Context) error {
		boot, err := bootCoordinator(ctx)
		if err != nil {
			return err
		}
		defer boot.Close()

		if err := boot.coord.Finalize(time.Now()); err != nil {
			return err
		}
		fmt.Println("day finalized")
		return nil
	},
}

// statusCommand prints the coordinator's phase and current day without
// mutating anything, for operators checking in on a running deployment.
var statusCommand = cli.Command{
	Name:  "status",
	Usage: "print the coordinator's phase and current day",
	Action: func(ctx *cli.Context) error {
		boot, err := bootCoordinator(ctx)
		if err != nil {
			return err
		}
		defer boot.Close()

		s := boot.coord.GetStatus()
		fmt.Printf("phase=%s dayId=%q roster=%d accepted=%d lastEventHash=%s lastBlockNumber=%d\n",
			s.Phase, s.DayID, s.RosterSize, s.AcceptedCount, s.LastEventHash, s.LastBlockNumber)
		return nil
	},
}
