// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	isatty "github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/retipool/retipool/api"
	"github.com/retipool/retipool/kv"
	"github.com/retipool/retipool/log"
	"github.com/retipool/retipool/lvldb"
	"github.com/retipool/retipool/metrics"
	"github.com/retipool/retipool/pool"
	"github.com/retipool/retipool/registry"
	"github.com/retipool/retipool/reverts"
	"github.com/retipool/retipool/state"
	"github.com/retipool/retipool/xenv"
)

var (
	version   string
	gitCommit string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	if gitCommit == "" {
		return version + "-dev"
	}
	return fmt.Sprintf("%s-%s", version, gitCommit)
}

func main() {
	app := cli.App{
		Name:      "retipool",
		Version:   fullVersion(),
		Usage:     "solo runner for the validator registry and staking pools",
		Copyright: "2025 The RetiPool developers",
		Flags: []cli.Flag{
			dataDirFlag,
			genesisFlag,
			apiAddrFlag,
			verbosityFlag,
			tickSecsFlag,
			blockRewardFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(ctx *cli.Context) {
	level := slog.LevelInfo
	switch ctx.Int(verbosityFlag.Name) {
	case 0:
		level = slog.LevelError
	case 1:
		level = slog.LevelWarn
	case 2, 3:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetDefault(log.NewLogger(log.TextHandler(os.Stderr, level)))
	} else {
		log.SetDefault(log.NewLogger(log.JSONHandler(os.Stderr, level)))
	}
}

func openStore(ctx *cli.Context) (kv.Store, func(), error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		db, err := lvldb.NewMem()
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	}
	db, err := lvldb.New(dataDir, lvldb.Options{CacheSize: 128, OpenFilesCacheCapacity: 128})
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

func run(ctx *cli.Context) error {
	initLogger(ctx)
	metrics.InitializePrometheusMetrics()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	st := state.New(store)
	chain := xenv.NewChain(st)
	chain.At(uint64(time.Now().Unix()))

	reg, err := registry.New(chain)
	if err != nil {
		return err
	}
	template, err := pool.NewTemplate(chain)
	if err != nil {
		return err
	}
	bootEnv := xenv.New(chain, reg.Address())
	if err := reg.SetPoolTemplate(bootEnv, template.AppID()); err != nil {
		return err
	}

	if genesisPath := ctx.String(genesisFlag.Name); genesisPath != "" {
		gen, err := loadGenesis(genesisPath)
		if err != nil {
			return err
		}
		if err := applyGenesis(chain, reg, gen); err != nil {
			return err
		}
		logger.Info("genesis applied", "validators", len(gen.Validators))
	}

	apiAddr := ctx.String(apiAddrFlag.Name)
	srv := &http.Server{Addr: apiAddr, Handler: api.NewHTTPHandler(chain, reg)}
	go func() {
		logger.Info("API listening", "addr", apiAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server failed", "error", err)
		}
	}()
	defer srv.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	tickSecs := ctx.Uint64(tickSecsFlag.Name)
	blockReward := ctx.Uint64(blockRewardFlag.Name)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	logger.Info("solo runner started", "version", fullVersion())
	for {
		select {
		case <-quit:
			logger.Info("shutting down")
			return st.Stage()
		case <-ticker.C:
			chain.At(chain.Now() + tickSecs)
			if err := tickPools(chain, reg, blockReward); err != nil {
				return err
			}
		}
	}
}

// tickPools simulates block-reward accrual and drives each pool's epoch
// update. Reverts for not-yet-due epochs are expected and skipped.
func tickPools(chain *xenv.Chain, reg *registry.Registry, blockReward uint64) error {
	env := xenv.New(chain, chain.FeeSink())
	numV, err := reg.GetNumValidators(env)
	if err != nil {
		return err
	}
	for id := uint64(1); id <= numV; id++ {
		pools, err := reg.GetPools(env, id)
		if err != nil {
			return err
		}
		for i := range pools {
			app, ok := chain.App(pools[i].PoolAppID)
			if !ok {
				continue
			}
			sp := app.(*pool.StakingPool)
			if blockReward > 0 && pools[i].TotalStakers > 0 {
				if err := chain.State().AddBalance(sp.Address(), blockReward); err != nil {
					return err
				}
			}
			if err := sp.EpochBalanceUpdate(xenv.New(chain, chain.FeeSink())); err != nil {
				if reverts.IsRevertErr(err) {
					continue
				}
				return err
			}
		}
	}
	return nil
}
