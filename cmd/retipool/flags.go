// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the state database (empty runs in memory)",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to the genesis yaml declaring validators and pools",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "address the read-only API listens on",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-4)",
	}
	tickSecsFlag = cli.Uint64Flag{
		Name:  "tick-secs",
		Value: 60,
		Usage: "seconds of chain time each tick advances",
	}
	blockRewardFlag = cli.Uint64Flag{
		Name:  "block-reward",
		Value: 2_000_000,
		Usage: "microalgos of simulated rewards accrued per pool with stakers per tick",
	}
)
