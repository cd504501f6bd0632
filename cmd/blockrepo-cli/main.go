// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/config"
	"github.com/bitmark-inc/blockrepo/network"
	"github.com/bitmark-inc/blockrepo/repository"
	"github.com/bitmark-inc/blockrepo/storage"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	app := cli.NewApp()
	app.Name = "blockrepo-cli"
	app.Version = version
	app.HideVersion = true

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "blockrepo.yaml",
			Usage: " configuration `FILE`",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "tip",
			Usage:  "print the current tip hash and height",
			Action: runTip,
		},
		{
			Name:      "exists",
			Usage:     "report whether a block hash is stored",
			ArgsUsage: "<block-hash-hex>",
			Action:    runExists,
		},
		{
			Name:      "get-block",
			Usage:     "print a stored block as JSON",
			ArgsUsage: "<block-hash-hex>",
			Action:    runGetBlock,
		},
		{
			Name:  "set-txindex",
			Usage: "enable or disable the transaction index",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "enable", Usage: " enable the index (default disables it)"},
			},
			Action: runSetTxIndex,
		},
		{
			Name:   "reindex",
			Usage:  "rebuild the transaction index from the block table",
			Action: runReIndex,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openRepository loads configuration, opens the on-disk backend and
// constructs a Repository against an empty genesis block. blockrepo-cli
// operates on an already-running node's database; it has no way to
// learn that node's real genesis definition, so genesis-shortcut
// lookups (spec I4) are inert for CLI sessions and every block/
// transaction is resolved from the KV store.
func openRepository(c *cli.Context) (*repository.Repository, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	backend, err := storage.OpenLevelBackend(cfg.Database.Path())
	if err != nil {
		return nil, err
	}

	net := network.NewStatic(&codec.Block{})
	r, err := repository.New(backend, codec.NewGobCodec(), net)
	if err != nil {
		backend.Close()
		return nil, err
	}
	if err := r.Initialize(); err != nil {
		r.Dispose()
		return nil, err
	}
	return r, nil
}
