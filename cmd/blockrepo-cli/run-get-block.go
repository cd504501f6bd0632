// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli"
)

func runGetBlock(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("get-block: expected exactly one block hash argument", 1)
	}
	hash, err := parseHash(c.Args().First())
	if err != nil {
		return err
	}

	r, err := openRepository(c)
	if err != nil {
		return err
	}
	defer r.Dispose()

	block, err := r.GetBlock(hash)
	if err != nil {
		return err
	}
	if block == nil {
		return cli.NewExitError("get-block: not found", 1)
	}

	out, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
