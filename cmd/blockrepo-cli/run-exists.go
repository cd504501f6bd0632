// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/blockrepo/digest"
)

func runExists(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("exists: expected exactly one block hash argument", 1)
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

	exists, err := r.Exist(hash)
	if err != nil {
		return err
	}
	fmt.Println(exists)
	return nil
}

func parseHash(s string) (digest.Hash, error) {
	var h digest.Hash
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return h, cli.NewExitError(fmt.Sprintf("invalid block hash: %s", err), 1)
	}
	return h, nil
}
