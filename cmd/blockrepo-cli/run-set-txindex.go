// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"
)

func runSetTxIndex(c *cli.Context) error {
	enabled := c.Bool("enable")

	r, err := openRepository(c)
	if err != nil {
		return err
	}
	defer r.Dispose()

	if err := r.SetTxIndex(enabled); err != nil {
		return err
	}
	fmt.Printf("tx-index: %v\n", enabled)
	return nil
}
