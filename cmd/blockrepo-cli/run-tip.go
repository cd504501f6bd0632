// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"
)

func runTip(c *cli.Context) error {
	r, err := openRepository(c)
	if err != nil {
		return err
	}
	defer r.Dispose()

	hash, height := r.TipHashAndHeight()
	fmt.Printf("%s %d\n", hash, height)
	return nil
}
