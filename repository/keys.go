// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import "github.com/bitmark-inc/blockrepo/storage"

// table aliases, kept local so the rest of the package reads like the
// spec's "block" / "tx_index" / "meta" vocabulary while the on-disk
// names stay bit-exact with the source (spec §4.2).
const (
	tableBlock   = storage.TableBlock
	tableTxIndex = storage.TableTransaction
	tableCommon  = storage.TableCommon
)
