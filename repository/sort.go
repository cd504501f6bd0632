// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import (
	"sort"

	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
)

// sortBlocksByHash sorts blocks ascending by raw-byte block hash
// (spec §3, Ordering; spec §4.1 step 2) — a performance requirement
// to keep bulk inserts B-tree-friendly, not a correctness one.
func sortBlocksByHash(blocks []*codec.Block, hashes map[*codec.Block]digest.Hash) {
	sort.Slice(blocks, func(i, j int) bool {
		return hashes[blocks[i]].Less(hashes[blocks[j]])
	})
}

type txBlockPair struct {
	tx    digest.Hash
	block digest.Hash
}

func sortPairsByTxHash(pairs []txBlockPair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].tx.Less(pairs[j].tx)
	})
}

// sortIndicesByHash sorts a slice of indices into hashes ascending by
// the raw bytes of hashes[index], so a batch read can access the
// backend in key order while still reporting results back in the
// caller's requested order (spec §3, Ordering; spec §4.1 GetBlocks).
func sortIndicesByHash(indices []int, hashes []digest.Hash) {
	sort.Slice(indices, func(i, j int) bool {
		return hashes[indices[i]].Less(hashes[indices[j]])
	})
}
