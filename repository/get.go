// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import (
	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
	"github.com/bitmark-inc/blockrepo/fault"
)

// GetBlock returns the block stored under hash, or nil if absent. The
// genesis hash is served from the in-memory genesis index and never
// touches the KV store (spec I4).
func (r *Repository) GetBlock(hash digest.Hash) (*codec.Block, error) {
	if err := r.requireInitialised(); err != nil {
		return nil, err
	}
	results, err := r.GetBlocks([]digest.Hash{hash})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// GetBlocks resolves every hash in hashes, preserving input order
// (spec §4.1, §8 invariant 2). Missing hashes yield a nil slot, never
// an error.
func (r *Repository) GetBlocks(hashes []digest.Hash) ([]*codec.Block, error) {
	if err := r.requireInitialised(); err != nil {
		return nil, err
	}
	out := make([]*codec.Block, len(hashes))

	// genesis shortcut first, so we never touch the KV store for it
	pending := make([]int, 0, len(hashes))
	for i, h := range hashes {
		if r.genesis.IsGenesisBlock(h) {
			out[i] = r.genesis.GenesisBlockValue()
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	// access the KV store in sorted order (spec §4.1) but write
	// results back to the caller's requested positions.
	order := make([]int, len(pending))
	copy(order, pending)
	sortIndicesByHash(order, hashes)

	txn, err := r.backend.Begin(false)
	if err != nil {
		return nil, fault.WrapStorage(err)
	}
	defer txn.Rollback()
	txn.SetLazyValues(false)

	found := 0
	for _, i := range order {
		row, err := txn.Select(tableBlock, hashes[i].Bytes())
		if err != nil {
			return nil, fault.WrapStorage(err)
		}
		if !row.Exists() {
			continue
		}
		block, err := r.codec.DecodeBlock(row.Value())
		if err != nil {
			return nil, fault.WrapCorrupted(err)
		}
		out[i] = block
		found++
	}

	r.metrics.IncBlocksRead(found)
	return out, nil
}

// Exist reports whether hash's row is literally present in the block
// table. It deliberately does not special-case the genesis hash: the
// source does not either, so Exist(genesisHash) is false unless a
// genesis row has actually been persisted (spec §4.1, open question
// in §9 — preserved here by product decision, see DESIGN.md).
func (r *Repository) Exist(hash digest.Hash) (bool, error) {
	if err := r.requireInitialised(); err != nil {
		return false, err
	}
	txn, err := r.backend.Begin(false)
	if err != nil {
		return false, fault.WrapStorage(err)
	}
	defer txn.Rollback()
	txn.SetLazyValues(true)

	row, err := txn.Select(tableBlock, hash.Bytes())
	if err != nil {
		return false, fault.WrapStorage(err)
	}
	return row.Exists(), nil
}
