// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import (
	"github.com/bitmark-inc/blockrepo/digest"
	"github.com/bitmark-inc/blockrepo/fault"
)

// progressInterval is how many blocks ReIndex processes between
// progress log lines (spec §4.3).
const progressInterval = 1000

// ReIndex synchronises the tx_index table to the current flag value
// over the full block population (spec §4.3). When TxIndexEnabled is
// true it forward-scans every block row, inserting (tx_hash ->
// block_hash) for every transaction; existing entries are overwritten.
// When false it truncates tx_index. Either way the whole operation
// commits as a single KV transaction; a crash mid-reindex leaves the
// transaction uncommitted and the next run retries from the
// pre-state — there is no incremental checkpointing.
//
// progress, if non-nil, is called with (done, total) block counts
// every progressInterval blocks and once more after the commit, so a
// caller can wire it to e.g. a metrics gauge. It is not called when
// tx-indexing is disabled and the table is only truncated.
func (r *Repository) ReIndex(progress func(done, total int)) error {
	if err := r.requireInitialised(); err != nil {
		return err
	}

	enabled := r.TxIndexEnabled()

	txn, err := r.backend.Begin(true)
	if err != nil {
		return fault.WrapStorage(err)
	}
	ok := false
	defer func() {
		if !ok {
			txn.Rollback()
		}
	}()
	if err := txn.Synchronize(tableBlock, tableTxIndex); err != nil {
		return fault.WrapStorage(err)
	}

	if !enabled {
		if err := txn.RemoveAll(tableTxIndex, true); err != nil {
			return fault.WrapStorage(err)
		}
		if err := txn.Commit(); err != nil {
			return fault.WrapStorage(err)
		}
		ok = true
		r.metrics.IncReindexRuns()
		r.log.Info("reindex: tx-index disabled, truncated tx_index")
		return nil
	}

	total, err := txn.Count(tableBlock)
	if err != nil {
		return fault.WrapStorage(err)
	}

	cursor, err := txn.SelectForward(tableBlock)
	if err != nil {
		return fault.WrapStorage(err)
	}
	defer cursor.Close()

	done := 0
	for cursor.Next() {
		blockHash, err := digest.FromBytes(cursor.Key())
		if err != nil {
			return fault.WrapCorrupted(err)
		}
		block, err := r.codec.DecodeBlock(cursor.Value())
		if err != nil {
			return fault.WrapCorrupted(err)
		}
		pairs := make([]txBlockPair, 0, len(block.Transactions))
		for _, tx := range block.Transactions {
			pairs = append(pairs, txBlockPair{tx: tx.Hash(), block: blockHash})
		}
		sortPairsByTxHash(pairs)
		for _, p := range pairs {
			if err := txn.Insert(tableTxIndex, p.tx.Bytes(), p.block.Bytes()); err != nil {
				return fault.WrapStorage(err)
			}
		}

		done++
		if done%progressInterval == 0 {
			r.log.Infof("reindex: %d/%d blocks", done, total)
			if progress != nil {
				progress(done, total)
			}
		}
	}
	if err := cursor.Error(); err != nil {
		return fault.WrapStorage(err)
	}

	if err := txn.Commit(); err != nil {
		return fault.WrapStorage(err)
	}
	ok = true

	if progress != nil {
		progress(done, total)
	}
	r.metrics.IncReindexRuns()
	r.log.Infof("reindex: complete, %d/%d blocks", done, total)
	return nil
}
