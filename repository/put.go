// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import (
	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
	"github.com/bitmark-inc/blockrepo/fault"
)

// PutBlocks commits blocks and, if tx-indexing is enabled, their
// transaction index entries, then advances the tip, all within one
// KV transaction (spec §4.1). The caller guarantees blocks is the
// batch whose application moves the repository to newTip.
func (r *Repository) PutBlocks(newTip codec.Tip, blocks []*codec.Block) error {
	if err := r.requireInitialised(); err != nil {
		return err
	}
	if len(blocks) == 0 {
		return r.advanceTip(newTip)
	}

	// I2/I3 prep: de-duplicate by hash (second occurrence ignored),
	// then sort ascending by raw-byte key (spec §3, Ordering; spec
	// §4.1 step 1-2).
	seen := make(map[digest.Hash]bool, len(blocks))
	deduped := make([]*codec.Block, 0, len(blocks))
	hashes := make(map[*codec.Block]digest.Hash, len(blocks))
	for _, b := range blocks {
		h := b.Hash()
		if seen[h] {
			continue
		}
		seen[h] = true
		deduped = append(deduped, b)
		hashes[b] = h
	}
	sortBlocksByHash(deduped, hashes)

	r.mu.RLock()
	txIndexOn := r.txIndex
	r.mu.RUnlock()

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

	if err := txn.Synchronize(tableBlock, tableTxIndex, tableCommon); err != nil {
		return fault.WrapStorage(err)
	}
	txn.SetLazyValues(true)

	inserted := make([]*codec.Block, 0, len(deduped))
	for _, b := range deduped {
		h := hashes[b]
		row, err := txn.Select(tableBlock, h.Bytes())
		if err != nil {
			return fault.WrapStorage(err)
		}
		if row.Exists() {
			continue
		}
		encoded, err := r.codec.EncodeBlock(b)
		if err != nil {
			return err
		}
		if err := txn.Insert(tableBlock, h.Bytes(), encoded); err != nil {
			return fault.WrapStorage(err)
		}
		inserted = append(inserted, b)
	}

	if r.hooks.OnInsertBlocks != nil && len(inserted) > 0 {
		if err := r.hooks.OnInsertBlocks(txn, inserted); err != nil {
			return err
		}
	}

	if txIndexOn && len(inserted) > 0 {
		pairs := make([]txBlockPair, 0)
		for _, b := range inserted {
			blockHash := hashes[b]
			for _, tx := range b.Transactions {
				pairs = append(pairs, txBlockPair{tx: tx.Hash(), block: blockHash})
			}
			if r.hooks.OnInsertTransactions != nil {
				if err := r.hooks.OnInsertTransactions(txn, blockHash, b.Transactions); err != nil {
					return err
				}
			}
		}
		sortPairsByTxHash(pairs)
		for _, p := range pairs {
			if err := txn.Insert(tableTxIndex, p.tx.Bytes(), p.block.Bytes()); err != nil {
				return fault.WrapStorage(err)
			}
		}
	}

	encodedTip, err := r.codec.EncodeTip(newTip)
	if err != nil {
		return err
	}
	if err := txn.Insert(tableCommon, metaTipKey, encodedTip); err != nil {
		return fault.WrapStorage(err)
	}

	if err := txn.Commit(); err != nil {
		return fault.WrapStorage(err)
	}
	ok = true

	r.mu.Lock()
	r.tipHash = newTip.Hash
	r.tipHeight = newTip.Height
	r.mu.Unlock()

	r.metrics.IncBlocksWritten(len(inserted))
	r.metrics.SetTipHeight(newTip.Height)
	r.log.Infof("put %d block(s), %d new, tip now %s @ %d", len(deduped), len(inserted), newTip.Hash, newTip.Height)
	return nil
}

// advanceTip writes newTip without touching the block or tx_index
// tables, for the degenerate PutBlocks(newTip, nil) and
// Delete(newTip, nil) calls.
func (r *Repository) advanceTip(newTip codec.Tip) error {
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
	if err := txn.Synchronize(tableCommon); err != nil {
		return fault.WrapStorage(err)
	}
	encoded, err := r.codec.EncodeTip(newTip)
	if err != nil {
		return err
	}
	if err := txn.Insert(tableCommon, metaTipKey, encoded); err != nil {
		return fault.WrapStorage(err)
	}
	if err := txn.Commit(); err != nil {
		return fault.WrapStorage(err)
	}
	ok = true

	r.mu.Lock()
	r.tipHash = newTip.Hash
	r.tipHeight = newTip.Height
	r.mu.Unlock()
	r.metrics.SetTipHeight(newTip.Height)
	return nil
}
