// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import (
	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
	"github.com/bitmark-inc/blockrepo/fault"
)

// Delete removes hashes from the block table (and their tx_index
// entries, when tx-indexing is enabled) and writes newTip, all within
// one KV transaction (spec §4.1). Missing hashes are silently
// skipped. The underlying KV engine's file size need not shrink —
// this is a logical delete only.
func (r *Repository) Delete(newTip codec.Tip, hashes []digest.Hash) error {
	if err := r.requireInitialised(); err != nil {
		return err
	}
	if err := r.deleteBlocks(hashes, &newTip); err != nil {
		return err
	}
	return nil
}

// DeleteBlocks removes hashes without touching the tip (spec §4.1).
func (r *Repository) DeleteBlocks(hashes []digest.Hash) error {
	if err := r.requireInitialised(); err != nil {
		return err
	}
	return r.deleteBlocks(hashes, nil)
}

func (r *Repository) deleteBlocks(hashes []digest.Hash, newTip *codec.Tip) error {
	if len(hashes) == 0 {
		if newTip == nil {
			return nil
		}
		return r.advanceTip(*newTip)
	}

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
	txn.SetLazyValues(false)

	deleted := make([]*codec.Block, 0, len(hashes))
	deletedHashes := make([]digest.Hash, 0, len(hashes))
	for _, h := range hashes {
		row, err := txn.Select(tableBlock, h.Bytes())
		if err != nil {
			return fault.WrapStorage(err)
		}
		if !row.Exists() {
			continue
		}
		block, err := r.codec.DecodeBlock(row.Value())
		if err != nil {
			return fault.WrapCorrupted(err)
		}
		deleted = append(deleted, block)
		deletedHashes = append(deletedHashes, h)
	}

	if r.hooks.OnDeleteBlocks != nil && len(deleted) > 0 {
		if err := r.hooks.OnDeleteBlocks(txn, deleted); err != nil {
			return err
		}
	}

	for i, block := range deleted {
		h := deletedHashes[i]
		if txIndexOn {
			if r.hooks.OnDeleteTransactions != nil {
				if err := r.hooks.OnDeleteTransactions(txn, h, block.Transactions); err != nil {
					return err
				}
			}
			for _, tx := range block.Transactions {
				if err := txn.RemoveKey(tableTxIndex, tx.Hash().Bytes()); err != nil {
					return fault.WrapStorage(err)
				}
			}
		}
		if err := txn.RemoveKey(tableBlock, h.Bytes()); err != nil {
			return fault.WrapStorage(err)
		}
	}

	if newTip != nil {
		encoded, err := r.codec.EncodeTip(*newTip)
		if err != nil {
			return err
		}
		if err := txn.Insert(tableCommon, metaTipKey, encoded); err != nil {
			return fault.WrapStorage(err)
		}
	}

	if err := txn.Commit(); err != nil {
		return fault.WrapStorage(err)
	}
	ok = true

	if newTip != nil {
		r.mu.Lock()
		r.tipHash = newTip.Hash
		r.tipHeight = newTip.Height
		r.mu.Unlock()
		r.metrics.SetTipHeight(newTip.Height)
	}
	r.metrics.IncBlocksDeleted(len(deleted))
	r.log.Infof("deleted %d block(s)", len(deleted))
	return nil
}
