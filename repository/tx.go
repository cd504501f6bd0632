// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import (
	"context"

	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
	"github.com/bitmark-inc/blockrepo/fault"
	"github.com/bitmark-inc/blockrepo/storage"
)

// GetTransactionById returns the transaction identified by txid, or
// nil if tx-indexing is disabled or the id resolves to nothing (spec
// §4.1). Genesis transactions are served from the in-memory index
// regardless of whether any block has ever been inserted (spec §8
// invariant 5).
func (r *Repository) GetTransactionById(txid digest.Hash) (*codec.Transaction, error) {
	if err := r.requireInitialised(); err != nil {
		return nil, err
	}
	if !r.TxIndexEnabled() {
		return nil, nil
	}
	if tx := r.genesis.Transaction(txid); tx != nil {
		return tx, nil
	}

	txn, err := r.backend.Begin(false)
	if err != nil {
		return nil, fault.WrapStorage(err)
	}
	defer txn.Rollback()
	txn.SetLazyValues(false)

	return r.resolveTx(txn, txid)
}

// resolveTx resolves txid's transaction using an already-open read
// transaction. It assumes tx-indexing is enabled and txid is not the
// genesis shortcut; callers check both before calling this. Shared by
// GetTransactionById and GetTransactionsByIds so a batch lookup never
// opens more than the one KV transaction spec §5 mandates per
// operation.
func (r *Repository) resolveTx(txn storage.Txn, txid digest.Hash) (*codec.Transaction, error) {
	blockRow, err := txn.Select(tableTxIndex, txid.Bytes())
	if err != nil {
		return nil, fault.WrapStorage(err)
	}
	if !blockRow.Exists() {
		r.metrics.IncTxIndexMiss()
		return nil, nil
	}
	blockHash, err := digest.FromBytes(blockRow.Value())
	if err != nil {
		return nil, fault.WrapCorrupted(err)
	}

	blockRowData, err := txn.Select(tableBlock, blockHash.Bytes())
	if err != nil {
		return nil, fault.WrapStorage(err)
	}
	if !blockRowData.Exists() {
		r.metrics.IncTxIndexMiss()
		return nil, nil
	}
	block, err := r.codec.DecodeBlock(blockRowData.Value())
	if err != nil {
		return nil, fault.WrapCorrupted(err)
	}

	for _, tx := range block.Transactions {
		if tx.Hash() == txid {
			r.metrics.IncTxIndexHit()
			return tx, nil
		}
	}
	r.metrics.IncTxIndexMiss()
	return nil, nil
}

// GetTransactionsByIds resolves every id in txids. Per spec §4.1 this
// is an all-or-nothing contract: if any id fails to resolve (missing
// tx_index row, or the row's block is missing) the entire result is
// nil, even though earlier ids in the batch may have resolved
// successfully. Duplicate ids are deduplicated up front and the
// backend is accessed in ascending key order (spec §3, Ordering) via
// digest.SortHashes, the same access-order discipline GetBlocks uses
// for its own batch reads; results are reassembled into the caller's
// original order afterwards. ctx is polled between ids for
// cooperative cancellation (spec §5); a cancelled ctx surfaces as
// fault.ErrCancelled, not as a nil result.
func (r *Repository) GetTransactionsByIds(ctx context.Context, txids []digest.Hash) ([]*codec.Transaction, error) {
	if err := r.requireInitialised(); err != nil {
		return nil, err
	}
	if !r.TxIndexEnabled() {
		return nil, nil
	}

	unique := make([]digest.Hash, 0, len(txids))
	seen := make(map[digest.Hash]bool, len(txids))
	for _, id := range txids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	digest.SortHashes(unique)

	txn, err := r.backend.Begin(false)
	if err != nil {
		return nil, fault.WrapStorage(err)
	}
	defer txn.Rollback()
	txn.SetLazyValues(false)

	resolved := make(map[digest.Hash]*codec.Transaction, len(unique))
	for _, id := range unique {
		select {
		case <-ctx.Done():
			return nil, fault.ErrCancelled
		default:
		}

		tx := r.genesis.Transaction(id)
		if tx == nil {
			tx, err = r.resolveTx(txn, id)
			if err != nil {
				return nil, err
			}
		}
		if tx == nil {
			return nil, nil
		}
		resolved[id] = tx
	}

	out := make([]*codec.Transaction, len(txids))
	for i, id := range txids {
		out[i] = resolved[id]
	}
	return out, nil
}

// GetBlockIdByTransactionId returns the hash of the block containing
// txid, or nil if tx-indexing is disabled. Genesis transactions
// resolve to the network genesis hash without touching the KV store
// (spec §8 invariant 5).
func (r *Repository) GetBlockIdByTransactionId(txid digest.Hash) (*digest.Hash, error) {
	if err := r.requireInitialised(); err != nil {
		return nil, err
	}
	if !r.TxIndexEnabled() {
		return nil, nil
	}
	if r.genesis.IsGenesisTransaction(txid) {
		h := r.genesis.GenesisHash()
		return &h, nil
	}

	txn, err := r.backend.Begin(false)
	if err != nil {
		return nil, fault.WrapStorage(err)
	}
	defer txn.Rollback()
	txn.SetLazyValues(false)

	row, err := txn.Select(tableTxIndex, txid.Bytes())
	if err != nil {
		return nil, fault.WrapStorage(err)
	}
	if !row.Exists() {
		return nil, nil
	}
	blockHash, err := digest.FromBytes(row.Value())
	if err != nil {
		return nil, fault.WrapCorrupted(err)
	}
	return &blockHash, nil
}
