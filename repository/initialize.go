// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import (
	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/fault"
)

// Initialize is the idempotent bootstrap described in spec §4.1: if
// the tip key is absent it is seeded with (genesis hash, 0); if the
// tx-index flag is absent it is seeded false. The write transaction
// commits only if something was actually written. Must be called
// before any other Repository method; a repeat call on an already
// initialised Repository returns nil without touching the store.
func (r *Repository) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialised {
		return nil
	}

	r.log.Info("initialising…")

	txn, err := r.backend.Begin(true)
	if err != nil {
		return fault.WrapStorage(err)
	}
	committed := false
	defer func() {
		if !committed {
			txn.Rollback()
		}
	}()

	if err := txn.Synchronize(tableCommon); err != nil {
		return fault.WrapStorage(err)
	}
	txn.SetLazyValues(false)

	wrote := false

	tipRow, err := txn.Select(tableCommon, metaTipKey)
	if err != nil {
		return fault.WrapStorage(err)
	}
	if !tipRow.Exists() {
		tip := codec.Tip{Hash: r.genesis.GenesisHash(), Height: 0}
		encoded, err := r.codec.EncodeTip(tip)
		if err != nil {
			return err
		}
		if err := txn.Insert(tableCommon, metaTipKey, encoded); err != nil {
			return fault.WrapStorage(err)
		}
		r.tipHash = tip.Hash
		r.tipHeight = tip.Height
		wrote = true
	} else {
		tip, err := r.codec.DecodeTip(tipRow.Value())
		if err != nil {
			return fault.WrapCorrupted(err)
		}
		r.tipHash = tip.Hash
		r.tipHeight = tip.Height
	}

	flagRow, err := txn.Select(tableCommon, metaTxIndexKey)
	if err != nil {
		return fault.WrapStorage(err)
	}
	if !flagRow.Exists() {
		if err := txn.Insert(tableCommon, metaTxIndexKey, encodeBool(false)); err != nil {
			return fault.WrapStorage(err)
		}
		r.txIndex = false
		wrote = true
	} else {
		r.txIndex = decodeBool(flagRow.Value())
	}

	if wrote {
		if err := txn.Commit(); err != nil {
			return fault.WrapStorage(err)
		}
	} else {
		if err := txn.Rollback(); err != nil {
			return fault.WrapStorage(err)
		}
	}
	committed = true

	r.initialised = true
	r.log.Infof("tip: %s height: %d  tx-index: %v", r.tipHash, r.tipHeight, r.txIndex)
	return nil
}

func encodeBool(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func decodeBool(b []byte) bool {
	return len(b) > 0 && b[0] != 0
}
