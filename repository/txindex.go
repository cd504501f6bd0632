// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository

import "github.com/bitmark-inc/blockrepo/fault"

// SetTxIndex writes the tx-index flag under its own single-item
// transaction. It does not trigger or undo indexing; pairing a flag
// change with a ReIndex call is the caller's responsibility (spec
// §4.1).
func (r *Repository) SetTxIndex(enabled bool) error {
	if err := r.requireInitialised(); err != nil {
		return err
	}

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
	if err := txn.Insert(tableCommon, metaTxIndexKey, encodeBool(enabled)); err != nil {
		return fault.WrapStorage(err)
	}
	if err := txn.Commit(); err != nil {
		return fault.WrapStorage(err)
	}
	ok = true

	r.mu.Lock()
	r.txIndex = enabled
	r.mu.Unlock()
	r.log.Infof("tx-index set to %v", enabled)
	return nil
}
