// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault_test

import (
	"testing"

	"github.com/bitmark-inc/blockrepo/fault"
)

var (
	errExistsOne    = fault.ExistsError("exists one")
	errInvalidOne   = fault.InvalidError("invalid one")
	errNotFoundOne  = fault.NotFoundError("not found one")
	errProcessOne   = fault.ProcessError("process one")
	errStorageOne   = fault.StorageError("storage one")
	errCorruptedOne = fault.CorruptedError("corrupted one")
	errCancelledOne = fault.CancelledError("cancelled one")
)

// test that each error family classifies only as its own kind
func TestIsErrClassifiesExactlyOneFamily(t *testing.T) {
	errorList := []struct {
		err       error
		exists    bool
		invalid   bool
		notFound  bool
		process   bool
		storage   bool
		corrupted bool
		cancelled bool
	}{
		{errExistsOne, true, false, false, false, false, false, false},
		{errInvalidOne, false, true, false, false, false, false, false},
		{errNotFoundOne, false, false, true, false, false, false, false},
		{errProcessOne, false, false, false, true, false, false, false},
		{errStorageOne, false, false, false, false, true, false, false},
		{errCorruptedOne, false, false, false, false, false, true, false},
		{errCancelledOne, false, false, false, false, false, false, true},
	}

	for i, e := range errorList {
		err := e.err
		if fault.IsErrExists(err) != e.exists {
			t.Errorf("%d: expected 'exists' == %v for err = %v", i, e.exists, err)
		}
		if fault.IsErrInvalid(err) != e.invalid {
			t.Errorf("%d: expected 'invalid' == %v for err = %v", i, e.invalid, err)
		}
		if fault.IsErrNotFound(err) != e.notFound {
			t.Errorf("%d: expected 'not found' == %v for err = %v", i, e.notFound, err)
		}
		if fault.IsErrProcess(err) != e.process {
			t.Errorf("%d: expected 'process' == %v for err = %v", i, e.process, err)
		}
		if fault.IsErrStorage(err) != e.storage {
			t.Errorf("%d: expected 'storage' == %v for err = %v", i, e.storage, err)
		}
		if fault.IsErrCorrupted(err) != e.corrupted {
			t.Errorf("%d: expected 'corrupted' == %v for err = %v", i, e.corrupted, err)
		}
		if fault.IsErrCancelled(err) != e.cancelled {
			t.Errorf("%d: expected 'cancelled' == %v for err = %v", i, e.cancelled, err)
		}
	}
}

func TestErrorReturnsTheUnderlyingMessage(t *testing.T) {
	if "exists one" != errExistsOne.Error() {
		t.Errorf("exists: got %q", errExistsOne.Error())
	}
	if "storage one" != errStorageOne.Error() {
		t.Errorf("storage: got %q", errStorageOne.Error())
	}
}

func TestWrapStorageClassifiesAnyErrorAsStorageError(t *testing.T) {
	wrapped := fault.WrapStorage(errNotFoundOne)
	if !fault.IsErrStorage(wrapped) {
		t.Errorf("expected wrapped error to classify as storage, got %v", wrapped)
	}
	if wrapped.Error() != errNotFoundOne.Error() {
		t.Errorf("expected message to be preserved, got %q", wrapped.Error())
	}
	if nil != fault.WrapStorage(nil) {
		t.Errorf("expected WrapStorage(nil) to return nil")
	}
}

func TestWrapCorruptedClassifiesAnyErrorAsCorruptedError(t *testing.T) {
	wrapped := fault.WrapCorrupted(errInvalidOne)
	if !fault.IsErrCorrupted(wrapped) {
		t.Errorf("expected wrapped error to classify as corrupted, got %v", wrapped)
	}
	if nil != fault.WrapCorrupted(nil) {
		t.Errorf("expected WrapCorrupted(nil) to return nil")
	}
}
