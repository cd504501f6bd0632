// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// error instances
//
// Provides a single instance of errors to allow easy comparison
package fault

// error base
type GenericError string

// to allow for different classes of errors
type ExistsError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type ProcessError GenericError

// StorageError signals that the backing KV engine surfaced a fault:
// I/O, lock contention exhaustion, or corruption. The caller's
// transaction has already been rolled back by the time this error
// is returned.
type StorageError GenericError

// CorruptedError signals that a stored row failed to deserialise.
// Per spec it is handled identically to StorageError by callers, but
// kept distinct so operators can tell disk faults from codec faults
// in logs.
type CorruptedError GenericError

// CancelledError is raised only by Repository.GetTransactionsByIds
// when the caller's abort signal fires mid-batch.
type CancelledError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised = ProcessError("already initialised")
	ErrBlockNotFound      = NotFoundError("block not found")
	ErrCancelled          = CancelledError("operation cancelled")
	ErrCorruptedRow       = CorruptedError("corrupted row")
	ErrEmptyStorageDir    = InvalidError("storage directory is required")
	ErrInvalidHash        = InvalidError("hash is invalid")
	ErrJsonParseFail      = ProcessError("parse to json failed")
	ErrNilBackend         = InvalidError("backend is required")
	ErrNilCodec           = InvalidError("codec is required")
	ErrNilNetwork         = InvalidError("network is required")
	ErrNotFoundConfigFile = NotFoundError("config file is not found")
	ErrNotInitialised     = ProcessError("not initialised")
	ErrStorage            = StorageError("storage engine error")
	ErrTransactionInUse   = ProcessError("transaction already in use")
	ErrUnmarshalTextFail  = ProcessError("unmarshal text failed")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ExistsError) Error() string    { return string(e) }
func (e InvalidError) Error() string   { return string(e) }
func (e NotFoundError) Error() string  { return string(e) }
func (e ProcessError) Error() string   { return string(e) }
func (e StorageError) Error() string   { return string(e) }
func (e CorruptedError) Error() string { return string(e) }
func (e CancelledError) Error() string { return string(e) }

// determine the class of an error
func IsErrExists(e error) bool    { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool   { _, ok := e.(InvalidError); return ok }
func IsErrNotFound(e error) bool  { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool   { _, ok := e.(ProcessError); return ok }
func IsErrStorage(e error) bool   { _, ok := e.(StorageError); return ok }
func IsErrCorrupted(e error) bool { _, ok := e.(CorruptedError); return ok }
func IsErrCancelled(e error) bool { _, ok := e.(CancelledError); return ok }

// WrapStorage classifies an arbitrary backend error as a StorageError,
// preserving its message, so callers can compare repository faults
// against a single error family regardless of backend.
func WrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return StorageError(err.Error())
}

// WrapCorrupted classifies a deserialisation error as CorruptedError.
func WrapCorrupted(err error) error {
	if err == nil {
		return nil
	}
	return CorruptedError(err.Error())
}
