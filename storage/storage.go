// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// storage abstracts the embedded ordered transactional key-value
// engine the Block Repository is built on (spec §6).
//
// The on-disk format is split into named tables in the same way the
// teacher's pool-of-prefixes scheme splits a single LevelDB file into
// pools (see pool_test.go in the source): each table maps to a short,
// fixed byte prefix so several logical tables can share one physical
// key space while a single KV transaction still spans all of them
// atomically (spec I5).
package storage

// Table is the name of one of the repository's logical tables.
// Values are bit-exact with the source on-disk format (spec §4.2).
type Table string

const (
	TableBlock       Table = "Block"
	TableTransaction Table = "Transaction"
	TableCommon      Table = "Common"
)

// tablePrefixes maps a logical table name to the single byte used to
// namespace its keys inside the physical key-value space. Unexported:
// callers address tables by name only, never by prefix.
var tablePrefixes = map[Table]byte{
	TableBlock:       'B',
	TableTransaction: 'T',
	TableCommon:      'C',
}

func prefixFor(t Table) (byte, bool) {
	p, ok := tablePrefixes[t]
	return p, ok
}

func prefixKey(t Table, key []byte) ([]byte, error) {
	p, ok := prefixFor(t)
	if !ok {
		return nil, ErrUnknownTable(t)
	}
	out := make([]byte, 1+len(key))
	out[0] = p
	copy(out[1:], key)
	return out, nil
}

// ErrUnknownTable reports a Table value the backend does not recognise.
type ErrUnknownTable Table

func (e ErrUnknownTable) Error() string {
	return "storage: unknown table: " + string(e)
}

// Row is the result of a point lookup.
type Row interface {
	// Exists reports whether the key was present.
	Exists() bool
	// Value returns the stored value. It is empty when lazy values was
	// enabled on the transaction, or when Exists is false.
	Value() []byte
}

// Cursor is a forward scan over a table, in ascending key order.
type Cursor interface {
	// Next advances the cursor and reports whether a row is available.
	Next() bool
	// Key returns the current row's key (without the table prefix).
	Key() []byte
	// Value returns the current row's value.
	Value() []byte
	// Error returns any error encountered during iteration.
	Error() error
	// Close releases resources held by the cursor. Safe to call
	// multiple times.
	Close() error
}

// Txn is a single KV transaction: either fully committed or fully
// rolled back (spec I5). A Txn is not safe for concurrent use.
type Txn interface {
	// Synchronize declares the tables this transaction will touch,
	// acquiring the locks that enforce the single-writer discipline
	// of spec §5. Must be called before any mutating operation on
	// the declared tables. Safe to call multiple times; idempotent
	// for tables already synchronized.
	Synchronize(tables ...Table) error

	// SetLazyValues toggles what Select fetches: with lazy true (the
	// default) only key existence, with lazy false the complete value.
	// Mirrors spec §6's lazy_values toggle.
	SetLazyValues(lazy bool)

	// Select performs a point lookup.
	Select(table Table, key []byte) (Row, error)
	// Insert writes or overwrites a key/value pair.
	Insert(table Table, key []byte, value []byte) error
	// RemoveKey deletes a single key. Missing keys are not an error.
	RemoveKey(table Table, key []byte) error
	// RemoveAll deletes every key in table. If recreate is true the
	// table remains usable for further writes in this same
	// transaction (it always does for this backend; recreate exists
	// to mirror the KV-engine contract of spec §6 where some backends
	// require explicit table recreation).
	RemoveAll(table Table, recreate bool) error
	// Count returns the number of keys currently in table.
	Count(table Table) (int, error)
	// SelectForward returns a forward cursor over table.
	SelectForward(table Table) (Cursor, error)

	// Commit makes all writes issued on this transaction durable and
	// releases its locks. After Commit the Txn must not be used.
	Commit() error
	// Rollback discards all writes issued on this transaction and
	// releases its locks. After Rollback the Txn must not be used.
	Rollback() error
}

// Backend is the minimal trait any ordered transactional KV engine
// must satisfy to back the Block Repository (spec §6, design note §9).
type Backend interface {
	// Begin opens a new transaction. writable transactions see their
	// own uncommitted writes; read-only transactions see a consistent
	// snapshot taken at Begin time and reject mutating calls.
	Begin(writable bool) (Txn, error)
	// Close releases the backend's resources. Must be the last call;
	// behaviour of further calls is undefined (spec §5, Lifetime).
	Close() error
}
