// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"sort"
	"sync"
)

// MemBackend is an in-memory Backend, used by the repository's test
// suite and by any caller that wants a disposable chain (per design
// note §9: "Abstract the six operations... so the core is testable
// against an in-memory mock"). It implements the exact same
// table/transaction/lazy-values/lock semantics as LevelBackend.
type MemBackend struct {
	mu     sync.RWMutex
	tables map[Table]map[string][]byte

	locksMu sync.Mutex
	locks   map[Table]*sync.Mutex
}

// NewMemBackend constructs an empty in-memory Backend.
func NewMemBackend() *MemBackend {
	b := &MemBackend{
		tables: make(map[Table]map[string][]byte),
		locks:  make(map[Table]*sync.Mutex),
	}
	for t := range tablePrefixes {
		b.tables[t] = make(map[string][]byte)
		b.locks[t] = &sync.Mutex{}
	}
	return b
}

func (b *MemBackend) lockFor(t Table) *sync.Mutex {
	b.locksMu.Lock()
	defer b.locksMu.Unlock()
	m, ok := b.locks[t]
	if !ok {
		m = &sync.Mutex{}
		b.locks[t] = m
	}
	return m
}

// Begin implements Backend.
func (b *MemBackend) Begin(writable bool) (Txn, error) {
	b.mu.RLock()
	snapshot := make(map[Table]map[string][]byte, len(b.tables))
	for t, rows := range b.tables {
		copyRows := make(map[string][]byte, len(rows))
		for k, v := range rows {
			copyRows[k] = v
		}
		snapshot[t] = copyRows
	}
	b.mu.RUnlock()

	if writable {
		return &memWriteTxn{backend: b, snapshot: snapshot, writes: make(map[Table]map[string][]byte), deletes: make(map[Table]map[string]bool), synced: make(map[Table]bool), lazy: true}, nil
	}
	return &memReadTxn{snapshot: snapshot, lazy: true}, nil
}

// Close implements Backend.
func (b *MemBackend) Close() error { return nil }

type memRow struct {
	exists bool
	value  []byte
}

func (r *memRow) Exists() bool  { return r.exists }
func (r *memRow) Value() []byte { return r.value }

type memCursor struct {
	keys []string
	vals map[string][]byte
	pos  int
}

func (c *memCursor) Next() bool {
	c.pos++
	return c.pos < len(c.keys)
}

func (c *memCursor) Key() []byte {
	return []byte(c.keys[c.pos])
}

func (c *memCursor) Value() []byte {
	v := c.vals[c.keys[c.pos]]
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (c *memCursor) Error() error { return nil }
func (c *memCursor) Close() error { return nil }

func newMemCursor(rows map[string][]byte) *memCursor {
	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memCursor{keys: keys, vals: rows, pos: -1}
}

// ---- write transaction -----------------------------------------------

type memWriteTxn struct {
	backend  *MemBackend
	snapshot map[Table]map[string][]byte
	writes   map[Table]map[string][]byte
	deletes  map[Table]map[string]bool
	lazy     bool
	synced   map[Table]bool
	done     bool
}

func (t *memWriteTxn) Synchronize(tables ...Table) error {
	for _, tb := range tables {
		if _, ok := prefixFor(tb); !ok {
			return ErrUnknownTable(tb)
		}
		if t.synced[tb] {
			continue
		}
		t.backend.lockFor(tb).Lock()
		t.synced[tb] = true
	}
	return nil
}

func (t *memWriteTxn) SetLazyValues(lazy bool) { t.lazy = lazy }

func (t *memWriteTxn) view(table Table) map[string][]byte {
	out := make(map[string][]byte)
	for k, v := range t.snapshot[table] {
		out[k] = v
	}
	for k, v := range t.writes[table] {
		out[k] = v
	}
	for k := range t.deletes[table] {
		delete(out, k)
	}
	return out
}

func (t *memWriteTxn) Select(table Table, key []byte) (Row, error) {
	if _, ok := prefixFor(table); !ok {
		return nil, ErrUnknownTable(table)
	}
	sk := string(key)
	if t.deletes[table] != nil && t.deletes[table][sk] {
		return &memRow{exists: false}, nil
	}
	if v, ok := t.writes[table][sk]; ok {
		if t.lazy {
			return &memRow{exists: true}, nil
		}
		return &memRow{exists: true, value: v}, nil
	}
	if v, ok := t.snapshot[table][sk]; ok {
		if t.lazy {
			return &memRow{exists: true}, nil
		}
		return &memRow{exists: true, value: v}, nil
	}
	return &memRow{exists: false}, nil
}

func (t *memWriteTxn) Insert(table Table, key []byte, value []byte) error {
	if _, ok := prefixFor(table); !ok {
		return ErrUnknownTable(table)
	}
	if t.writes[table] == nil {
		t.writes[table] = make(map[string][]byte)
	}
	out := make([]byte, len(value))
	copy(out, value)
	t.writes[table][string(key)] = out
	if t.deletes[table] != nil {
		delete(t.deletes[table], string(key))
	}
	return nil
}

func (t *memWriteTxn) RemoveKey(table Table, key []byte) error {
	if _, ok := prefixFor(table); !ok {
		return ErrUnknownTable(table)
	}
	if t.deletes[table] == nil {
		t.deletes[table] = make(map[string]bool)
	}
	t.deletes[table][string(key)] = true
	if t.writes[table] != nil {
		delete(t.writes[table], string(key))
	}
	return nil
}

func (t *memWriteTxn) RemoveAll(table Table, recreate bool) error {
	if _, ok := prefixFor(table); !ok {
		return ErrUnknownTable(table)
	}
	t.writes[table] = make(map[string][]byte)
	all := t.deletes[table]
	if all == nil {
		all = make(map[string]bool)
	}
	for k := range t.snapshot[table] {
		all[k] = true
	}
	t.deletes[table] = all
	return nil
}

func (t *memWriteTxn) Count(table Table) (int, error) {
	if _, ok := prefixFor(table); !ok {
		return 0, ErrUnknownTable(table)
	}
	return len(t.view(table)), nil
}

func (t *memWriteTxn) SelectForward(table Table) (Cursor, error) {
	if _, ok := prefixFor(table); !ok {
		return nil, ErrUnknownTable(table)
	}
	return newMemCursor(t.view(table)), nil
}

func (t *memWriteTxn) unlockAll() {
	for tb := range t.synced {
		t.backend.lockFor(tb).Unlock()
	}
	t.synced = nil
}

func (t *memWriteTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.unlockAll()

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	for table, rows := range t.writes {
		dst := t.backend.tables[table]
		if dst == nil {
			dst = make(map[string][]byte)
			t.backend.tables[table] = dst
		}
		for k, v := range rows {
			dst[k] = v
		}
	}
	for table, keys := range t.deletes {
		dst := t.backend.tables[table]
		if dst == nil {
			continue
		}
		for k := range keys {
			delete(dst, k)
		}
	}
	return nil
}

func (t *memWriteTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.unlockAll()
	return nil
}

// ---- read-only transaction --------------------------------------------

type memReadTxn struct {
	snapshot map[Table]map[string][]byte
	lazy     bool
	done     bool
}

func (t *memReadTxn) Synchronize(tables ...Table) error {
	for _, tb := range tables {
		if _, ok := prefixFor(tb); !ok {
			return ErrUnknownTable(tb)
		}
	}
	return nil
}

func (t *memReadTxn) SetLazyValues(lazy bool) { t.lazy = lazy }

func (t *memReadTxn) Select(table Table, key []byte) (Row, error) {
	if _, ok := prefixFor(table); !ok {
		return nil, ErrUnknownTable(table)
	}
	v, ok := t.snapshot[table][string(key)]
	if !ok {
		return &memRow{exists: false}, nil
	}
	if t.lazy {
		return &memRow{exists: true}, nil
	}
	return &memRow{exists: true, value: v}, nil
}

func (t *memReadTxn) Insert(Table, []byte, []byte) error  { return ErrReadOnly }
func (t *memReadTxn) RemoveKey(Table, []byte) error       { return ErrReadOnly }
func (t *memReadTxn) RemoveAll(Table, bool) error         { return ErrReadOnly }

func (t *memReadTxn) Count(table Table) (int, error) {
	if _, ok := prefixFor(table); !ok {
		return 0, ErrUnknownTable(table)
	}
	return len(t.snapshot[table]), nil
}

func (t *memReadTxn) SelectForward(table Table) (Cursor, error) {
	if _, ok := prefixFor(table); !ok {
		return nil, ErrUnknownTable(table)
	}
	return newMemCursor(t.snapshot[table]), nil
}

func (t *memReadTxn) Commit() error { return t.Rollback() }

func (t *memReadTxn) Rollback() error {
	t.done = true
	return nil
}
