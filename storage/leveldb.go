// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/hex"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/logger"
)

// LevelBackend is the production Backend, built directly on
// goleveldb. A single physical database holds every table; tables are
// namespaced by a one-byte prefix (see tablePrefixes) the way the
// teacher's PoolHandle namespaces its pools.
//
// Cross-table atomicity (spec I5) comes for free: goleveldb's
// leveldb.Transaction spans the whole database, so a write transaction
// that mutates both the block table and the tx_index table commits or
// discards as one unit regardless of the prefix split.
type LevelBackend struct {
	db  *leveldb.DB
	log *logger.L

	// one mutex per table implements Txn.Synchronize's lock
	// acquisition (spec §5/§6); grounded on the teacher's
	// AccessData.inUse-guarded sync.Mutex.
	locksMu sync.Mutex
	locks   map[Table]*sync.Mutex

	// rowCache is an optional read-through cache for full-value reads
	// done through a read-only Txn, grounded on the teacher's
	// AccessData.cache field. It is never consulted or populated from
	// inside a write Txn, since a leveldb.Transaction's own Get sees its
	// own uncommitted writes and caching that value in a structure
	// shared across transactions would leak uncommitted state to other
	// readers; a write Txn instead invalidates the keys it touched once
	// it commits.
	//
	// The cache is shared by every open read Txn regardless of when its
	// snapshot was taken, so it is scoped by commitSeq: a monotonic
	// counter bumped once per successful write commit. A read Txn
	// records the counter's value at Begin time (beginSeq) and is only
	// allowed to read or populate the cache while commitSeq still
	// equals beginSeq, i.e. while no writer has committed anything
	// since this reader's snapshot was taken. This rejects both
	// directions of the cross-snapshot hazard: a reader whose snapshot
	// predates a commit never sees a newer cache entry a fresher
	// reader populated, and that same stale reader never pollutes the
	// cache with a value a fresher reader would wrongly inherit.
	// cacheMu serialises commitSeq and rowCache together so a Commit's
	// invalidate-then-bump step can never interleave with a concurrent
	// Select's check-then-read/populate step.
	cacheMu   sync.Mutex
	commitSeq uint64
	rowCache  *gocache.Cache
}

// EnableRowCache turns on the optional read-through row cache with the
// given per-entry ttl and cleanup sweep interval. Calling it again
// replaces the cache with a new, empty one; the most recent call wins.
func (b *LevelBackend) EnableRowCache(ttl, cleanupInterval time.Duration) {
	b.rowCache = gocache.New(ttl, cleanupInterval)
}

func cacheKey(table Table, key []byte) string {
	return string(table) + ":" + hex.EncodeToString(key)
}

// OpenLevelBackend opens (creating if necessary) a LevelDB database at
// path and wraps it as a Backend.
func OpenLevelBackend(path string) (*LevelBackend, error) {
	if "" == path {
		return nil, ErrEmptyPath
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	b := &LevelBackend{
		db:    db,
		log:   logger.New("storage"),
		locks: make(map[Table]*sync.Mutex),
	}
	for t := range tablePrefixes {
		b.locks[t] = &sync.Mutex{}
	}
	return b, nil
}

func (b *LevelBackend) lockFor(t Table) *sync.Mutex {
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
func (b *LevelBackend) Begin(writable bool) (Txn, error) {
	if writable {
		ltx, err := b.db.OpenTransaction()
		if err != nil {
			return nil, err
		}
		return &levelWriteTxn{backend: b, ltx: ltx, lazy: true, synced: make(map[Table]bool)}, nil
	}
	snap, err := b.db.GetSnapshot()
	if err != nil {
		return nil, err
	}
	b.cacheMu.Lock()
	beginSeq := b.commitSeq
	b.cacheMu.Unlock()
	return &levelReadTxn{backend: b, snap: snap, lazy: true, beginSeq: beginSeq}, nil
}

// Close implements Backend.
func (b *LevelBackend) Close() error {
	if nil != b.log {
		b.log.Flush()
	}
	return b.db.Close()
}

// levelRow is the Row implementation shared by both txn kinds.
type levelRow struct {
	exists bool
	value  []byte
}

func (r *levelRow) Exists() bool  { return r.exists }
func (r *levelRow) Value() []byte { return r.value }

// levelCursor wraps a goleveldb iterator, stripping the table prefix.
type levelCursor struct {
	iter interface {
		Next() bool
		Key() []byte
		Value() []byte
		Error() error
		Release()
	}
}

func (c *levelCursor) Next() bool {
	return c.iter.Next()
}

func (c *levelCursor) Key() []byte {
	k := c.iter.Key()
	if len(k) == 0 {
		return nil
	}
	out := make([]byte, len(k)-1)
	copy(out, k[1:])
	return out
}

func (c *levelCursor) Value() []byte {
	v := c.iter.Value()
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (c *levelCursor) Error() error {
	return c.iter.Error()
}

func (c *levelCursor) Close() error {
	c.iter.Release()
	return nil
}

func tableRange(t Table) (*ldb_util.Range, error) {
	p, ok := prefixFor(t)
	if !ok {
		return nil, ErrUnknownTable(t)
	}
	limit := []byte(nil)
	if p < 255 {
		limit = []byte{p + 1}
	}
	return &ldb_util.Range{Start: []byte{p}, Limit: limit}, nil
}

// ---- write transaction -----------------------------------------------

type levelWriteTxn struct {
	backend    *LevelBackend
	ltx        *leveldb.Transaction
	lazy       bool
	synced     map[Table]bool
	done       bool
	invalidate []string
}

func (t *levelWriteTxn) Synchronize(tables ...Table) error {
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

func (t *levelWriteTxn) SetLazyValues(lazy bool) { t.lazy = lazy }

func (t *levelWriteTxn) Select(table Table, key []byte) (Row, error) {
	pk, err := prefixKey(table, key)
	if err != nil {
		return nil, err
	}
	if t.lazy {
		ok, err := t.ltx.Has(pk, nil)
		if err != nil {
			return nil, err
		}
		return &levelRow{exists: ok}, nil
	}
	v, err := t.ltx.Get(pk, nil)
	if err == leveldb.ErrNotFound {
		return &levelRow{exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return &levelRow{exists: true, value: out}, nil
}

func (t *levelWriteTxn) Insert(table Table, key []byte, value []byte) error {
	pk, err := prefixKey(table, key)
	if err != nil {
		return err
	}
	if t.backend.rowCache != nil {
		t.invalidate = append(t.invalidate, cacheKey(table, key))
	}
	return t.ltx.Put(pk, value, nil)
}

func (t *levelWriteTxn) RemoveKey(table Table, key []byte) error {
	pk, err := prefixKey(table, key)
	if err != nil {
		return err
	}
	if t.backend.rowCache != nil {
		t.invalidate = append(t.invalidate, cacheKey(table, key))
	}
	err = t.ltx.Delete(pk, nil)
	if err == leveldb.ErrNotFound {
		return nil
	}
	return err
}

func (t *levelWriteTxn) RemoveAll(table Table, recreate bool) error {
	r, err := tableRange(table)
	if err != nil {
		return err
	}
	iter := t.ltx.NewIterator(r, nil)
	defer iter.Release()
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		if t.backend.rowCache != nil {
			t.invalidate = append(t.invalidate, cacheKey(table, key[1:]))
		}
		if err := t.ltx.Delete(key, nil); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (t *levelWriteTxn) Count(table Table) (int, error) {
	r, err := tableRange(table)
	if err != nil {
		return 0, err
	}
	iter := t.ltx.NewIterator(r, nil)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}

func (t *levelWriteTxn) SelectForward(table Table) (Cursor, error) {
	r, err := tableRange(table)
	if err != nil {
		return nil, err
	}
	return &levelCursor{iter: t.ltx.NewIterator(r, nil)}, nil
}

func (t *levelWriteTxn) unlockAll() {
	for tb := range t.synced {
		t.backend.lockFor(tb).Unlock()
	}
	t.synced = nil
}

func (t *levelWriteTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.unlockAll()
	if err := t.ltx.Commit(); err != nil {
		return err
	}
	if t.backend.rowCache != nil {
		t.backend.cacheMu.Lock()
		for _, k := range t.invalidate {
			t.backend.rowCache.Delete(k)
		}
		t.backend.commitSeq++
		t.backend.cacheMu.Unlock()
	}
	return nil
}

func (t *levelWriteTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.unlockAll()
	t.ltx.Discard()
	return nil
}

// ---- read-only transaction --------------------------------------------

type levelReadTxn struct {
	backend  *LevelBackend
	snap     *leveldb.Snapshot
	lazy     bool
	done     bool
	beginSeq uint64
}

func (t *levelReadTxn) Synchronize(tables ...Table) error {
	// read-only transactions never mutate; nothing to lock.
	for _, tb := range tables {
		if _, ok := prefixFor(tb); !ok {
			return ErrUnknownTable(tb)
		}
	}
	return nil
}

func (t *levelReadTxn) SetLazyValues(lazy bool) { t.lazy = lazy }

func (t *levelReadTxn) Select(table Table, key []byte) (Row, error) {
	pk, err := prefixKey(table, key)
	if err != nil {
		return nil, err
	}
	if t.lazy {
		ok, err := t.snap.Has(pk, nil)
		if err != nil {
			return nil, err
		}
		return &levelRow{exists: ok}, nil
	}

	if t.backend.rowCache != nil {
		ck := cacheKey(table, key)

		t.backend.cacheMu.Lock()
		current := t.backend.commitSeq
		var cached interface{}
		var hit bool
		if current == t.beginSeq {
			cached, hit = t.backend.rowCache.Get(ck)
		}
		t.backend.cacheMu.Unlock()

		if hit {
			if cached == nil {
				return &levelRow{exists: false}, nil
			}
			return &levelRow{exists: true, value: cached.([]byte)}, nil
		}

		v, err := t.snap.Get(pk, nil)
		if err == leveldb.ErrNotFound {
			t.backend.cacheMu.Lock()
			if t.backend.commitSeq == t.beginSeq {
				t.backend.rowCache.SetDefault(ck, nil)
			}
			t.backend.cacheMu.Unlock()
			return &levelRow{exists: false}, nil
		}
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(v))
		copy(out, v)
		t.backend.cacheMu.Lock()
		if t.backend.commitSeq == t.beginSeq {
			t.backend.rowCache.SetDefault(ck, out)
		}
		t.backend.cacheMu.Unlock()
		return &levelRow{exists: true, value: out}, nil
	}

	v, err := t.snap.Get(pk, nil)
	if err == leveldb.ErrNotFound {
		return &levelRow{exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return &levelRow{exists: true, value: out}, nil
}

func (t *levelReadTxn) Insert(Table, []byte, []byte) error {
	return ErrReadOnly
}

func (t *levelReadTxn) RemoveKey(Table, []byte) error {
	return ErrReadOnly
}

func (t *levelReadTxn) RemoveAll(Table, bool) error {
	return ErrReadOnly
}

func (t *levelReadTxn) Count(table Table) (int, error) {
	r, err := tableRange(table)
	if err != nil {
		return 0, err
	}
	iter := t.snap.NewIterator(r, nil)
	defer iter.Release()
	n := 0
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}

func (t *levelReadTxn) SelectForward(table Table) (Cursor, error) {
	r, err := tableRange(table)
	if err != nil {
		return nil, err
	}
	return &levelCursor{iter: t.snap.NewIterator(r, nil)}, nil
}

func (t *levelReadTxn) Commit() error {
	return t.Rollback()
}

func (t *levelReadTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.snap.Release()
	return nil
}

// ErrReadOnly is returned by mutating calls on a read-only Txn.
var ErrReadOnly = readOnlyError{}

type readOnlyError struct{}

func (readOnlyError) Error() string { return "storage: transaction is read-only" }

// ErrEmptyPath is returned by OpenLevelBackend when given an empty path.
var ErrEmptyPath = emptyPathError{}

type emptyPathError struct{}

func (emptyPathError) Error() string { return "storage: empty storage path" }
