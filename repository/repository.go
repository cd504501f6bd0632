// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// repository implements the Block Repository: the durable,
// transactional storage layer for a blockchain full node (spec §1).
// It persists raw block payloads keyed by block hash, optionally
// maintains a transaction-hash -> block-hash secondary index, and
// tracks the repository's tip as an atomic unit of progress.
package repository

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
	"github.com/bitmark-inc/blockrepo/fault"
	"github.com/bitmark-inc/blockrepo/metrics"
	"github.com/bitmark-inc/blockrepo/network"
	"github.com/bitmark-inc/blockrepo/storage"
)

// metaTipKey is the fixed zero-length key the tip is stored under in
// the Common table (spec §4.2).
var metaTipKey = []byte{}

// metaTxIndexKey is the fixed single-byte key the tx-index flag is
// stored under in the Common table (spec §4.2).
var metaTxIndexKey = []byte{0x00}

// Hooks lets a derived store extend PutBlocks/Delete transactionally
// without subclassing Repository (design note §9, replacing the
// source's virtual On* methods). Any non-nil hook runs inside the
// same KV transaction as the triggering mutation; a returned error
// aborts that transaction.
type Hooks struct {
	OnInsertBlocks       func(txn storage.Txn, blocks []*codec.Block) error
	OnInsertTransactions func(txn storage.Txn, blockHash digest.Hash, txs []*codec.Transaction) error
	OnDeleteBlocks       func(txn storage.Txn, blocks []*codec.Block) error
	OnDeleteTransactions func(txn storage.Txn, blockHash digest.Hash, txs []*codec.Transaction) error
}

// Repository is the public Block Repository. Create one per process
// with New, call Initialize before any other method, and Dispose it
// last (spec §5, Lifetime).
type Repository struct {
	backend storage.Backend
	codec   codec.Codec
	genesis *network.GenesisIndex
	log     *logger.L
	metrics *metrics.Metrics
	hooks   Hooks

	mu          sync.RWMutex
	initialised bool
	tipHash     digest.Hash
	tipHeight   uint64
	txIndex     bool
}

// Option configures a Repository at construction time.
type Option func(*Repository)

// WithLogger overrides the default logger channel ("repository").
func WithLogger(log *logger.L) Option {
	return func(r *Repository) { r.log = log }
}

// WithMetrics wires Prometheus instrumentation into the repository.
// Pass nil (the default) to disable metrics entirely.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// WithHooks wires capability hooks into the repository (design note
// §9).
func WithHooks(h Hooks) Option {
	return func(r *Repository) { r.hooks = h }
}

// New constructs an uninitialized Repository. Call Initialize before
// any other method.
func New(backend storage.Backend, c codec.Codec, net network.Network, opts ...Option) (*Repository, error) {
	if backend == nil {
		return nil, fault.ErrNilBackend
	}
	if c == nil {
		return nil, fault.ErrNilCodec
	}
	if net == nil {
		return nil, fault.ErrNilNetwork
	}
	r := &Repository{
		backend: backend,
		codec:   c,
		genesis: network.NewGenesisIndex(net),
		log:     logger.New("repository"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dispose releases the backend handle. Must be the last call on r;
// behaviour of further calls is undefined (spec §5, Lifetime).
func (r *Repository) Dispose() error {
	if nil != r.log {
		r.log.Flush()
	}
	return r.backend.Close()
}

// TipHashAndHeight returns the cached in-memory tip (spec §6).
func (r *Repository) TipHashAndHeight() (digest.Hash, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tipHash, r.tipHeight
}

// TxIndexEnabled returns the cached in-memory tx-index flag (spec §6).
func (r *Repository) TxIndexEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.txIndex
}

func (r *Repository) requireInitialised() error {
	r.mu.RLock()
	ok := r.initialised
	r.mu.RUnlock()
	if !ok {
		return fault.ErrNotInitialised
	}
	return nil
}
