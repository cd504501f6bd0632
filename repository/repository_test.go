// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
	"github.com/bitmark-inc/blockrepo/network"
	"github.com/bitmark-inc/blockrepo/repository"
	"github.com/bitmark-inc/blockrepo/storage"
)

func tx(payload string) *codec.Transaction {
	return &codec.Transaction{Payload: []byte(payload)}
}

func block(prev digest.Hash, txs ...*codec.Transaction) *codec.Block {
	return &codec.Block{PrevHash: prev, Transactions: txs}
}

func newTestNetwork() network.Network {
	genesis := block(digest.Zero, tx("genesis-tx-a"), tx("genesis-tx-b"))
	return network.NewStatic(genesis)
}

func newTestRepository(t *testing.T) (*repository.Repository, network.Network) {
	net := newTestNetwork()
	r, err := repository.New(storage.NewMemBackend(), codec.NewGobCodec(), net)
	require.NoError(t, err)
	require.NoError(t, r.Initialize())
	t.Cleanup(func() { r.Dispose() })
	return r, net
}

// S1 — fresh repo: tip is (genesis, 0), tx-index is false, nothing is
// stored yet.
func TestS1_FreshRepository(t *testing.T) {
	r, net := newTestRepository(t)

	hash, height := r.TipHashAndHeight()
	assert.Equal(t, net.GenesisHash(), hash)
	assert.EqualValues(t, 0, height)
	assert.False(t, r.TxIndexEnabled())

	got, err := r.GetBlock(digest.New([]byte("nonexistent")))
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := r.Exist(net.GenesisHash())
	require.NoError(t, err)
	assert.False(t, exists, "Exist must not special-case genesis (design note §9 open question)")
}

// S2 — put two blocks with tx-indexing on; verify batch-order
// preservation and genesis-independent lookups.
func TestS2_PutBlocksAndLookup(t *testing.T) {
	r, _ := newTestRepository(t)
	require.NoError(t, r.SetTxIndex(true))

	b1 := block(digest.Zero, tx("t1a"), tx("t1b"))
	h1 := b1.Hash()
	b2 := block(h1, tx("t2a"))
	h2 := b2.Hash()

	require.NoError(t, r.PutBlocks(codec.Tip{Hash: h2, Height: 2}, []*codec.Block{b1, b2}))

	got, err := r.GetBlock(h1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b1.Transactions[0].Payload, got.Transactions[0].Payload)

	missing := digest.New([]byte("missing"))
	results, err := r.GetBlocks([]digest.Hash{h2, h1, missing})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, h2, results[0].Hash())
	assert.Equal(t, h1, results[1].Hash())
	assert.Nil(t, results[2])

	t1a := b1.Transactions[0]
	got1a, err := r.GetTransactionById(t1a.Hash())
	require.NoError(t, err)
	require.NotNil(t, got1a)
	assert.Equal(t, t1a.Payload, got1a.Payload)

	blockID, err := r.GetBlockIdByTransactionId(t1a.Hash())
	require.NoError(t, err)
	require.NotNil(t, blockID)
	assert.Equal(t, h1, *blockID)
}

// S3 — delete a block; confirm its rows and tx_index entries vanish
// while the other block's index entries survive.
func TestS3_Delete(t *testing.T) {
	r, _ := newTestRepository(t)
	require.NoError(t, r.SetTxIndex(true))

	b1 := block(digest.Zero, tx("t1a"))
	h1 := b1.Hash()
	b2 := block(h1, tx("t2a"))
	h2 := b2.Hash()
	require.NoError(t, r.PutBlocks(codec.Tip{Hash: h2, Height: 2}, []*codec.Block{b1, b2}))

	require.NoError(t, r.Delete(codec.Tip{Hash: h1, Height: 1}, []digest.Hash{h2}))

	exists, err := r.Exist(h2)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := r.GetTransactionById(b2.Transactions[0].Hash())
	require.NoError(t, err)
	assert.Nil(t, got)

	// unaffected
	got1, err := r.GetBlockIdByTransactionId(b1.Transactions[0].Hash())
	require.NoError(t, err)
	require.NotNil(t, got1)
	assert.Equal(t, h1, *got1)

	hash, height := r.TipHashAndHeight()
	assert.Equal(t, h1, hash)
	assert.EqualValues(t, 1, height)
}

// S4/S5 and invariant 7 — reindex synchronises tx_index with the
// flag, and is idempotent.
func TestS4S5_ReIndex(t *testing.T) {
	r, _ := newTestRepository(t)

	b1 := block(digest.Zero, tx("t1a"))
	h1 := b1.Hash()
	b2 := block(h1, tx("t2a"))
	h2 := b2.Hash()
	require.NoError(t, r.PutBlocks(codec.Tip{Hash: h2, Height: 2}, []*codec.Block{b1, b2}))

	// S4: enabling + reindexing makes every transaction resolvable
	require.NoError(t, r.SetTxIndex(true))
	require.NoError(t, r.ReIndex(nil))

	for _, want := range []*codec.Transaction{b1.Transactions[0], b2.Transactions[0]} {
		got, err := r.GetTransactionById(want.Hash())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.Payload, got.Payload)
	}

	// invariant 7: running reindex again produces the same result
	require.NoError(t, r.ReIndex(nil))
	got, err := r.GetTransactionById(b1.Transactions[0].Hash())
	require.NoError(t, err)
	require.NotNil(t, got)

	// S5: disabling + reindexing empties tx_index
	require.NoError(t, r.SetTxIndex(false))
	require.NoError(t, r.ReIndex(nil))
	got, err = r.GetTransactionById(b1.Transactions[0].Hash())
	require.NoError(t, err)
	assert.Nil(t, got)
}

// S6 — duplicate ids resolve from the already-resolved slice, and a
// missing id nils out the whole batch.
func TestS6_GetTransactionsByIdsAllOrNothing(t *testing.T) {
	r, _ := newTestRepository(t)
	require.NoError(t, r.SetTxIndex(true))

	b1 := block(digest.Zero, tx("t1a"))
	h1 := b1.Hash()
	require.NoError(t, r.PutBlocks(codec.Tip{Hash: h1, Height: 1}, []*codec.Block{b1}))

	t1a := b1.Transactions[0].Hash()
	missing := digest.New([]byte("missing"))

	results, err := r.GetTransactionsByIds(context.Background(), []digest.Hash{t1a, t1a, missing})
	require.NoError(t, err)
	assert.Nil(t, results)

	results, err = r.GetTransactionsByIds(context.Background(), []digest.Hash{t1a, t1a})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, results[0], results[1])
}

func TestGetTransactionsByIdsHonoursCancellation(t *testing.T) {
	r, _ := newTestRepository(t)
	require.NoError(t, r.SetTxIndex(true))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.GetTransactionsByIds(ctx, []digest.Hash{digest.New([]byte("x"))})
	assert.Error(t, err)
}

// Invariant 4 — tx-index gating applies even to genesis ids.
func TestTxIndexGatingAppliesToGenesis(t *testing.T) {
	r, net := newTestRepository(t)
	_ = net

	genesisTx := digest.New([]byte("genesis-tx-a"))
	got, err := r.GetTransactionById(genesisTx)
	require.NoError(t, err)
	assert.Nil(t, got)

	id, err := r.GetBlockIdByTransactionId(genesisTx)
	require.NoError(t, err)
	assert.Nil(t, id)
}

// Invariant 5 — genesis transactions resolve without any block ever
// having been inserted.
func TestGenesisTransactionsResolveWithoutAnyBlocks(t *testing.T) {
	r, net := newTestRepository(t)
	require.NoError(t, r.SetTxIndex(true))

	genesisBlock := net.GenesisBlock()
	for _, want := range genesisBlock.Transactions {
		got, err := r.GetTransactionById(want.Hash())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.Payload, got.Payload)

		id, err := r.GetBlockIdByTransactionId(want.Hash())
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, net.GenesisHash(), *id)
	}
}

// GetTransactionsByIds resolves genesis and indexed ids together out
// of the one read transaction it opens for the whole batch.
func TestGetTransactionsByIdsMixesGenesisAndIndexedIds(t *testing.T) {
	r, net := newTestRepository(t)
	require.NoError(t, r.SetTxIndex(true))

	b1 := block(digest.Zero, tx("t1a"))
	h1 := b1.Hash()
	require.NoError(t, r.PutBlocks(codec.Tip{Hash: h1, Height: 1}, []*codec.Block{b1}))

	genesisTx := net.GenesisBlock().Transactions[0].Hash()
	indexedTx := b1.Transactions[0].Hash()

	results, err := r.GetTransactionsByIds(context.Background(), []digest.Hash{genesisTx, indexedTx, genesisTx})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, net.GenesisBlock().Transactions[0].Payload, results[0].Payload)
	assert.Equal(t, b1.Transactions[0].Payload, results[1].Payload)
	assert.Equal(t, results[0], results[2])
}

// Invariant 3 — PutBlocks(tip, [b, b]) == PutBlocks(tip, [b]).
func TestDeduplicationWithinBatch(t *testing.T) {
	r, _ := newTestRepository(t)
	b1 := block(digest.Zero, tx("t1a"))
	h1 := b1.Hash()

	require.NoError(t, r.PutBlocks(codec.Tip{Hash: h1, Height: 1}, []*codec.Block{b1, b1}))

	exists, err := r.Exist(h1)
	require.NoError(t, err)
	assert.True(t, exists)
}

// Invariant 8 — an aborted write leaves prior state untouched. The
// abort is forced by an OnInsertBlocks hook that fails inside
// PutBlocks' transaction; afterwards neither the block row nor the
// cached tip or tx-index flag reflects the failed call.
func TestFailedOperationLeavesCachedStateUnchanged(t *testing.T) {
	net := newTestNetwork()
	hookErr := errors.New("hook failed")
	r, err := repository.New(storage.NewMemBackend(), codec.NewGobCodec(), net,
		repository.WithHooks(repository.Hooks{
			OnInsertBlocks: func(storage.Txn, []*codec.Block) error { return hookErr },
		}))
	require.NoError(t, err)
	require.NoError(t, r.Initialize())
	t.Cleanup(func() { r.Dispose() })

	before := r.TxIndexEnabled()
	assert.False(t, before)

	b1 := block(digest.Zero, tx("t1a"))
	h1 := b1.Hash()
	assert.Equal(t, hookErr, r.PutBlocks(codec.Tip{Hash: h1, Height: 1}, []*codec.Block{b1}))

	hash, height := r.TipHashAndHeight()
	assert.Equal(t, net.GenesisHash(), hash)
	assert.EqualValues(t, 0, height)
	assert.Equal(t, before, r.TxIndexEnabled())

	exists, err := r.Exist(h1)
	require.NoError(t, err)
	assert.False(t, exists)
}
