// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// network supplies the genesis definition the Block Repository
// consults before touching the KV store (spec I4), grounded on the
// teacher's genesis package: a network identifies its genesis block
// and digest, and the repository never persists either.
package network

import (
	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
)

// Network is the external collaborator supplying the genesis
// definition for a chain.
type Network interface {
	// GenesisHash is the canonical digest of GenesisBlock.
	GenesisHash() digest.Hash
	// GenesisBlock is never persisted; Repository reads serve it
	// straight from this value.
	GenesisBlock() *codec.Block
}

// Static is a Network built from a fixed genesis block, suitable for
// both production networks (wired with a real genesis block) and
// tests.
type Static struct {
	hash  digest.Hash
	block *codec.Block
}

// NewStatic builds a Network from a genesis block, computing its hash
// once at construction.
func NewStatic(block *codec.Block) *Static {
	return &Static{hash: block.Hash(), block: block}
}

func (n *Static) GenesisHash() digest.Hash   { return n.hash }
func (n *Static) GenesisBlock() *codec.Block { return n.block }

// GenesisIndex is the immutable, in-memory lookup built once from a
// Network's genesis block (spec I4). It is safe to share across
// threads because it is never mutated after construction (spec §5,
// Shared resources).
type GenesisIndex struct {
	genesisHash digest.Hash
	block       *codec.Block
	txs         map[digest.Hash]*codec.Transaction
}

// NewGenesisIndex builds the genesis lookup from net.
func NewGenesisIndex(net Network) *GenesisIndex {
	block := net.GenesisBlock()
	idx := &GenesisIndex{
		genesisHash: net.GenesisHash(),
		block:       block,
		txs:         make(map[digest.Hash]*codec.Transaction, len(block.Transactions)),
	}
	for _, tx := range block.Transactions {
		idx.txs[tx.Hash()] = tx
	}
	return idx
}

// GenesisHash returns the canonical digest of the genesis block.
func (g *GenesisIndex) GenesisHash() digest.Hash {
	return g.genesisHash
}

// GenesisBlockValue returns the in-memory genesis block. It is never
// persisted to the KV store (spec I4).
func (g *GenesisIndex) GenesisBlockValue() *codec.Block {
	return g.block
}

// IsGenesisBlock reports whether hash identifies the genesis block.
func (g *GenesisIndex) IsGenesisBlock(hash digest.Hash) bool {
	return hash == g.genesisHash
}

// Transaction returns the genesis transaction with hash txHash, or
// nil if txHash does not name one.
func (g *GenesisIndex) Transaction(txHash digest.Hash) *codec.Transaction {
	return g.txs[txHash]
}

// IsGenesisTransaction reports whether txHash names a genesis
// transaction.
func (g *GenesisIndex) IsGenesisTransaction(txHash digest.Hash) bool {
	_, ok := g.txs[txHash]
	return ok
}
