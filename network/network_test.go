// Copyright (c) 2014-2016 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package network_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
	"github.com/bitmark-inc/blockrepo/network"
)

func genesisBlock() *codec.Block {
	return &codec.Block{
		Transactions: []*codec.Transaction{
			{Payload: []byte("genesis-a")},
			{Payload: []byte("genesis-b")},
		},
	}
}

func TestStaticGenesisHashMatchesBlock(t *testing.T) {
	b := genesisBlock()
	s := network.NewStatic(b)
	assert.Equal(t, b.Hash(), s.GenesisHash())
	assert.True(t, b == s.GenesisBlock())
}

func TestGenesisIndexIndexesAllTransactions(t *testing.T) {
	b := genesisBlock()
	idx := network.NewGenesisIndex(network.NewStatic(b))

	for _, want := range b.Transactions {
		assert.True(t, idx.IsGenesisTransaction(want.Hash()))
		got := idx.Transaction(want.Hash())
		assert.Equal(t, want.Payload, got.Payload)
	}
	assert.False(t, idx.IsGenesisTransaction(digest.New([]byte("not-genesis"))))
}

func TestGenesisIndexIsGenesisBlock(t *testing.T) {
	b := genesisBlock()
	idx := network.NewGenesisIndex(network.NewStatic(b))

	assert.True(t, idx.IsGenesisBlock(b.Hash()))
	assert.False(t, idx.IsGenesisBlock(digest.New([]byte("other-block"))))
	assert.True(t, b == idx.GenesisBlockValue())
}
