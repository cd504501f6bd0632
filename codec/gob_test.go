// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/blockrepo/codec"
	"github.com/bitmark-inc/blockrepo/digest"
)

func TestGobCodecBlockRoundTrip(t *testing.T) {
	c := codec.NewGobCodec()
	b := &codec.Block{
		PrevHash: digest.New([]byte("prev")),
		Transactions: []*codec.Transaction{
			{Payload: []byte("tx-a")},
			{Payload: []byte("tx-b")},
		},
	}

	encoded, err := c.EncodeBlock(b)
	require.NoError(t, err)

	decoded, err := c.DecodeBlock(encoded)
	require.NoError(t, err)
	assert.Equal(t, b.PrevHash, decoded.PrevHash)
	require.Len(t, decoded.Transactions, 2)
	assert.Equal(t, b.Transactions[0].Payload, decoded.Transactions[0].Payload)
	assert.Equal(t, b.Hash(), decoded.Hash())
}

func TestGobCodecTipRoundTrip(t *testing.T) {
	c := codec.NewGobCodec()
	tip := codec.Tip{Hash: digest.New([]byte("tip")), Height: 42}

	encoded, err := c.EncodeTip(tip)
	require.NoError(t, err)

	decoded, err := c.DecodeTip(encoded)
	require.NoError(t, err)
	assert.Equal(t, tip, decoded)
}

func TestGobCodecDecodeBlockRejectsGarbage(t *testing.T) {
	c := codec.NewGobCodec()
	_, err := c.DecodeBlock([]byte("not gob data"))
	assert.Error(t, err)
}

func TestBlockHashChangesWithTransactions(t *testing.T) {
	b1 := &codec.Block{Transactions: []*codec.Transaction{{Payload: []byte("a")}}}
	b2 := &codec.Block{Transactions: []*codec.Transaction{{Payload: []byte("b")}}}
	assert.NotEqual(t, b1.Hash(), b2.Hash())
}
