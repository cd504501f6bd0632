// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// codec converts between block/transaction domain objects and the
// opaque byte strings the storage layer persists (spec §6, Codec
// contract). The Block Repository core treats Codec as an external,
// pluggable dependency: a consensus implementation supplies its own
// wire format and hashing scheme; GobCodec (gob.go) is a reference
// implementation used by this module's own tests.
package codec

import "github.com/bitmark-inc/blockrepo/digest"

// Transaction is a single operation embedded in a block.
type Transaction struct {
	Payload []byte
}

// Hash returns the transaction's canonical digest.
func (t *Transaction) Hash() digest.Hash {
	return digest.New(t.Payload)
}

// Block is a serialised unit of the chain.
type Block struct {
	PrevHash     digest.Hash
	Transactions []*Transaction
}

// Hash returns the block's canonical digest, computed over the
// previous-block hash and every transaction's own digest so that
// altering any transaction changes the block hash.
func (b *Block) Hash() digest.Hash {
	buf := make([]byte, 0, digest.Length*(1+len(b.Transactions)))
	buf = append(buf, b.PrevHash.Bytes()...)
	for _, tx := range b.Transactions {
		h := tx.Hash()
		buf = append(buf, h.Bytes()...)
	}
	return digest.New(buf)
}

// Tip identifies the repository's current (hash, height) position.
type Tip struct {
	Hash   digest.Hash
	Height uint64
}

// Codec is the external collaborator that (de)serialises domain
// objects to and from the byte strings the storage layer persists.
type Codec interface {
	EncodeBlock(*Block) ([]byte, error)
	DecodeBlock([]byte) (*Block, error)
	EncodeTip(Tip) ([]byte, error)
	DecodeTip([]byte) (Tip, error)
}
