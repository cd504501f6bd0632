// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/bitmark-inc/blockrepo/fault"
)

// GobCodec is the reference Codec implementation used by this
// module's own tests: a thin encoding/gob wrapper, in the spirit of
// the generic GOBEncoder/GOBDecoder pair the corpus's smaller chain
// implementations use for their own domain objects.
type GobCodec struct{}

// NewGobCodec constructs the reference Codec.
func NewGobCodec() *GobCodec { return &GobCodec{} }

func (GobCodec) EncodeBlock(b *Block) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) DecodeBlock(data []byte) (*Block, error) {
	var b Block
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, fault.WrapCorrupted(err)
	}
	return &b, nil
}

func (GobCodec) EncodeTip(tip Tip) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tip); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec) DecodeTip(data []byte) (Tip, error) {
	var tip Tip
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&tip); err != nil {
		return Tip{}, fault.WrapCorrupted(err)
	}
	return tip, nil
}
