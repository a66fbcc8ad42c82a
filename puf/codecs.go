package puf

import (
	"github.com/sarchlab/pufsim/ecc"
	"github.com/sarchlab/pufsim/ecc/bch"
	"github.com/sarchlab/pufsim/ecc/hamming"
)

// A CodecFactory builds a codec once the enrolled response length k is
// known. It is used when the number of stable cells is not known up front.
type CodecFactory func(k int) (ecc.Codec, error)

// HammingFactory builds Hamming codecs sized to the enrolled response.
func HammingFactory(extended bool) CodecFactory {
	return func(k int) (ecc.Codec, error) {
		return hamming.NewCodec(k, extended)
	}
}

// BCHFactory builds BCH codecs correcting t errors, sized to the enrolled
// response.
func BCHFactory(t int) CodecFactory {
	return func(k int) (ecc.Codec, error) {
		return bch.NewCodec(k, t)
	}
}
