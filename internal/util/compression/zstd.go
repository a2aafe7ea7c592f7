// Package compression stores post content compactly.
package compression

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// ZstdCompressor shares one encoder and decoder across calls; both are safe
// for concurrent EncodeAll/DecodeAll.
type ZstdCompressor struct {
	once    sync.Once
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	err     error
}

func (z *ZstdCompressor) init() {
	z.once.Do(func() {
		z.encoder, z.err = zstd.NewWriter(nil)
		if z.err != nil {
			return
		}
		z.decoder, z.err = zstd.NewReader(nil)
	})
}

func (z *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	z.init()
	if z.err != nil {
		return nil, z.err
	}
	return z.encoder.EncodeAll(data, nil), nil
}

func (z *ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	z.init()
	if z.err != nil {
		return nil, z.err
	}
	return z.decoder.DecodeAll(data, nil)
}
