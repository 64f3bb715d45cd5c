package artifact

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// DefaultCompressionThreshold is the payload size above which Put
// attempts compression.
const DefaultCompressionThreshold = 10 * 1024 // 10 KiB

// maxDecompressedSize bounds the size prefix accepted by Decompress so a
// corrupted or hostile frame cannot trigger an enormous allocation.
const maxDecompressedSize = 1 << 31

// Compress LZ4-compresses data and prepends the uncompressed length as a
// 4-byte little-endian prefix. It returns the frame and true when the
// frame is strictly smaller than the input; otherwise it returns nil and
// false and the caller stores the raw payload.
//
// Compression is deterministic: the same input always yields the same
// frame. Content ids are computed from the uncompressed payload, so this
// only matters for stored-byte accounting staying reproducible.
func Compress(data []byte) ([]byte, bool) {
	// The size prefix is 32-bit; anything it cannot represent (or that
	// Decompress would refuse) is stored raw.
	if len(data) == 0 || int64(len(data)) > maxDecompressedSize {
		return nil, false
	}

	buf := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(data)))

	var c lz4.Compressor
	n, err := c.CompressBlock(data, buf[4:])
	if err != nil || n == 0 {
		// n == 0 means incompressible input.
		return nil, false
	}

	frame := buf[:4+n]
	if len(frame) >= len(data) {
		return nil, false
	}
	return frame, true
}

// Decompress reverses Compress. It fails with ErrCorrupted if the frame
// is truncated, the block is not valid LZ4, or the decoded length does
// not match the size prefix.
func Decompress(frame []byte) ([]byte, error) {
	if len(frame) < 4 {
		return nil, fmt.Errorf("%w: truncated frame (%d bytes)", ErrCorrupted, len(frame))
	}

	size := binary.LittleEndian.Uint32(frame[:4])
	if size == 0 || size > maxDecompressedSize {
		return nil, fmt.Errorf("%w: implausible uncompressed size %d", ErrCorrupted, size)
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(frame[4:], out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if uint32(n) != size {
		return nil, fmt.Errorf("%w: decoded %d bytes, size prefix says %d", ErrCorrupted, n, size)
	}
	return out, nil
}
