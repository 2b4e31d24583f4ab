package archive

import (
	"fmt"
	"io"

	"github.com/ak4code/pgdumb/internal/codec"
)

// CompressionMethod is the tagged variant describing how TABLE DATA and
// BLOBS payloads are framed.
type CompressionMethod int

const (
	CompressionNone CompressionMethod = iota
	CompressionGzip
	CompressionZlib
	CompressionLz4
)

func (m CompressionMethod) String() string {
	switch m {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZlib:
		return "zlib"
	case CompressionLz4:
		return "lz4"
	default:
		return "unknown"
	}
}

// compressionMapModern maps the single-byte descriptor used by dumps at
// version >= V1_15.
var compressionMapModern = map[byte]CompressionMethod{
	0: CompressionNone,
	1: CompressionGzip,
	2: CompressionLz4,
	3: CompressionZlib,
}

// readCompressionMethod reads the version-appropriate compression
// descriptor. Versions >= 1.15 encode the method directly as one byte;
// earlier versions encode the zlib/gzip *level* as a signed int, from
// which only the method can be recovered (the level is discarded — the
// core always recompresses at the codec's default level, see
// SPEC_FULL.md §9).
func readCompressionMethod(r io.Reader, c *codec.Codec, version Version) (CompressionMethod, error) {
	if version.AtLeast(V1_15) {
		b, err := codec.ReadByteField(r)
		if err != nil {
			return 0, fmt.Errorf("read compression descriptor: %w", err)
		}
		method, ok := compressionMapModern[b]
		if !ok {
			return 0, fmt.Errorf("%w: descriptor byte %d", ErrBadCompression, b)
		}
		return method, nil
	}

	level, err := c.ReadInt(r)
	if err != nil {
		return 0, fmt.Errorf("read compression level: %w", err)
	}
	switch {
	case level == -1:
		return CompressionZlib, nil
	case level == 0:
		return CompressionNone, nil
	case level >= 1 && level <= 9:
		return CompressionGzip, nil
	default:
		return 0, fmt.Errorf("%w: level %d", ErrBadCompression, level)
	}
}
