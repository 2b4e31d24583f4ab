package archive

import (
	"bytes"

	"github.com/ak4code/pgdumb/internal/codec"
)

// dumpBuilder assembles a minimal valid header+TOC byte stream for tests,
// mirroring the field order ParseHeader/ParseTOC expect.
type dumpBuilder struct {
	buf     bytes.Buffer
	c       *codec.Codec
	version Version
}

func newDumpBuilder(version Version) *dumpBuilder {
	return &dumpBuilder{c: codec.New(), version: version}
}

func (b *dumpBuilder) writeHeader(compressionByte byte, dbName string) *dumpBuilder {
	b.buf.WriteString(Magic)
	b.buf.WriteByte(b.version.Major)
	b.buf.WriteByte(b.version.Minor)
	b.buf.WriteByte(b.version.Patch)
	b.buf.WriteByte(byte(codec.DefaultIntSize))
	b.buf.WriteByte(byte(codec.DefaultOffsetSize))
	b.buf.WriteByte(FormatCustom)

	if b.version.AtLeast(V1_15) {
		b.buf.WriteByte(compressionByte)
	} else {
		// Pre-1.15: signed int level. -1 == zlib, 0 == none, 1..9 == gzip.
		level := int64(-1)
		switch compressionByte {
		case 0:
			level = 0
		case 1:
			level = 6
		case 2, 3:
			level = -1
		}
		b.buf.Write(b.c.WriteInt(level))
	}

	// creation date: sec min hour mday mon year isdst
	b.buf.Write(b.c.WriteInt(0))
	b.buf.Write(b.c.WriteInt(0))
	b.buf.Write(b.c.WriteInt(0))
	b.buf.Write(b.c.WriteInt(1))
	b.buf.Write(b.c.WriteInt(0))
	b.buf.Write(b.c.WriteInt(124)) // 2024
	b.buf.Write(b.c.WriteInt(0))

	b.buf.Write(b.c.WriteString(dbName))
	b.buf.Write(b.c.WriteString("16.2"))
	b.buf.Write(b.c.WriteString("16.2"))
	return b
}

func (b *dumpBuilder) writeTocCount(n int64) *dumpBuilder {
	b.buf.Write(b.c.WriteInt(n))
	return b
}

type tocFields struct {
	dumpID   int64
	desc     string
	tag      string
	dataState byte
	offset   uint64
}

func (b *dumpBuilder) writeTocEntry(f tocFields) *dumpBuilder {
	b.buf.Write(b.c.WriteInt(f.dumpID))
	b.buf.Write(b.c.WriteInt(1)) // had_dumper
	b.buf.Write(b.c.WriteString(""))
	b.buf.Write(b.c.WriteString(""))
	b.buf.Write(b.c.WriteString(f.tag))
	b.buf.Write(b.c.WriteString(f.desc))
	b.buf.Write(b.c.WriteInt(2)) // section: data
	b.buf.Write(b.c.WriteString(""))
	b.buf.Write(b.c.WriteString(""))
	b.buf.Write(b.c.WriteString(""))
	b.buf.Write(b.c.WriteString("public"))
	b.buf.Write(b.c.WriteString(""))
	if b.version.AtLeast(V1_14) {
		b.buf.Write(b.c.WriteString("heap"))
	}
	b.buf.Write(b.c.WriteString("postgres"))
	b.buf.Write(b.c.WriteString(""))
	b.buf.Write(b.c.WriteString("")) // end of dependency list
	b.buf.WriteByte(f.dataState)
	offsetBuf := make([]byte, b.c.OffsetSize)
	for i := 0; i < b.c.OffsetSize; i++ {
		offsetBuf[i] = byte(f.offset >> (8 * uint(i)))
	}
	b.buf.Write(offsetBuf)
	return b
}

func (b *dumpBuilder) bytes() []byte {
	return b.buf.Bytes()
}
