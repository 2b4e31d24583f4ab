package driver

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"testing"

	"github.com/ak4code/pgdumb/internal/archive"
	"github.com/ak4code/pgdumb/internal/block"
	"github.com/ak4code/pgdumb/internal/codec"
	"github.com/ak4code/pgdumb/internal/transform"
	"github.com/stretchr/testify/require"
)

// buildDump assembles a complete in-memory custom-format dump: header,
// TOC with one TABLE DATA entry, one zlib-chunked data block, and an END
// marker, matching the layout the core package tests also rely on.
func buildDump(t *testing.T, plaintext []byte) []byte {
	t.Helper()
	c := codec.New()
	var buf bytes.Buffer

	buf.WriteString(archive.Magic)
	buf.WriteByte(archive.V1_16.Major)
	buf.WriteByte(archive.V1_16.Minor)
	buf.WriteByte(archive.V1_16.Patch)
	buf.WriteByte(byte(codec.DefaultIntSize))
	buf.WriteByte(byte(codec.DefaultOffsetSize))
	buf.WriteByte(archive.FormatCustom)
	buf.WriteByte(3) // zlib

	// creation date: sec min hour mday mon year isdst (mday must be 1..31)
	for _, v := range []int64{0, 0, 0, 1, 0, 0, 0} {
		buf.Write(c.WriteInt(v))
	}
	buf.Write(c.WriteString("mydb"))
	buf.Write(c.WriteString("16.2"))
	buf.Write(c.WriteString("16.2"))

	buf.Write(c.WriteInt(1)) // one TOC entry
	buf.Write(c.WriteInt(1)) // dump_id
	buf.Write(c.WriteInt(1)) // had_dumper
	buf.Write(c.WriteString(""))
	buf.Write(c.WriteString(""))
	buf.Write(c.WriteString("public.users"))
	buf.Write(c.WriteString("TABLE DATA"))
	buf.Write(c.WriteInt(2)) // section: data
	buf.Write(c.WriteString(""))
	buf.Write(c.WriteString(""))
	buf.Write(c.WriteString(""))
	buf.Write(c.WriteString("public"))
	buf.Write(c.WriteString(""))
	buf.Write(c.WriteString("heap")) // tableam, V1_16 >= V1_14
	buf.Write(c.WriteString("postgres"))
	buf.Write(c.WriteString(""))
	buf.Write(c.WriteString("")) // end of dependencies
	buf.WriteByte(archive.DataStateSet)
	buf.Write(make([]byte, c.OffsetSize))

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err := zw.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	buf.WriteByte(block.TagData)
	buf.Write(c.WriteInt(1)) // dump_id

	// One chunk shorter than block.ChunkBudget, which terminates the payload.
	buf.Write(c.WriteInt(int64(compressed.Len())))
	buf.Write(compressed.Bytes())

	buf.WriteByte(block.TagEnd)
	return buf.Bytes()
}

func TestDriverRunIdentityRoundTrip(t *testing.T) {
	raw := buildDump(t, []byte("alice\t30\nbob\t25\n"))

	var out bytes.Buffer
	d := New()
	dump, err := d.Run(context.Background(), bytes.NewReader(raw), &out, transform.Noop())
	require.NoError(t, err)
	require.Len(t, dump.Entries, 1)

	// The driver's output must reparse cleanly as a dump with the same
	// header: a no-op transform round-trips.
	reRead, err := archive.Parse(bytes.NewReader(out.Bytes()), codec.New())
	require.NoError(t, err)
	require.Equal(t, dump.Header.DatabaseName, reRead.Header.DatabaseName)
}

func TestDriverRunAppliesTransform(t *testing.T) {
	raw := buildDump(t, []byte("alice\t30\n"))

	upper := transform.Func(func(_ context.Context, p []byte) ([]byte, error) {
		return bytes.ToUpper(p), nil
	})

	var out bytes.Buffer
	d := New()
	_, err := d.Run(context.Background(), bytes.NewReader(raw), &out, upper)
	require.NoError(t, err)

	c := codec.New()
	r := bytes.NewReader(out.Bytes())
	_, err = archive.Parse(r, c)
	require.NoError(t, err)

	// Parse leaves r at the first data block, which once decompressed must
	// be upper-cased.
	tag, err := codec.ReadByte(r)
	require.NoError(t, err)
	require.Equal(t, block.TagData, tag)
	_, err = c.ReadInt(r) // dump_id
	require.NoError(t, err)
	length, err := c.ReadInt(r)
	require.NoError(t, err)
	compressed := make([]byte, length)
	_, err = io.ReadFull(r, compressed)
	require.NoError(t, err)

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, "ALICE\t30\n", string(plain))
}

func TestDriverRunSmallChunkSizeForcesRetryLoop(t *testing.T) {
	raw := buildDump(t, []byte("alice\t30\n"))

	var out bytes.Buffer
	d := &Driver{ChunkSize: 1} // forces many retry iterations through the scratch loop
	_, err := d.Run(context.Background(), bytes.NewReader(raw), &out, transform.Noop())
	require.NoError(t, err)
}

func TestDriverRunTruncatedStreamIsFatal(t *testing.T) {
	raw := buildDump(t, []byte("x"))
	truncated := raw[:len(raw)/2]

	var out bytes.Buffer
	d := New()
	_, err := d.Run(context.Background(), bytes.NewReader(truncated), &out, transform.Noop())
	require.Error(t, err)
}
