package archive

import (
	"bytes"
	"testing"

	"github.com/ak4code/pgdumb/internal/codec"
	"github.com/stretchr/testify/require"
)

func buildValidDump(t *testing.T, version Version, entries []tocFields) []byte {
	t.Helper()
	b := newDumpBuilder(version).writeHeader(3, "mydb")
	b.writeTocCount(int64(len(entries)))
	for _, e := range entries {
		b.writeTocEntry(e)
	}
	return b.bytes()
}

func TestParseDumpEndToEnd(t *testing.T) {
	raw := buildValidDump(t, V1_16, []tocFields{
		{dumpID: 1, desc: "TABLE DATA", tag: "public.users", dataState: DataStateSet, offset: 0},
		{dumpID: 2, desc: "TABLE", tag: "public.users", dataState: DataStateNotSet, offset: 0},
	})

	c := codec.New()
	dump, err := Parse(bytes.NewReader(raw), c)
	require.NoError(t, err)
	require.Len(t, dump.Entries, 2)
	require.Equal(t, "mydb", dump.Header.DatabaseName)

	ids := dump.TableDataDumpIDs()
	require.Contains(t, ids, int64(1))
	require.NotContains(t, ids, int64(2))
}

func TestParseDumpDuplicateDumpIDRejected(t *testing.T) {
	raw := buildValidDump(t, V1_16, []tocFields{
		{dumpID: 1, desc: "TABLE DATA", tag: "a", dataState: DataStateSet, offset: 0},
		{dumpID: 1, desc: "TABLE DATA", tag: "b", dataState: DataStateSet, offset: 0},
	})

	c := codec.New()
	_, err := Parse(bytes.NewReader(raw), c)
	require.Error(t, err)
}

func TestParseDumpLeavesReaderAtBlockStream(t *testing.T) {
	raw := buildValidDump(t, V1_16, nil)
	raw = append(raw, 0x04) // END tag

	r := bytes.NewReader(raw)
	c := codec.New()
	_, err := Parse(r, c)
	require.NoError(t, err)

	remaining := make([]byte, 1)
	n, err := r.Read(remaining)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, byte(0x04), remaining[0])
}
