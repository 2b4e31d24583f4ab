package archive

import (
	"fmt"
	"io"

	"github.com/ak4code/pgdumb/internal/codec"
)

// Dump is the immutable aggregate of a Header and its ordered TOC
// entries. It is constructed exactly once per input stream and then
// shared read-only with the block engine.
type Dump struct {
	Header  *Header
	Entries []*TocEntry
}

// Parse reads a Header followed by its TOC off r, using and mutating c's
// width parameters as the header dictates. On success r is positioned at
// the first data-block tag.
func Parse(r io.Reader, c *codec.Codec) (*Dump, error) {
	header, err := ParseHeader(r, c)
	if err != nil {
		return nil, err
	}

	entries, err := ParseTOC(r, c, header.Version)
	if err != nil {
		return nil, err
	}

	dump := &Dump{Header: header, Entries: entries}
	if err := dump.validate(); err != nil {
		return nil, err
	}
	return dump, nil
}

// validate checks the invariants from spec.md §3: dump-ids are unique.
// (Matching every TABLE DATA entry to a data block can only be confirmed
// while walking the post-TOC stream, so the block engine records the
// dump-ids it sees and reports the missing ones after its walk, via
// block.Engine.MissingTableData.)
func (d *Dump) validate() error {
	seen := make(map[int64]struct{}, len(d.Entries))
	for _, e := range d.Entries {
		if _, dup := seen[e.DumpID]; dup {
			return fmt.Errorf("pgdumb: duplicate dump_id %d", e.DumpID)
		}
		seen[e.DumpID] = struct{}{}
	}
	return nil
}

// TableDataDumpIDs returns the set of dump-ids whose TOC desc is
// "TABLE DATA" — the only blocks the block engine is allowed to rewrite.
func (d *Dump) TableDataDumpIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, e := range d.Entries {
		if e.IsTableData() {
			ids[e.DumpID] = struct{}{}
		}
	}
	return ids
}
