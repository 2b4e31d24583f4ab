package archive

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ak4code/pgdumb/internal/codec"
)

// Section classifies where in a restore a TOC entry's statements run.
type Section int

const (
	SectionNone Section = iota
	SectionPreData
	SectionData
	SectionPostData
)

func sectionFromIndex(idx int64) Section {
	switch idx {
	case 1:
		return SectionPreData
	case 2:
		return SectionData
	case 3:
		return SectionPostData
	default:
		return SectionNone
	}
}

// Data-block data_state values, spec.md §6.
const (
	DataStateNotSet = 1
	DataStateSet    = 2
)

// TocEntry describes one dumped object: a schema statement, a
// TABLE DATA payload, a constraint, and so on.
type TocEntry struct {
	DumpID       int64
	HadDumper    bool
	TableOID     string
	OID          string
	Tag          string
	Desc         string
	Section      Section
	Defn         string
	DropStmt     string
	CopyStmt     string
	Namespace    string
	Tablespace   string
	TableAM      string // present only when Version >= V1_14; empty otherwise
	Owner        string
	WithOIDs     string
	Dependencies []int64
	// BadDependencies records dependency strings that failed to parse as
	// integers; spec.md §4.4 requires these be reported, not fatal.
	BadDependencies []string
	DataState       byte
	Offset          uint64
}

// IsTableData reports whether this entry's payload is a COPY-format row
// stream the block engine may rewrite.
func (e *TocEntry) IsTableData() bool {
	return e.Desc == "TABLE DATA"
}

// ParseTOC reads the entry count followed by that many TocEntry records,
// per spec.md §4.4's exact field order. It must leave r positioned at the
// first data-block tag.
func ParseTOC(r io.Reader, c *codec.Codec, version Version) ([]*TocEntry, error) {
	count, err := c.ReadInt(r)
	if err != nil {
		return nil, fmt.Errorf("read toc entry count: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("pgdumb: negative toc entry count %d", count)
	}

	entries := make([]*TocEntry, 0, count)
	for i := int64(0); i < count; i++ {
		entry, err := parseTocEntry(r, c, version)
		if err != nil {
			return nil, fmt.Errorf("toc entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseTocEntry(r io.Reader, c *codec.Codec, version Version) (*TocEntry, error) {
	e := &TocEntry{}

	var err error
	if e.DumpID, err = c.ReadInt(r); err != nil {
		return nil, fmt.Errorf("dump_id: %w", err)
	}

	hadDumper, err := c.ReadInt(r)
	if err != nil {
		return nil, fmt.Errorf("had_dumper: %w", err)
	}
	e.HadDumper = hadDumper != 0

	if e.TableOID, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("table_oid: %w", err)
	}
	if e.OID, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("oid: %w", err)
	}
	if e.Tag, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("tag: %w", err)
	}
	if e.Desc, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("desc: %w", err)
	}

	sectionIdx, err := c.ReadInt(r)
	if err != nil {
		return nil, fmt.Errorf("section: %w", err)
	}
	e.Section = sectionFromIndex(sectionIdx)

	if e.Defn, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("defn: %w", err)
	}
	if e.DropStmt, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("drop_stmt: %w", err)
	}
	if e.CopyStmt, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("copy_stmt: %w", err)
	}
	if e.Namespace, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("namespace: %w", err)
	}
	if e.Tablespace, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("tablespace: %w", err)
	}

	if version.AtLeast(V1_14) {
		if e.TableAM, err = c.ReadString(r); err != nil {
			return nil, fmt.Errorf("tableam: %w", err)
		}
	}

	if e.Owner, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if e.WithOIDs, err = c.ReadString(r); err != nil {
		return nil, fmt.Errorf("with_oids: %w", err)
	}

	for {
		dep, err := c.ReadString(r)
		if err != nil {
			return nil, fmt.Errorf("dependency: %w", err)
		}
		if dep == "" {
			break
		}
		id, convErr := strconv.ParseInt(dep, 10, 64)
		if convErr != nil {
			e.BadDependencies = append(e.BadDependencies, dep)
			continue
		}
		e.Dependencies = append(e.Dependencies, id)
	}

	dataState, err := codec.ReadByteField(r)
	if err != nil {
		return nil, fmt.Errorf("data_state: %w", err)
	}
	e.DataState = dataState

	offset, err := c.ReadOffset(r)
	if err != nil {
		return nil, fmt.Errorf("offset: %w", err)
	}
	e.Offset = offset

	return e, nil
}
