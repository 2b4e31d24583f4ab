// Package block implements the streaming data-block engine: it walks the
// post-TOC block stream, decoding a block-type tag and dump-id for each
// entry, and either rewrites a TABLE DATA block's ZLIB-compressed
// payload through a transform.Transformer or passes the block through
// verbatim (spec.md §4.5).
package block

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ak4code/pgdumb/internal/archive"
	"github.com/ak4code/pgdumb/internal/codec"
	"github.com/ak4code/pgdumb/internal/logging"
	"github.com/ak4code/pgdumb/internal/transform"
)

// Block-type tags, spec.md §6.
const (
	TagData  byte = 0x01
	TagBlobs byte = 0x02
	TagEnd   byte = 0x04
)

// ChunkBudget is the ZLIB chunk-framing budget: any chunk declared
// strictly smaller than this is treated as the terminal chunk even
// without a trailing zero-size chunk (spec.md §4.5, §9).
const ChunkBudget = 4096

// ErrCorrupt reports a chunk-size mismatch, a bad zlib stream, or a
// size-mismatched pass-through block.
var ErrCorrupt = errors.New("pgdumb: corrupt data block")

// Engine walks the data-block stream of one Dump.
type Engine struct {
	Dump        *archive.Dump
	Codec       *codec.Codec
	Transformer transform.Transformer

	// tableDataIDs is the set of dump-ids the TOC marks TABLE DATA; only
	// these, and only under ZLIB compression, are eligible for rewrite.
	tableDataIDs map[int64]struct{}
	// transformed tracks dump-ids the transformer has already seen, to
	// support spec.md §8 property 3 (transformer invoked exactly once
	// per TABLE DATA block).
	transformed map[int64]struct{}
	// seenData tracks every dump-id a DATA block tag carried, rewritten
	// or not, so Run's caller can confirm the TOC's TABLE DATA entries
	// (spec.md §3) were all actually present in the block stream.
	seenData map[int64]struct{}
}

// NewEngine builds an Engine bound to dump and c, invoking t on every
// eligible TABLE DATA block.
func NewEngine(dump *archive.Dump, c *codec.Codec, t transform.Transformer) *Engine {
	if t == nil {
		t = transform.Noop()
	}
	return &Engine{
		Dump:         dump,
		Codec:        c,
		Transformer:  t,
		tableDataIDs: dump.TableDataDumpIDs(),
		transformed:  make(map[int64]struct{}),
		seenData:     make(map[int64]struct{}),
	}
}

// MissingTableData returns the TOC's TABLE DATA dump-ids for which no DATA
// block was ever seen in the stream Run walked (spec.md §3's completeness
// invariant). Call after Run returns.
func (e *Engine) MissingTableData() []int64 {
	var missing []int64
	for id := range e.tableDataIDs {
		if _, ok := e.seenData[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Run walks blocks from r, writing the rewritten or passed-through stream
// to w, until it sees TagEnd or r is exhausted. It never writes a partial
// rewritten block: bytes are only emitted after recompression succeeds.
func (e *Engine) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	for {
		tag, err := codec.ReadByte(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Absent END marker: some producers rely on EOF alone,
				// matching pg_restore's permissive behavior (spec.md §9).
				return nil
			}
			return fmt.Errorf("read block tag: %w", err)
		}

		switch tag {
		case TagEnd:
			if _, err := w.Write([]byte{TagEnd}); err != nil {
				return fmt.Errorf("write end marker: %w", err)
			}
			if err := flush(w); err != nil {
				return fmt.Errorf("flush end marker: %w", err)
			}
			return nil

		case TagData:
			if err := e.handleData(ctx, r, w); err != nil {
				return err
			}

		case TagBlobs:
			if err := e.passThrough(r, w, TagBlobs); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unknown block tag 0x%02x", ErrCorrupt, tag)
		}
	}
}

func (e *Engine) handleData(ctx context.Context, r io.Reader, w io.Writer) error {
	dumpID, err := e.Codec.ReadInt(r)
	if err != nil {
		return fmt.Errorf("read data block dump_id: %w", err)
	}
	e.seenData[dumpID] = struct{}{}

	_, isTableData := e.tableDataIDs[dumpID]
	if isTableData && e.Dump.Header.Compression == archive.CompressionZlib {
		logging.Debug("rewriting data block dump_id=%d", dumpID)
		return e.rewrite(ctx, r, w, dumpID)
	}
	return e.passThroughWithID(r, w, TagData, dumpID)
}

// passThrough reads a block's dump-id then delegates to
// passThroughWithID; used by the BLOBS path, whose framing is identical
// to an uncompressed DATA pass-through (spec.md §4.5 step 4).
func (e *Engine) passThrough(r io.Reader, w io.Writer, tag byte) error {
	dumpID, err := e.Codec.ReadInt(r)
	if err != nil {
		return fmt.Errorf("read %02x block dump_id: %w", tag, err)
	}
	return e.passThroughWithID(r, w, tag, dumpID)
}

func (e *Engine) passThroughWithID(r io.Reader, w io.Writer, tag byte, dumpID int64) error {
	length, err := e.Codec.ReadInt(r)
	if err != nil {
		return fmt.Errorf("read pass-through length: %w", err)
	}
	if length < 0 {
		return fmt.Errorf("%w: negative pass-through length %d", ErrCorrupt, length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("%w: short pass-through payload: %v", ErrCorrupt, err)
	}

	out := make([]byte, 0, 1+1+e.Codec.IntSize+1+e.Codec.IntSize+len(payload))
	out = append(out, tag)
	out = append(out, e.Codec.WriteInt(dumpID)...)
	out = append(out, e.Codec.WriteInt(int64(len(payload)))...)
	out = append(out, payload...)

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write pass-through block: %w", err)
	}
	return nil
}

