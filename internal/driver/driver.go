// Package driver glues the upstream reader, the header+TOC parser, and
// the block engine together: it writes the header+TOC prefix through
// unchanged and initiates block processing (spec.md §4.7).
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ak4code/pgdumb/internal/archive"
	"github.com/ak4code/pgdumb/internal/block"
	"github.com/ak4code/pgdumb/internal/codec"
	"github.com/ak4code/pgdumb/internal/logging"
	"github.com/ak4code/pgdumb/internal/streamx"
	"github.com/ak4code/pgdumb/internal/transform"
)

// DefaultChunkSize is the amount read from upstream per parse attempt
// while the header+TOC has not yet been fully buffered.
const DefaultChunkSize = 8192

// Driver owns the scratch buffer used to discover where the TOC ends,
// then hands the remainder of the stream to a block.Engine.
type Driver struct {
	// ChunkSize overrides DefaultChunkSize when positive.
	ChunkSize int
}

// New returns a Driver with the default chunk size.
func New() *Driver {
	return &Driver{ChunkSize: DefaultChunkSize}
}

func (d *Driver) chunkSize() int {
	if d.ChunkSize > 0 {
		return d.ChunkSize
	}
	return DefaultChunkSize
}

// Run reads a dump from upstream, writes the rewritten dump to
// downstream, applying t to every TABLE DATA block the TOC identifies.
// Once the header and TOC have parsed, it returns the parsed Dump
// alongside any error from the block walk, so callers keep the TOC
// metadata; on a header or TOC failure the Dump is nil.
func (d *Driver) Run(ctx context.Context, upstream io.Reader, downstream io.Writer, t transform.Transformer) (*archive.Dump, error) {
	var scratch []byte
	readBuf := make([]byte, d.chunkSize())

	for {
		n, readErr := upstream.Read(readBuf)
		if n > 0 {
			scratch = append(scratch, readBuf[:n]...)
		}
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("read upstream: %w", readErr)
		}
		upstreamDone := errors.Is(readErr, io.EOF)

		br := bytes.NewReader(scratch)
		c := codec.New()
		dump, parseErr := archive.Parse(br, c)
		if parseErr == nil {
			consumed := len(scratch) - br.Len()
			if _, err := downstream.Write(scratch[:consumed]); err != nil {
				return nil, fmt.Errorf("write header+toc prefix: %w", err)
			}
			if err := flush(downstream); err != nil {
				return nil, fmt.Errorf("flush header+toc prefix: %w", err)
			}

			logging.Info("parsed dump version=%s compression=%s entries=%d prefix_bytes=%d",
				dump.Header.Version, dump.Header.Compression, len(dump.Entries), consumed)

			combined := streamx.New(scratch[consumed:], upstream)
			engine := block.NewEngine(dump, c, t)
			if err := engine.Run(ctx, combined, downstream); err != nil {
				return dump, err
			}
			if missing := engine.MissingTableData(); len(missing) > 0 {
				logging.Warn("toc declares %d TABLE DATA entries with no data block in the stream: %v", len(missing), missing)
			}
			return dump, nil
		}

		if !errors.Is(parseErr, codec.ErrUnexpectedEOF) {
			return nil, parseErr
		}
		if upstreamDone {
			return nil, fmt.Errorf("read header/toc: %w", parseErr)
		}
		// Not enough bytes yet; loop and read another chunk.
	}
}
