package block

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/ak4code/pgdumb/internal/codec"
)

// ErrTransformerFailure wraps an error surfaced by a Transformer,
// propagated unchanged per spec.md §7.
var ErrTransformerFailure = errors.New("pgdumb: transformer failed")

// rewrite handles one TABLE DATA block whose payload is ZLIB
// chunk-framed: it reads the (chunk_size, chunk_bytes) pairs until the
// terminal condition (spec.md §4.5), decompresses the concatenated
// stream, hands the plaintext to the Transformer, recompresses the
// result as a single zlib stream, and only then emits the rewritten
// block. No bytes reach w until recompression has succeeded.
func (e *Engine) rewrite(ctx context.Context, r io.Reader, w io.Writer, dumpID int64) error {
	compressed, err := ReadChunkedPayload(r, e.Codec)
	if err != nil {
		return err
	}

	plaintext, err := decompressZlib(compressed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	e.transformed[dumpID] = struct{}{}
	rewritten, err := e.Transformer.Transform(ctx, plaintext)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransformerFailure, err)
	}

	recompressed, err := compressZlib(rewritten)
	if err != nil {
		return fmt.Errorf("recompress data block %d: %w", dumpID, err)
	}

	out := make([]byte, 0, 1+1+e.Codec.IntSize+1+e.Codec.IntSize+len(recompressed))
	out = append(out, TagData)
	out = append(out, e.Codec.WriteInt(dumpID)...)
	out = append(out, e.Codec.WriteInt(int64(len(recompressed)))...)
	out = append(out, recompressed...)

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write rewritten data block %d: %w", dumpID, err)
	}
	if err := flush(w); err != nil {
		return fmt.Errorf("flush rewritten data block %d: %w", dumpID, err)
	}
	return nil
}

// ReadChunkedPayload reads (chunk_size, chunk_bytes) pairs off r using c's
// width parameters, until a zero-size chunk or a chunk shorter than
// ChunkBudget, returning the concatenated chunk bytes. Both terminal
// conditions are honored because some producers never emit the zero-size
// sentinel (spec.md §9). Exported so callers that only need to walk the
// chunk framing without rewriting (internal/inspect) don't have to
// duplicate it.
func ReadChunkedPayload(r io.Reader, c *codec.Codec) ([]byte, error) {
	var buf bytes.Buffer
	for {
		size, err := c.ReadInt(r)
		if err != nil {
			return nil, fmt.Errorf("read chunk size: %w", err)
		}
		if size == 0 {
			break
		}
		if size < 0 {
			return nil, fmt.Errorf("%w: negative chunk size %d", ErrCorrupt, size)
		}

		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("%w: short chunk: %v", ErrCorrupt, err)
		}
		buf.Write(chunk)

		if size < ChunkBudget {
			break
		}
	}
	return buf.Bytes(), nil
}

func decompressZlib(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}

	plaintext, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	// Close drains and verifies any trailing zlib state (the "flush"
	// spec.md §4.5 calls for after the terminal chunk).
	if err := zr.Close(); err != nil {
		return nil, err
	}
	return plaintext, nil
}

func compressZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
