// Package streamx presents a buffered prefix and a live upstream reader
// as a single sequential io.Reader.
//
// The header+TOC parser reads upstream in chunks because it cannot know
// the TOC size in advance, and it typically overshoots into the first
// data block. Combiner logically prepends that overshoot to whatever the
// block engine reads next, the same way the teacher's RDB parser swaps
// p.reader to a decompressed buffer and back (rdb_parser.go,
// handleZstdBlob/handleLZ4BlobEnd) rather than copying bytes around.
package streamx

import "io"

// Combiner drains buf first, then reads from upstream. A single Read call
// may cross the boundary and return bytes sourced from both.
type Combiner struct {
	buf      []byte
	bufPos   int
	upstream io.Reader
}

// New wraps upstream, prepending buf as the logical head of the stream.
func New(buf []byte, upstream io.Reader) *Combiner {
	return &Combiner{buf: buf, upstream: upstream}
}

// Read implements io.Reader. It first drains the buffered prefix, then
// delegates whatever room remains in p to a single upstream.Read call; a
// short read after the boundary is a valid io.Reader outcome and callers
// must be prepared to call again, same as any other reader.
func (c *Combiner) Read(p []byte) (int, error) {
	total := 0

	if c.bufPos < len(c.buf) {
		n := copy(p, c.buf[c.bufPos:])
		c.bufPos += n
		total += n
		if total == len(p) {
			return total, nil
		}
	}

	if c.upstream == nil {
		if total > 0 {
			return total, nil
		}
		return 0, io.EOF
	}

	n, err := c.upstream.Read(p[total:])
	total += n
	return total, err
}
