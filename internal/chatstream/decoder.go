// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstream

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// INCREMENTAL UTF-8 DECODER
// =============================================================================

// Decoder converts raw stream chunks to text incrementally. A multi-byte
// character whose encoding straddles a chunk boundary is held back until
// the remaining bytes arrive, so partial sequences are never emitted as
// corrupted text. Invalid byte sequences decode to U+FFFD rather than
// aborting the stream.
type Decoder struct {
	transformer transform.Transformer
	pending     []byte
	scratch     [4096]byte
}

// NewDecoder creates a decoder ready for the first chunk.
func NewDecoder() *Decoder {
	return &Decoder{transformer: unicode.UTF8.NewDecoder()}
}

// Write decodes a chunk, returning all text that is complete so far.
// Up to three trailing bytes may be retained for the next call.
func (d *Decoder) Write(chunk []byte) string {
	d.pending = append(d.pending, chunk...)
	return d.decode(false)
}

// Flush drains any retained bytes at end of stream. An incomplete trailing
// sequence decodes to U+FFFD at this point, since no more bytes can arrive.
func (d *Decoder) Flush() string {
	return d.decode(true)
}

func (d *Decoder) decode(atEOF bool) string {
	if len(d.pending) == 0 {
		return ""
	}

	var out strings.Builder
	for {
		nDst, nSrc, err := d.transformer.Transform(d.scratch[:], d.pending, atEOF)
		out.Write(d.scratch[:nDst])
		d.pending = d.pending[nSrc:]

		switch err {
		case nil:
			if len(d.pending) == 0 {
				return out.String()
			}
			// More input than one pass consumed; keep going.
		case transform.ErrShortDst:
			// Scratch filled; loop to drain the rest.
		case transform.ErrShortSrc:
			// Trailing partial sequence; hold it for the next chunk.
			d.pending = append([]byte(nil), d.pending...)
			return out.String()
		default:
			// The UTF-8 decoder substitutes U+FFFD instead of failing,
			// so any other error means the transformer is misbehaving.
			// Drop the pending bytes and return what we have.
			d.pending = nil
			return out.String()
		}
	}
}
