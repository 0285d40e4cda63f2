// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// printer.go - Live body printing for streamed replies.
package cli

import (
	"fmt"
	"io"

	"github.com/thomasmphan/inference-proxy/internal/chatstream"
)

// streamPrinter prints the body region of a reply as it streams in,
// holding back the trailing cost summary so the caller can render it
// separately once the stream ends.
type streamPrinter struct {
	buf     *chatstream.Buffer
	out     io.Writer
	printed int
}

func newStreamPrinter(out io.Writer) *streamPrinter {
	return &streamPrinter{buf: chatstream.NewBuffer(), out: out}
}

// Write appends text and prints any newly confirmed body bytes. The
// body can shrink once the cost boundary completes; text already on
// screen is never retracted, which at worst leaves the separator blank
// line visible. Marker text itself never prints live.
func (p *streamPrinter) Write(text string) {
	p.buf.Append(text)
	body := p.buf.Split().Body
	if len(body) > p.printed {
		fmt.Fprint(p.out, body[p.printed:])
		p.printed = len(body)
	}
}

// Split returns the final body/cost partition of the accumulated reply.
func (p *streamPrinter) Split() chatstream.Split {
	return p.buf.Split()
}
