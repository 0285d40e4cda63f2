// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatstream consumes the proxy's plain-text streaming chat endpoint
// and partitions the accumulated response into two display regions: the body
// and the trailing cost summary.
//
// # Key Types
//
//   - Client: HTTP client for POST /chat/stream
//   - Buffer: append-only accumulation for one request lifecycle
//   - Split: derived (body, cost) partition, recomputed after every append
//   - Decoder: incremental UTF-8 decoder that carries partial multi-byte
//     sequences across chunk boundaries
//
// # Usage
//
//	client := chatstream.NewClient(nil)
//	buf := chatstream.NewBuffer()
//	err := client.Stream(ctx, chatstream.Request{Message: "hi", Model: "haiku"},
//	    func(text string) {
//	        buf.Append(text)
//	        split := buf.Split()
//	        render(split.Body, split.Cost)
//	    })
//
// The split convention: once the buffer contains two consecutive newlines
// followed by "[", everything from that "[" to the end of the buffer is the
// cost region. The earliest such boundary wins; until one appears, the whole
// buffer is body text.
package chatstream
