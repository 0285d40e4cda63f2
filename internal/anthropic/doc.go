// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package anthropic provides the HTTP client for the Anthropic Messages API.
//
// The proxy uses it in two modes: Stream delivers text deltas as SSE events
// arrive and reports token usage at the end, Complete buffers the whole
// response. Both authenticate with the x-api-key header and pin the wire
// format with anthropic-version.
//
// # Key Types
//
//   - Client: API client with configurable base URL and credentials
//   - Usage: input/output token counts extracted from the event stream
//   - ClientError: typed error with upstream detail
//
// # Usage
//
//	client := anthropic.NewClient(&anthropic.ClientConfig{APIKey: key})
//	usage, err := client.Stream(ctx, model, message, func(delta string) {
//		fmt.Print(delta)
//	})
package anthropic
