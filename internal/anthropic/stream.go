// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
)

// =============================================================================
// SSE STREAM
// =============================================================================

// DeltaFunc receives text deltas in arrival order.
type DeltaFunc func(delta string)

// Stream sends a streaming request for a single user message and calls
// onDelta for each text fragment. It returns the accumulated token usage
// once the stream completes.
//
// Event lifecycle: message_start carries input tokens, content_block_delta
// events carry the text, message_delta carries output tokens, message_stop
// ends the stream. An error event aborts with the upstream message.
func (c *Client) Stream(ctx context.Context, model, message string, onDelta DeltaFunc) (Usage, error) {
	resp, err := c.post(ctx, c.streaming, messagesRequest{
		Model:     model,
		MaxTokens: c.config.MaxTokens,
		Messages:  []Message{{Role: "user", Content: message}},
		Stream:    true,
	})
	if err != nil {
		return Usage{}, err
	}
	defer resp.Body.Close()

	var usage Usage
	reader := bufio.NewReader(resp.Body)
	for {
		if ctx.Err() != nil {
			return usage, &ClientError{Type: ErrTypeStreamRead, Message: "stream interrupted", Cause: ctx.Err()}
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			done, evErr := c.handleLine(line, &usage, onDelta)
			if evErr != nil {
				return usage, evErr
			}
			if done {
				return usage, nil
			}
		}
		if err == io.EOF {
			// Upstream closed without message_stop; usage may be partial.
			return usage, nil
		}
		if err != nil {
			return usage, &ClientError{Type: ErrTypeStreamRead, Message: "stream read failed", Cause: err}
		}
	}
}

var dataPrefix = []byte("data:")

// handleLine processes one SSE line. Only data lines matter; event name
// lines and blank separators are skipped, the payload type is inside the
// JSON anyway.
func (c *Client) handleLine(line []byte, usage *Usage, onDelta DeltaFunc) (done bool, err error) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, dataPrefix) {
		return false, nil
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return false, nil
	}

	var event streamEvent
	if jsonErr := json.Unmarshal(payload, &event); jsonErr != nil {
		// Skip malformed payloads
		return false, nil
	}

	switch event.Type {
	case "message_start":
		if event.Message != nil {
			usage.InputTokens = event.Message.Usage.InputTokens
		}
	case "content_block_delta":
		if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			onDelta(event.Delta.Text)
		}
	case "message_delta":
		if event.Usage != nil {
			usage.OutputTokens = event.Usage.OutputTokens
		}
	case "message_stop":
		return true, nil
	case "error":
		msg := "stream error"
		if event.Error != nil {
			msg = "API error: " + event.Error.Message
		}
		return false, &ClientError{Type: ErrTypeAPIStatus, Message: msg}
	}
	return false, nil
}
