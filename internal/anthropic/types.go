// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

// =============================================================================
// WIRE TYPES
// =============================================================================

// Message is a single conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesRequest is the Messages API request body.
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream,omitempty"`
}

// contentBlock is one element of a buffered response's content array.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// apiUsage carries token counts as the API reports them.
type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// messagesResponse is the buffered (non-streaming) response body.
type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      apiUsage       `json:"usage"`
}

// streamEvent is the envelope for every SSE data payload. Fields are
// populated depending on the event type:
//
//	message_start        → Message.Usage (input tokens)
//	content_block_delta  → Delta.Type "text_delta", Delta.Text
//	message_delta        → Usage.OutputTokens, Delta.StopReason
//	message_stop         → nothing further
//	error                → Error
type streamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Usage apiUsage `json:"usage"`
	} `json:"message,omitempty"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage *apiUsage `json:"usage,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// errorResponse is the non-2xx response body.
type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Usage holds the token counts for one completed request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is a fully buffered response.
type Completion struct {
	Text  string
	Usage Usage
}
