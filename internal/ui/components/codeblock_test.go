// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
)

func TestCodeBlockRenderKeepsCode(t *testing.T) {
	cb := NewCodeBlock("go", "package main\n\nfunc main() {}\n")
	out := cb.Render()
	if !strings.Contains(out, "main") {
		t.Errorf("rendered block lost code content: %q", out)
	}
	if !strings.Contains(out, "go") {
		t.Errorf("rendered block missing language badge: %q", out)
	}
}

func TestRenderCodeBlocksLeavesProse(t *testing.T) {
	text := "Intro line.\n```python\nprint(1)\n```\nClosing line."
	out := RenderCodeBlocks(text, 80)
	if !strings.Contains(out, "Intro line.") || !strings.Contains(out, "Closing line.") {
		t.Errorf("prose was altered: %q", out)
	}
	if !strings.Contains(out, "print") {
		t.Errorf("code content missing: %q", out)
	}
	if strings.Contains(out, "```") {
		t.Errorf("fence markers should be consumed: %q", out)
	}
}

func TestRenderCodeBlocksUnclosedFence(t *testing.T) {
	// Streaming can cut a response mid-block. The partial code must
	// still appear.
	text := "Here:\n```go\nfunc partial("
	out := RenderCodeBlocks(text, 80)
	if !strings.Contains(out, "partial") {
		t.Errorf("partial code dropped: %q", out)
	}
}

func TestRenderCodeBlocksNoFences(t *testing.T) {
	text := "Just prose, nothing else."
	if out := RenderCodeBlocks(text, 80); out != text {
		t.Errorf("text without fences should pass through, got %q", out)
	}
}
