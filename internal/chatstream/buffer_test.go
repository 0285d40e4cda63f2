// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatstream

import "testing"

func TestBufferAppendAndSplit(t *testing.T) {
	buf := NewBuffer()

	buf.Append("hello")
	if buf.String() != "hello" || buf.Len() != 5 {
		t.Errorf("unexpected buffer state: %q", buf.String())
	}

	buf.Append("\n\n[usage]")
	s := buf.Split()
	if s.Body != "hello" || s.Cost != "[usage]" {
		t.Errorf("got body=%q cost=%q", s.Body, s.Cost)
	}
}

func TestBufferReset(t *testing.T) {
	buf := NewBuffer()
	buf.Append("stale\n\n[old]")

	buf.Reset()
	if buf.Len() != 0 {
		t.Errorf("Reset left %d bytes", buf.Len())
	}
	if s := buf.Split(); s.Body != "" || s.HasCost() {
		t.Errorf("Reset buffer should split empty, got %+v", s)
	}
}
