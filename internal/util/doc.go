// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across inferproxy.
//
// # Key Functions
//
// String utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation for terminal layout
//
// File operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	preview := util.TruncateRunes(prompt, 100)
//	err := util.AtomicWriteFile(path, data, 0o600)
package util
