// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for inferproxy.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Proxy listen address, auth, rate limiting
//   - UpstreamConfig: Anthropic API endpoint and credentials
//   - ClientConfig: Proxy URL the local chat clients talk to
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (INFERPROXY_*)
//   - ~/.inferproxy/config.toml
//   - ~/.inferproxy/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	addr := cfg.Server.ListenAddr
//	model := cfg.DefaultModel
package config
