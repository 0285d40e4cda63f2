// inferproxy - a caching, cost-tracking proxy and terminal client for
// the Anthropic API.
//
// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/thomasmphan/inference-proxy/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	// A local .env can carry ANTHROPIC_API_KEY and INFERPROXY_*
	// overrides. Missing file is fine.
	_ = godotenv.Load()

	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = cli.HandleTUICommand(args)
	case cli.CmdAsk:
		err = cli.HandleAskCommand(args)
	case cli.CmdChat:
		err = cli.HandleChatCommand(args)
	case cli.CmdServe:
		err = cli.HandleServeCommand(args)
	case cli.CmdStatus:
		err = cli.HandleStatusCommand(args)
	case cli.CmdHashToken:
		err = cli.HandleHashTokenCommand(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		cli.PrintUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
