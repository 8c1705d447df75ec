// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/registry/cmd/registry/cli"
	"github.com/bureau-foundation/registry/lib/version"
)

type aboutParams struct {
	cli.JSONOutput
}

func aboutCommand() *cli.Command {
	var params aboutParams
	return &cli.Command{
		Name:    "about",
		Summary: "Print build information",
		Usage:   "registry about [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("about", &params)
		},
		Run: func(args []string) error {
			info := struct {
				Name      string `json:"name"`
				Version   string `json:"version"`
				Commit    string `json:"commit"`
				Dirty     bool   `json:"dirty"`
				BuildTime string `json:"buildTime"`
				Go        string `json:"go"`
			}{version.Name, version.Short(), version.GitCommit, version.GitDirty == "true", version.BuildTime, runtime.Version()}
			if done, err := params.EmitJSON(info); done {
				return err
			}
			fmt.Fprintln(cli.Stdout, version.Full())
			return nil
		},
	}
}
