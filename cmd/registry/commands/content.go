// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/registry/cmd/registry/cli"
)

func contentCommand() *cli.Command {
	return &cli.Command{
		Name:    "content",
		Summary: "Read and maintain stored content",
		Description: `Content is stored once per distinct (bytes, references) pair and
shared by every version holding it.`,
		Subcommands: []*cli.Command{
			contentGetCommand(),
			contentGCCommand(),
		},
	}
}

type contentGetParams struct {
	registryParams
	cli.JSONOutput
}

func contentGetCommand() *cli.Command {
	var params contentGetParams
	return &cli.Command{
		Name:    "get",
		Summary: "Print the content of the version with a global id",
		Usage:   "registry content get <global-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("global id argument required\n\nUsage: registry content get <global-id> [flags]")
			}
			globalID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return cli.Validation("global id %q is not an integer", args[0])
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			content, err := reg.GetContentByGlobalID(ctx, globalID)
			if err != nil {
				return err
			}
			result := struct {
				ContentID     int64  `json:"contentId"`
				ContentHash   string `json:"contentHash"`
				CanonicalHash string `json:"canonicalHash,omitempty"`
				ArtifactType  string `json:"artifactType"`
				ContentType   string `json:"contentType"`
				Content       string `json:"content"`
			}{content.ID, content.Hash, content.CanonicalHash, content.ArtifactType, content.ContentType, string(content.Data)}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			_, err = cli.Stdout.Write(content.Data)
			return err
		},
	}
}

func contentGCCommand() *cli.Command {
	var params registryParams
	return &cli.Command{
		Name:    "gc",
		Summary: "Delete content no version uses",
		Usage:   "registry content gc [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("gc", &params)
		},
		Run: func(args []string) error {
			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			removed, err := reg.DeleteOrphanedContent(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "removed %d orphaned content rows\n", removed)
			return nil
		},
	}
}
