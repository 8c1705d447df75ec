// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/registry/cmd/registry/cli"
)

func commentCommand() *cli.Command {
	return &cli.Command{
		Name:    "comment",
		Summary: "Annotate versions with comments",
		Subcommands: []*cli.Command{
			commentAddCommand(),
			commentListCommand(),
		},
	}
}

type commentAddParams struct {
	registryParams
	cli.JSONOutput
	CreatedBy string `flag:"created-by" desc:"author recorded on the comment"`
}

func commentAddCommand() *cli.Command {
	var params commentAddParams
	return &cli.Command{
		Name:    "add",
		Summary: "Add a comment to a version",
		Usage:   "registry comment add <group> <artifact> <version> <text> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("add", &params)
		},
		Run: func(args []string) error {
			if len(args) != 4 {
				return cli.Validation("group, artifact, version and text arguments required\n\nUsage: registry comment add <group> <artifact> <version> <text> [flags]")
			}
			gav, err := parseGAV(args[0], args[1], args[2])
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			comment, err := reg.Graph().CreateComment(ctx, gav, params.CreatedBy, args[3])
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(newCommentView(comment)); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "added comment %d to %s\n", comment.CommentID, gav)
			return nil
		},
	}
}

type commentListParams struct {
	registryParams
	cli.JSONOutput
}

func commentListCommand() *cli.Command {
	var params commentListParams
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List the comments on a version",
		Usage:   "registry comment list <group> <artifact> <version> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return cli.Validation("group, artifact and version arguments required\n\nUsage: registry comment list <group> <artifact> <version> [flags]")
			}
			gav, err := parseGAV(args[0], args[1], args[2])
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			comments, err := reg.Graph().ListComments(ctx, gav)
			if err != nil {
				return err
			}
			views := make([]commentView, 0, len(comments))
			for _, comment := range comments {
				views = append(views, newCommentView(comment))
			}
			if done, err := params.EmitJSON(views); done {
				return err
			}

			writer := tabwriter.NewWriter(cli.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "ID\tAUTHOR\tCREATED\tCOMMENT\n")
			for _, view := range views {
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", view.CommentID, dash(view.CreatedBy), formatTime(view.CreatedOn), view.Value)
			}
			return writer.Flush()
		},
	}
}
