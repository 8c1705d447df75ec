// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/registry/cmd/registry/cli"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

func groupCommand() *cli.Command {
	return &cli.Command{
		Name:    "group",
		Summary: "Manage artifact groups",
		Description: `Groups namespace artifacts. A group is created implicitly by the
first artifact placed in it; create one explicitly to attach a
description or labels. The default group is named "default".`,
		Subcommands: []*cli.Command{
			groupCreateCommand(),
			groupListCommand(),
			groupDeleteCommand(),
		},
	}
}

type groupCreateParams struct {
	registryParams
	cli.JSONOutput
	Description   string            `flag:"description" desc:"group description"`
	ArtifactsType string            `flag:"artifacts-type" desc:"artifact type expected in this group"`
	CreatedBy     string            `flag:"created-by" desc:"owner recorded on the group"`
	Labels        map[string]string `flag:"label" desc:"key=value label (repeatable)"`
}

func groupCreateCommand() *cli.Command {
	var params groupCreateParams
	return &cli.Command{
		Name:    "create",
		Summary: "Create a group",
		Usage:   "registry group create <group> [flags]",
		Examples: []cli.Example{
			{
				Description: "Create a labelled group",
				Command:     "registry group create payments --description 'Payment APIs' --label team=billing",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("group argument required\n\nUsage: registry group create <group> [flags]")
			}
			groupID, err := model.ParseGroupID(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			if err := checkLabels(params.Labels); err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			group, err := reg.Graph().CreateGroup(ctx, versiongraph.Group{
				GroupID:       groupID,
				Description:   params.Description,
				ArtifactsType: params.ArtifactsType,
				CreatedBy:     params.CreatedBy,
				Labels:        params.Labels,
			})
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(newGroupView(group)); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "created group %s\n", group.GroupID)
			return nil
		},
	}
}

type groupListParams struct {
	registryParams
	cli.JSONOutput
}

func groupListCommand() *cli.Command {
	var params groupListParams
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List groups",
		Usage:   "registry group list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			groups, err := reg.Graph().ListGroups(ctx)
			if err != nil {
				return err
			}
			views := make([]groupView, 0, len(groups))
			for _, group := range groups {
				views = append(views, newGroupView(group))
			}
			if done, err := params.EmitJSON(views); done {
				return err
			}

			writer := tabwriter.NewWriter(cli.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "GROUP\tTYPE\tCREATED\tDESCRIPTION\n")
			for _, view := range views {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					view.GroupID, dash(view.ArtifactsType), formatTime(view.CreatedOn), view.Description)
			}
			return writer.Flush()
		},
	}
}

func groupDeleteCommand() *cli.Command {
	var params registryParams
	return &cli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Summary: "Delete an empty group",
		Usage:   "registry group delete <group> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("group argument required\n\nUsage: registry group delete <group> [flags]")
			}
			groupID, err := model.ParseGroupID(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			if err := reg.Graph().DeleteGroup(ctx, groupID); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "deleted group %s\n", groupID)
			return nil
		},
	}
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
