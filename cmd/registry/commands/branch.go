// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/registry/cmd/registry/cli"
	"github.com/bureau-foundation/registry/lib/model"
)

func branchCommand() *cli.Command {
	return &cli.Command{
		Name:    "branch",
		Summary: "Manage version branches",
		Description: `A branch is an ordered list of versions of one artifact. Its last
entry is the leaf. The "latest" branch is maintained by the registry;
custom branches are appended to explicitly or, with semver branching
enabled, automatically.`,
		Subcommands: []*cli.Command{
			branchListCommand(),
			branchGetCommand(),
			branchLeafCommand(),
			branchAddCommand(),
			branchDeleteCommand(),
		},
	}
}

// behaviorParams selects the retrieval behavior of branch reads.
type behaviorParams struct {
	SkipDisabled bool `flag:"skip-disabled" desc:"ignore trailing DISABLED versions when choosing the leaf"`
}

func (p *behaviorParams) behavior() model.RetrievalBehavior {
	if p.SkipDisabled {
		return model.RetrieveSkipDisabledLatest
	}
	return model.RetrieveDefault
}

func parseBranchArgs(args []string, usage string) (model.GA, model.BranchID, error) {
	if len(args) != 3 {
		return model.GA{}, "", cli.Validation("group, artifact and branch arguments required\n\nUsage: %s", usage)
	}
	ga, err := parseGA(args[0], args[1])
	if err != nil {
		return model.GA{}, "", err
	}
	branchID, err := model.ParseBranchID(args[2])
	if err != nil {
		return model.GA{}, "", cli.Validation("%w", err)
	}
	return ga, branchID, nil
}

type branchListParams struct {
	registryParams
	cli.JSONOutput
}

func branchListCommand() *cli.Command {
	var params branchListParams
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List the branches of an artifact",
		Usage:   "registry branch list <group> <artifact> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("group and artifact arguments required\n\nUsage: registry branch list <group> <artifact> [flags]")
			}
			ga, err := parseGA(args[0], args[1])
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			branches, err := reg.Graph().ListBranches(ctx, ga)
			if err != nil {
				return err
			}
			views := make([]branchView, 0, len(branches))
			for _, branch := range branches {
				versions, err := reg.Graph().GetBranchVersions(ctx, ga, branch.BranchID, model.RetrieveDefault)
				if err != nil {
					return err
				}
				views = append(views, branchView{
					BranchID:      string(branch.BranchID),
					Description:   branch.Description,
					SystemDefined: branch.SystemDefined,
					Versions:      versionStrings(versions),
				})
			}
			if done, err := params.EmitJSON(views); done {
				return err
			}

			writer := tabwriter.NewWriter(cli.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "BRANCH\tSYSTEM\tVERSIONS\tLEAF\n")
			for _, view := range views {
				leaf := "-"
				if len(view.Versions) > 0 {
					leaf = view.Versions[len(view.Versions)-1]
				}
				fmt.Fprintf(writer, "%s\t%t\t%d\t%s\n", view.BranchID, view.SystemDefined, len(view.Versions), leaf)
			}
			return writer.Flush()
		},
	}
}

type branchGetParams struct {
	registryParams
	cli.JSONOutput
	behaviorParams
}

func branchGetCommand() *cli.Command {
	var params branchGetParams
	return &cli.Command{
		Name:    "get",
		Summary: "Show the versions of a branch in order",
		Usage:   "registry branch get <group> <artifact> <branch> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get", &params)
		},
		Run: func(args []string) error {
			ga, branchID, err := parseBranchArgs(args, "registry branch get <group> <artifact> <branch> [flags]")
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			branch, err := reg.Graph().GetBranch(ctx, ga, branchID)
			if err != nil {
				return err
			}
			versions, err := reg.Graph().GetBranchVersions(ctx, ga, branchID, params.behavior())
			if err != nil {
				return err
			}
			view := branchView{
				BranchID:      string(branch.BranchID),
				Description:   branch.Description,
				SystemDefined: branch.SystemDefined,
				Versions:      versionStrings(versions),
			}
			if done, err := params.EmitJSON(view); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "%s %s: %s\n", ga, branch.BranchID, strings.Join(view.Versions, " "))
			return nil
		},
	}
}

type branchLeafParams struct {
	registryParams
	cli.JSONOutput
	behaviorParams
}

func branchLeafCommand() *cli.Command {
	var params branchLeafParams
	return &cli.Command{
		Name:    "leaf",
		Summary: "Show the leaf version of a branch",
		Usage:   "registry branch leaf <group> <artifact> [<branch>] [flags]",
		Examples: []cli.Example{
			{
				Description: "Newest version that is not disabled",
				Command:     "registry branch leaf payments invoice-api --skip-disabled",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("leaf", &params)
		},
		Run: func(args []string) error {
			if len(args) == 2 {
				args = append(args, string(model.Latest))
			}
			ga, branchID, err := parseBranchArgs(args, "registry branch leaf <group> <artifact> [<branch>] [flags]")
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			version, err := reg.Graph().GetBranchLeaf(ctx, ga, branchID, params.behavior())
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(newVersionView(version)); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "%s\t%d\t%s\n", version.GAV.Version, version.GlobalID, version.State)
			return nil
		},
	}
}

func branchAddCommand() *cli.Command {
	var params registryParams
	return &cli.Command{
		Name:    "add",
		Summary: "Append a version to a custom branch",
		Description: `Append a version to a custom branch, creating the branch when it does
not exist. Appending the current leaf again changes nothing.`,
		Usage: "registry branch add <group> <artifact> <branch> <version> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("add", &params)
		},
		Run: func(args []string) error {
			usage := "registry branch add <group> <artifact> <branch> <version> [flags]"
			if len(args) != 4 {
				return cli.Validation("group, artifact, branch and version arguments required\n\nUsage: %s", usage)
			}
			ga, branchID, err := parseBranchArgs(args[:3], usage)
			if err != nil {
				return err
			}
			if err := model.ValidateVersion(args[3]); err != nil {
				return cli.Validation("%w", err)
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			if err := reg.Graph().CreateOrUpdateBranch(ctx, ga.WithVersion(args[3]), branchID); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "%s appended to %s of %s\n", args[3], branchID, ga)
			return nil
		},
	}
}

func branchDeleteCommand() *cli.Command {
	var params registryParams
	return &cli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Summary: "Delete a custom branch",
		Usage:   "registry branch delete <group> <artifact> <branch> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(args []string) error {
			ga, branchID, err := parseBranchArgs(args, "registry branch delete <group> <artifact> <branch> [flags]")
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			if err := reg.Graph().DeleteBranch(ctx, ga, branchID); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "deleted branch %s of %s\n", branchID, ga)
			return nil
		},
	}
}

func versionStrings(gavs []model.GAV) []string {
	versions := make([]string, len(gavs))
	for i, gav := range gavs {
		versions[i] = gav.Version
	}
	return versions
}
