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
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Add, inspect, and retire artifact versions",
		Description: `Versions are immutable content snapshots of an artifact. Each
version has a registry-wide global id and points at stored content
shared with every other version of identical bytes and references.`,
		Subcommands: []*cli.Command{
			versionAddCommand(),
			versionGetCommand(),
			versionListCommand(),
			versionStateCommand(),
			versionDeleteCommand(),
			versionReferrersCommand(),
		},
	}
}

type versionAddParams struct {
	registryParams
	cli.JSONOutput
	contentParams
	IfExists bool `flag:"if-exists" desc:"return the existing version when canonically equal content is already present"`
}

func versionAddCommand() *cli.Command {
	var params versionAddParams
	return &cli.Command{
		Name:    "add",
		Summary: "Add a version to an artifact",
		Usage:   "registry version add <group> <artifact> --file PATH [flags]",
		Examples: []cli.Example{
			{
				Description: "Add version 2.1.0 and place it on the stable branch",
				Command:     "registry version add payments invoice-api --file openapi.json --version 2.1.0 --branch stable",
			},
			{
				Description: "Add a schema that references another artifact",
				Command:     "registry version add payments order --file order.avsc --ref payments:money:1:com.acme.Money",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("add", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("group and artifact arguments required\n\nUsage: registry version add <group> <artifact> --file PATH [flags]")
			}
			ga, err := parseGA(args[0], args[1])
			if err != nil {
				return err
			}
			request, err := params.contentParams.request()
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			if params.IfExists {
				typed := model.TypedContent{Content: request.Content, ContentType: request.ContentType}
				existing, err := reg.FindVersionByCanonicalContent(ctx, ga, typed, request.References)
				if err == nil {
					if done, err := params.EmitJSON(newVersionView(existing)); done {
						return err
					}
					fmt.Fprintf(cli.Stdout, "version %s already holds this content (global id %d)\n",
						existing.GAV, existing.GlobalID)
					return nil
				}
				if !isNotFound(err) {
					return err
				}
			}

			version, err := reg.CreateVersion(ctx, ga, request)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(newVersionView(version)); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "created version %s  global id %d  content id %d\n",
				version.GAV, version.GlobalID, version.ContentID)
			return nil
		},
	}
}

type versionGetParams struct {
	registryParams
	cli.JSONOutput
	Content     bool `flag:"content" desc:"print the stored content instead of metadata"`
	Dereference bool `flag:"dereference" desc:"print the content with every reference resolved and rewritten"`
}

func versionGetCommand() *cli.Command {
	var params versionGetParams
	return &cli.Command{
		Name:    "get",
		Summary: "Show a version's metadata or content",
		Usage:   "registry version get <group> <artifact> <version> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get", &params)
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return cli.Validation("group, artifact and version arguments required\n\nUsage: registry version get <group> <artifact> <version> [flags]")
			}
			if params.Content && params.Dereference {
				return cli.Validation("--content and --dereference are mutually exclusive")
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

			if params.Dereference {
				resolved, err := reg.GetVersionContentDereferenced(ctx, gav)
				if err != nil {
					return err
				}
				result := struct {
					ContentType string            `json:"contentType"`
					Content     string            `json:"content"`
					References  map[string]string `json:"references"`
				}{resolved.Content.ContentType, string(resolved.Content.Content), make(map[string]string, len(resolved.References))}
				for coordinate, typed := range resolved.References {
					result.References[coordinate] = string(typed.Content)
				}
				if done, err := params.EmitJSON(result); done {
					return err
				}
				_, err = cli.Stdout.Write(resolved.Content.Content)
				return err
			}

			version, content, err := reg.GetVersionContent(ctx, gav)
			if err != nil {
				return err
			}
			if params.Content {
				_, err = cli.Stdout.Write(content.Data)
				return err
			}

			if done, err := params.EmitJSON(newVersionView(version)); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "%s\n", version.GAV)
			fmt.Fprintf(cli.Stdout, "  global id:    %d\n", version.GlobalID)
			fmt.Fprintf(cli.Stdout, "  content id:   %d\n", version.ContentID)
			fmt.Fprintf(cli.Stdout, "  state:        %s\n", version.State)
			fmt.Fprintf(cli.Stdout, "  content type: %s\n", content.ContentType)
			fmt.Fprintf(cli.Stdout, "  hash:         %s\n", content.Hash)
			fmt.Fprintf(cli.Stdout, "  created:      %s by %s\n", formatTime(version.CreatedOn), dash(version.CreatedBy))
			for _, reference := range content.References {
				fmt.Fprintf(cli.Stdout, "  reference:    %s -> %s\n", reference.Name, reference.GAV())
			}
			return nil
		},
	}
}

type versionListParams struct {
	registryParams
	cli.JSONOutput
}

func versionListCommand() *cli.Command {
	var params versionListParams
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List the versions of an artifact",
		Usage:   "registry version list <group> <artifact> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("group and artifact arguments required\n\nUsage: registry version list <group> <artifact> [flags]")
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

			versions, err := reg.Graph().ListVersions(ctx, ga)
			if err != nil {
				return err
			}
			views := newVersionViews(versions)
			if done, err := params.EmitJSON(views); done {
				return err
			}

			writer := tabwriter.NewWriter(cli.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "VERSION\tGLOBAL ID\tCONTENT ID\tSTATE\tCREATED\n")
			for _, view := range views {
				fmt.Fprintf(writer, "%s\t%d\t%d\t%s\t%s\n",
					view.Version, view.GlobalID, view.ContentID, view.State, formatTime(view.CreatedOn))
			}
			return writer.Flush()
		},
	}
}

type versionStateParams struct {
	registryParams
	ModifiedBy string `flag:"modified-by" desc:"user recorded as the modifier"`
}

func versionStateCommand() *cli.Command {
	var params versionStateParams
	return &cli.Command{
		Name:    "state",
		Summary: "Set a version's state",
		Description: `Set a version to ENABLED, DISABLED or DEPRECATED. Disabled versions
stay on their branches but are skipped when a branch leaf is read
with --skip-disabled.`,
		Usage: "registry version state <group> <artifact> <version> <state> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("state", &params)
		},
		Run: func(args []string) error {
			if len(args) != 4 {
				return cli.Validation("group, artifact, version and state arguments required\n\nUsage: registry version state <group> <artifact> <version> <state> [flags]")
			}
			gav, err := parseGAV(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			state, err := model.ParseVersionState(args[3])
			if err != nil {
				return cli.Validation("%w", err)
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			if err := reg.Graph().UpdateVersionState(ctx, gav, state, params.ModifiedBy); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "%s is now %s\n", gav, state)
			return nil
		},
	}
}

func versionDeleteCommand() *cli.Command {
	var params registryParams
	return &cli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Summary: "Delete a version",
		Usage:   "registry version delete <group> <artifact> <version> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return cli.Validation("group, artifact and version arguments required\n\nUsage: registry version delete <group> <artifact> <version> [flags]")
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

			if err := reg.Graph().DeleteVersion(ctx, gav); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "deleted version %s\n", gav)
			return nil
		},
	}
}

type versionReferrersParams struct {
	registryParams
	cli.JSONOutput
}

func versionReferrersCommand() *cli.Command {
	var params versionReferrersParams
	return &cli.Command{
		Name:    "referrers",
		Summary: "List versions whose content references this version",
		Usage:   "registry version referrers <group> <artifact> <version> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("referrers", &params)
		},
		Run: func(args []string) error {
			if len(args) != 3 {
				return cli.Validation("group, artifact and version arguments required\n\nUsage: registry version referrers <group> <artifact> <version> [flags]")
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

			versions, err := reg.GetInboundReferences(ctx, gav)
			if err != nil {
				return err
			}
			views := newVersionViews(versions)
			if done, err := params.EmitJSON(views); done {
				return err
			}
			for _, version := range versions {
				fmt.Fprintf(cli.Stdout, "%s\t%d\n", version.GAV, version.GlobalID)
			}
			return nil
		},
	}
}
