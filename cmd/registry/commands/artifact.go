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
	"github.com/bureau-foundation/registry/lib/registry"
)

func artifactCommand() *cli.Command {
	return &cli.Command{
		Name:    "artifact",
		Summary: "Create, inspect, and delete artifacts",
		Description: `An artifact is a named, typed sequence of versions within a group.
Every artifact has a system-defined "latest" branch listing its
versions in creation order.`,
		Subcommands: []*cli.Command{
			artifactCreateCommand(),
			artifactGetCommand(),
			artifactListCommand(),
			artifactDeleteCommand(),
		},
	}
}

// contentParams describe a version's content and metadata. Shared by
// "artifact create" and "version add".
type contentParams struct {
	File        string            `flag:"file,f" desc:"content file, - for stdin"`
	ContentType string            `flag:"content-type" desc:"media type of the content (default: from the artifact type)"`
	Version     string            `flag:"version" desc:"version id (default: next version order)"`
	Name        string            `flag:"name" desc:"version display name"`
	Description string            `flag:"description" desc:"version description"`
	State       string            `flag:"state" desc:"initial state: ENABLED, DISABLED or DEPRECATED"`
	CreatedBy   string            `flag:"created-by" desc:"owner recorded on the version"`
	Labels      map[string]string `flag:"label" desc:"key=value label (repeatable)"`
	References  []string          `flag:"ref" desc:"group:artifact:version:name reference (repeatable)"`
	Branches    []string          `flag:"branch" desc:"custom branch to append the version to (repeatable)"`
}

func (p *contentParams) request() (registry.VersionRequest, error) {
	if p.File == "" {
		return registry.VersionRequest{}, cli.Validation("--file is required (use - for stdin)")
	}
	content, err := readInput(p.File)
	if err != nil {
		return registry.VersionRequest{}, err
	}
	request := registry.VersionRequest{
		Version:     p.Version,
		Content:     content,
		ContentType: p.ContentType,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
	}
	if p.State != "" {
		request.State, err = model.ParseVersionState(p.State)
		if err != nil {
			return registry.VersionRequest{}, cli.Validation("%w", err)
		}
	}
	if err := checkLabels(p.Labels); err != nil {
		return registry.VersionRequest{}, err
	}
	request.Labels = p.Labels
	if request.References, err = parseReferences(p.References); err != nil {
		return registry.VersionRequest{}, err
	}
	if request.Branches, err = parseBranches(p.Branches); err != nil {
		return registry.VersionRequest{}, err
	}
	return request, nil
}

type artifactCreateParams struct {
	registryParams
	cli.JSONOutput
	contentParams
	ArtifactType string `flag:"type,t" desc:"artifact type (e.g. OPENAPI, AVRO, JSON)"`
	Empty        bool   `flag:"empty" desc:"create the artifact without a first version"`
}

func artifactCreateCommand() *cli.Command {
	var params artifactCreateParams
	return &cli.Command{
		Name:    "create",
		Summary: "Create an artifact and its first version",
		Usage:   "registry artifact create <group> <artifact> --type TYPE (--file PATH | --empty) [flags]",
		Examples: []cli.Example{
			{
				Description: "Create an OpenAPI artifact from a file",
				Command:     "registry artifact create payments invoice-api --type OPENAPI --file openapi.json",
			},
			{
				Description: "Create an artifact in the default group with no versions",
				Command:     "registry artifact create default scratch --type JSON --empty",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("group and artifact arguments required\n\nUsage: registry artifact create <group> <artifact> --type TYPE (--file PATH | --empty) [flags]")
			}
			if params.ArtifactType == "" {
				return cli.Validation("--type is required")
			}
			ga, err := parseGA(args[0], args[1])
			if err != nil {
				return err
			}
			request := registry.ArtifactRequest{
				GA:           ga,
				ArtifactType: params.ArtifactType,
				CreatedBy:    params.CreatedBy,
			}
			if !params.Empty {
				first, err := params.contentParams.request()
				if err != nil {
					return err
				}
				request.FirstVersion = &first
			} else if params.File != "" {
				return cli.Validation("--file and --empty are mutually exclusive")
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			artifact, version, err := reg.CreateArtifact(ctx, request)
			if err != nil {
				return err
			}

			result := struct {
				Artifact artifactView `json:"artifact"`
				Version  *versionView `json:"version,omitempty"`
			}{Artifact: newArtifactView(artifact)}
			if version != nil {
				view := newVersionView(*version)
				result.Version = &view
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Fprintf(cli.Stdout, "created artifact %s (%s)\n", artifact.GA, artifact.ArtifactType)
			if version != nil {
				fmt.Fprintf(cli.Stdout, "  version %s  global id %d  content id %d\n",
					version.GAV.Version, version.GlobalID, version.ContentID)
			}
			return nil
		},
	}
}

type artifactGetParams struct {
	registryParams
	cli.JSONOutput
}

func artifactGetCommand() *cli.Command {
	var params artifactGetParams
	return &cli.Command{
		Name:    "get",
		Summary: "Show an artifact and its versions",
		Usage:   "registry artifact get <group> <artifact> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("group and artifact arguments required\n\nUsage: registry artifact get <group> <artifact> [flags]")
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

			artifact, err := reg.Graph().GetArtifact(ctx, ga)
			if err != nil {
				return err
			}
			versions, err := reg.Graph().ListVersions(ctx, ga)
			if err != nil {
				return err
			}

			result := struct {
				artifactView
				Versions []versionView `json:"versions"`
			}{newArtifactView(artifact), newVersionViews(versions)}
			if done, err := params.EmitJSON(result); done {
				return err
			}

			fmt.Fprintf(cli.Stdout, "%s\n", artifact.GA)
			fmt.Fprintf(cli.Stdout, "  type:     %s\n", artifact.ArtifactType)
			fmt.Fprintf(cli.Stdout, "  created:  %s by %s\n", formatTime(artifact.CreatedOn), dash(artifact.CreatedBy))
			fmt.Fprintf(cli.Stdout, "  versions: %d\n", len(versions))
			return nil
		},
	}
}

type artifactListParams struct {
	registryParams
	cli.JSONOutput
}

func artifactListCommand() *cli.Command {
	var params artifactListParams
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List artifacts in a group",
		Usage:   "registry artifact list [<group>] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return cli.Validation("at most one group argument\n\nUsage: registry artifact list [<group>] [flags]")
			}
			var groupID model.GroupID
			if len(args) == 1 {
				var err error
				if groupID, err = model.ParseGroupID(args[0]); err != nil {
					return cli.Validation("%w", err)
				}
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			artifacts, err := reg.Graph().ListArtifacts(ctx, groupID)
			if err != nil {
				return err
			}
			views := make([]artifactView, 0, len(artifacts))
			for _, artifact := range artifacts {
				views = append(views, newArtifactView(artifact))
			}
			if done, err := params.EmitJSON(views); done {
				return err
			}

			writer := tabwriter.NewWriter(cli.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "GROUP\tARTIFACT\tTYPE\tCREATED\n")
			for _, view := range views {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
					view.GroupID, view.ArtifactID, view.ArtifactType, formatTime(view.CreatedOn))
			}
			return writer.Flush()
		},
	}
}

func artifactDeleteCommand() *cli.Command {
	var params registryParams
	return &cli.Command{
		Name:        "delete",
		Aliases:     []string{"rm"},
		Summary:     "Delete an artifact with all its versions and branches",
		Description: "Delete an artifact. Content no longer referenced by any version is\nleft in place until 'registry content gc' runs.",
		Usage:       "registry artifact delete <group> <artifact> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("group and artifact arguments required\n\nUsage: registry artifact delete <group> <artifact> [flags]")
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

			if err := reg.Graph().DeleteArtifact(ctx, ga); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "deleted artifact %s\n", ga)
			return nil
		},
	}
}
