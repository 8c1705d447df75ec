// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/bureau-foundation/registry/cmd/registry/cli"
	"github.com/bureau-foundation/registry/lib/config"
)

// Root returns the top-level registry command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "registry",
		Summary: "Versioned schema and API artifact registry",
		Description: `Manage a local artifact registry: artifacts and their versions,
branches, rules, comments, and content-addressed storage. Whole
registries move between databases as signed, optionally encrypted
archives.`,
		Environment: []cli.EnvVar{
			{Name: config.EnvVar, Description: "configuration file used when --config is not given"},
		},
		Subcommands: []*cli.Command{
			groupCommand(),
			artifactCommand(),
			versionCommand(),
			branchCommand(),
			ruleCommand(),
			commentCommand(),
			contentCommand(),
			exportCommand(),
			importCommand(),
			keygenCommand(),
			aboutCommand(),
		},
	}
}
