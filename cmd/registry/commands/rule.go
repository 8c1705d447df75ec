// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/registry/cmd/registry/cli"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

func ruleCommand() *cli.Command {
	return &cli.Command{
		Name:    "rule",
		Summary: "Manage global and artifact rules",
		Description: `Rules carry an opaque configuration string keyed by type: VALIDITY,
COMPATIBILITY or INTEGRITY. Without --group and --artifact a command
acts on the global rules.`,
		Subcommands: []*cli.Command{
			ruleSetCommand(),
			ruleListCommand(),
			ruleDeleteCommand(),
		},
	}
}

// ruleTargetParams selects an artifact, or the global rules when both
// fields are empty.
type ruleTargetParams struct {
	Group    string `flag:"group" desc:"group of the artifact owning the rule"`
	Artifact string `flag:"artifact" desc:"artifact owning the rule (omit for global rules)"`
}

func (p *ruleTargetParams) target() (*model.GA, error) {
	if p.Artifact == "" {
		if p.Group != "" {
			return nil, cli.Validation("--group requires --artifact")
		}
		return nil, nil
	}
	ga, err := parseGA(p.Group, p.Artifact)
	if err != nil {
		return nil, err
	}
	return &ga, nil
}

func ruleScope(ga *model.GA) string {
	if ga == nil {
		return "global"
	}
	return ga.String()
}

type ruleSetParams struct {
	registryParams
	ruleTargetParams
}

func ruleSetCommand() *cli.Command {
	var params ruleSetParams
	return &cli.Command{
		Name:    "set",
		Summary: "Create or replace a rule",
		Usage:   "registry rule set <type> <configuration> [--group G --artifact A] [flags]",
		Examples: []cli.Example{
			{
				Description: "Require backward compatibility for one artifact",
				Command:     "registry rule set COMPATIBILITY BACKWARD --group payments --artifact invoice-api",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("set", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("type and configuration arguments required\n\nUsage: registry rule set <type> <configuration> [--group G --artifact A] [flags]")
			}
			ruleType, err := model.ParseRuleType(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			ga, err := params.target()
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			rule := versiongraph.Rule{GA: ga, Type: ruleType, Configuration: args[1]}
			err = reg.Graph().CreateRule(ctx, rule)
			if errors.Is(err, registryerr.ErrConflict) {
				err = reg.Graph().UpdateRule(ctx, rule)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "%s rule %s = %s\n", ruleScope(ga), ruleType, rule.Configuration)
			return nil
		},
	}
}

type ruleListParams struct {
	registryParams
	cli.JSONOutput
	ruleTargetParams
}

func ruleListCommand() *cli.Command {
	var params ruleListParams
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List rules",
		Usage:   "registry rule list [--group G --artifact A] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			ga, err := params.target()
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			rules, err := reg.Graph().ListRules(ctx, ga)
			if err != nil {
				return err
			}
			views := make([]ruleView, 0, len(rules))
			for _, rule := range rules {
				views = append(views, newRuleView(rule))
			}
			if done, err := params.EmitJSON(views); done {
				return err
			}

			writer := tabwriter.NewWriter(cli.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(writer, "SCOPE\tTYPE\tCONFIGURATION\n")
			for _, rule := range rules {
				fmt.Fprintf(writer, "%s\t%s\t%s\n", ruleScope(rule.GA), rule.Type, rule.Configuration)
			}
			return writer.Flush()
		},
	}
}

type ruleDeleteParams struct {
	registryParams
	ruleTargetParams
}

func ruleDeleteCommand() *cli.Command {
	var params ruleDeleteParams
	return &cli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Summary: "Delete a rule",
		Usage:   "registry rule delete <type> [--group G --artifact A] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("delete", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("type argument required\n\nUsage: registry rule delete <type> [--group G --artifact A] [flags]")
			}
			ruleType, err := model.ParseRuleType(args[0])
			if err != nil {
				return cli.Validation("%w", err)
			}
			ga, err := params.target()
			if err != nil {
				return err
			}

			ctx := context.Background()
			reg, _, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			if err := reg.Graph().DeleteRule(ctx, ga, ruleType); err != nil {
				return err
			}
			fmt.Fprintf(cli.Stdout, "deleted %s rule %s\n", ruleScope(ga), ruleType)
			return nil
		},
	}
}
