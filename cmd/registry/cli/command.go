// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the registry command tree: a resource noun
// such as "branch" whose subcommands are verbs, or a verb with a Run
// function.
type Command struct {
	// Name is what the operator types, e.g. "branch" or "leaf".
	Name string

	// Aliases are alternative spellings accepted in place of Name, such
	// as "ls" for "list".
	Aliases []string

	// Summary is the line shown next to the command in its parent's
	// command table.
	Summary string

	// Description replaces Summary at the top of the command's own help.
	Description string

	// Usage overrides the synthesized usage line, for commands that
	// take positional coordinates ("registry version get <group>
	// <artifact> <version>").
	Usage string

	// Examples follow the flag table in help output.
	Examples []Example

	// Environment lists the variables the command reads. Only the
	// command that declares them shows them in help.
	Environment []EnvVar

	// Flags builds the command's flag set. It is called on every parse
	// and every help render, so it must return a fresh set bound to the
	// command's params. Nil means the command takes no flags.
	Flags func() *pflag.FlagSet

	// Subcommands are dispatched on the first positional argument.
	Subcommands []*Command

	// Run receives the positional arguments left after flag parsing.
	// A command with both Run and Subcommands runs when the first
	// argument names no subcommand.
	Run func(args []string) error

	parent *Command
}

// Example is one annotated invocation in help output.
type Example struct {
	Description string
	Command     string
}

// EnvVar documents an environment variable in help output.
type EnvVar struct {
	Name        string
	Description string
}

// HelpOutput receives help text. Tests replace it.
var HelpOutput io.Writer = os.Stderr

// Execute dispatches args through the tree. Usage mistakes (an unknown
// command or flag, a missing subcommand) come back as validation
// errors that point at --help.
func (c *Command) Execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(HelpOutput)
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if sub := c.lookup(args[0]); sub != nil {
			sub.parent = c
			return sub.Execute(args[1:])
		}
		if c.Run == nil {
			if suggestion := suggestCommand(args[0], c.Subcommands); suggestion != "" {
				return c.usageError("unknown command %q (did you mean %q?)", args[0], suggestion)
			}
			return c.usageError("unknown command %q", args[0])
		}
	}

	if len(c.Subcommands) > 0 && c.Run == nil {
		c.PrintHelp(HelpOutput)
		if len(args) == 0 {
			return c.usageError("%s needs a subcommand", c.fullName())
		}
		return c.usageError("%s needs a subcommand before flag %q", c.fullName(), args[0])
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)
		if err := flagSet.Parse(args); err != nil {
			message := err.Error()
			if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand flag") {
				// Parse may have set some fields; suggest from a fresh set.
				if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
					return c.usageError("%s (did you mean %s?)", message, suggestion)
				}
			}
			return c.usageError("%s", message)
		}
		args = flagSet.Args()
	}

	if c.Run == nil {
		c.PrintHelp(HelpOutput)
		return fmt.Errorf("%s has nothing to run", c.fullName())
	}
	return c.Run(args)
}

// lookup finds the subcommand called name, by name or alias.
func (c *Command) lookup(name string) *Command {
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			return sub
		}
		for _, alias := range sub.Aliases {
			if alias == name {
				return sub
			}
		}
	}
	return nil
}

func (c *Command) usageError(format string, args ...any) *ToolError {
	message := fmt.Sprintf(format, args...)
	return Validation("%s\n\nRun '%s --help' for usage.", message, c.fullName())
}

// PrintHelp writes the command's help to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	switch {
	case c.Description != "":
		fmt.Fprintf(w, "%s\n\n", c.Description)
	case c.Summary != "":
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	usage := c.Usage
	if usage == "" {
		usage = name + " [flags]"
		if len(c.Subcommands) > 0 {
			usage = name + " <command> [flags]"
		}
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", usage)
	if len(c.Aliases) > 0 {
		fmt.Fprintf(w, "\nAliases:\n  %s\n", strings.Join(append([]string{c.Name}, c.Aliases...), ", "))
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(table, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		table.Flush()
	}

	if c.Flags != nil {
		if flags := c.Flags().FlagUsages(); flags != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", flags)
		}
	}

	if len(c.Environment) > 0 {
		fmt.Fprintf(w, "\nEnvironment:\n")
		table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, variable := range c.Environment {
			fmt.Fprintf(table, "  %s\t%s\n", variable.Name, variable.Description)
		}
		table.Flush()
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for index, example := range c.Examples {
			if index > 0 {
				fmt.Fprintln(w)
			}
			if example.Description != "" {
				fmt.Fprintf(w, "  # %s\n", example.Description)
			}
			fmt.Fprintf(w, "  %s\n", example.Command)
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for details on a command.\n", name)
	}
}

// fullName is the command path from the root, e.g. "registry branch add".
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
