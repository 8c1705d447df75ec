// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"filippo.io/age"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/registry/cmd/registry/cli"
	"github.com/bureau-foundation/registry/lib/config"
	"github.com/bureau-foundation/registry/lib/impexp"
)

type exportParams struct {
	registryParams
	cli.JSONOutput
	Output      string `flag:"output,o" desc:"archive path, - for stdout"`
	Recipients  string `flag:"recipients" desc:"age recipients file (default: archive.recipients_file)"`
	Plain       bool   `flag:"plain" desc:"write an unencrypted archive even if recipients are configured"`
	Description string `flag:"description" desc:"free text recorded in the archive manifest"`
	Force       bool   `flag:"force" desc:"overwrite an existing output file"`
}

func exportCommand() *cli.Command {
	var params exportParams
	return &cli.Command{
		Name:    "export",
		Summary: "Write the whole registry to an archive",
		Description: `Export every group, rule, content, version, branch and comment to a
single archive. Records are CBOR, zstd-compressed, and sealed with a
keyed BLAKE3 digest. With recipients the archive is age-encrypted.`,
		Usage: "registry export --output PATH [flags]",
		Examples: []cli.Example{
			{
				Description: "Encrypted export for a disaster-recovery key",
				Command:     "registry export -o backup.regarc --recipients dr-keys.txt",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("export", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected arguments %v\n\nUsage: registry export --output PATH [flags]", args)
			}
			if params.Output == "" {
				return cli.Validation("--output is required (use - for stdout)")
			}

			ctx := context.Background()
			reg, cfg, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			recipients, err := params.recipients(cfg)
			if err != nil {
				return err
			}

			output, err := createOutput(params.Output, params.Force)
			if err != nil {
				return err
			}
			counts, err := impexp.ExportArchive(ctx, reg, output, impexp.ExportOptions{
				Description: params.Description,
			}, recipients...)
			if closeErr := output.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				if params.Output != "-" {
					os.Remove(params.Output)
				}
				return err
			}

			summary := make(map[string]int, len(counts))
			for entityType, count := range counts {
				summary[string(entityType)] = count
			}
			if done, err := params.EmitJSON(summary); done {
				return err
			}
			if params.Output == "-" {
				return nil
			}
			encrypted := ""
			if len(recipients) > 0 {
				encrypted = fmt.Sprintf(" (encrypted for %d recipients)", len(recipients))
			}
			fmt.Fprintf(cli.Stdout, "exported to %s%s\n", params.Output, encrypted)
			for _, entityType := range impexp.EntityTypes {
				if count := counts[entityType]; count > 0 {
					fmt.Fprintf(cli.Stdout, "  %-16s %d\n", entityType, count)
				}
			}
			return nil
		},
	}
}

func (p *exportParams) recipients(cfg *config.Config) ([]age.Recipient, error) {
	if p.Plain {
		return nil, nil
	}
	path := p.Recipients
	if path == "" {
		path = cfg.Archive.RecipientsFile
	}
	if path == "" {
		return nil, nil
	}
	file, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return impexp.ParseRecipients(file)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func createOutput(path string, force bool) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{cli.Stdout}, nil
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil, cli.Conflict("%s already exists (use --force to overwrite)", path)
	}
	return file, err
}

func openInput(path string) (*os.File, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cli.NotFound("%s does not exist", path)
	}
	return file, err
}

type importParams struct {
	registryParams
	cli.JSONOutput
	Input              string `flag:"input,i" desc:"archive path, - for stdin"`
	Identity           string `flag:"identity" desc:"age identity file (default: archive.identity_file)"`
	PreserveGlobalIDs  bool   `flag:"preserve-global-ids" desc:"keep archived global ids (also enabled by import.preserve_global_id)"`
	PreserveContentIDs bool   `flag:"preserve-content-ids" desc:"keep archived content ids (also enabled by import.preserve_content_id)"`
	Strict             bool   `flag:"strict" desc:"exit 1 when any entity conflicted, failed, or was left dangling"`
}

func importCommand() *cli.Command {
	var params importParams
	return &cli.Command{
		Name:    "import",
		Summary: "Load an archive into the registry",
		Description: `Import an archive produced by 'registry export'. Entities are applied
in any order: versions wait for their content, and branches and
comments wait for their versions. Entities that collide with existing
data are skipped and counted. The archive digest is verified before
the import is finalized.`,
		Usage: "registry import --input PATH [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("import", &params)
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return cli.Validation("unexpected arguments %v\n\nUsage: registry import --input PATH [flags]", args)
			}
			if params.Input == "" {
				return cli.Validation("--input is required (use - for stdin)")
			}

			ctx := context.Background()
			reg, cfg, err := params.open(ctx)
			if err != nil {
				return err
			}
			defer reg.Close()

			identities, err := params.identities(cfg)
			if err != nil {
				return err
			}

			var input io.Reader = Stdin
			if params.Input != "-" {
				file, err := openInput(params.Input)
				if err != nil {
					return err
				}
				defer file.Close()
				input = file
			}

			report, err := impexp.ImportArchive(ctx, reg, input, impexp.Options{
				PreserveGlobalID:  params.PreserveGlobalIDs || cfg.Import.PreserveGlobalID,
				PreserveContentID: params.PreserveContentIDs || cfg.Import.PreserveContentID,
			}, identities...)
			if errors.Is(err, impexp.ErrEncrypted) {
				return cli.Validation("%s is encrypted; pass --identity or set archive.identity_file", params.Input)
			}
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(newReportView(report, cfg.Import.ReportDangling)); done {
				if err != nil {
					return err
				}
				return params.verdict(report)
			}
			fmt.Fprintf(cli.Stdout, "import %s\n%s\n", report.RunID, report)
			if report.LatestRebuilt > 0 {
				fmt.Fprintf(cli.Stdout, "rebuilt latest branch of %d artifacts\n", report.LatestRebuilt)
			}
			if cfg.Import.ReportDangling {
				for _, dangling := range report.Dangling {
					fmt.Fprintf(cli.Stdout, "dangling %s: missing %s\n", dangling.Entity.EntityType(), dangling.Missing)
				}
			}
			return params.verdict(report)
		},
	}
}

// verdict turns an incomplete import into a silent non-zero exit when
// --strict is set. The report has already been printed.
func (p *importParams) verdict(report impexp.Report) error {
	if p.Strict && report.Conflicts+report.Failed+len(report.Dangling) > 0 {
		return &cli.ExitError{Code: cli.ExitFailure}
	}
	return nil
}

func (p *importParams) identities(cfg *config.Config) ([]age.Identity, error) {
	path := p.Identity
	if path == "" {
		path = cfg.Archive.IdentityFile
	}
	if path == "" {
		return nil, nil
	}
	file, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return impexp.ParseIdentities(file)
}

type reportView struct {
	RunID         string         `json:"runId"`
	Imported      map[string]int `json:"imported"`
	Conflicts     int            `json:"conflicts"`
	Failed        int            `json:"failed"`
	Skipped       int            `json:"skipped"`
	LatestRebuilt int            `json:"latestRebuilt"`
	DanglingCount int            `json:"danglingCount"`
	Dangling      []danglingView `json:"dangling,omitempty"`
}

type danglingView struct {
	EntityType string `json:"entityType"`
	Missing    string `json:"missing"`
}

func newReportView(report impexp.Report, includeDangling bool) reportView {
	view := reportView{
		RunID:         report.RunID,
		Imported:      make(map[string]int, len(report.Imported)),
		Conflicts:     report.Conflicts,
		Failed:        report.Failed,
		Skipped:       report.Skipped,
		LatestRebuilt: report.LatestRebuilt,
		DanglingCount: len(report.Dangling),
	}
	for entityType, count := range report.Imported {
		view.Imported[string(entityType)] = count
	}
	if includeDangling {
		for _, dangling := range report.Dangling {
			view.Dangling = append(view.Dangling, danglingView{
				EntityType: string(dangling.Entity.EntityType()),
				Missing:    dangling.Missing,
			})
		}
	}
	return view
}

type keygenParams struct {
	cli.JSONOutput
	Output string `flag:"output,o" desc:"identity file to write (default: print to stdout)"`
	Force  bool   `flag:"force" desc:"overwrite an existing identity file"`
}

func keygenCommand() *cli.Command {
	var params keygenParams
	return &cli.Command{
		Name:    "keygen",
		Summary: "Generate an archive encryption key pair",
		Description: `Generate an age X25519 key pair. The recipient line goes into the
recipients file used by 'registry export'; the identity is secret and
is needed by 'registry import'.`,
		Usage: "registry keygen [--output PATH] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("keygen", &params)
		},
		Run: func(args []string) error {
			recipient, identity, err := impexp.GenerateKey()
			if err != nil {
				return err
			}

			if params.Output != "" {
				file, err := createOutput(params.Output, params.Force)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(file, "# recipient: %s\n%s\n", recipient, identity)
				if closeErr := file.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					return err
				}
				identity = ""
			}

			result := struct {
				Recipient string `json:"recipient"`
				Identity  string `json:"identity,omitempty"`
			}{recipient, identity}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			fmt.Fprintf(cli.Stdout, "recipient: %s\n", recipient)
			if identity != "" {
				fmt.Fprintf(cli.Stdout, "identity:  %s\n", identity)
			} else {
				fmt.Fprintf(cli.Stdout, "identity written to %s\n", params.Output)
			}
			return nil
		},
	}
}
