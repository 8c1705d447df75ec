// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package impexp

import (
	"context"
	"errors"
	"io"

	"filippo.io/age"

	"github.com/bureau-foundation/registry/lib/registry"
)

// ExportArchive writes the whole registry to w as an archive,
// encrypted when recipients are given.
func ExportArchive(ctx context.Context, reg *registry.Registry, w io.Writer, options ExportOptions, recipients ...age.Recipient) (map[EntityType]int, error) {
	writer, err := NewWriter(w, recipients...)
	if err != nil {
		return nil, err
	}
	counts, err := NewExporter(reg, options).Export(ctx, writer.Write)
	if err != nil {
		return counts, err
	}
	return counts, writer.Close()
}

// ImportArchive reads an archive from r into reg and runs PostImport.
// The archive digest is verified before PostImport; on a mismatch the
// entities already applied stay in place and the error is returned
// without a report.
func ImportArchive(ctx context.Context, reg *registry.Registry, r io.Reader, options Options, identities ...age.Identity) (Report, error) {
	reader, err := NewReader(r, identities...)
	if err != nil {
		return Report{}, err
	}
	defer reader.Close()

	importer := NewImporter(reg, options)
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Report{}, err
		}
		if err := importer.ImportRecord(ctx, record); err != nil {
			return Report{}, err
		}
	}
	return importer.PostImport(ctx)
}
