// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/refresolve"
)

// Canonicalize normalizes content with the canonicalizer registered
// for artifactType. It never fails: if references cannot be resolved
// or the canonicalizer errors, the content is returned unchanged.
func (s *Store) Canonicalize(ctx context.Context, artifactType string, content model.TypedContent, references []model.ArtifactReference, loader refresolve.Loader) model.TypedContent {
	provider, _ := s.types.Lookup(artifactType)
	resolved := map[string]model.TypedContent{}
	if len(references) > 0 && loader != nil {
		var err error
		resolved, err = s.resolver.ResolveReferences(ctx, references, loader)
		if err != nil {
			s.logger.Debug("canonicalization using raw content",
				"artifact_type", artifactType,
				"error", err,
			)
			return content
		}
	}
	canonical, err := provider.Canonicalizer.Canonicalize(content, resolved)
	if err != nil {
		s.logger.Debug("canonicalization using raw content",
			"artifact_type", artifactType,
			"error", err,
		)
		return content
	}
	return canonical
}

// ComputeCanonicalHash returns the content hash of the canonical form
// of content.
func (s *Store) ComputeCanonicalHash(ctx context.Context, artifactType string, content model.TypedContent, references []model.ArtifactReference, loader refresolve.Loader) (string, error) {
	canonical := s.Canonicalize(ctx, artifactType, content, references, loader)
	return ContentHash(canonical.Content, references)
}

// CanonicalHash returns the canonical hash of stored content,
// computing and storing it on first use.
func (s *Store) CanonicalHash(ctx context.Context, id int64, loader refresolve.Loader) (string, error) {
	content, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if content.CanonicalHash != "" {
		return content.CanonicalHash, nil
	}
	hash, err := s.ComputeCanonicalHash(ctx, content.ArtifactType, content.Typed(), content.References, loader)
	if err != nil {
		return "", err
	}
	err = s.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		return s.setCanonicalHash(h, id, hash, true)
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *Store) setCanonicalHash(h *handle.Handle, id int64, hash string, onlyIfMissing bool) error {
	query := `UPDATE content SET canonical_hash = ? WHERE content_id = ?`
	if onlyIfMissing {
		query += ` AND canonical_hash IS NULL`
	}
	if err := h.Execute(query, &sqlitex.ExecOptions{Args: []any{hash, id}}); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(cacheKey(id))
	}
	return nil
}

// FindByCanonicalHash returns the ids of content whose canonical hash
// is hash, in id order. Content whose canonical hash has not been
// computed yet is not found.
func (s *Store) FindByCanonicalHash(ctx context.Context, hash string) ([]int64, error) {
	return s.ids(ctx, `SELECT content_id FROM content WHERE canonical_hash = ? ORDER BY content_id`, hash)
}

// ReferencingContent returns the ids of content that references gav.
func (s *Store) ReferencingContent(ctx context.Context, gav model.GAV) ([]int64, error) {
	return s.ids(ctx, `
		SELECT DISTINCT content_id FROM content_references
		WHERE group_id = ? AND artifact_id = ? AND version = ?
		ORDER BY content_id`,
		gav.GroupID.RawValue(), gav.ArtifactID, gav.Version)
}

func (s *Store) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	return handle.View(ctx, s.handles, func(ctx context.Context, h *handle.Handle) ([]int64, error) {
		var ids []int64
		err := h.Execute(query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ids = append(ids, stmt.ColumnInt64(0))
				return nil
			},
		})
		return ids, err
	})
}

// DeleteOrphaned removes content used by no version and returns how
// many rows were removed.
func (s *Store) DeleteOrphaned(ctx context.Context) (int, error) {
	removed, err := handle.With(ctx, s.handles, func(ctx context.Context, h *handle.Handle) ([]int64, error) {
		var ids []int64
		err := h.Execute(`
			SELECT content_id FROM content
			WHERE content_id NOT IN (SELECT content_id FROM versions)`,
			&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
				ids = append(ids, stmt.ColumnInt64(0))
				return nil
			}})
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if err := h.Execute(`DELETE FROM content_references WHERE content_id = ?`, &sqlitex.ExecOptions{Args: []any{id}}); err != nil {
				return nil, err
			}
			if err := h.Execute(`DELETE FROM content WHERE content_id = ?`, &sqlitex.ExecOptions{Args: []any{id}}); err != nil {
				return nil, err
			}
		}
		return ids, nil
	})
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		for _, id := range removed {
			s.cache.Delete(cacheKey(id))
		}
	}
	if len(removed) > 0 {
		s.logger.Info("deleted orphaned content", "count", len(removed))
	}
	return len(removed), nil
}
