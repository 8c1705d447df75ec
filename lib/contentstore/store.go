// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/artifacttype"
	"github.com/bureau-foundation/registry/lib/codec"
	"github.com/bureau-foundation/registry/lib/compress"
	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/refresolve"
	"github.com/bureau-foundation/registry/lib/registrydb"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// Config holds the dependencies of a Store.
type Config struct {
	// Handles scopes every query. Required.
	Handles *handle.Manager

	// Types supplies canonicalizers. Defaults to artifacttype.Default().
	Types *artifacttype.Registry

	// Resolver resolves references for canonicalization. Defaults to
	// a resolver over Types.
	Resolver *refresolve.Resolver

	// Compression is the codec for new blobs. compress.Auto picks per
	// document.
	Compression compress.Tag

	// CacheTTL bounds how long a row stays in the read cache. Zero
	// means five minutes; negative disables the cache.
	CacheTTL time.Duration

	// CacheCleanup is the expired-entry sweep interval. Zero means ten
	// minutes.
	CacheCleanup time.Duration

	Logger *slog.Logger
}

// Store reads and writes content rows.
type Store struct {
	handles     *handle.Manager
	types       *artifacttype.Registry
	resolver    *refresolve.Resolver
	compression compress.Tag
	cache       *gocache.Cache
	logger      *slog.Logger
}

// Content is one stored document.
type Content struct {
	ID            int64
	Hash          string
	CanonicalHash string
	ArtifactType  string
	ContentType   string
	Data          []byte
	References    []model.ArtifactReference
}

// Wrapper returns the content in the form reference loaders return.
func (c *Content) Wrapper() *model.ContentWrapper {
	return &model.ContentWrapper{
		ArtifactType: c.ArtifactType,
		Content:      c.Data,
		ContentType:  c.ContentType,
		References:   c.References,
	}
}

// Typed returns the document with its media type.
func (c *Content) Typed() model.TypedContent {
	return model.TypedContent{Content: c.Data, ContentType: c.ContentType}
}

// New creates a Store.
func New(cfg Config) (*Store, error) {
	if cfg.Handles == nil {
		return nil, fmt.Errorf("contentstore: Handles is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	types := cfg.Types
	if types == nil {
		types = artifacttype.Default()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = refresolve.New(types, logger)
	}
	store := &Store{
		handles:     cfg.Handles,
		types:       types,
		resolver:    resolver,
		compression: cfg.Compression,
		logger:      logger,
	}
	if cfg.CacheTTL >= 0 {
		ttl := cfg.CacheTTL
		if ttl == 0 {
			ttl = 5 * time.Minute
		}
		cleanup := cfg.CacheCleanup
		if cleanup == 0 {
			cleanup = 10 * time.Minute
		}
		store.cache = gocache.New(ttl, cleanup)
	}
	return store, nil
}

// NewContent describes a document to store.
type NewContent struct {
	Data         []byte
	References   []model.ArtifactReference
	ArtifactType string
	ContentType  string
}

// Create stores content and returns its id. Content whose hash is
// already stored is not written again; the existing id is returned.
func (s *Store) Create(ctx context.Context, content NewContent) (int64, error) {
	hash, err := ContentHash(content.Data, content.References)
	if err != nil {
		return 0, err
	}
	return handle.With(ctx, s.handles, func(ctx context.Context, h *handle.Handle) (int64, error) {
		if existing, err := s.idByHash(h, hash); err != nil || existing != 0 {
			return existing, err
		}
		id, err := registrydb.NextID(h.Conn(), registrydb.ContentIDs)
		if err != nil {
			return 0, registryerr.Storage("allocate content id", err)
		}
		return s.insert(h, row{
			id:           id,
			hash:         hash,
			artifactType: content.ArtifactType,
			contentType:  content.ContentType,
			data:         content.Data,
			references:   content.References,
		})
	})
}

// ImportedContent is a content row arriving from an archive.
type ImportedContent struct {
	ID            int64
	Hash          string
	CanonicalHash string
	ArtifactType  string
	ContentType   string
	Data          []byte
	References    []model.ArtifactReference
}

// Import stores archived content and returns the id it ended up with.
// With preserveID the archived id is kept, and a clash with a
// different row surfaces as a storage error. Without it a fresh id is
// allocated. Content already present by hash keeps its existing id
// either way. The hash is recomputed from the bytes; a disagreeing
// archived hash is logged and ignored.
func (s *Store) Import(ctx context.Context, content ImportedContent, preserveID bool) (int64, error) {
	hash, err := ContentHash(content.Data, content.References)
	if err != nil {
		return 0, err
	}
	if content.Hash != "" && content.Hash != hash {
		s.logger.Warn("archived content hash does not match its bytes",
			"content_id", content.ID,
			"archived_hash", content.Hash,
			"computed_hash", hash,
		)
	}
	return handle.With(ctx, s.handles, func(ctx context.Context, h *handle.Handle) (int64, error) {
		existing, err := s.idByHash(h, hash)
		if err != nil {
			return 0, err
		}
		if existing != 0 {
			if content.CanonicalHash != "" {
				if err := s.setCanonicalHash(h, existing, content.CanonicalHash, true); err != nil {
					return 0, err
				}
			}
			return existing, nil
		}
		id := content.ID
		if !preserveID || id <= 0 {
			if id, err = registrydb.NextID(h.Conn(), registrydb.ContentIDs); err != nil {
				return 0, registryerr.Storage("allocate content id", err)
			}
		}
		return s.insert(h, row{
			id:            id,
			hash:          hash,
			canonicalHash: content.CanonicalHash,
			artifactType:  content.ArtifactType,
			contentType:   content.ContentType,
			data:          content.Data,
			references:    content.References,
		})
	})
}

type row struct {
	id            int64
	hash          string
	canonicalHash string
	artifactType  string
	contentType   string
	data          []byte
	references    []model.ArtifactReference
}

// insert writes a row, or returns the id of a row that won a race on
// the same hash.
func (s *Store) insert(h *handle.Handle, r row) (int64, error) {
	stored, tag, err := compress.Compress(r.data, s.compression, r.contentType)
	if err != nil {
		return 0, registryerr.Storage("compress content", err)
	}
	var refs any
	if len(r.references) > 0 {
		encoded, err := codec.Marshal(r.references)
		if err != nil {
			return 0, registryerr.Storage("encode references", err)
		}
		refs = encoded
	}
	var canonical any
	if r.canonicalHash != "" {
		canonical = r.canonicalHash
	}

	err = h.Execute(`
		INSERT INTO content (content_id, content_hash, canonical_hash, artifact_type, content_type, compression, size, data, refs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING`,
		&sqlitex.ExecOptions{Args: []any{
			r.id, r.hash, canonical, r.artifactType, r.contentType,
			int64(tag), int64(len(r.data)), stored, refs,
		}})
	if err != nil {
		return 0, err
	}
	if h.Changes() == 0 {
		return s.idByHash(h, r.hash)
	}

	for position, reference := range r.references {
		err := h.Execute(`
			INSERT INTO content_references (content_id, position, group_id, artifact_id, version, name)
			VALUES (?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{
				r.id, int64(position), reference.GAV().GroupID.RawValue(),
				reference.ArtifactID, reference.Version, reference.Name,
			}})
		if err != nil {
			return 0, err
		}
	}
	return r.id, nil
}

func (s *Store) idByHash(h *handle.Handle, hash string) (int64, error) {
	var id int64
	err := h.Execute(`SELECT content_id FROM content WHERE content_hash = ?`, &sqlitex.ExecOptions{
		Args: []any{hash},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			id = stmt.ColumnInt64(0)
			return nil
		},
	})
	return id, err
}

const selectColumns = `content_id, content_hash, canonical_hash, artifact_type, content_type, compression, size, data, refs`

// Get returns the content with id.
func (s *Store) Get(ctx context.Context, id int64) (*Content, error) {
	cacheable := s.cache != nil && s.handles.Depth(ctx) == 0
	if cacheable {
		if cached, ok := s.cache.Get(cacheKey(id)); ok {
			return cached.(*Content), nil
		}
	}
	content, err := s.getOne(ctx, `SELECT `+selectColumns+` FROM content WHERE content_id = ?`, id)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, &registryerr.ContentNotFoundError{ContentID: id}
	}
	if cacheable {
		s.cache.SetDefault(cacheKey(id), content)
	}
	return content, nil
}

// GetByHash returns the content with the given content hash.
func (s *Store) GetByHash(ctx context.Context, hash string) (*Content, error) {
	content, err := s.getOne(ctx, `SELECT `+selectColumns+` FROM content WHERE content_hash = ?`, hash)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, &registryerr.ContentNotFoundError{Hash: hash}
	}
	return content, nil
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*Content, error) {
	return handle.View(ctx, s.handles, func(ctx context.Context, h *handle.Handle) (*Content, error) {
		var (
			found   *Content
			scanErr error
		)
		err := h.Execute(query, &sqlitex.ExecOptions{
			Args: []any{arg},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found, scanErr = scan(stmt)
				return scanErr
			},
		})
		return found, err
	})
}

func scan(stmt *sqlite.Stmt) (*Content, error) {
	content := &Content{
		ID:           stmt.ColumnInt64(0),
		Hash:         stmt.ColumnText(1),
		ArtifactType: stmt.ColumnText(3),
		ContentType:  stmt.ColumnText(4),
	}
	if !stmt.ColumnIsNull(2) {
		content.CanonicalHash = stmt.ColumnText(2)
	}
	tag := compress.Tag(stmt.ColumnInt64(5))
	size := int(stmt.ColumnInt64(6))
	stored := make([]byte, stmt.ColumnLen(7))
	stmt.ColumnBytes(7, stored)
	data, err := compress.Decompress(stored, tag, size)
	if err != nil {
		return nil, &registryerr.IntegrityError{Err: fmt.Errorf("content %d: %w", content.ID, err)}
	}
	content.Data = data
	if stmt.ColumnLen(8) > 0 {
		encoded := make([]byte, stmt.ColumnLen(8))
		stmt.ColumnBytes(8, encoded)
		if err := codec.Unmarshal(encoded, &content.References); err != nil {
			return nil, &registryerr.IntegrityError{Err: fmt.Errorf("content %d references: %w", content.ID, err)}
		}
	}
	return content, nil
}

// Walk calls fn for every content row in id order. Used by export.
func (s *Store) Walk(ctx context.Context, fn func(*Content) error) error {
	_, err := handle.View(ctx, s.handles, func(ctx context.Context, h *handle.Handle) (struct{}, error) {
		return struct{}{}, h.Execute(`SELECT `+selectColumns+` FROM content ORDER BY content_id`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				content, err := scan(stmt)
				if err != nil {
					return err
				}
				return fn(content)
			},
		})
	})
	return err
}

func cacheKey(id int64) string { return strconv.FormatInt(id, 10) }
