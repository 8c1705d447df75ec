// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registrydb

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite/sqlitemigration"

	"github.com/bureau-foundation/registry/lib/sqlitepool"
)

// applicationID is stored in the database header so that tools can
// recognize a registry database. ASCII "RGST".
const applicationID = 0x52475354

// migrations is the ordered schema history. Never edit an entry that
// has shipped; append a new one.
var migrations = []string{
	`
CREATE TABLE sequences (
	name  TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE groups (
	group_id       TEXT PRIMARY KEY,
	description    TEXT NOT NULL DEFAULT '',
	artifacts_type TEXT NOT NULL DEFAULT '',
	created_by     TEXT NOT NULL DEFAULT '',
	created_on     INTEGER NOT NULL,
	modified_by    TEXT NOT NULL DEFAULT '',
	modified_on    INTEGER NOT NULL,
	labels         BLOB
);

CREATE TABLE content (
	content_id     INTEGER PRIMARY KEY,
	content_hash   TEXT NOT NULL UNIQUE,
	canonical_hash TEXT,
	artifact_type  TEXT NOT NULL DEFAULT '',
	content_type   TEXT NOT NULL DEFAULT '',
	compression    INTEGER NOT NULL DEFAULT 0,
	size           INTEGER NOT NULL,
	data           BLOB NOT NULL,
	refs           BLOB
);
CREATE INDEX content_canonical ON content(canonical_hash);

CREATE TABLE content_references (
	content_id  INTEGER NOT NULL,
	position    INTEGER NOT NULL,
	group_id    TEXT NOT NULL,
	artifact_id TEXT NOT NULL,
	version     TEXT NOT NULL,
	name        TEXT NOT NULL,
	PRIMARY KEY (content_id, position)
);
CREATE INDEX content_references_target ON content_references(group_id, artifact_id, version);

CREATE TABLE artifacts (
	group_id           TEXT NOT NULL,
	artifact_id        TEXT NOT NULL,
	artifact_type      TEXT NOT NULL DEFAULT '',
	created_by         TEXT NOT NULL DEFAULT '',
	created_on         INTEGER NOT NULL,
	next_version_order INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (group_id, artifact_id)
);

CREATE TABLE versions (
	global_id     INTEGER PRIMARY KEY,
	group_id      TEXT NOT NULL,
	artifact_id   TEXT NOT NULL,
	version       TEXT NOT NULL,
	version_order INTEGER NOT NULL,
	state         TEXT NOT NULL,
	name          TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	created_by    TEXT NOT NULL DEFAULT '',
	created_on    INTEGER NOT NULL,
	modified_by   TEXT NOT NULL DEFAULT '',
	modified_on   INTEGER NOT NULL,
	labels        BLOB,
	content_id    INTEGER NOT NULL,
	UNIQUE (group_id, artifact_id, version)
);
CREATE INDEX versions_content ON versions(content_id);
CREATE INDEX versions_order ON versions(group_id, artifact_id, version_order);

CREATE TABLE branches (
	group_id       TEXT NOT NULL,
	artifact_id    TEXT NOT NULL,
	branch_id      TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	system_defined INTEGER NOT NULL DEFAULT 0,
	created_on     INTEGER NOT NULL,
	modified_on    INTEGER NOT NULL,
	PRIMARY KEY (group_id, artifact_id, branch_id)
);

CREATE TABLE branch_versions (
	group_id     TEXT NOT NULL,
	artifact_id  TEXT NOT NULL,
	branch_id    TEXT NOT NULL,
	branch_order INTEGER NOT NULL,
	version      TEXT NOT NULL,
	PRIMARY KEY (group_id, artifact_id, branch_id, branch_order)
);
CREATE INDEX branch_versions_version ON branch_versions(group_id, artifact_id, version);

CREATE TABLE rules (
	group_id      TEXT NOT NULL,
	artifact_id   TEXT NOT NULL,
	rule_type     TEXT NOT NULL,
	configuration TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (group_id, artifact_id, rule_type)
);

CREATE TABLE comments (
	comment_id INTEGER PRIMARY KEY,
	global_id  INTEGER NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_on INTEGER NOT NULL,
	value      TEXT NOT NULL
);
CREATE INDEX comments_version ON comments(global_id);
`,
}

// Config holds the parameters for [Open].
type Config struct {
	// Path is the database file.
	Path string

	// PoolSize is passed through to sqlitepool.
	PoolSize int

	// Logger receives pool and migration messages. Nil discards them.
	Logger *slog.Logger
}

// Open opens the pool at cfg.Path and migrates the schema. The caller
// owns the returned pool and must Close it.
func Open(ctx context.Context, cfg Config) (*sqlitepool.Pool, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("registry schema ready", "path", cfg.Path, "migrations", len(migrations))
	return pool, nil
}

func migrate(ctx context.Context, pool *sqlitepool.Pool) error {
	conn, err := pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("registrydb: migrate: %w", err)
	}
	defer pool.Put(conn)

	err = sqlitemigration.Migrate(ctx, conn, sqlitemigration.Schema{
		AppID:      applicationID,
		Migrations: migrations,
	})
	if err != nil {
		return fmt.Errorf("registrydb: migrate: %w", err)
	}
	return nil
}
