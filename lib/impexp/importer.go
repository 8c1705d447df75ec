// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package impexp

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/registry/lib/contentstore"
	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registry"
	"github.com/bureau-foundation/registry/lib/registrydb"
	"github.com/bureau-foundation/registry/lib/registryerr"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

// Options controls identifier handling during import.
type Options struct {
	// PreserveGlobalID keeps archived global ids instead of allocating
	// new ones. A clash with an existing version is a conflict.
	PreserveGlobalID bool

	// PreserveContentID keeps archived content ids. A clash with
	// different existing content is counted as a failure.
	PreserveContentID bool

	// Logger defaults to the registry's logger.
	Logger *slog.Logger
}

// Importer reconciles a stream of entities into a registry. It is
// built per run and must not be used from more than one goroutine.
type Importer struct {
	registry *registry.Registry
	contents *contentstore.Store
	graph    *versiongraph.Graph
	options  Options
	logger   *slog.Logger

	contentIDs map[int64]int64
	globalIDs  map[int64]int64
	doneGAV    map[model.GAV]struct{}

	waitingForContent map[int64][]*ArtifactVersionEntity
	waitingForVersion map[int64][]*CommentEntity
	waitingBranches   map[model.GAV][]*ArtifactBranchEntity

	report   Report
	finished bool
}

// NewImporter starts an import run into reg.
func NewImporter(reg *registry.Registry, options Options) *Importer {
	runID := uuid.NewString()
	logger := options.Logger
	if logger == nil {
		logger = reg.Logger()
	}
	return &Importer{
		registry:          reg,
		contents:          reg.Contents(),
		graph:             reg.Graph(),
		options:           options,
		logger:            logger.With("component", "import", "run_id", runID),
		contentIDs:        make(map[int64]int64),
		globalIDs:         make(map[int64]int64),
		doneGAV:           make(map[model.GAV]struct{}),
		waitingForContent: make(map[int64][]*ArtifactVersionEntity),
		waitingForVersion: make(map[int64][]*CommentEntity),
		waitingBranches:   make(map[model.GAV][]*ArtifactBranchEntity),
		report: Report{
			RunID:    runID,
			Imported: make(map[EntityType]int),
		},
	}
}

// RunID identifies this run in logs and in the report.
func (i *Importer) RunID() string { return i.report.RunID }

// ContentID returns the id archived content id old was stored under.
func (i *Importer) ContentID(old int64) (int64, bool) {
	id, ok := i.contentIDs[old]
	return id, ok
}

// GlobalID returns the id archived global id old was stored under.
func (i *Importer) GlobalID(old int64) (int64, bool) {
	id, ok := i.globalIDs[old]
	return id, ok
}

// ImportRecord decodes and imports one archive record. Records of an
// unknown type or schema version are logged and skipped; records that
// fail to decode are counted as failed.
func (i *Importer) ImportRecord(ctx context.Context, record Record) error {
	entity, known, err := DecodeEntity(record)
	if err != nil {
		i.failed(record.Type, err)
		return nil
	}
	if !known {
		i.report.Skipped++
		i.logger.Warn("skipping unknown archive record",
			"entity_type", string(record.Type),
			"schema_version", record.Version,
		)
		return nil
	}
	return i.Import(ctx, entity)
}

// Import applies one entity. Entities whose dependencies have not
// arrived are held until they do. Conflicts and per-entity failures
// are logged and counted in the report, not returned; the error is
// reserved for a cancelled context or misuse of the importer.
func (i *Importer) Import(ctx context.Context, entity Entity) error {
	if i.finished {
		return errors.New("impexp: import after PostImport")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	switch e := entity.(type) {
	case *ManifestEntity:
		i.importManifest(e)
	case *GroupEntity:
		i.importGroup(ctx, e)
	case *GlobalRuleEntity:
		i.importRule(ctx, TypeGlobalRule, versiongraph.Rule{Type: e.RuleType, Configuration: e.Configuration})
	case *ArtifactRuleEntity:
		ga, err := model.NewGA(e.GroupID, e.ArtifactID)
		if err != nil {
			i.failed(TypeArtifactRule, &registryerr.InvalidError{Err: err})
			return nil
		}
		i.importRule(ctx, TypeArtifactRule, versiongraph.Rule{GA: &ga, Type: e.RuleType, Configuration: e.Configuration})
	case *ContentEntity:
		i.importContent(ctx, e)
	case *ArtifactVersionEntity:
		i.importVersion(ctx, e)
	case *ArtifactBranchEntity:
		i.importBranch(ctx, e)
	case *CommentEntity:
		i.importComment(ctx, e)
	default:
		return fmt.Errorf("impexp: unhandled entity type %T", entity)
	}
	return nil
}

func (i *Importer) importManifest(e *ManifestEntity) {
	i.report.Imported[TypeManifest]++
	i.logger.Info("archive manifest",
		"source_run_id", e.RunID,
		"exported_on", millisTime(e.ExportedOn),
		"system_name", e.SystemName,
		"system_version", e.SystemVersion,
		"description", e.Description,
	)
}

func (i *Importer) importGroup(ctx context.Context, e *GroupEntity) {
	groupID, err := model.ParseGroupID(e.GroupID)
	if err != nil {
		i.failed(TypeGroup, &registryerr.InvalidError{Err: err})
		return
	}
	_, err = i.graph.CreateGroup(ctx, versiongraph.Group{
		GroupID:       groupID,
		Description:   e.Description,
		ArtifactsType: e.ArtifactsType,
		CreatedBy:     e.CreatedBy,
		CreatedOn:     millisTime(e.CreatedOn),
		ModifiedBy:    e.ModifiedBy,
		ModifiedOn:    millisTime(e.ModifiedOn),
		Labels:        e.Labels,
	})
	if err != nil {
		i.failed(TypeGroup, err, "group_id", groupID.String())
		return
	}
	i.report.Imported[TypeGroup]++
}

func (i *Importer) importRule(ctx context.Context, entityType EntityType, rule versiongraph.Rule) {
	if err := i.graph.CreateRule(ctx, rule); err != nil {
		attrs := []any{"rule_type", string(rule.Type)}
		if rule.GA != nil {
			attrs = append(attrs, "group_id", rule.GA.GroupID.String(), "artifact_id", rule.GA.ArtifactID)
		}
		i.failed(entityType, err, attrs...)
		return
	}
	i.report.Imported[entityType]++
}

func (i *Importer) importContent(ctx context.Context, e *ContentEntity) {
	canonicalHash := e.CanonicalHash
	if canonicalHash == "" {
		var err error
		typed := model.TypedContent{Content: e.Content, ContentType: e.ContentType}
		canonicalHash, err = i.contents.ComputeCanonicalHash(ctx, e.ArtifactType, typed, e.References, i.registry.Loader())
		if err != nil {
			i.failed(TypeContent, err, "content_id", e.ContentID)
			return
		}
	}
	id, err := i.contents.Import(ctx, contentstore.ImportedContent{
		ID:            e.ContentID,
		Hash:          e.ContentHash,
		CanonicalHash: canonicalHash,
		ArtifactType:  e.ArtifactType,
		ContentType:   e.ContentType,
		Data:          e.Content,
		References:    e.References,
	}, i.options.PreserveContentID)
	if err != nil {
		i.failed(TypeContent, err, "content_id", e.ContentID)
		return
	}
	i.contentIDs[e.ContentID] = id
	i.report.Imported[TypeContent]++

	waiting := i.waitingForContent[e.ContentID]
	delete(i.waitingForContent, e.ContentID)
	for _, version := range waiting {
		i.importVersion(ctx, version)
	}
}

func (i *Importer) importVersion(ctx context.Context, e *ArtifactVersionEntity) {
	contentID, ok := i.contentIDs[e.ContentID]
	if !ok {
		i.waitingForContent[e.ContentID] = append(i.waitingForContent[e.ContentID], e)
		return
	}
	gav, err := e.GAV()
	if err != nil {
		i.failed(TypeArtifactVersion, &registryerr.InvalidError{Err: err},
			"group_id", e.GroupID, "artifact_id", e.ArtifactID, "version", e.Version)
		return
	}
	state := model.StateEnabled
	if e.State != "" {
		if state, err = model.ParseVersionState(e.State); err != nil {
			i.failed(TypeArtifactVersion, &registryerr.InvalidError{Err: err}, gavAttrs(gav)...)
			return
		}
	}
	stored, err := i.graph.ImportVersion(ctx, versiongraph.Version{
		GlobalID:     e.GlobalID,
		GAV:          gav,
		VersionOrder: e.VersionOrder,
		ContentID:    contentID,
		State:        state,
		Name:         e.Name,
		Description:  e.Description,
		CreatedBy:    e.CreatedBy,
		CreatedOn:    millisTime(e.CreatedOn),
		ModifiedBy:   e.ModifiedBy,
		ModifiedOn:   millisTime(e.ModifiedOn),
		Labels:       e.Labels,
	}, e.ArtifactType, i.options.PreserveGlobalID)
	if err != nil {
		i.failed(TypeArtifactVersion, err, gavAttrs(gav)...)
		return
	}
	i.globalIDs[e.GlobalID] = stored.GlobalID
	i.doneGAV[gav] = struct{}{}
	i.report.Imported[TypeArtifactVersion]++

	branches := i.waitingBranches[gav]
	delete(i.waitingBranches, gav)
	for _, branch := range branches {
		i.storeBranch(ctx, gav, branch)
	}
	comments := i.waitingForVersion[e.GlobalID]
	delete(i.waitingForVersion, e.GlobalID)
	for _, comment := range comments {
		i.importComment(ctx, comment)
	}
}

func (i *Importer) importBranch(ctx context.Context, e *ArtifactBranchEntity) {
	gav, err := e.GAV()
	if err != nil {
		i.failed(TypeArtifactBranch, &registryerr.InvalidError{Err: err},
			"group_id", e.GroupID, "artifact_id", e.ArtifactID, "branch_id", e.BranchID)
		return
	}
	if _, done := i.doneGAV[gav]; !done {
		i.waitingBranches[gav] = append(i.waitingBranches[gav], e)
		return
	}
	i.storeBranch(ctx, gav, e)
}

func (i *Importer) storeBranch(ctx context.Context, gav model.GAV, e *ArtifactBranchEntity) {
	attrs := append(gavAttrs(gav), "branch_id", e.BranchID)
	branchID, err := model.ParseBranchID(e.BranchID)
	if err != nil {
		i.failed(TypeArtifactBranch, &registryerr.InvalidError{Err: err}, attrs...)
		return
	}
	err = i.graph.ImportBranchVersion(ctx, versiongraph.ImportedBranchVersion{
		GAV:           gav,
		BranchID:      branchID,
		BranchOrder:   e.BranchOrder,
		Description:   e.Description,
		SystemDefined: e.SystemDefined,
	})
	if err != nil {
		i.failed(TypeArtifactBranch, err, attrs...)
		return
	}
	i.report.Imported[TypeArtifactBranch]++
}

func (i *Importer) importComment(ctx context.Context, e *CommentEntity) {
	globalID, ok := i.globalIDs[e.GlobalID]
	if !ok {
		i.waitingForVersion[e.GlobalID] = append(i.waitingForVersion[e.GlobalID], e)
		return
	}
	_, err := i.graph.ImportComment(ctx, versiongraph.Comment{
		CommentID: e.CommentID,
		GlobalID:  globalID,
		CreatedBy: e.CreatedBy,
		CreatedOn: millisTime(e.CreatedOn),
		Value:     e.Value,
	})
	if err != nil {
		i.failed(TypeComment, err, "comment_id", e.CommentID, "global_id", e.GlobalID)
		return
	}
	i.report.Imported[TypeComment]++
}

func (i *Importer) conflict(entityType EntityType, err error, attrs ...any) {
	i.report.Conflicts++
	i.logger.Warn("import conflict, keeping existing data",
		append([]any{"entity_type", string(entityType), "error", err}, attrs...)...)
}

func (i *Importer) failed(entityType EntityType, err error, attrs ...any) {
	if errors.Is(err, registryerr.ErrConflict) {
		i.conflict(entityType, err, attrs...)
		return
	}
	i.report.Failed++
	i.logger.Warn("import failed, continuing",
		append([]any{"entity_type", string(entityType), "error", err}, attrs...)...)
}

// PostImport finishes the run: artifacts without LATEST positions get
// LATEST rebuilt in version order, id sequences are advanced past
// every stored id, and entities still waiting are reported as dangling
// and dropped. It may be called once.
func (i *Importer) PostImport(ctx context.Context) (Report, error) {
	if i.finished {
		return Report{}, errors.New("impexp: PostImport called twice")
	}
	i.finished = true

	artifacts, err := i.graph.AllArtifacts(ctx)
	if err != nil {
		return Report{}, err
	}
	for _, artifact := range artifacts {
		rebuilt, err := i.graph.RebuildLatest(ctx, artifact.GA)
		if err != nil {
			return Report{}, err
		}
		if rebuilt {
			i.report.LatestRebuilt++
		}
	}

	err = i.registry.Handles().Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		for _, sequence := range []registrydb.Sequence{registrydb.ContentIDs, registrydb.GlobalIDs, registrydb.CommentIDs} {
			if err := registrydb.ResetSequence(h.Conn(), sequence); err != nil {
				return registryerr.Storage("reset "+string(sequence), err)
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	i.collectDangling()
	i.logger.Info("import finished",
		"imported", i.report.Total(),
		"conflicts", i.report.Conflicts,
		"failed", i.report.Failed,
		"skipped", i.report.Skipped,
		"dangling", len(i.report.Dangling),
	)
	return i.report, nil
}

func (i *Importer) collectDangling() {
	for _, contentID := range sortedKeys(i.waitingForContent) {
		for _, version := range i.waitingForContent[contentID] {
			i.dangling(version, "content "+strconv.FormatInt(contentID, 10),
				"group_id", version.GroupID, "artifact_id", version.ArtifactID, "version", version.Version)
		}
	}
	gavs := make([]model.GAV, 0, len(i.waitingBranches))
	for gav := range i.waitingBranches {
		gavs = append(gavs, gav)
	}
	slices.SortFunc(gavs, func(a, b model.GAV) int { return cmp.Compare(a.String(), b.String()) })
	for _, gav := range gavs {
		for _, branch := range i.waitingBranches[gav] {
			i.dangling(branch, "version "+gav.String(), append(gavAttrs(gav), "branch_id", branch.BranchID)...)
		}
	}
	for _, globalID := range sortedKeys(i.waitingForVersion) {
		for _, comment := range i.waitingForVersion[globalID] {
			i.dangling(comment, "global id "+strconv.FormatInt(globalID, 10),
				"comment_id", comment.CommentID, "global_id", globalID)
		}
	}
	clear(i.waitingForContent)
	clear(i.waitingBranches)
	clear(i.waitingForVersion)
}

func (i *Importer) dangling(entity Entity, missing string, attrs ...any) {
	i.report.Dangling = append(i.report.Dangling, Dangling{Entity: entity, Missing: missing})
	i.logger.Warn("dropping entity with unresolved dependency",
		append([]any{"entity_type", string(entity.EntityType()), "missing", missing}, attrs...)...)
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func gavAttrs(gav model.GAV) []any {
	return []any{"group_id", gav.GroupID.String(), "artifact_id", gav.ArtifactID, "version", gav.Version}
}

// millisTime converts archived unix milliseconds. Zero means unset.
func millisTime(millis int64) time.Time {
	if millis == 0 {
		return time.Time{}
	}
	return time.UnixMilli(millis).UTC()
}

// timeMillis is the inverse of millisTime.
func timeMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
