// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package impexp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bureau-foundation/registry/lib/contentstore"
	"github.com/bureau-foundation/registry/lib/registry"
	"github.com/bureau-foundation/registry/lib/version"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

// Exporter walks a registry and emits its entities in dependency
// order.
type Exporter struct {
	registry    *registry.Registry
	logger      *slog.Logger
	description string
}

// ExportOptions configures an [Exporter].
type ExportOptions struct {
	// Description is recorded in the manifest.
	Description string

	// Logger defaults to the registry's logger.
	Logger *slog.Logger
}

// NewExporter creates an exporter over reg.
func NewExporter(reg *registry.Registry, options ExportOptions) *Exporter {
	logger := options.Logger
	if logger == nil {
		logger = reg.Logger()
	}
	return &Exporter{
		registry:    reg,
		logger:      logger.With("component", "export"),
		description: options.Description,
	}
}

// Export passes every entity to sink: the manifest, then groups,
// global rules, contents, versions, branch positions (LATEST
// included), artifact rules, and comments. It returns the number of
// entities emitted per type. An error from sink stops the export.
func (e *Exporter) Export(ctx context.Context, sink func(Entity) error) (map[EntityType]int, error) {
	counts := make(map[EntityType]int)
	emit := func(entity Entity) error {
		if err := sink(entity); err != nil {
			return err
		}
		counts[entity.EntityType()]++
		return nil
	}
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	graph := e.registry.Graph()

	err := emit(&ManifestEntity{
		RunID:         runID,
		ExportedOn:    e.registry.Clock().Now().UnixMilli(),
		SystemName:    version.Name,
		SystemVersion: version.Short(),
		Description:   e.description,
	})
	if err != nil {
		return counts, err
	}

	err = graph.WalkGroups(ctx, func(group versiongraph.Group) error {
		return emit(&GroupEntity{
			GroupID:       group.GroupID.RawValue(),
			Description:   group.Description,
			ArtifactsType: group.ArtifactsType,
			CreatedBy:     group.CreatedBy,
			CreatedOn:     timeMillis(group.CreatedOn),
			ModifiedBy:    group.ModifiedBy,
			ModifiedOn:    timeMillis(group.ModifiedOn),
			Labels:        group.Labels,
		})
	})
	if err != nil {
		return counts, err
	}

	// Global rules come first in the walk; artifact rules are held
	// back until versions have created their artifacts.
	var artifactRules []*ArtifactRuleEntity
	err = graph.WalkRules(ctx, func(rule versiongraph.Rule) error {
		if rule.GA == nil {
			return emit(&GlobalRuleEntity{RuleType: rule.Type, Configuration: rule.Configuration})
		}
		artifactRules = append(artifactRules, &ArtifactRuleEntity{
			GroupID:       rule.GA.GroupID.RawValue(),
			ArtifactID:    rule.GA.ArtifactID,
			RuleType:      rule.Type,
			Configuration: rule.Configuration,
		})
		return nil
	})
	if err != nil {
		return counts, err
	}

	err = e.registry.Contents().Walk(ctx, func(content *contentstore.Content) error {
		return emit(&ContentEntity{
			ContentID:     content.ID,
			ContentHash:   content.Hash,
			CanonicalHash: content.CanonicalHash,
			ArtifactType:  content.ArtifactType,
			ContentType:   content.ContentType,
			Content:       content.Data,
			References:    content.References,
		})
	})
	if err != nil {
		return counts, err
	}

	err = graph.WalkVersions(ctx, func(artifactType string, v versiongraph.Version) error {
		return emit(&ArtifactVersionEntity{
			GlobalID:     v.GlobalID,
			GroupID:      v.GAV.GroupID.RawValue(),
			ArtifactID:   v.GAV.ArtifactID,
			Version:      v.GAV.Version,
			VersionOrder: v.VersionOrder,
			ArtifactType: artifactType,
			ContentID:    v.ContentID,
			State:        string(v.State),
			Name:         v.Name,
			Description:  v.Description,
			CreatedBy:    v.CreatedBy,
			CreatedOn:    timeMillis(v.CreatedOn),
			ModifiedBy:   v.ModifiedBy,
			ModifiedOn:   timeMillis(v.ModifiedOn),
			Labels:       v.Labels,
		})
	})
	if err != nil {
		return counts, err
	}

	err = graph.WalkBranches(ctx, func(branch versiongraph.Branch, member versiongraph.BranchMember) error {
		return emit(&ArtifactBranchEntity{
			GroupID:       branch.GA.GroupID.RawValue(),
			ArtifactID:    branch.GA.ArtifactID,
			BranchID:      string(branch.BranchID),
			Version:       member.Version,
			BranchOrder:   member.BranchOrder,
			Description:   branch.Description,
			SystemDefined: branch.SystemDefined,
		})
	})
	if err != nil {
		return counts, err
	}

	for _, rule := range artifactRules {
		if err := emit(rule); err != nil {
			return counts, err
		}
	}

	err = graph.WalkComments(ctx, func(comment versiongraph.Comment) error {
		return emit(&CommentEntity{
			CommentID: comment.CommentID,
			GlobalID:  comment.GlobalID,
			CreatedBy: comment.CreatedBy,
			CreatedOn: timeMillis(comment.CreatedOn),
			Value:     comment.Value,
		})
	})
	if err != nil {
		return counts, err
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	logger.Info("export finished", "entities", total)
	return counts, nil
}
