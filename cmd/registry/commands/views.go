// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"time"

	"github.com/bureau-foundation/registry/lib/versiongraph"
)

// JSON shapes printed by --json. Group ids are printed by their
// user-facing name, so the default group appears as "default".

type groupView struct {
	GroupID       string            `json:"groupId"`
	Description   string            `json:"description,omitempty"`
	ArtifactsType string            `json:"artifactsType,omitempty"`
	CreatedBy     string            `json:"createdBy,omitempty"`
	CreatedOn     time.Time         `json:"createdOn"`
	Labels        map[string]string `json:"labels,omitempty"`
}

func newGroupView(group versiongraph.Group) groupView {
	return groupView{
		GroupID:       group.GroupID.String(),
		Description:   group.Description,
		ArtifactsType: group.ArtifactsType,
		CreatedBy:     group.CreatedBy,
		CreatedOn:     group.CreatedOn,
		Labels:        group.Labels,
	}
}

type artifactView struct {
	GroupID      string    `json:"groupId"`
	ArtifactID   string    `json:"artifactId"`
	ArtifactType string    `json:"artifactType"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedOn    time.Time `json:"createdOn"`
}

func newArtifactView(artifact versiongraph.Artifact) artifactView {
	return artifactView{
		GroupID:      artifact.GA.GroupID.String(),
		ArtifactID:   artifact.GA.ArtifactID,
		ArtifactType: artifact.ArtifactType,
		CreatedBy:    artifact.CreatedBy,
		CreatedOn:    artifact.CreatedOn,
	}
}

type versionView struct {
	GroupID      string            `json:"groupId"`
	ArtifactID   string            `json:"artifactId"`
	Version      string            `json:"version"`
	GlobalID     int64             `json:"globalId"`
	ContentID    int64             `json:"contentId"`
	VersionOrder int64             `json:"versionOrder"`
	State        string            `json:"state"`
	Name         string            `json:"name,omitempty"`
	Description  string            `json:"description,omitempty"`
	CreatedBy    string            `json:"createdBy,omitempty"`
	CreatedOn    time.Time         `json:"createdOn"`
	ModifiedBy   string            `json:"modifiedBy,omitempty"`
	ModifiedOn   time.Time         `json:"modifiedOn"`
	Labels       map[string]string `json:"labels,omitempty"`
}

func newVersionView(version versiongraph.Version) versionView {
	return versionView{
		GroupID:      version.GAV.GroupID.String(),
		ArtifactID:   version.GAV.ArtifactID,
		Version:      version.GAV.Version,
		GlobalID:     version.GlobalID,
		ContentID:    version.ContentID,
		VersionOrder: version.VersionOrder,
		State:        string(version.State),
		Name:         version.Name,
		Description:  version.Description,
		CreatedBy:    version.CreatedBy,
		CreatedOn:    version.CreatedOn,
		ModifiedBy:   version.ModifiedBy,
		ModifiedOn:   version.ModifiedOn,
		Labels:       version.Labels,
	}
}

func newVersionViews(versions []versiongraph.Version) []versionView {
	views := make([]versionView, 0, len(versions))
	for _, version := range versions {
		views = append(views, newVersionView(version))
	}
	return views
}

type branchView struct {
	BranchID      string   `json:"branchId"`
	Description   string   `json:"description,omitempty"`
	SystemDefined bool     `json:"systemDefined"`
	Versions      []string `json:"versions"`
}

type ruleView struct {
	GroupID       string `json:"groupId,omitempty"`
	ArtifactID    string `json:"artifactId,omitempty"`
	RuleType      string `json:"ruleType"`
	Configuration string `json:"configuration"`
}

func newRuleView(rule versiongraph.Rule) ruleView {
	view := ruleView{RuleType: string(rule.Type), Configuration: rule.Configuration}
	if rule.GA != nil {
		view.GroupID = rule.GA.GroupID.String()
		view.ArtifactID = rule.GA.ArtifactID
	}
	return view
}

type commentView struct {
	CommentID int64     `json:"commentId"`
	GlobalID  int64     `json:"globalId"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedOn time.Time `json:"createdOn"`
	Value     string    `json:"value"`
}

func newCommentView(comment versiongraph.Comment) commentView {
	return commentView{
		CommentID: comment.CommentID,
		GlobalID:  comment.GlobalID,
		CreatedBy: comment.CreatedBy,
		CreatedOn: comment.CreatedOn,
		Value:     comment.Value,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
