// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/bureau-foundation/registry/lib/contentstore"
	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/refresolve"
	"github.com/bureau-foundation/registry/lib/registryerr"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

// VersionRequest describes the content and metadata of a new version.
type VersionRequest struct {
	// Version is the version id. Empty assigns the next version order.
	Version string

	Content     []byte
	ContentType string
	References  []model.ArtifactReference

	State       model.VersionState
	Name        string
	Description string
	CreatedBy   string
	Labels      map[string]string

	// Branches lists custom branches to append the version to.
	Branches []model.BranchID
}

// ArtifactRequest describes a new artifact and optionally its first
// version.
type ArtifactRequest struct {
	GA           model.GA
	ArtifactType string
	CreatedBy    string
	FirstVersion *VersionRequest
}

// CreateArtifact creates an artifact and, when requested, its first
// version with its content.
func (r *Registry) CreateArtifact(ctx context.Context, request ArtifactRequest) (versiongraph.Artifact, *versiongraph.Version, error) {
	type created struct {
		artifact versiongraph.Artifact
		version  *versiongraph.Version
	}
	result, err := handle.With(ctx, r.handles, func(ctx context.Context, h *handle.Handle) (created, error) {
		var first *versiongraph.NewVersion
		if request.FirstVersion != nil {
			newVersion, err := r.storeContent(ctx, request.GA, request.ArtifactType, *request.FirstVersion)
			if err != nil {
				return created{}, err
			}
			if newVersion.CreatedBy == "" {
				newVersion.CreatedBy = request.CreatedBy
			}
			first = &newVersion
		}
		artifact, version, err := r.graph.CreateArtifact(ctx, versiongraph.NewArtifact{
			GA:           request.GA,
			ArtifactType: request.ArtifactType,
			CreatedBy:    request.CreatedBy,
		}, first)
		return created{artifact, version}, err
	})
	return result.artifact, result.version, err
}

// CreateVersion stores content and adds it as a new version of an
// existing artifact, appended to LATEST.
func (r *Registry) CreateVersion(ctx context.Context, ga model.GA, request VersionRequest) (versiongraph.Version, error) {
	return handle.With(ctx, r.handles, func(ctx context.Context, h *handle.Handle) (versiongraph.Version, error) {
		artifact, err := r.graph.GetArtifact(ctx, ga)
		if err != nil {
			return versiongraph.Version{}, err
		}
		newVersion, err := r.storeContent(ctx, ga, artifact.ArtifactType, request)
		if err != nil {
			return versiongraph.Version{}, err
		}
		return r.graph.CreateVersion(ctx, newVersion)
	})
}

func (r *Registry) storeContent(ctx context.Context, ga model.GA, artifactType string, request VersionRequest) (versiongraph.NewVersion, error) {
	contentType := request.ContentType
	if contentType == "" {
		provider, _ := r.types.Lookup(artifactType)
		contentType = provider.ContentType
	}
	contentID, err := r.contents.Create(ctx, contentstore.NewContent{
		Data:         request.Content,
		References:   request.References,
		ArtifactType: artifactType,
		ContentType:  contentType,
	})
	if err != nil {
		return versiongraph.NewVersion{}, err
	}
	return versiongraph.NewVersion{
		GAV:         ga.WithVersion(request.Version),
		ContentID:   contentID,
		State:       request.State,
		Name:        request.Name,
		Description: request.Description,
		CreatedBy:   request.CreatedBy,
		Labels:      request.Labels,
		Branches:    request.Branches,
	}, nil
}

// GetVersionContent returns a version together with its content.
func (r *Registry) GetVersionContent(ctx context.Context, gav model.GAV) (versiongraph.Version, *contentstore.Content, error) {
	version, err := r.graph.GetVersion(ctx, gav)
	if err != nil {
		return versiongraph.Version{}, nil, err
	}
	content, err := r.contents.Get(ctx, version.ContentID)
	if err != nil {
		return versiongraph.Version{}, nil, err
	}
	return version, content, nil
}

// GetContentByGlobalID returns the content of the version with
// globalID.
func (r *Registry) GetContentByGlobalID(ctx context.Context, globalID int64) (*contentstore.Content, error) {
	version, err := r.graph.GetVersionByGlobalID(ctx, globalID)
	if err != nil {
		return nil, err
	}
	return r.contents.Get(ctx, version.ContentID)
}

// GetVersionContentDereferenced returns a version's content with every
// reachable reference resolved and its pointers rewritten to
// collision-free coordinates.
func (r *Registry) GetVersionContentDereferenced(ctx context.Context, gav model.GAV) (refresolve.Resolved, error) {
	_, content, err := r.GetVersionContent(ctx, gav)
	if err != nil {
		return refresolve.Resolved{}, err
	}
	return r.resolver.ResolveWithContext(ctx, content.ArtifactType, content.Typed(), content.References, r.Loader())
}

// Loader resolves references against stored versions. A reference to
// a missing version yields an error, which resolution logs and skips.
func (r *Registry) Loader() refresolve.Loader {
	return func(ctx context.Context, reference model.ArtifactReference) (*model.ContentWrapper, error) {
		_, content, err := r.GetVersionContent(ctx, reference.GAV())
		if err != nil {
			return nil, err
		}
		return content.Wrapper(), nil
	}
}

// CanonicalHash returns the canonical hash of stored content,
// computing it on first use with references resolved from the registry.
func (r *Registry) CanonicalHash(ctx context.Context, contentID int64) (string, error) {
	return r.contents.CanonicalHash(ctx, contentID, r.Loader())
}

// FindVersionByCanonicalContent returns the most recent version of ga
// whose content is canonically equal to the supplied content.
func (r *Registry) FindVersionByCanonicalContent(ctx context.Context, ga model.GA, content model.TypedContent, references []model.ArtifactReference) (versiongraph.Version, error) {
	artifact, err := r.graph.GetArtifact(ctx, ga)
	if err != nil {
		return versiongraph.Version{}, err
	}
	loader := r.Loader()
	want, err := r.contents.ComputeCanonicalHash(ctx, artifact.ArtifactType, content, references, loader)
	if err != nil {
		return versiongraph.Version{}, err
	}
	versions, err := r.graph.ListVersions(ctx, ga)
	if err != nil {
		return versiongraph.Version{}, err
	}
	for i := len(versions) - 1; i >= 0; i-- {
		hash, err := r.contents.CanonicalHash(ctx, versions[i].ContentID, loader)
		if err != nil {
			return versiongraph.Version{}, err
		}
		if hash == want {
			return versions[i], nil
		}
	}
	return versiongraph.Version{}, fmt.Errorf("no version of %s matches the canonical content: %w",
		ga, &registryerr.VersionNotFoundError{GAV: ga.WithVersion("")})
}

// GetInboundReferences returns the versions whose content references
// gav, ordered by global id.
func (r *Registry) GetInboundReferences(ctx context.Context, gav model.GAV) ([]versiongraph.Version, error) {
	return handle.View(ctx, r.handles, func(ctx context.Context, h *handle.Handle) ([]versiongraph.Version, error) {
		contentIDs, err := r.contents.ReferencingContent(ctx, gav)
		if err != nil {
			return nil, err
		}
		var result []versiongraph.Version
		for _, contentID := range contentIDs {
			versions, err := r.graph.VersionsByContent(ctx, contentID)
			if err != nil {
				return nil, err
			}
			result = append(result, versions...)
		}
		slices.SortFunc(result, func(a, b versiongraph.Version) int {
			return cmp.Compare(a.GlobalID, b.GlobalID)
		})
		return result, nil
	})
}

// DeleteOrphanedContent removes content no version uses.
func (r *Registry) DeleteOrphanedContent(ctx context.Context) (int, error) {
	return r.contents.DeleteOrphaned(ctx)
}
