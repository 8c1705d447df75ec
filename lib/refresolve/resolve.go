// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refresolve

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/registry/lib/artifacttype"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// Loader fetches the content a reference points at. Returning nil
// content with a nil error means the target does not exist.
type Loader func(ctx context.Context, reference model.ArtifactReference) (*model.ContentWrapper, error)

// Resolver resolves references using the artifact-type providers to
// rewrite pointers.
type Resolver struct {
	types  *artifacttype.Registry
	logger *slog.Logger
}

// New creates a Resolver. A nil logger discards messages.
func New(types *artifacttype.Registry, logger *slog.Logger) *Resolver {
	if types == nil {
		types = artifacttype.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{types: types, logger: logger}
}

// Resolved is the outcome of ResolveWithContext.
type Resolved struct {
	// Content is the main document with its pointers rewritten.
	Content model.TypedContent

	// References maps coordinates to the rewritten referenced
	// documents, for every reachable reference that could be loaded.
	References map[string]model.TypedContent

	// Rewrites is the accumulated name-to-coordinate map across the
	// whole walk.
	Rewrites map[string]string
}

type walk struct {
	ctx      context.Context
	loader   Loader
	resolved map[string]model.TypedContent
	visiting map[string]bool
	rewrites map[string]string
}

// ResolveWithContext resolves references of the main document and
// rewrites every pointer to its coordinate. artifactType selects the
// dereferencer for the main document.
func (r *Resolver) ResolveWithContext(ctx context.Context, artifactType string, main model.TypedContent, references []model.ArtifactReference, loader Loader) (Resolved, error) {
	if len(references) == 0 {
		return Resolved{Content: main, References: map[string]model.TypedContent{}, Rewrites: map[string]string{}}, nil
	}
	state := &walk{
		ctx:      ctx,
		loader:   loader,
		resolved: make(map[string]model.TypedContent),
		visiting: make(map[string]bool),
		rewrites: make(map[string]string),
	}
	local, err := r.resolveLevel(state, references)
	if err != nil {
		return Resolved{}, err
	}
	content := r.rewrite(artifactType, main, local)
	return Resolved{Content: content, References: state.resolved, Rewrites: state.rewrites}, nil
}

// resolveLevel resolves one document's references and returns the
// name-to-coordinate map for that document's own pointers. Memoized
// and in-progress coordinates still contribute their mapping so the
// document is rewritten completely.
func (r *Resolver) resolveLevel(state *walk, references []model.ArtifactReference) (map[string]string, error) {
	local := make(map[string]string, len(references))
	for _, reference := range references {
		if err := reference.Complete(); err != nil {
			return nil, &registryerr.IntegrityError{Err: err}
		}
		coordinate := reference.Coordinate()
		if _, done := state.resolved[coordinate]; done || state.visiting[coordinate] {
			local[reference.Name] = coordinate
			continue
		}

		nested, err := state.loader(state.ctx, reference)
		if err != nil {
			r.logger.Warn("skipping unresolvable reference",
				"reference", coordinate,
				"error", err,
			)
			continue
		}
		if nested == nil {
			r.logger.Warn("skipping reference to missing content", "reference", coordinate)
			continue
		}

		state.visiting[coordinate] = true
		nestedRewrites, err := r.resolveLevel(state, nested.References)
		delete(state.visiting, coordinate)
		if err != nil {
			return nil, err
		}

		state.resolved[coordinate] = r.rewrite(nested.ArtifactType, nested.Typed(), nestedRewrites)
		state.rewrites[reference.Name] = coordinate
		local[reference.Name] = coordinate
	}
	return local, nil
}

// rewrite applies a dereferencer, keeping the original content if the
// dereferencer fails.
func (r *Resolver) rewrite(artifactType string, content model.TypedContent, rewrites map[string]string) model.TypedContent {
	if len(rewrites) == 0 {
		return content
	}
	provider, _ := r.types.Lookup(artifactType)
	rewritten, err := provider.Dereferencer.RewriteReferences(content, rewrites)
	if err != nil {
		r.logger.Debug("reference rewrite failed, keeping original content",
			"artifact_type", artifactType,
			"error", err,
		)
		return content
	}
	return rewritten
}

// ResolveReferences returns every reachable referenced document keyed
// by its local reference name. The first document loaded for a name
// wins.
func (r *Resolver) ResolveReferences(ctx context.Context, references []model.ArtifactReference, loader Loader) (map[string]model.TypedContent, error) {
	result := make(map[string]model.TypedContent)
	if len(references) == 0 {
		return result, nil
	}
	visiting := make(map[string]bool)
	var resolve func([]model.ArtifactReference) error
	resolve = func(references []model.ArtifactReference) error {
		for _, reference := range references {
			if err := reference.Complete(); err != nil {
				return &registryerr.IntegrityError{Err: err}
			}
			if _, done := result[reference.Name]; done || visiting[reference.Name] {
				continue
			}
			nested, err := loader(ctx, reference)
			if err != nil || nested == nil {
				r.logger.Warn("skipping unresolvable reference",
					"reference", reference.Coordinate(),
					"error", err,
				)
				continue
			}
			visiting[reference.Name] = true
			err = resolve(nested.References)
			delete(visiting, reference.Name)
			if err != nil {
				return err
			}
			result[reference.Name] = nested.Typed()
		}
		return nil
	}
	if err := resolve(references); err != nil {
		return nil, err
	}
	return result, nil
}
