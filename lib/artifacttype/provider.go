// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifacttype

import (
	"strings"
	"sync"

	"github.com/bureau-foundation/registry/lib/model"
)

// Artifact types known to the registry.
const (
	Avro     = "AVRO"
	Protobuf = "PROTOBUF"
	JSON     = "JSON"
	OpenAPI  = "OPENAPI"
	AsyncAPI = "ASYNCAPI"
	GraphQL  = "GRAPHQL"
	KConnect = "KCONNECT"
	WSDL     = "WSDL"
	XSD      = "XSD"
	XML      = "XML"
)

// Canonicalizer normalizes content. resolved maps each reference name
// used by the content to the referenced document.
type Canonicalizer interface {
	Canonicalize(content model.TypedContent, resolved map[string]model.TypedContent) (model.TypedContent, error)
}

// CanonicalizerFunc adapts a function to Canonicalizer.
type CanonicalizerFunc func(content model.TypedContent, resolved map[string]model.TypedContent) (model.TypedContent, error)

func (f CanonicalizerFunc) Canonicalize(content model.TypedContent, resolved map[string]model.TypedContent) (model.TypedContent, error) {
	return f(content, resolved)
}

// Dereferencer rewrites reference pointers in content. rewrites maps a
// reference name as written in the document to its replacement.
// Pointers whose name is absent from rewrites are left alone.
type Dereferencer interface {
	RewriteReferences(content model.TypedContent, rewrites map[string]string) (model.TypedContent, error)
}

// DereferencerFunc adapts a function to Dereferencer.
type DereferencerFunc func(content model.TypedContent, rewrites map[string]string) (model.TypedContent, error)

func (f DereferencerFunc) RewriteReferences(content model.TypedContent, rewrites map[string]string) (model.TypedContent, error) {
	return f(content, rewrites)
}

// Provider bundles the capabilities for one artifact type.
type Provider struct {
	ArtifactType  string
	ContentType   string
	Canonicalizer Canonicalizer
	Dereferencer  Dereferencer
}

// Identity is the provider used for unregistered types: content is
// already canonical and has no rewritable pointers.
var Identity = Provider{
	ContentType:   "application/octet-stream",
	Canonicalizer: CanonicalizerFunc(identityCanonicalize),
	Dereferencer:  DereferencerFunc(identityRewrite),
}

func identityCanonicalize(content model.TypedContent, _ map[string]model.TypedContent) (model.TypedContent, error) {
	return content, nil
}

func identityRewrite(content model.TypedContent, _ map[string]string) (model.TypedContent, error) {
	return content, nil
}

// Registry looks providers up by artifact type, case-insensitively.
// Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty registry; every lookup yields Identity
// until providers are registered.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Default returns a registry with the built-in providers.
func Default() *Registry {
	registry := NewRegistry()
	jsonProvider := func(artifactType string) Provider {
		return Provider{
			ArtifactType:  artifactType,
			ContentType:   "application/json",
			Canonicalizer: CanonicalizerFunc(canonicalizeJSON),
			Dereferencer:  DereferencerFunc(rewriteJSON),
		}
	}
	for _, artifactType := range []string{JSON, Avro, KConnect} {
		registry.Register(jsonProvider(artifactType))
	}
	for _, artifactType := range []string{OpenAPI, AsyncAPI} {
		registry.Register(Provider{
			ArtifactType:  artifactType,
			ContentType:   "application/json",
			Canonicalizer: CanonicalizerFunc(canonicalizeJSONOrYAML),
			Dereferencer:  DereferencerFunc(rewriteJSONOrYAML),
		})
	}
	registry.Register(Provider{
		ArtifactType:  Protobuf,
		ContentType:   "application/x-protobuf",
		Canonicalizer: CanonicalizerFunc(canonicalizeProto),
		Dereferencer:  DereferencerFunc(rewriteProtoImports),
	})
	for artifactType, contentType := range map[string]string{
		GraphQL: "application/graphql",
		WSDL:    "application/xml",
		XSD:     "application/xml",
		XML:     "application/xml",
	} {
		provider := Identity
		provider.ArtifactType = artifactType
		provider.ContentType = contentType
		registry.Register(provider)
	}
	return registry
}

// Register adds or replaces the provider for provider.ArtifactType.
// Nil capabilities are filled in from Identity.
func (r *Registry) Register(provider Provider) {
	if provider.Canonicalizer == nil {
		provider.Canonicalizer = Identity.Canonicalizer
	}
	if provider.Dereferencer == nil {
		provider.Dereferencer = Identity.Dereferencer
	}
	if provider.ContentType == "" {
		provider.ContentType = Identity.ContentType
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToUpper(provider.ArtifactType)] = provider
}

// Lookup returns the provider for artifactType and whether one was
// registered. The returned provider is always usable.
func (r *Registry) Lookup(artifactType string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[strings.ToUpper(artifactType)]
	if !ok {
		provider = Identity
		provider.ArtifactType = artifactType
	}
	return provider, ok
}

// Types lists the registered artifact types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.providers))
	for artifactType := range r.providers {
		types = append(types, artifactType)
	}
	return types
}
