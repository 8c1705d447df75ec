// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package model

import "fmt"

// ArtifactReference points from one piece of content to a version of
// another artifact. Name is the reference as it is written inside the
// referencing document (a file name, a $ref target, an import path).
//
// The JSON field order is part of the content hash: references are
// serialized with encoding/json in declaration order.
type ArtifactReference struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Version    string `json:"version"`
	Name       string `json:"name"`
}

// Coordinate returns the collision-free key used when references are
// resolved recursively: "groupId:artifactId:version:name". Two
// artifacts that reuse the same local name get distinct coordinates.
func (r ArtifactReference) Coordinate() string {
	return r.group().String() + ":" + r.ArtifactID + ":" + r.Version + ":" + r.Name
}

// GAV returns the version the reference points at. The group is
// normalized; an unparseable group is kept verbatim.
func (r ArtifactReference) GAV() GAV {
	return GAV{GroupID: r.group(), ArtifactID: r.ArtifactID, Version: r.Version}
}

// Complete reports an error naming the first missing field among
// artifactId, name, and version.
func (r ArtifactReference) Complete() error {
	switch {
	case r.ArtifactID == "":
		return fmt.Errorf("reference %q has no artifact id", r.Name)
	case r.Name == "":
		return fmt.Errorf("reference to %s has no name", r.ArtifactID)
	case r.Version == "":
		return fmt.Errorf("reference %q to %s has no version", r.Name, r.ArtifactID)
	}
	return nil
}

func (r ArtifactReference) group() GroupID {
	group, err := ParseGroupID(r.GroupID)
	if err != nil {
		return GroupID{id: r.GroupID}
	}
	return group
}

// TypedContent is a document together with its media type.
type TypedContent struct {
	Content     []byte
	ContentType string
}

// ContentWrapper is what a reference loader returns: the content of the
// referenced version, its artifact type, and its own outgoing
// references for further recursion.
type ContentWrapper struct {
	ArtifactType string
	Content      []byte
	ContentType  string
	References   []ArtifactReference
}

// Typed returns the wrapper's content as TypedContent.
func (w ContentWrapper) Typed() TypedContent {
	return TypedContent{Content: w.Content, ContentType: w.ContentType}
}
