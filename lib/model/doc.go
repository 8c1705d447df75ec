// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package model defines the value types shared by every layer of the
// registry: coordinates ([GroupID], [GA], [GAV], [BranchID]),
// [ArtifactReference], version lifecycle state, branch retrieval
// behavior, and the content carriers ([TypedContent],
// [ContentWrapper]) passed between storage and the artifact-type
// providers.
//
// All types here are immutable values with structural equality, so
// they can be used directly as map keys. Identifiers that arrive from
// users or archives go through the Parse functions, which enforce the
// same character rules the storage layer relies on.
//
// This package depends on no other registry packages.
package model
