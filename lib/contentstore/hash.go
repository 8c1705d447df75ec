// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package contentstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// ContentHash returns the hex sha256 identity of a document and its
// ordered reference list.
func ContentHash(data []byte, references []model.ArtifactReference) (string, error) {
	if len(references) == 0 {
		return sha256Hex(data), nil
	}
	combined, err := ConcatReferences(data, references)
	if err != nil {
		return "", err
	}
	return sha256Hex(combined), nil
}

// ConcatReferences appends the JSON encoding of references to data.
// An empty reference list is rejected: content without references is
// hashed on its own bytes and never reaches this step.
func ConcatReferences(data []byte, references []model.ArtifactReference) ([]byte, error) {
	if len(references) == 0 {
		return nil, registryerr.Invalid("no references to append to content")
	}
	serialized, err := SerializeReferences(references)
	if err != nil {
		return nil, err
	}
	combined := make([]byte, 0, len(data)+len(serialized))
	combined = append(combined, data...)
	return append(combined, serialized...), nil
}

// SerializeReferences encodes references as a JSON array of
// {"groupId","artifactId","version","name"} objects.
func SerializeReferences(references []model.ArtifactReference) ([]byte, error) {
	serialized, err := json.Marshal(references)
	if err != nil {
		return nil, &registryerr.StorageError{Op: "serialize references", Err: err}
	}
	return serialized, nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
