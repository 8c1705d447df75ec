// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package impexp

import (
	"fmt"

	"github.com/bureau-foundation/registry/lib/codec"
	"github.com/bureau-foundation/registry/lib/model"
)

// EntityType names a kind of archive record.
type EntityType string

const (
	TypeManifest        EntityType = "Manifest"
	TypeGroup           EntityType = "Group"
	TypeGlobalRule      EntityType = "GlobalRule"
	TypeContent         EntityType = "Content"
	TypeArtifactVersion EntityType = "ArtifactVersion"
	TypeArtifactBranch  EntityType = "ArtifactBranch"
	TypeArtifactRule    EntityType = "ArtifactRule"
	TypeComment         EntityType = "Comment"
)

// EntityTypes lists every entity type in export order.
var EntityTypes = []EntityType{
	TypeManifest, TypeGroup, TypeGlobalRule, TypeContent,
	TypeArtifactVersion, TypeArtifactBranch, TypeArtifactRule, TypeComment,
}

// schemaVersion is the body version written for every entity type.
const schemaVersion = 1

// Entity is one archived record. The set of entity types is closed.
type Entity interface {
	EntityType() EntityType
	entity()
}

// ManifestEntity describes the export run. It is informational only.
type ManifestEntity struct {
	RunID         string `cbor:"run_id"`
	ExportedOn    int64  `cbor:"exported_on"`
	SystemName    string `cbor:"system_name"`
	SystemVersion string `cbor:"system_version"`
	Description   string `cbor:"description,omitempty"`
}

// GroupEntity is an archived group.
type GroupEntity struct {
	GroupID       string            `cbor:"group_id"`
	Description   string            `cbor:"description,omitempty"`
	ArtifactsType string            `cbor:"artifacts_type,omitempty"`
	CreatedBy     string            `cbor:"created_by,omitempty"`
	CreatedOn     int64             `cbor:"created_on"`
	ModifiedBy    string            `cbor:"modified_by,omitempty"`
	ModifiedOn    int64             `cbor:"modified_on"`
	Labels        map[string]string `cbor:"labels,omitempty"`
}

// GlobalRuleEntity is an archived global rule.
type GlobalRuleEntity struct {
	RuleType      model.RuleType `cbor:"rule_type"`
	Configuration string         `cbor:"configuration"`
}

// ContentEntity is an archived content row with its source id.
type ContentEntity struct {
	ContentID     int64                     `cbor:"content_id"`
	ContentHash   string                    `cbor:"content_hash"`
	CanonicalHash string                    `cbor:"canonical_hash,omitempty"`
	ArtifactType  string                    `cbor:"artifact_type,omitempty"`
	ContentType   string                    `cbor:"content_type,omitempty"`
	Content       []byte                    `cbor:"content"`
	References    []model.ArtifactReference `cbor:"references,omitempty"`
}

// ArtifactVersionEntity is an archived version. ContentID and GlobalID
// are source identifiers.
type ArtifactVersionEntity struct {
	GlobalID     int64             `cbor:"global_id"`
	GroupID      string            `cbor:"group_id"`
	ArtifactID   string            `cbor:"artifact_id"`
	Version      string            `cbor:"version"`
	VersionOrder int64             `cbor:"version_order"`
	ArtifactType string            `cbor:"artifact_type,omitempty"`
	ContentID    int64             `cbor:"content_id"`
	State        string            `cbor:"state"`
	Name         string            `cbor:"name,omitempty"`
	Description  string            `cbor:"description,omitempty"`
	CreatedBy    string            `cbor:"created_by,omitempty"`
	CreatedOn    int64             `cbor:"created_on"`
	ModifiedBy   string            `cbor:"modified_by,omitempty"`
	ModifiedOn   int64             `cbor:"modified_on"`
	Labels       map[string]string `cbor:"labels,omitempty"`
}

// ArtifactBranchEntity is one archived branch position.
type ArtifactBranchEntity struct {
	GroupID       string `cbor:"group_id"`
	ArtifactID    string `cbor:"artifact_id"`
	BranchID      string `cbor:"branch_id"`
	Version       string `cbor:"version"`
	BranchOrder   int64  `cbor:"branch_order"`
	Description   string `cbor:"description,omitempty"`
	SystemDefined bool   `cbor:"system_defined,omitempty"`
}

// ArtifactRuleEntity is an archived artifact rule.
type ArtifactRuleEntity struct {
	GroupID       string         `cbor:"group_id"`
	ArtifactID    string         `cbor:"artifact_id"`
	RuleType      model.RuleType `cbor:"rule_type"`
	Configuration string         `cbor:"configuration"`
}

// CommentEntity is an archived comment. GlobalID is a source
// identifier.
type CommentEntity struct {
	CommentID int64  `cbor:"comment_id"`
	GlobalID  int64  `cbor:"global_id"`
	CreatedBy string `cbor:"created_by,omitempty"`
	CreatedOn int64  `cbor:"created_on"`
	Value     string `cbor:"value"`
}

func (*ManifestEntity) EntityType() EntityType        { return TypeManifest }
func (*GroupEntity) EntityType() EntityType           { return TypeGroup }
func (*GlobalRuleEntity) EntityType() EntityType      { return TypeGlobalRule }
func (*ContentEntity) EntityType() EntityType         { return TypeContent }
func (*ArtifactVersionEntity) EntityType() EntityType { return TypeArtifactVersion }
func (*ArtifactBranchEntity) EntityType() EntityType  { return TypeArtifactBranch }
func (*ArtifactRuleEntity) EntityType() EntityType    { return TypeArtifactRule }
func (*CommentEntity) EntityType() EntityType         { return TypeComment }

func (*ManifestEntity) entity()        {}
func (*GroupEntity) entity()           {}
func (*GlobalRuleEntity) entity()      {}
func (*ContentEntity) entity()         {}
func (*ArtifactVersionEntity) entity() {}
func (*ArtifactBranchEntity) entity()  {}
func (*ArtifactRuleEntity) entity()    {}
func (*CommentEntity) entity()         {}

// GAV returns the coordinates of the version.
func (e *ArtifactVersionEntity) GAV() (model.GAV, error) {
	return model.NewGAV(e.GroupID, e.ArtifactID, e.Version)
}

// GAV returns the coordinates of the branch member.
func (e *ArtifactBranchEntity) GAV() (model.GAV, error) {
	return model.NewGAV(e.GroupID, e.ArtifactID, e.Version)
}

// Record is the archive framing of one entity.
type Record struct {
	Type    EntityType       `cbor:"type"`
	Version int              `cbor:"version"`
	Body    codec.RawMessage `cbor:"body,omitempty"`
}

// EncodeEntity frames an entity as a record.
func EncodeEntity(entity Entity) (Record, error) {
	body, err := codec.Marshal(entity)
	if err != nil {
		return Record{}, fmt.Errorf("impexp: encode %s: %w", entity.EntityType(), err)
	}
	return Record{Type: entity.EntityType(), Version: schemaVersion, Body: body}, nil
}

// DecodeEntity decodes the body of a record. known is false for a
// record type or schema version this build does not understand.
func DecodeEntity(record Record) (entity Entity, known bool, err error) {
	if record.Version != schemaVersion {
		return nil, false, nil
	}
	switch record.Type {
	case TypeManifest:
		entity = &ManifestEntity{}
	case TypeGroup:
		entity = &GroupEntity{}
	case TypeGlobalRule:
		entity = &GlobalRuleEntity{}
	case TypeContent:
		entity = &ContentEntity{}
	case TypeArtifactVersion:
		entity = &ArtifactVersionEntity{}
	case TypeArtifactBranch:
		entity = &ArtifactBranchEntity{}
	case TypeArtifactRule:
		entity = &ArtifactRuleEntity{}
	case TypeComment:
		entity = &CommentEntity{}
	default:
		return nil, false, nil
	}
	if err := codec.Unmarshal(record.Body, entity); err != nil {
		return nil, true, fmt.Errorf("impexp: decode %s: %w", record.Type, err)
	}
	return entity, true, nil
}
