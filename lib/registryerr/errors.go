// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registryerr

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/registry/lib/model"
)

// Category sentinels. Every typed error in this package matches
// exactly one of them through its Is method.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrNotAllowed = errors.New("not allowed")
	ErrInvalid    = errors.New("invalid input")
	ErrIntegrity  = errors.New("integrity violation")
	ErrStorage    = errors.New("storage failure")
)

// Classified reports whether err, or anything it wraps, belongs to the
// registry taxonomy.
func Classified(err error) bool {
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrNotAllowed, ErrInvalid, ErrIntegrity, ErrStorage} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// ArtifactNotFoundError reports that no artifact exists at GA.
type ArtifactNotFoundError struct {
	GA model.GA
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("artifact %s not found", e.GA)
}

func (e *ArtifactNotFoundError) Is(target error) bool { return target == ErrNotFound }

// VersionNotFoundError reports that the artifact exists but the version
// does not. GlobalID is set when the lookup was by global id, in which
// case GAV may be zero.
type VersionNotFoundError struct {
	GAV      model.GAV
	GlobalID int64
}

func (e *VersionNotFoundError) Error() string {
	if e.GlobalID != 0 && e.GAV.ArtifactID == "" {
		return fmt.Sprintf("version with global id %d not found", e.GlobalID)
	}
	return fmt.Sprintf("version %s not found", e.GAV)
}

func (e *VersionNotFoundError) Is(target error) bool { return target == ErrNotFound }

// BranchNotFoundError reports that the artifact exists but has no
// branch with the given id.
type BranchNotFoundError struct {
	GA       model.GA
	BranchID model.BranchID
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %q of artifact %s not found", e.BranchID, e.GA)
}

func (e *BranchNotFoundError) Is(target error) bool { return target == ErrNotFound }

// RuleNotFoundError reports a missing rule. GA is nil for global rules.
type RuleNotFoundError struct {
	GA       *model.GA
	RuleType model.RuleType
}

func (e *RuleNotFoundError) Error() string {
	if e.GA == nil {
		return fmt.Sprintf("global rule %s not found", e.RuleType)
	}
	return fmt.Sprintf("rule %s of artifact %s not found", e.RuleType, *e.GA)
}

func (e *RuleNotFoundError) Is(target error) bool { return target == ErrNotFound }

// ContentNotFoundError reports missing content, looked up either by id
// or by hash.
type ContentNotFoundError struct {
	ContentID int64
	Hash      string
}

func (e *ContentNotFoundError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("content with hash %s not found", e.Hash)
	}
	return fmt.Sprintf("content %d not found", e.ContentID)
}

func (e *ContentNotFoundError) Is(target error) bool { return target == ErrNotFound }

// GroupNotFoundError reports a missing group.
type GroupNotFoundError struct {
	GroupID model.GroupID
}

func (e *GroupNotFoundError) Error() string {
	return fmt.Sprintf("group %s not found", e.GroupID)
}

func (e *GroupNotFoundError) Is(target error) bool { return target == ErrNotFound }

// CommentNotFoundError reports a missing comment on a version.
type CommentNotFoundError struct {
	GAV       model.GAV
	CommentID int64
}

func (e *CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment %d on version %s not found", e.CommentID, e.GAV)
}

func (e *CommentNotFoundError) Is(target error) bool { return target == ErrNotFound }

// ArtifactAlreadyExistsError reports an attempt to create an artifact
// that exists.
type ArtifactAlreadyExistsError struct {
	GA model.GA
}

func (e *ArtifactAlreadyExistsError) Error() string {
	return fmt.Sprintf("artifact %s already exists", e.GA)
}

func (e *ArtifactAlreadyExistsError) Is(target error) bool { return target == ErrConflict }

// VersionAlreadyExistsError reports a duplicate version, either by
// coordinates or by global id.
type VersionAlreadyExistsError struct {
	GAV      model.GAV
	GlobalID int64
}

func (e *VersionAlreadyExistsError) Error() string {
	if e.GlobalID != 0 {
		return fmt.Sprintf("version %s (global id %d) already exists", e.GAV, e.GlobalID)
	}
	return fmt.Sprintf("version %s already exists", e.GAV)
}

func (e *VersionAlreadyExistsError) Is(target error) bool { return target == ErrConflict }

// BranchVersionAlreadyExistsError reports that a version is already a
// member of a branch at the requested position.
type BranchVersionAlreadyExistsError struct {
	GAV      model.GAV
	BranchID model.BranchID
}

func (e *BranchVersionAlreadyExistsError) Error() string {
	return fmt.Sprintf("version %s is already in branch %q", e.GAV, e.BranchID)
}

func (e *BranchVersionAlreadyExistsError) Is(target error) bool { return target == ErrConflict }

// RuleAlreadyExistsError reports a duplicate rule. GA is nil for global
// rules.
type RuleAlreadyExistsError struct {
	GA       *model.GA
	RuleType model.RuleType
}

func (e *RuleAlreadyExistsError) Error() string {
	if e.GA == nil {
		return fmt.Sprintf("global rule %s already exists", e.RuleType)
	}
	return fmt.Sprintf("rule %s of artifact %s already exists", e.RuleType, *e.GA)
}

func (e *RuleAlreadyExistsError) Is(target error) bool { return target == ErrConflict }

// GroupAlreadyExistsError reports a duplicate group.
type GroupAlreadyExistsError struct {
	GroupID model.GroupID
}

func (e *GroupAlreadyExistsError) Error() string {
	return fmt.Sprintf("group %s already exists", e.GroupID)
}

func (e *GroupAlreadyExistsError) Is(target error) bool { return target == ErrConflict }

// NotAllowedError reports an operation that would violate a structural
// invariant.
type NotAllowedError struct {
	Reason string
}

func (e *NotAllowedError) Error() string { return "not allowed: " + e.Reason }

func (e *NotAllowedError) Is(target error) bool { return target == ErrNotAllowed }

// NotAllowed builds a NotAllowedError with a formatted reason.
func NotAllowed(format string, args ...any) *NotAllowedError {
	return &NotAllowedError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidError reports malformed caller input.
type InvalidError struct {
	Err error
}

func (e *InvalidError) Error() string { return "invalid: " + e.Err.Error() }

func (e *InvalidError) Unwrap() error { return e.Err }

func (e *InvalidError) Is(target error) bool { return target == ErrInvalid }

// Invalid builds an InvalidError with a formatted message.
func Invalid(format string, args ...any) *InvalidError {
	return &InvalidError{Err: fmt.Errorf(format, args...)}
}

// IntegrityError reports stored data that breaks an invariant. These
// indicate a bug or a corrupt archive, not a runtime condition.
type IntegrityError struct {
	Err error
}

func (e *IntegrityError) Error() string { return "integrity: " + e.Err.Error() }

func (e *IntegrityError) Unwrap() error { return e.Err }

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// StorageError wraps a database failure with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage wraps err in a StorageError unless it is nil or already
// belongs to the taxonomy.
func Storage(op string, err error) error {
	if err == nil || Classified(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
