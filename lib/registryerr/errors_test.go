// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package registryerr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

func TestCategories(t *testing.T) {
	ga := model.GA{ArtifactID: "orders"}
	tests := []struct {
		err      error
		category error
	}{
		{&registryerr.ArtifactNotFoundError{GA: ga}, registryerr.ErrNotFound},
		{&registryerr.VersionNotFoundError{GAV: ga.WithVersion("1")}, registryerr.ErrNotFound},
		{&registryerr.BranchNotFoundError{GA: ga, BranchID: "stable"}, registryerr.ErrNotFound},
		{&registryerr.RuleNotFoundError{RuleType: model.RuleValidity}, registryerr.ErrNotFound},
		{&registryerr.VersionAlreadyExistsError{GAV: ga.WithVersion("1"), GlobalID: 7}, registryerr.ErrConflict},
		{&registryerr.BranchVersionAlreadyExistsError{GAV: ga.WithVersion("1"), BranchID: "stable"}, registryerr.ErrConflict},
		{registryerr.NotAllowed("cannot delete branch %q", model.Latest), registryerr.ErrNotAllowed},
		{registryerr.Invalid("bad id"), registryerr.ErrInvalid},
		{&registryerr.IntegrityError{Err: errors.New("reference without artifact id")}, registryerr.ErrIntegrity},
		{&registryerr.StorageError{Op: "insert", Err: errors.New("disk full")}, registryerr.ErrStorage},
	}
	for _, test := range tests {
		wrapped := fmt.Errorf("registry: op: %w", test.err)
		if !errors.Is(wrapped, test.category) {
			t.Errorf("%v does not match category %v", test.err, test.category)
		}
		if !registryerr.Classified(wrapped) {
			t.Errorf("%v is not classified", test.err)
		}
	}
}

func TestStorage_PassesClassifiedErrors(t *testing.T) {
	notFound := &registryerr.ArtifactNotFoundError{GA: model.GA{ArtifactID: "x"}}
	if got := registryerr.Storage("get", notFound); got != notFound {
		t.Errorf("Storage wrapped a classified error: %v", got)
	}
	if registryerr.Storage("get", nil) != nil {
		t.Error("Storage(nil) returned non-nil")
	}

	raw := errors.New("database is locked")
	wrapped := registryerr.Storage("get", raw)
	var storageErr *registryerr.StorageError
	if !errors.As(wrapped, &storageErr) {
		t.Fatalf("Storage(raw) = %T, want *StorageError", wrapped)
	}
	if storageErr.Op != "get" || !errors.Is(wrapped, raw) {
		t.Errorf("StorageError = %+v, does not wrap original", storageErr)
	}
}

func TestVersionNotFound_ByGlobalID(t *testing.T) {
	err := &registryerr.VersionNotFoundError{GlobalID: 42}
	if got, want := err.Error(), "version with global id 42 not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
