// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versiongraph_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/bureau-foundation/registry/lib/clock"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
	"github.com/bureau-foundation/registry/lib/testutil"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func newGraph(t *testing.T, semver versiongraph.SemverMode) (*versiongraph.Graph, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	graph, err := versiongraph.New(versiongraph.Config{
		Handles: testutil.NewHandles(t),
		Clock:   fake,
		Semver:  semver,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return graph, fake
}

func createArtifact(t fataler, graph *versiongraph.Graph, ga model.GA, versions ...string) {
	t.Helper()
	ctx := context.Background()
	first := &versiongraph.NewVersion{GAV: ga.WithVersion(versions[0]), ContentID: 1}
	if _, _, err := graph.CreateArtifact(ctx, versiongraph.NewArtifact{GA: ga, ArtifactType: "JSON"}, first); err != nil {
		t.Fatalf("CreateArtifact: %v", err)
	}
	for i, version := range versions[1:] {
		if _, err := graph.CreateVersion(ctx, versiongraph.NewVersion{GAV: ga.WithVersion(version), ContentID: int64(i + 2)}); err != nil {
			t.Fatalf("CreateVersion %s: %v", version, err)
		}
	}
}

func branchVersions(t *testing.T, graph *versiongraph.Graph, ga model.GA, branchID model.BranchID, behavior model.RetrievalBehavior) []string {
	t.Helper()
	gavs, err := graph.GetBranchVersions(context.Background(), ga, branchID, behavior)
	if err != nil {
		t.Fatalf("GetBranchVersions(%s): %v", branchID, err)
	}
	versions := make([]string, len(gavs))
	for i, gav := range gavs {
		versions[i] = gav.Version
	}
	return versions
}

func newGA(t fataler) model.GA {
	t.Helper()
	ga, err := model.NewGA("com.example", testutil.UniqueID("orders"))
	if err != nil {
		t.Fatalf("NewGA: %v", err)
	}
	return ga
}

func TestScenario_BranchesAcrossVersionDeletion(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)

	createArtifact(t, graph, ga, "v1")
	if got := branchVersions(t, graph, ga, model.Latest, model.RetrieveDefault); !slices.Equal(got, []string{"v1"}) {
		t.Fatalf("LATEST = %v, want [v1]", got)
	}
	if _, err := graph.CreateVersion(ctx, versiongraph.NewVersion{GAV: ga.WithVersion("v2"), ContentID: 2}); err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if got := branchVersions(t, graph, ga, model.Latest, model.RetrieveDefault); !slices.Equal(got, []string{"v1", "v2"}) {
		t.Fatalf("LATEST = %v, want [v1 v2]", got)
	}
	if err := graph.CreateOrUpdateBranch(ctx, ga.WithVersion("v1"), "stable"); err != nil {
		t.Fatalf("CreateOrUpdateBranch: %v", err)
	}
	if got := branchVersions(t, graph, ga, "stable", model.RetrieveDefault); !slices.Equal(got, []string{"v1"}) {
		t.Fatalf("stable = %v, want [v1]", got)
	}

	if err := graph.DeleteVersion(ctx, ga.WithVersion("v1")); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if got := branchVersions(t, graph, ga, model.Latest, model.RetrieveDefault); !slices.Equal(got, []string{"v2"}) {
		t.Errorf("LATEST = %v, want [v2]", got)
	}
	if got := branchVersions(t, graph, ga, "stable", model.RetrieveDefault); len(got) != 0 {
		t.Errorf("stable = %v, want empty", got)
	}
	_, err := graph.GetBranchLeaf(ctx, ga, "stable", model.RetrieveDefault)
	var notFound *registryerr.VersionNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("leaf of emptied branch: err = %v, want VersionNotFoundError", err)
	}
}

func TestLeafSelection_SkipDisabledLatest(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "v1", "v2", "v3")
	if err := graph.UpdateVersionState(ctx, ga.WithVersion("v3"), model.StateDisabled, "tester"); err != nil {
		t.Fatalf("UpdateVersionState: %v", err)
	}

	skip, err := graph.GetBranchLeaf(ctx, ga, model.Latest, model.RetrieveSkipDisabledLatest)
	if err != nil {
		t.Fatalf("GetBranchLeaf: %v", err)
	}
	if skip.GAV.Version != "v2" {
		t.Errorf("SKIP_DISABLED_LATEST leaf = %s, want v2", skip.GAV.Version)
	}
	def, err := graph.GetBranchLeaf(ctx, ga, model.Latest, model.RetrieveDefault)
	if err != nil {
		t.Fatalf("GetBranchLeaf: %v", err)
	}
	if def.GAV.Version != "v3" {
		t.Errorf("DEFAULT leaf = %s, want v3", def.GAV.Version)
	}
	if got := branchVersions(t, graph, ga, model.Latest, model.RetrieveDefault); !slices.Equal(got, []string{"v1", "v2", "v3"}) {
		t.Errorf("DEFAULT list = %v", got)
	}
}

func TestLeafSelection_Property(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	states := []model.VersionState{model.StateEnabled, model.StateDisabled, model.StateDeprecated}

	rapid.Check(t, func(rt *rapid.T) {
		picked := rapid.SliceOfN(rapid.SampledFrom(states), 1, 6).Draw(rt, "states")
		ga := newGA(rt)
		versions := make([]string, len(picked))
		for i := range picked {
			versions[i] = testutil.UniqueID("v")
		}
		createArtifact(rt, graph, ga, versions...)
		for i, state := range picked {
			if err := graph.UpdateVersionState(ctx, ga.WithVersion(versions[i]), state, ""); err != nil {
				rt.Fatalf("UpdateVersionState: %v", err)
			}
		}

		def, err := graph.GetBranchLeaf(ctx, ga, model.Latest, model.RetrieveDefault)
		if err != nil || def.GAV.Version != versions[len(versions)-1] {
			rt.Fatalf("DEFAULT leaf = %v, %v", def.GAV, err)
		}

		want := -1
		for i := len(picked) - 1; i >= 0; i-- {
			if picked[i] != model.StateDisabled {
				want = i
				break
			}
		}
		skip, err := graph.GetBranchLeaf(ctx, ga, model.Latest, model.RetrieveSkipDisabledLatest)
		if want < 0 {
			if !errors.Is(err, registryerr.ErrNotFound) {
				rt.Fatalf("all disabled: err = %v, want not found", err)
			}
			return
		}
		if err != nil || skip.GAV.Version != versions[want] {
			rt.Fatalf("SKIP leaf = %v, %v; want %s", skip.GAV, err, versions[want])
		}
	})
}

func TestDeleteBranch_LatestNotAllowed(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "1")

	for _, ga := range []model.GA{ga, newGA(t)} {
		err := graph.DeleteBranch(ctx, ga, model.Latest)
		if !errors.Is(err, registryerr.ErrNotAllowed) {
			t.Errorf("DeleteBranch(%s, latest) = %v, want NotAllowed", ga, err)
		}
	}
	if err := graph.CreateOrUpdateBranch(ctx, ga.WithVersion("1"), model.Latest); !errors.Is(err, registryerr.ErrNotAllowed) {
		t.Errorf("CreateOrUpdateBranch(latest) = %v, want NotAllowed", err)
	}
}

func TestCreateOrUpdateBranch_AppendSemantics(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "1", "2")

	if err := graph.CreateOrUpdateBranch(ctx, ga.WithVersion("2"), "release"); err != nil {
		t.Fatalf("CreateOrUpdateBranch: %v", err)
	}
	if got := branchVersions(t, graph, ga, "release", model.RetrieveDefault); !slices.Equal(got, []string{"2"}) {
		t.Fatalf("new branch = %v, want exactly [2]", got)
	}
	if err := graph.CreateOrUpdateBranch(ctx, ga.WithVersion("2"), "release"); err != nil {
		t.Fatalf("repeat CreateOrUpdateBranch: %v", err)
	}
	if err := graph.CreateOrUpdateBranch(ctx, ga.WithVersion("1"), "release"); err != nil {
		t.Fatalf("CreateOrUpdateBranch: %v", err)
	}
	if err := graph.CreateOrUpdateBranch(ctx, ga.WithVersion("2"), "release"); err != nil {
		t.Fatalf("CreateOrUpdateBranch: %v", err)
	}
	if got := branchVersions(t, graph, ga, "release", model.RetrieveDefault); !slices.Equal(got, []string{"2", "1", "2"}) {
		t.Errorf("branch = %v, want [2 1 2]", got)
	}

	err := graph.AddVersionToBranch(ctx, ga.WithVersion("1"), "release")
	var duplicate *registryerr.BranchVersionAlreadyExistsError
	if !errors.As(err, &duplicate) {
		t.Errorf("AddVersionToBranch duplicate = %v, want BranchVersionAlreadyExistsError", err)
	}

	if err := graph.ReplaceBranchVersions(ctx, ga, "release", []string{"1"}); err != nil {
		t.Fatalf("ReplaceBranchVersions: %v", err)
	}
	if got := branchVersions(t, graph, ga, "release", model.RetrieveDefault); !slices.Equal(got, []string{"1"}) {
		t.Errorf("replaced branch = %v, want [1]", got)
	}

	if err := graph.DeleteBranch(ctx, ga, "release"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if _, err := graph.GetVersion(ctx, ga.WithVersion("1")); err != nil {
		t.Errorf("deleting a branch touched its versions: %v", err)
	}
}

func TestNotFoundTaxonomy(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "1")
	missing := newGA(t)

	var artifactErr *registryerr.ArtifactNotFoundError
	if _, err := graph.GetVersion(ctx, missing.WithVersion("1")); !errors.As(err, &artifactErr) {
		t.Errorf("missing artifact: %v", err)
	}
	var versionErr *registryerr.VersionNotFoundError
	if _, err := graph.GetVersion(ctx, ga.WithVersion("9")); !errors.As(err, &versionErr) {
		t.Errorf("missing version: %v", err)
	}
	var branchErr *registryerr.BranchNotFoundError
	if _, err := graph.GetBranchVersions(ctx, ga, "nope", model.RetrieveDefault); !errors.As(err, &branchErr) {
		t.Errorf("missing branch: %v", err)
	}
	if _, err := graph.GetBranchVersions(ctx, missing, "nope", model.RetrieveDefault); !errors.As(err, &artifactErr) {
		t.Errorf("missing branch of missing artifact: %v", err)
	}
	if _, err := graph.GetVersionByGlobalID(ctx, 999); !errors.As(err, &versionErr) || versionErr.GlobalID != 999 {
		t.Errorf("missing global id: %v", err)
	}
}

func TestCreateVersion_Conflicts(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "1")

	_, _, err := graph.CreateArtifact(ctx, versiongraph.NewArtifact{GA: ga}, nil)
	var artifactExists *registryerr.ArtifactAlreadyExistsError
	if !errors.As(err, &artifactExists) {
		t.Errorf("duplicate artifact: %v", err)
	}
	_, err = graph.CreateVersion(ctx, versiongraph.NewVersion{GAV: ga.WithVersion("1"), ContentID: 5})
	var versionExists *registryerr.VersionAlreadyExistsError
	if !errors.As(err, &versionExists) {
		t.Errorf("duplicate version: %v", err)
	}
	if got := branchVersions(t, graph, ga, model.Latest, model.RetrieveDefault); !slices.Equal(got, []string{"1"}) {
		t.Errorf("failed create changed LATEST: %v", got)
	}
}

func TestCreateVersion_AssignsOrderAndDefaultVersion(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "first")

	created, err := graph.CreateVersion(ctx, versiongraph.NewVersion{GAV: ga.WithVersion(""), ContentID: 2})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if created.VersionOrder != 2 || created.GAV.Version != "2" {
		t.Errorf("created = order %d version %q, want 2 and \"2\"", created.VersionOrder, created.GAV.Version)
	}
	if created.State != model.StateEnabled {
		t.Errorf("state = %s, want ENABLED", created.State)
	}
	if !created.CreatedOn.Equal(epoch) {
		t.Errorf("created on %v, want %v", created.CreatedOn, epoch)
	}
}

func TestDeleteVersion_LastVersionRemovesArtifact(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "only")
	if err := graph.CreateRule(ctx, versiongraph.Rule{GA: &ga, Type: model.RuleValidity, Configuration: "FULL"}); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	if err := graph.DeleteVersion(ctx, ga.WithVersion("only")); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	var notFound *registryerr.ArtifactNotFoundError
	if _, err := graph.GetArtifact(ctx, ga); !errors.As(err, &notFound) {
		t.Errorf("artifact survived deletion of its last version: %v", err)
	}
	createArtifact(t, graph, ga, "again")
	if rules, err := graph.ListRules(ctx, &ga); err != nil || len(rules) != 0 {
		t.Errorf("rules of recreated artifact = %v, %v", rules, err)
	}
}

func TestSemverBranches(t *testing.T) {
	t.Run("coerce", func(t *testing.T) {
		graph, _ := newGraph(t, versiongraph.SemverCoerce)
		ga := newGA(t)
		createArtifact(t, graph, ga, "1.0.0", "v1.2", "2", "not-semver", "1.2.7", "v3.0.1-beta.2")

		if got := branchVersions(t, graph, ga, "1.x", model.RetrieveDefault); !slices.Equal(got, []string{"1.0.0", "v1.2", "1.2.7"}) {
			t.Errorf("1.x = %v", got)
		}
		if got := branchVersions(t, graph, ga, "1.2.x", model.RetrieveDefault); !slices.Equal(got, []string{"v1.2", "1.2.7"}) {
			t.Errorf("1.2.x = %v", got)
		}
		if got := branchVersions(t, graph, ga, "2.0.x", model.RetrieveDefault); !slices.Equal(got, []string{"2"}) {
			t.Errorf("2.0.x = %v", got)
		}
		if got := branchVersions(t, graph, ga, "3.0.x", model.RetrieveDefault); !slices.Equal(got, []string{"v3.0.1-beta.2"}) {
			t.Errorf("3.0.x = %v", got)
		}
	})
	t.Run("strict", func(t *testing.T) {
		graph, _ := newGraph(t, versiongraph.SemverStrict)
		ctx := context.Background()
		ga := newGA(t)
		createArtifact(t, graph, ga, "3.1.4-rc.1+build.5")
		if got := branchVersions(t, graph, ga, "3.1.x", model.RetrieveDefault); !slices.Equal(got, []string{"3.1.4-rc.1+build.5"}) {
			t.Errorf("3.1.x = %v", got)
		}
		for _, version := range []string{"1.2", "v1.2.3", "01.2.3"} {
			_, err := graph.CreateVersion(ctx, versiongraph.NewVersion{GAV: ga.WithVersion(version), ContentID: 9})
			if !errors.Is(err, registryerr.ErrInvalid) {
				t.Errorf("strict %q: %v, want ErrInvalid", version, err)
			}
		}
	})
	t.Run("disabled", func(t *testing.T) {
		graph, _ := newGraph(t, versiongraph.SemverDisabled)
		ctx := context.Background()
		ga := newGA(t)
		createArtifact(t, graph, ga, "1.0.0")
		branches, err := graph.ListBranches(ctx, ga)
		if err != nil {
			t.Fatalf("ListBranches: %v", err)
		}
		if len(branches) != 1 || !branches[0].BranchID.IsLatest() || !branches[0].SystemDefined {
			t.Errorf("branches = %+v, want only system-defined latest", branches)
		}
	})
}

func TestGroups(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	groupID := model.MustParseGroupID(testutil.UniqueID("team"))

	if _, err := graph.CreateGroup(ctx, versiongraph.Group{GroupID: groupID, Description: "team schemas"}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	var exists *registryerr.GroupAlreadyExistsError
	if _, err := graph.CreateGroup(ctx, versiongraph.Group{GroupID: groupID}); !errors.As(err, &exists) {
		t.Errorf("duplicate group: %v", err)
	}
	got, err := graph.GetGroup(ctx, groupID)
	if err != nil || got.Description != "team schemas" {
		t.Errorf("GetGroup = %+v, %v", got, err)
	}

	ga := model.GA{GroupID: groupID, ArtifactID: "a"}
	createArtifact(t, graph, ga, "1")
	if err := graph.DeleteGroup(ctx, groupID); !errors.Is(err, registryerr.ErrNotAllowed) {
		t.Errorf("deleting populated group: %v, want NotAllowed", err)
	}
	if err := graph.DeleteArtifact(ctx, ga); err != nil {
		t.Fatalf("DeleteArtifact: %v", err)
	}
	if err := graph.DeleteGroup(ctx, groupID); err != nil {
		t.Errorf("DeleteGroup: %v", err)
	}

	implicit := newGA(t)
	createArtifact(t, graph, model.GA{GroupID: model.DefaultGroup(), ArtifactID: implicit.ArtifactID}, "1")
	if _, err := graph.GetGroup(ctx, model.DefaultGroup()); err != nil {
		t.Errorf("default group not created implicitly: %v", err)
	}
}

func TestRules(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "1")

	global := versiongraph.Rule{Type: model.RuleCompatibility, Configuration: "BACKWARD"}
	if err := graph.CreateRule(ctx, global); err != nil {
		t.Fatalf("CreateRule global: %v", err)
	}
	var exists *registryerr.RuleAlreadyExistsError
	if err := graph.CreateRule(ctx, global); !errors.As(err, &exists) || exists.GA != nil {
		t.Errorf("duplicate global rule: %v", err)
	}
	if err := graph.CreateRule(ctx, versiongraph.Rule{GA: &ga, Type: model.RuleCompatibility, Configuration: "FULL"}); err != nil {
		t.Fatalf("CreateRule artifact: %v", err)
	}

	rule, err := graph.GetRule(ctx, &ga, model.RuleCompatibility)
	if err != nil || rule.Configuration != "FULL" {
		t.Errorf("artifact rule = %+v, %v", rule, err)
	}
	if err := graph.UpdateRule(ctx, versiongraph.Rule{Type: model.RuleCompatibility, Configuration: "NONE"}); err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	rule, err = graph.GetRule(ctx, nil, model.RuleCompatibility)
	if err != nil || rule.Configuration != "NONE" || rule.GA != nil {
		t.Errorf("global rule = %+v, %v", rule, err)
	}

	var notFound *registryerr.RuleNotFoundError
	if _, err := graph.GetRule(ctx, &ga, model.RuleIntegrity); !errors.As(err, &notFound) {
		t.Errorf("missing rule: %v", err)
	}
	if err := graph.DeleteRule(ctx, nil, model.RuleCompatibility); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if rules, _ := graph.ListRules(ctx, nil); len(rules) != 0 {
		t.Errorf("global rules after delete = %v", rules)
	}
	if err := graph.CreateRule(ctx, versiongraph.Rule{Type: "SPEED"}); !errors.Is(err, registryerr.ErrInvalid) {
		t.Errorf("unknown rule type: %v", err)
	}
}

func TestComments(t *testing.T) {
	graph, fake := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "1")
	gav := ga.WithVersion("1")

	first, err := graph.CreateComment(ctx, gav, "alice", "first")
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	fake.Advance(time.Minute)
	if _, err := graph.CreateComment(ctx, gav, "bob", "second"); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	comments, err := graph.ListComments(ctx, gav)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 2 || comments[0].Value != "second" || comments[1].Value != "first" {
		t.Errorf("comments = %+v, want newest first", comments)
	}

	if err := graph.UpdateComment(ctx, gav, first.CommentID, "edited"); err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if err := graph.DeleteComment(ctx, gav, first.CommentID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	var notFound *registryerr.CommentNotFoundError
	if err := graph.DeleteComment(ctx, gav, first.CommentID); !errors.As(err, &notFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestImportVersion_PreservesIdentifiers(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)

	imported, err := graph.ImportVersion(ctx, versiongraph.Version{
		GlobalID:     42,
		GAV:          ga.WithVersion("7"),
		VersionOrder: 7,
		ContentID:    3,
		State:        model.StateDeprecated,
		CreatedOn:    epoch.Add(-time.Hour),
	}, "AVRO", true)
	if err != nil {
		t.Fatalf("ImportVersion: %v", err)
	}
	if imported.GlobalID != 42 {
		t.Errorf("global id = %d, want 42", imported.GlobalID)
	}
	artifact, err := graph.GetArtifact(ctx, ga)
	if err != nil || artifact.ArtifactType != "AVRO" {
		t.Errorf("artifact = %+v, %v", artifact, err)
	}

	_, err = graph.ImportVersion(ctx, versiongraph.Version{GlobalID: 42, GAV: ga.WithVersion("8"), ContentID: 3}, "AVRO", true)
	var duplicate *registryerr.VersionAlreadyExistsError
	if !errors.As(err, &duplicate) || duplicate.GlobalID != 42 {
		t.Errorf("global id clash: %v", err)
	}

	next, err := graph.CreateVersion(ctx, versiongraph.NewVersion{GAV: ga.WithVersion(""), ContentID: 4})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if next.VersionOrder != 8 {
		t.Errorf("order after import = %d, want 8", next.VersionOrder)
	}
}

func TestImportBranchVersion_AndRebuildLatest(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	for i, version := range []string{"a", "b", "c"} {
		if _, err := graph.ImportVersion(ctx, versiongraph.Version{GAV: ga.WithVersion(version), VersionOrder: int64(i + 1), ContentID: 1}, "JSON", false); err != nil {
			t.Fatalf("ImportVersion: %v", err)
		}
	}

	for _, entry := range []versiongraph.ImportedBranchVersion{
		{GAV: ga.WithVersion("c"), BranchID: "stable", BranchOrder: 2},
		{GAV: ga.WithVersion("a"), BranchID: "stable", BranchOrder: 1},
	} {
		if err := graph.ImportBranchVersion(ctx, entry); err != nil {
			t.Fatalf("ImportBranchVersion: %v", err)
		}
	}
	if got := branchVersions(t, graph, ga, "stable", model.RetrieveDefault); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("stable = %v, want [a c]", got)
	}
	err := graph.ImportBranchVersion(ctx, versiongraph.ImportedBranchVersion{GAV: ga.WithVersion("b"), BranchID: "stable", BranchOrder: 1})
	var occupied *registryerr.BranchVersionAlreadyExistsError
	if !errors.As(err, &occupied) {
		t.Errorf("occupied position: %v", err)
	}

	rebuilt, err := graph.RebuildLatest(ctx, ga)
	if err != nil || !rebuilt {
		t.Fatalf("RebuildLatest = %v, %v", rebuilt, err)
	}
	if got := branchVersions(t, graph, ga, model.Latest, model.RetrieveDefault); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("LATEST = %v", got)
	}
	if again, _ := graph.RebuildLatest(ctx, ga); again {
		t.Error("RebuildLatest rebuilt a populated branch")
	}
}

func TestWalkRules_GlobalFirst(t *testing.T) {
	graph, _ := newGraph(t, versiongraph.SemverDisabled)
	ctx := context.Background()
	ga := newGA(t)
	createArtifact(t, graph, ga, "1")
	if err := graph.CreateRule(ctx, versiongraph.Rule{GA: &ga, Type: model.RuleValidity}); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if err := graph.CreateRule(ctx, versiongraph.Rule{Type: model.RuleIntegrity}); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	var order []bool
	if err := graph.WalkRules(ctx, func(rule versiongraph.Rule) error {
		order = append(order, rule.GA == nil)
		return nil
	}); err != nil {
		t.Fatalf("WalkRules: %v", err)
	}
	if !slices.Equal(order, []bool{true, false}) {
		t.Errorf("global-first order = %v", order)
	}
}
