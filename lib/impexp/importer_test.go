// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package impexp_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/bureau-foundation/registry/lib/artifacttype"
	"github.com/bureau-foundation/registry/lib/clock"
	"github.com/bureau-foundation/registry/lib/impexp"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registry"
	"github.com/bureau-foundation/registry/lib/testutil"
	"github.com/bureau-foundation/registry/lib/versiongraph"
)

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func importAll(t fataler, reg *registry.Registry, options impexp.Options, entities ...impexp.Entity) impexp.Report {
	t.Helper()
	ctx := context.Background()
	importer := impexp.NewImporter(reg, options)
	for _, entity := range entities {
		if err := importer.Import(ctx, entity); err != nil {
			t.Fatalf("Import(%s): %v", entity.EntityType(), err)
		}
	}
	report, err := importer.PostImport(ctx)
	if err != nil {
		t.Fatalf("PostImport: %v", err)
	}
	return report
}

// snapshot renders the graph as sorted lines that do not depend on
// allocated ids.
func snapshot(t fataler, reg *registry.Registry) []string {
	t.Helper()
	ctx := context.Background()
	graph := reg.Graph()
	var lines []string
	byGlobalID := map[int64]string{}
	err := graph.WalkVersions(ctx, func(artifactType string, v versiongraph.Version) error {
		content, err := reg.Contents().Get(ctx, v.ContentID)
		if err != nil {
			return err
		}
		byGlobalID[v.GlobalID] = v.GAV.String()
		lines = append(lines, fmt.Sprintf("version %s type=%s order=%d state=%s content=%s",
			v.GAV, artifactType, v.VersionOrder, v.State, content.Data))
		return nil
	})
	if err != nil {
		t.Fatalf("WalkVersions: %v", err)
	}
	err = graph.WalkBranches(ctx, func(branch versiongraph.Branch, member versiongraph.BranchMember) error {
		lines = append(lines, fmt.Sprintf("branch %s/%s %d %s", branch.GA, branch.BranchID, member.BranchOrder, member.Version))
		return nil
	})
	if err != nil {
		t.Fatalf("WalkBranches: %v", err)
	}
	err = graph.WalkComments(ctx, func(comment versiongraph.Comment) error {
		lines = append(lines, fmt.Sprintf("comment %s %q", byGlobalID[comment.GlobalID], comment.Value))
		return nil
	})
	if err != nil {
		t.Fatalf("WalkComments: %v", err)
	}
	artifacts, err := graph.AllArtifacts(ctx)
	if err != nil {
		t.Fatalf("AllArtifacts: %v", err)
	}
	for _, artifact := range artifacts {
		lines = append(lines, fmt.Sprintf("artifact %s type=%s created_by=%s created_on=%s",
			artifact.GA, artifact.ArtifactType, artifact.CreatedBy, artifact.CreatedOn.Format(time.RFC3339)))
	}
	slices.Sort(lines)
	return lines
}

func openRegistry(t fataler, dir string) *registry.Registry {
	t.Helper()
	reg, err := registry.Open(context.Background(), registry.Config{
		Path:  filepath.Join(dir, "registry.db"),
		Clock: clock.Fake(testutil.Epoch),
	})
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	return reg
}

func TestImport_CommentBeforeVersionIsRemapped(t *testing.T) {
	reg, _ := testutil.OpenRegistry(t, nil)
	ctx := context.Background()
	importer := impexp.NewImporter(reg, impexp.Options{})

	steps := []impexp.Entity{
		&impexp.ContentEntity{ContentID: 5, Content: []byte(`{"a":1}`), ArtifactType: artifacttype.JSON, ContentType: "application/json"},
		&impexp.CommentEntity{CommentID: 9, GlobalID: 42, CreatedBy: "bob", Value: "looks good"},
	}
	for _, entity := range steps {
		if err := importer.Import(ctx, entity); err != nil {
			t.Fatalf("Import(%s): %v", entity.EntityType(), err)
		}
	}
	if _, ok := importer.GlobalID(42); ok {
		t.Fatal("global id 42 mapped before its version arrived")
	}

	err := importer.Import(ctx, &impexp.ArtifactVersionEntity{
		GlobalID: 42, GroupID: "shop", ArtifactID: "orders", Version: "1",
		ArtifactType: artifacttype.JSON, ContentID: 5, State: "ENABLED",
	})
	if err != nil {
		t.Fatalf("Import(version): %v", err)
	}
	newGlobalID, ok := importer.GlobalID(42)
	if !ok {
		t.Fatal("global id 42 not mapped after version import")
	}
	if newGlobalID == 42 {
		t.Fatalf("global id was not reallocated")
	}

	report, err := importer.PostImport(ctx)
	if err != nil {
		t.Fatalf("PostImport: %v", err)
	}
	if len(report.Dangling) != 0 {
		t.Errorf("dangling = %+v, want none", report.Dangling)
	}
	if report.LatestRebuilt != 1 {
		t.Errorf("LatestRebuilt = %d, want 1", report.LatestRebuilt)
	}

	gav, _ := model.NewGAV("shop", "orders", "1")
	comments, err := reg.Graph().ListComments(ctx, gav)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(comments) != 1 || comments[0].GlobalID != newGlobalID || comments[0].Value != "looks good" {
		t.Fatalf("comments = %+v, want one on global id %d", comments, newGlobalID)
	}
	leaf, err := reg.Graph().GetBranchLeaf(ctx, gav.GA(), model.Latest, model.RetrieveDefault)
	if err != nil || leaf.GAV != gav {
		t.Errorf("LATEST leaf = %v, %v; want %s", leaf.GAV, err, gav)
	}
	if _, err := importer.PostImport(ctx); err == nil {
		t.Error("second PostImport succeeded")
	}
}

func TestImport_PreservesIdentifiers(t *testing.T) {
	reg, _ := testutil.OpenRegistry(t, nil)
	ctx := context.Background()
	importAll(t, reg, impexp.Options{PreserveGlobalID: true, PreserveContentID: true},
		&impexp.ArtifactVersionEntity{GlobalID: 70, GroupID: "shop", ArtifactID: "orders", Version: "1", ContentID: 30, ArtifactType: artifacttype.JSON},
		&impexp.ContentEntity{ContentID: 30, Content: []byte(`{}`), ArtifactType: artifacttype.JSON},
	)
	version, err := reg.Graph().GetVersionByGlobalID(ctx, 70)
	if err != nil {
		t.Fatalf("GetVersionByGlobalID(70): %v", err)
	}
	if version.ContentID != 30 {
		t.Errorf("content id = %d, want preserved 30", version.ContentID)
	}

	// Sequences were advanced past the preserved ids.
	created, err := reg.CreateVersion(ctx, version.GAV.GA(), registry.VersionRequest{Content: []byte(`{"b":2}`)})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if created.GlobalID <= 70 || created.ContentID <= 30 {
		t.Errorf("new ids %d/%d collide with preserved range", created.GlobalID, created.ContentID)
	}
	if created.VersionOrder != 2 {
		t.Errorf("version order = %d, want 2", created.VersionOrder)
	}
}

func TestImport_DanglingEntitiesAreReported(t *testing.T) {
	reg, _ := testutil.OpenRegistry(t, nil)
	report := importAll(t, reg, impexp.Options{},
		&impexp.ArtifactVersionEntity{GlobalID: 1, GroupID: "shop", ArtifactID: "orders", Version: "1", ContentID: 99},
		&impexp.ArtifactBranchEntity{GroupID: "shop", ArtifactID: "orders", BranchID: "stable", Version: "1", BranchOrder: 1},
		&impexp.CommentEntity{CommentID: 1, GlobalID: 1, Value: "orphan"},
	)
	if len(report.Dangling) != 3 {
		t.Fatalf("dangling = %d entries, want 3: %+v", len(report.Dangling), report.Dangling)
	}
	if report.Dangling[0].Missing != "content 99" {
		t.Errorf("first dangling missing %q, want content 99", report.Dangling[0].Missing)
	}
	if report.Total() != 0 {
		t.Errorf("imported %d entities, want 0", report.Total())
	}
	if lines := snapshot(t, reg); len(lines) != 0 {
		t.Errorf("graph not empty: %v", lines)
	}
}

func TestImport_BestEffortRulesAndGroups(t *testing.T) {
	reg, _ := testutil.OpenRegistry(t, nil)
	report := importAll(t, reg, impexp.Options{},
		&impexp.GlobalRuleEntity{RuleType: model.RuleValidity, Configuration: "FULL"},
		&impexp.GlobalRuleEntity{RuleType: model.RuleValidity, Configuration: "SYNTAX_ONLY"},
		&impexp.GlobalRuleEntity{RuleType: "BOGUS"},
		&impexp.ArtifactRuleEntity{GroupID: "shop", ArtifactID: "missing", RuleType: model.RuleIntegrity},
		&impexp.GroupEntity{GroupID: "shop", Description: "orders and carts"},
		&impexp.GroupEntity{GroupID: "shop"},
		&impexp.ManifestEntity{RunID: "earlier", SystemName: "elsewhere"},
	)
	if report.Conflicts != 2 {
		t.Errorf("conflicts = %d, want 2 (rule and group)", report.Conflicts)
	}
	if report.Failed != 2 {
		t.Errorf("failed = %d, want 2 (bad rule type and missing artifact)", report.Failed)
	}
	if report.Imported[impexp.TypeGlobalRule] != 1 || report.Imported[impexp.TypeGroup] != 1 || report.Imported[impexp.TypeManifest] != 1 {
		t.Errorf("imported = %v", report.Imported)
	}
	rule, err := reg.Graph().GetRule(context.Background(), nil, model.RuleValidity)
	if err != nil || rule.Configuration != "FULL" {
		t.Errorf("global VALIDITY = %+v, %v; want first one kept", rule, err)
	}
}

func TestImport_BadEntitiesDoNotStopTheRun(t *testing.T) {
	reg, _ := testutil.OpenRegistry(t, nil)
	ctx := context.Background()
	report := importAll(t, reg, impexp.Options{PreserveContentID: true},
		&impexp.ContentEntity{ContentID: 10, Content: []byte(`{"v":1}`), ArtifactType: artifacttype.JSON, ContentType: "application/json"},
		&impexp.ArtifactVersionEntity{GlobalID: 1, GroupID: "shop", ArtifactID: "orders", Version: "has space", ContentID: 10, ArtifactType: artifacttype.JSON},
		&impexp.ContentEntity{ContentID: 10, Content: []byte(`{"v":2}`), ArtifactType: artifacttype.JSON, ContentType: "application/json"},
		&impexp.ArtifactVersionEntity{GlobalID: 2, GroupID: "shop", ArtifactID: "good", Version: "1", ContentID: 10, ArtifactType: artifacttype.JSON},
		&impexp.ArtifactVersionEntity{GlobalID: 3, GroupID: "shop", ArtifactID: "good", Version: "2", ContentID: 10, ArtifactType: artifacttype.JSON, State: "BOGUS"},
		&impexp.ArtifactBranchEntity{GroupID: "shop", ArtifactID: "good", BranchID: "not a branch", Version: "1", BranchOrder: 1},
		&impexp.ArtifactBranchEntity{GroupID: "shop", ArtifactID: "good", BranchID: "stable", Version: "1", BranchOrder: 1},
		&impexp.CommentEntity{CommentID: 1, GlobalID: 2, Value: "still here"},
	)
	if report.Failed != 4 {
		t.Errorf("failed = %d, want 4 (version id, content id clash, state, branch id)", report.Failed)
	}
	if report.Imported[impexp.TypeArtifactVersion] != 1 || report.Imported[impexp.TypeArtifactBranch] != 1 || report.Imported[impexp.TypeComment] != 1 {
		t.Errorf("imported = %v", report.Imported)
	}

	gav, err := model.NewGAV("shop", "good", "1")
	if err != nil {
		t.Fatal(err)
	}
	version, err := reg.Graph().GetVersion(ctx, gav)
	if err != nil {
		t.Fatalf("GetVersion(%s): %v", gav, err)
	}
	content, err := reg.Contents().Get(ctx, version.ContentID)
	if err != nil {
		t.Fatalf("Get(%d): %v", version.ContentID, err)
	}
	if string(content.Data) != `{"v":1}` {
		t.Errorf("content = %s, want the first archived row", content.Data)
	}
	stable, err := reg.Graph().GetBranchVersions(ctx, gav.GA(), "stable", model.RetrieveDefault)
	if err != nil || len(stable) != 1 || stable[0] != gav {
		t.Errorf("stable = %v, %v; want [%s]", stable, err, gav)
	}
	comments, err := reg.Graph().ListComments(ctx, gav)
	if err != nil || len(comments) != 1 {
		t.Errorf("comments = %+v, %v; want one", comments, err)
	}
}

func TestImportRecord_UndecodableRecordIsCounted(t *testing.T) {
	reg, _ := testutil.OpenRegistry(t, nil)
	ctx := context.Background()
	importer := impexp.NewImporter(reg, impexp.Options{})

	if err := importer.ImportRecord(ctx, impexp.Record{Type: impexp.TypeContent, Version: 1, Body: []byte{0xff}}); err != nil {
		t.Fatalf("ImportRecord(corrupt): %v", err)
	}
	record, err := impexp.EncodeEntity(&impexp.GroupEntity{GroupID: "shop"})
	if err != nil {
		t.Fatalf("EncodeEntity: %v", err)
	}
	if err := importer.ImportRecord(ctx, record); err != nil {
		t.Fatalf("ImportRecord(group): %v", err)
	}
	report, err := importer.PostImport(ctx)
	if err != nil {
		t.Fatalf("PostImport: %v", err)
	}
	if report.Failed != 1 || report.Imported[impexp.TypeGroup] != 1 {
		t.Errorf("report = %s, want one failure and one group", report)
	}
}

func TestImport_CancelledContextStops(t *testing.T) {
	reg, _ := testutil.OpenRegistry(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	importer := impexp.NewImporter(reg, impexp.Options{})
	err := importer.Import(ctx, &impexp.GroupEntity{GroupID: "shop"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// orderedEntities is a small archive in dependency order: two
// artifacts, three versions sharing two contents, a custom branch, and
// comments spread over two versions.
func orderedEntities() []impexp.Entity {
	version := func(globalID int64, artifact, name string, order, contentID int64, state string) *impexp.ArtifactVersionEntity {
		return &impexp.ArtifactVersionEntity{
			GlobalID: globalID, GroupID: "shop", ArtifactID: artifact, Version: name,
			VersionOrder: order, ArtifactType: artifacttype.JSON, ContentID: contentID, State: state,
			CreatedBy: fmt.Sprintf("author-%d", order),
			CreatedOn: testutil.Epoch.Add(time.Duration(order) * time.Minute).UnixMilli(),
		}
	}
	branch := func(artifact, branchID, name string, order int64) *impexp.ArtifactBranchEntity {
		return &impexp.ArtifactBranchEntity{
			GroupID: "shop", ArtifactID: artifact, BranchID: branchID, Version: name,
			BranchOrder: order, SystemDefined: branchID == "latest",
		}
	}
	return []impexp.Entity{
		&impexp.ContentEntity{ContentID: 10, Content: []byte(`{"v":1}`), ArtifactType: artifacttype.JSON, ContentType: "application/json"},
		&impexp.ContentEntity{ContentID: 11, Content: []byte(`{"v":2}`), ArtifactType: artifacttype.JSON, ContentType: "application/json"},
		version(100, "orders", "1", 1, 10, "ENABLED"),
		version(101, "orders", "2", 2, 11, "DISABLED"),
		version(102, "carts", "1.0.0", 1, 10, "ENABLED"),
		branch("orders", "latest", "1", 1),
		branch("orders", "latest", "2", 2),
		branch("orders", "stable", "1", 1),
		branch("carts", "latest", "1.0.0", 1),
		&impexp.CommentEntity{CommentID: 1, GlobalID: 100, Value: "first"},
		&impexp.CommentEntity{CommentID: 2, GlobalID: 101, Value: "second"},
		&impexp.CommentEntity{CommentID: 3, GlobalID: 101, Value: "third"},
	}
}

func TestImport_OrderIndependent(t *testing.T) {
	baseline, _ := testutil.OpenRegistry(t, nil)
	report := importAll(t, baseline, impexp.Options{}, orderedEntities()...)
	if len(report.Dangling) != 0 || report.Conflicts != 0 {
		t.Fatalf("baseline import: %s", report)
	}
	want := snapshot(t, baseline)
	if !slices.Contains(want, "artifact shop/orders type=JSON created_by=author-1 created_on="+testutil.Epoch.Add(time.Minute).Format(time.RFC3339)) {
		t.Fatalf("baseline artifact rows: %v", want)
	}

	rapid.Check(t, func(rt *rapid.T) {
		order := rapid.Permutation(orderedEntities()).Draw(rt, "order")
		reg := openRegistry(rt, t.TempDir())
		defer reg.Close()
		report := importAll(rt, reg, impexp.Options{}, order...)
		if len(report.Dangling) != 0 {
			rt.Fatalf("dangling after permuted import: %+v", report.Dangling)
		}
		got := snapshot(rt, reg)
		if !slices.Equal(got, want) {
			rt.Fatalf("graph differs from dependency-ordered import:\ngot:\n%s\nwant:\n%s",
				strings.Join(got, "\n"), strings.Join(want, "\n"))
		}
	})
}
