// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package versiongraph

import (
	"context"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/registry/lib/handle"
	"github.com/bureau-foundation/registry/lib/model"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// Rule is stored rule configuration. GA is nil for global rules.
// Rules are evaluated outside the registry core.
type Rule struct {
	GA            *model.GA
	Type          model.RuleType
	Configuration string
}

// Global rules are keyed by an empty group and artifact, which no
// artifact can have.
func ruleKey(ga *model.GA) (string, string) {
	if ga == nil {
		return "", ""
	}
	return ga.GroupID.RawValue(), ga.ArtifactID
}

func (g *Graph) checkRuleOwner(h *handle.Handle, ga *model.GA) error {
	if ga == nil {
		return nil
	}
	return requireArtifact(h, *ga)
}

func ruleExists(h *handle.Handle, ga *model.GA, ruleType model.RuleType) (bool, error) {
	group, artifact := ruleKey(ga)
	return exists(h, `SELECT 1 FROM rules WHERE group_id = ? AND artifact_id = ? AND rule_type = ?`,
		group, artifact, string(ruleType))
}

// CreateRule stores a rule on an artifact, or a global rule when
// rule.GA is nil.
func (g *Graph) CreateRule(ctx context.Context, rule Rule) error {
	if _, err := model.ParseRuleType(string(rule.Type)); err != nil {
		return &registryerr.InvalidError{Err: err}
	}
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if err := g.checkRuleOwner(h, rule.GA); err != nil {
			return err
		}
		found, err := ruleExists(h, rule.GA, rule.Type)
		if err != nil {
			return err
		}
		if found {
			return &registryerr.RuleAlreadyExistsError{GA: rule.GA, RuleType: rule.Type}
		}
		group, artifact := ruleKey(rule.GA)
		return h.Execute(`INSERT INTO rules (group_id, artifact_id, rule_type, configuration) VALUES (?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{group, artifact, string(rule.Type), rule.Configuration}})
	})
}

// GetRule returns one rule. ga is nil for global rules.
func (g *Graph) GetRule(ctx context.Context, ga *model.GA, ruleType model.RuleType) (Rule, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) (Rule, error) {
		if err := g.checkRuleOwner(h, ga); err != nil {
			return Rule{}, err
		}
		group, artifact := ruleKey(ga)
		rules, err := queryRules(h, `SELECT group_id, artifact_id, rule_type, configuration FROM rules
			WHERE group_id = ? AND artifact_id = ? AND rule_type = ?`,
			group, artifact, string(ruleType))
		if err != nil {
			return Rule{}, err
		}
		if len(rules) == 0 {
			return Rule{}, &registryerr.RuleNotFoundError{GA: ga, RuleType: ruleType}
		}
		return rules[0], nil
	})
}

// ListRules returns the rules of an artifact, or the global rules when
// ga is nil, ordered by type.
func (g *Graph) ListRules(ctx context.Context, ga *model.GA) ([]Rule, error) {
	return handle.View(ctx, g.handles, func(ctx context.Context, h *handle.Handle) ([]Rule, error) {
		if err := g.checkRuleOwner(h, ga); err != nil {
			return nil, err
		}
		group, artifact := ruleKey(ga)
		return queryRules(h, `SELECT group_id, artifact_id, rule_type, configuration FROM rules
			WHERE group_id = ? AND artifact_id = ? ORDER BY rule_type`, group, artifact)
	})
}

// UpdateRule replaces the configuration of an existing rule.
func (g *Graph) UpdateRule(ctx context.Context, rule Rule) error {
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if err := g.checkRuleOwner(h, rule.GA); err != nil {
			return err
		}
		group, artifact := ruleKey(rule.GA)
		err := h.Execute(`UPDATE rules SET configuration = ? WHERE group_id = ? AND artifact_id = ? AND rule_type = ?`,
			&sqlitex.ExecOptions{Args: []any{rule.Configuration, group, artifact, string(rule.Type)}})
		if err != nil {
			return err
		}
		if h.Changes() == 0 {
			return &registryerr.RuleNotFoundError{GA: rule.GA, RuleType: rule.Type}
		}
		return nil
	})
}

// DeleteRule removes one rule.
func (g *Graph) DeleteRule(ctx context.Context, ga *model.GA, ruleType model.RuleType) error {
	return g.handles.Do(ctx, func(ctx context.Context, h *handle.Handle) error {
		if err := g.checkRuleOwner(h, ga); err != nil {
			return err
		}
		group, artifact := ruleKey(ga)
		err := h.Execute(`DELETE FROM rules WHERE group_id = ? AND artifact_id = ? AND rule_type = ?`,
			&sqlitex.ExecOptions{Args: []any{group, artifact, string(ruleType)}})
		if err != nil {
			return err
		}
		if h.Changes() == 0 {
			return &registryerr.RuleNotFoundError{GA: ga, RuleType: ruleType}
		}
		return nil
	})
}

func queryRules(h *handle.Handle, query string, args ...any) ([]Rule, error) {
	var rules []Rule
	err := h.Execute(query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rules = append(rules, scanRule(stmt))
			return nil
		},
	})
	return rules, err
}

func scanRule(stmt *sqlite.Stmt) Rule {
	rule := Rule{
		Type:          model.RuleType(stmt.ColumnText(2)),
		Configuration: stmt.ColumnText(3),
	}
	if artifact := stmt.ColumnText(1); artifact != "" {
		rule.GA = &model.GA{GroupID: parseGroup(stmt.ColumnText(0)), ArtifactID: artifact}
	}
	return rule
}
