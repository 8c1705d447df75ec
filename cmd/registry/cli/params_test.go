// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Name     string            `flag:"name" desc:"the name"`
		Verbose  bool              `flag:"verbose,v" desc:"enable verbose output"`
		Count    int               `flag:"count" desc:"number of items"`
		Offset   int64             `flag:"offset" desc:"byte offset"`
		Timeout  time.Duration     `flag:"timeout" desc:"request timeout"`
		Refs     []string          `flag:"ref" desc:"references"`
		Labels   map[string]string `flag:"label" desc:"labels"`
		Untagged string
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	err := flagSet.Parse([]string{
		"--name", "alice",
		"-v",
		"--count", "42",
		"--offset", "1099511627776",
		"--timeout", "30s",
		"--ref", "payments:money:1:money.json",
		"--ref", "payments:currency:2:currency.json",
		"--label", "team=payments",
		"--label", "tier=gold",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Name != "alice" {
		t.Errorf("Name = %q, want alice", p.Name)
	}
	if !p.Verbose {
		t.Error("Verbose = false, want true")
	}
	if p.Count != 42 {
		t.Errorf("Count = %d, want 42", p.Count)
	}
	if p.Offset != 1099511627776 {
		t.Errorf("Offset = %d, want 1099511627776", p.Offset)
	}
	if p.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", p.Timeout)
	}
	if len(p.Refs) != 2 || p.Refs[1] != "payments:currency:2:currency.json" {
		t.Errorf("Refs = %v", p.Refs)
	}
	if len(p.Labels) != 2 || p.Labels["team"] != "payments" || p.Labels["tier"] != "gold" {
		t.Errorf("Labels = %v, want team=payments tier=gold", p.Labels)
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Kind    string            `flag:"kind" default:"JSON"`
		Limit   int               `flag:"limit" default:"20"`
		Enabled bool              `flag:"enabled" default:"true"`
		Wait    time.Duration     `flag:"wait" default:"5s"`
		Tags    []string          `flag:"tags" default:"a,b"`
		Labels  map[string]string `flag:"labels" default:"env=dev,tier=bronze"`
		Mode    modeFlag          `flag:"mode" default:"strict"`
	}

	var p params
	flagSet := FlagsFromParams("defaults", &p)
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Kind != "JSON" || p.Limit != 20 || !p.Enabled || p.Wait != 5*time.Second || len(p.Tags) != 2 {
		t.Errorf("defaults not applied: %+v", p)
	}
	if p.Labels["env"] != "dev" || p.Labels["tier"] != "bronze" || p.Mode != "strict" {
		t.Errorf("map or value defaults not applied: %+v", p)
	}
}

// modeFlag accepts only the semver modes.
type modeFlag string

func (m *modeFlag) String() string { return string(*m) }
func (m *modeFlag) Type() string   { return "mode" }
func (m *modeFlag) Set(raw string) error {
	switch raw {
	case "disabled", "coerce", "strict":
		*m = modeFlag(raw)
		return nil
	}
	return fmt.Errorf("unknown mode %q", raw)
}

func TestBindFlags_ValueType(t *testing.T) {
	var p struct {
		Mode modeFlag `flag:"mode,m"`
	}
	flagSet := FlagsFromParams("value", &p)
	if err := flagSet.Parse([]string{"-m", "coerce"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Mode != "coerce" {
		t.Errorf("Mode = %q, want coerce", p.Mode)
	}
	if err := FlagsFromParams("value", &p).Parse([]string{"--mode", "loose"}); err == nil {
		t.Error("Parse(--mode loose) = nil, want error")
	}
}

func TestBindFlags_EmbeddedJSONOutput(t *testing.T) {
	type params struct {
		JSONOutput
		Group string `flag:"group"`
	}
	var p params
	flagSet := FlagsFromParams("list", &p)
	if err := flagSet.Parse([]string{"--json", "--group", "payments"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !p.OutputJSON || p.Group != "payments" {
		t.Errorf("params = %+v, want json and group set", p)
	}
}

func TestBindFlags_Errors(t *testing.T) {
	flagSet := pflag.NewFlagSet("bad", pflag.ContinueOnError)
	if err := BindFlags(struct{}{}, flagSet); err == nil {
		t.Error("BindFlags(non-pointer) = nil, want error")
	}

	type unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	err := BindFlags(&unsupported{}, flagSet)
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Errorf("BindFlags(float32) = %v, want unsupported type", err)
	}

	type badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault{}, flagSet); err == nil {
		t.Error("BindFlags(bad default) = nil, want error")
	}

	type badPairs struct {
		Labels map[string]string `flag:"labels" default:"tier"`
	}
	if err := BindFlags(&badPairs{}, flagSet); err == nil {
		t.Error("BindFlags(bad map default) = nil, want error")
	}

	type hidden struct {
		secret string `flag:"secret"`
	}
	if err := BindFlags(&hidden{}, flagSet); err == nil {
		t.Error("BindFlags(unexported) = nil, want error")
	}
}
