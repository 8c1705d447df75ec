// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagsFromParams returns a flag set bound to the tagged fields of
// params, a pointer to a struct. A params struct the binder cannot
// handle is a programming error and panics.
//
//	var params struct {
//	    cli.JSONOutput
//	    Branch string            `flag:"branch,b" desc:"branch to read" default:"latest"`
//	    Labels map[string]string `flag:"label" desc:"key=value label (repeatable)"`
//	}
//	command := &cli.Command{
//	    Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("get", &params) },
//	    Run:   func(args []string) error { ... },
//	}
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag for every field of params carrying a flag
// tag. Embedded structs contribute their fields.
//
// The flag tag is "name" or "name,s" with s a one-letter shorthand. The
// desc tag is the help text. The default tag is parsed as the field's
// type; a map default is written "k=v,k2=v2".
//
// Field types: string, bool, int, int64, [time.Duration], []string,
// map[string]string, and any type whose pointer implements
// [pflag.Value].
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Pointer || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStruct(value.Elem(), flagSet)
}

// flagSpec is the parsed form of a field's tags.
type flagSpec struct {
	name, shorthand string
	usage           string
	fallback        string
}

func bindStruct(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	for i := range structValue.NumField() {
		field := structValue.Type().Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := bindStruct(structValue.Field(i), flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}
		tag, ok := field.Tag.Lookup("flag")
		if !ok || tag == "" {
			continue
		}
		if !field.IsExported() {
			return fmt.Errorf("field %s: flag tag on unexported field", field.Name)
		}
		spec := flagSpec{usage: field.Tag.Get("desc"), fallback: field.Tag.Get("default")}
		spec.name, spec.shorthand, _ = strings.Cut(tag, ",")
		if err := spec.bind(structValue.Field(i).Addr().Interface(), flagSet); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func (s flagSpec) bind(target any, flagSet *pflag.FlagSet) error {
	switch target := target.(type) {
	case *string:
		flagSet.StringVarP(target, s.name, s.shorthand, s.fallback, s.usage)
	case *bool:
		fallback, err := parseFallback(s, strconv.ParseBool)
		if err != nil {
			return err
		}
		flagSet.BoolVarP(target, s.name, s.shorthand, fallback, s.usage)
	case *int:
		fallback, err := parseFallback(s, strconv.Atoi)
		if err != nil {
			return err
		}
		flagSet.IntVarP(target, s.name, s.shorthand, fallback, s.usage)
	case *int64:
		fallback, err := parseFallback(s, func(raw string) (int64, error) { return strconv.ParseInt(raw, 10, 64) })
		if err != nil {
			return err
		}
		flagSet.Int64VarP(target, s.name, s.shorthand, fallback, s.usage)
	case *time.Duration:
		fallback, err := parseFallback(s, time.ParseDuration)
		if err != nil {
			return err
		}
		flagSet.DurationVarP(target, s.name, s.shorthand, fallback, s.usage)
	case *[]string:
		var fallback []string
		if s.fallback != "" {
			fallback = strings.Split(s.fallback, ",")
		}
		flagSet.StringSliceVarP(target, s.name, s.shorthand, fallback, s.usage)
	case *map[string]string:
		fallback, err := parseFallback(s, parsePairs)
		if err != nil {
			return err
		}
		flagSet.StringToStringVarP(target, s.name, s.shorthand, fallback, s.usage)
	case pflag.Value:
		if s.fallback != "" {
			if err := target.Set(s.fallback); err != nil {
				return fmt.Errorf("default for --%s: %w", s.name, err)
			}
		}
		flagSet.VarP(target, s.name, s.shorthand, s.usage)
	default:
		return fmt.Errorf("unsupported type %T for flag --%s", target, s.name)
	}
	return nil
}

// parseFallback parses the default tag, or returns the zero value when
// there is none.
func parseFallback[T any](s flagSpec, parse func(string) (T, error)) (T, error) {
	var zero T
	if s.fallback == "" {
		return zero, nil
	}
	value, err := parse(s.fallback)
	if err != nil {
		return zero, fmt.Errorf("default for --%s: %w", s.name, err)
	}
	return value, nil
}

func parsePairs(raw string) (map[string]string, error) {
	pairs := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not key=value", pair)
		}
		pairs[key] = value
	}
	return pairs, nil
}
