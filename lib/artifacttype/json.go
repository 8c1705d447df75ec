// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifacttype

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/registry/lib/model"
)

// refKey is the member name JSON Schema, OpenAPI, and AsyncAPI use for
// pointers to other documents.
const refKey = "$ref"

// decodeJSON parses JSON that may carry comments or trailing commas.
// Numbers are kept as json.Number so canonical output does not lose
// precision.
func decodeJSON(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return value, nil
}

// encodeJSON writes value with sorted object keys. An empty indent
// yields the compact canonical form.
func encodeJSON(value any, indent string) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if indent != "" {
		encoder.SetIndent("", indent)
	}
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buffer.Bytes(), "\n"), nil
}

func canonicalizeJSON(content model.TypedContent, _ map[string]model.TypedContent) (model.TypedContent, error) {
	value, err := decodeJSON(content.Content)
	if err != nil {
		return content, fmt.Errorf("canonicalize json: %w", err)
	}
	canonical, err := encodeJSON(value, "")
	if err != nil {
		return content, fmt.Errorf("canonicalize json: %w", err)
	}
	return model.TypedContent{Content: canonical, ContentType: "application/json"}, nil
}

func rewriteJSON(content model.TypedContent, rewrites map[string]string) (model.TypedContent, error) {
	if len(rewrites) == 0 {
		return content, nil
	}
	value, err := decodeJSON(content.Content)
	if err != nil {
		return content, fmt.Errorf("rewrite json references: %w", err)
	}
	if !rewriteRefs(value, rewrites) {
		return content, nil
	}
	rewritten, err := encodeJSON(value, "  ")
	if err != nil {
		return content, fmt.Errorf("rewrite json references: %w", err)
	}
	return model.TypedContent{Content: rewritten, ContentType: content.ContentType}, nil
}

// rewriteRefs walks a decoded JSON tree in place and reports whether
// any pointer changed.
func rewriteRefs(value any, rewrites map[string]string) bool {
	changed := false
	switch node := value.(type) {
	case map[string]any:
		for key, child := range node {
			if target, ok := child.(string); ok && key == refKey {
				if replacement, ok := rewritePointer(target, rewrites); ok {
					node[key] = replacement
					changed = true
				}
				continue
			}
			if rewriteRefs(child, rewrites) {
				changed = true
			}
		}
	case []any:
		for _, child := range node {
			if rewriteRefs(child, rewrites) {
				changed = true
			}
		}
	}
	return changed
}

// rewritePointer replaces the document part of a pointer, keeping any
// "#/fragment" suffix.
func rewritePointer(pointer string, rewrites map[string]string) (string, bool) {
	document, fragment, hasFragment := strings.Cut(pointer, "#")
	if document == "" {
		return pointer, false
	}
	replacement, ok := rewrites[document]
	if !ok {
		return pointer, false
	}
	if hasFragment {
		return replacement + "#" + fragment, true
	}
	return replacement, true
}

func looksLikeJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// canonicalizeJSONOrYAML canonicalizes both encodings to the same
// compact JSON, so a YAML document and its JSON equivalent share a
// canonical hash.
func canonicalizeJSONOrYAML(content model.TypedContent, resolved map[string]model.TypedContent) (model.TypedContent, error) {
	if looksLikeJSON(content.Content) {
		return canonicalizeJSON(content, resolved)
	}
	var value any
	if err := yaml.Unmarshal(content.Content, &value); err != nil {
		return content, fmt.Errorf("canonicalize yaml: %w", err)
	}
	canonical, err := encodeJSON(value, "")
	if err != nil {
		return content, fmt.Errorf("canonicalize yaml: %w", err)
	}
	return model.TypedContent{Content: canonical, ContentType: "application/json"}, nil
}

func rewriteJSONOrYAML(content model.TypedContent, rewrites map[string]string) (model.TypedContent, error) {
	if looksLikeJSON(content.Content) {
		return rewriteJSON(content, rewrites)
	}
	return rewriteYAML(content, rewrites)
}

// rewriteYAML edits $ref scalars on the node tree so comments and key
// order survive.
func rewriteYAML(content model.TypedContent, rewrites map[string]string) (model.TypedContent, error) {
	if len(rewrites) == 0 {
		return content, nil
	}
	var document yaml.Node
	if err := yaml.Unmarshal(content.Content, &document); err != nil {
		return content, fmt.Errorf("rewrite yaml references: %w", err)
	}
	if !rewriteYAMLNode(&document, rewrites) {
		return content, nil
	}
	rewritten, err := yaml.Marshal(&document)
	if err != nil {
		return content, fmt.Errorf("rewrite yaml references: %w", err)
	}
	return model.TypedContent{Content: rewritten, ContentType: content.ContentType}, nil
}

func rewriteYAMLNode(node *yaml.Node, rewrites map[string]string) bool {
	changed := false
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Value == refKey && value.Kind == yaml.ScalarNode {
				if replacement, ok := rewritePointer(value.Value, rewrites); ok {
					value.Value = replacement
					changed = true
				}
				continue
			}
			if rewriteYAMLNode(value, rewrites) {
				changed = true
			}
		}
		return changed
	}
	for _, child := range node.Content {
		if rewriteYAMLNode(child, rewrites) {
			changed = true
		}
	}
	return changed
}
