// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package artifacttype

import (
	"bytes"
	"regexp"

	"github.com/bureau-foundation/registry/lib/model"
)

// protoImport matches `import "path";` with optional public or weak
// modifiers. Group 2 is the imported path.
var protoImport = regexp.MustCompile(`(?m)^(\s*import\s+(?:public\s+|weak\s+)?")([^"]+)(";)`)

// protoLineComment matches // comments through end of line.
var protoLineComment = regexp.MustCompile(`//[^\n]*`)

func rewriteProtoImports(content model.TypedContent, rewrites map[string]string) (model.TypedContent, error) {
	if len(rewrites) == 0 {
		return content, nil
	}
	rewritten := protoImport.ReplaceAllFunc(content.Content, func(match []byte) []byte {
		parts := protoImport.FindSubmatch(match)
		replacement, ok := rewrites[string(parts[2])]
		if !ok {
			return match
		}
		return append(append(append([]byte{}, parts[1]...), replacement...), parts[3]...)
	})
	return model.TypedContent{Content: rewritten, ContentType: content.ContentType}, nil
}

// canonicalizeProto drops line comments, blank lines, and surrounding
// whitespace so that reformatting a .proto file does not change its
// canonical hash.
func canonicalizeProto(content model.TypedContent, _ map[string]model.TypedContent) (model.TypedContent, error) {
	stripped := protoLineComment.ReplaceAll(content.Content, nil)
	var out bytes.Buffer
	for _, line := range bytes.Split(stripped, []byte("\n")) {
		line = bytes.Join(bytes.Fields(line), []byte(" "))
		if len(line) == 0 {
			continue
		}
		out.Write(line)
		out.WriteByte('\n')
	}
	return model.TypedContent{Content: out.Bytes(), ContentType: content.ContentType}, nil
}
